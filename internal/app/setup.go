package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selahapp/selah/db"
	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/config"
	"github.com/selahapp/selah/internal/corpus"
	"github.com/selahapp/selah/internal/emotion"
	"github.com/selahapp/selah/internal/observability"
	"github.com/selahapp/selah/internal/retrieval"
	"github.com/selahapp/selah/internal/session"
	"github.com/selahapp/selah/internal/xref"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.Otel.Enabled {
		a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)
	}

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	if err := provideStores(a, pool, logger); err != nil {
		return nil, err
	}

	if err := provideRetrieval(a, embedder, logger); err != nil {
		return nil, err
	}

	if err := provideAgent(a, logger); err != nil {
		return nil, err
	}

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization so
// the TracerProvider is ready when flows register.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		AgentHost:   cfg.Otel.AgentHost,
		Environment: cfg.Otel.Environment,
		ServiceName: cfg.Otel.ServiceName,
	})
	if err != nil {
		logger.Warn("tracing setup failed, continuing without tracing", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider
// plugin. Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	switch provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // "gemini"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideStores creates the persistence layer on the shared pool.
func provideStores(a *App, pool *pgxpool.Pool, logger *slog.Logger) error {
	corpusStore, err := corpus.New(pool, logger)
	if err != nil {
		return fmt.Errorf("creating corpus store: %w", err)
	}
	a.Corpus = corpusStore

	xrefStore, err := xref.New(pool, logger)
	if err != nil {
		return fmt.Errorf("creating cross-reference store: %w", err)
	}
	a.XRefs = xrefStore

	emotionIndex, err := emotion.NewIndex(pool, logger)
	if err != nil {
		return fmt.Errorf("creating emotion index: %w", err)
	}
	a.Emotions = emotionIndex

	sessionStore, err := session.NewStore(pool, a.Config.MaxSessionTurns, logger)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessionStore

	return nil
}

// provideRetrieval creates the four retrieval strategies on the stores.
func provideRetrieval(a *App, embedder ai.Embedder, logger *slog.Logger) error {
	genkitEmbedder, err := retrieval.NewGenkitEmbedder(embedder)
	if err != nil {
		return fmt.Errorf("creating embedder adapter: %w", err)
	}

	semantic, err := retrieval.NewSemantic(genkitEmbedder, a.Corpus, logger)
	if err != nil {
		return fmt.Errorf("creating semantic strategy: %w", err)
	}
	a.Semantic = semantic

	tags, err := retrieval.NewTags(a.Emotions, a.Corpus, logger)
	if err != nil {
		return fmt.Errorf("creating tag strategy: %w", err)
	}
	a.Tags = tags

	related, err := retrieval.NewRelated(a.XRefs, a.Corpus, logger)
	if err != nil {
		return fmt.Errorf("creating related strategy: %w", err)
	}
	a.Related = related

	window, err := retrieval.NewWindow(a.Corpus, logger)
	if err != nil {
		return fmt.Errorf("creating window strategy: %w", err)
	}
	a.Window = window

	return nil
}

// provideAgent registers the strategy tools and builds the conversation
// loop and its Genkit flow.
func provideAgent(a *App, logger *slog.Logger) error {
	cfg := a.Config

	strategies, err := agent.NewStrategies(agent.StrategiesConfig{
		Semantic:      a.Semantic,
		Tags:          a.Tags,
		Related:       a.Related,
		Window:        a.Window,
		Lookup:        a.Corpus,
		MinSimilarity: cfg.AgentMinSimilarity,
		Radius:        cfg.ContextRadius,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating strategies: %w", err)
	}
	a.Strategies = strategies

	tools, err := agent.RegisterTools(a.Genkit, strategies)
	if err != nil {
		return fmt.Errorf("registering strategy tools: %w", err)
	}
	a.Tools = tools
	logger.Info("strategy tools registered", "count", len(tools))

	planner, err := agent.NewGenkitPlanner(agent.PlannerConfig{
		Genkit:    a.Genkit,
		ModelName: cfg.FullModelName(),
		Tools:     tools,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating planner: %w", err)
	}

	ag, err := agent.New(agent.Config{
		Planner:       planner,
		Strategies:    strategies,
		Sessions:      a.Sessions,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	a.Flow = agent.NewFlow(a.Genkit, ag)

	return nil
}
