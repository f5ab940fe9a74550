package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/app"
	"github.com/selahapp/selah/internal/config"
)

// runAsk answers a single question and exits. With -e the arguments are
// treated as a feeling word and matched against the tag index directly,
// skipping the model entirely.
func runAsk() error {
	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)

	feelingOnly := askFlags.Bool("e", false, "Search by feeling tag instead of asking the model")
	limit := askFlags.Int("n", 5, "Maximum passages for feeling search (1-20)")
	persona := askFlags.String("persona", "", "Persona for the answer: companion or preacher")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := askFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
	if question == "" {
		return fmt.Errorf("nothing to ask: selah ask \"feeling anxious\"")
	}
	if *persona != "" && !agent.ValidPersona(*persona) {
		return fmt.Errorf("unknown persona %q: use %s or %s", *persona, agent.PersonaCompanion, agent.PersonaPreacher)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if *feelingOnly {
		return askByFeeling(ctx, a, question, *limit)
	}

	output, err := a.Flow.Run(ctx, agent.Input{Query: question, Persona: *persona})
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	fmt.Println(output.Response)
	return nil
}

// askByFeeling prints passages tagged with the given feeling, one per line.
func askByFeeling(ctx context.Context, a *app.App, feeling string, limit int) error {
	results, err := a.Strategies.TagSearch(ctx, agent.TagSearchInput{
		Feeling: feeling,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("searching by feeling: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No passages tagged for %q.\n", feeling)
		return nil
	}

	for _, r := range results {
		fmt.Printf("%s\n  %s\n", r.Reference, r.Text)
	}
	return nil
}
