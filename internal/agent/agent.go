// Package agent implements the turn-by-turn orchestration loop: the model
// decides which retrieval strategy to invoke next, observes what it
// returned, and eventually answers from the gathered evidence.
//
// Per session the loop is strictly sequential; concurrency exists only
// across sessions. Evidence gathered within a turn lives in an in-memory
// scratchpad and is never persisted; only user and agent turns reach the
// session store.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/selahapp/selah/internal/retrieval"
	"github.com/selahapp/selah/internal/session"
)

// SessionStore is the persistence surface the loop needs.
type SessionStore interface {
	GetOrCreate(ctx context.Context, id uuid.UUID, persona string) (*session.Session, error)
	Append(ctx context.Context, sessionID uuid.UUID, turns []session.Turn) error
	History(ctx context.Context, sessionID uuid.UUID) ([]session.Turn, error)
}

// Response is the outcome of one turn.
type Response struct {
	SessionID uuid.UUID
	Text      string
	// Incomplete reports that the iteration bound forced the answer before
	// the model chose to stop gathering evidence.
	Incomplete bool
}

// Config carries the dependencies for an Agent.
type Config struct {
	Planner    Planner
	Strategies *Strategies
	Sessions   SessionStore

	// MaxIterations bounds decide/invoke cycles per turn, guarding against
	// non-terminating tool-call loops.
	MaxIterations int
	Logger        *slog.Logger
}

// Agent runs the conversation loop. It is stateless across turns and safe
// for concurrent use by distinct sessions; the session store serializes
// same-session appends.
type Agent struct {
	planner       Planner
	strategies    *Strategies
	sessions      SessionStore
	maxIterations int
	logger        *slog.Logger
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if cfg.Strategies == nil {
		return nil, fmt.Errorf("strategies are required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 6
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		planner:       cfg.Planner,
		strategies:    cfg.Strategies,
		sessions:      cfg.Sessions,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
	}, nil
}

// Respond runs one full turn: persist the user turn, iterate
// decide/invoke until the model answers or the iteration bound trips,
// persist the agent turn, and return the answer.
//
// A nil sessionID starts a new session. cb, when non-nil, receives
// streaming chunks of model output.
func (a *Agent) Respond(ctx context.Context, sessionID uuid.UUID, persona, input string, cb StreamCallback) (*Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("input is empty")
	}

	sess, err := a.sessions.GetOrCreate(ctx, sessionID, persona)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	history, err := a.sessions.History(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	if err := a.sessions.Append(ctx, sess.ID, []session.Turn{
		{Role: session.RoleUser, Content: input},
	}); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	system := systemPrompt(sess.Persona)
	messages := historyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	reprompted := false
	for iteration := 0; iteration < a.maxIterations; iteration++ {
		resp, err := a.planner.Decide(ctx, system, messages, cb)
		if err != nil {
			return a.endWithApology(ctx, sess.ID, err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				text = emptyResponseFallback
			}
			return a.finish(ctx, sess.ID, text, false)
		}

		// Invoking: execute requests strictly in order, feeding each
		// observation back so the next decision can react to it.
		parts := make([]*ai.Part, 0, len(requests))
		forceFinal := false
		for _, req := range requests {
			output, invalid := a.invoke(ctx, sess.ID, req)
			if invalid {
				if reprompted {
					forceFinal = true
				}
				reprompted = true
			}
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: output,
			}))
		}
		messages = append(messages, resp.Message, ai.NewMessage(ai.RoleTool, nil, parts...))

		if forceFinal {
			break
		}
	}

	return a.forceRespond(ctx, sess.ID, system, messages, cb)
}

// observation is what a strategy invocation feeds back to the model. A
// failed invocation is empty evidence plus the failure, never a turn
// abort.
type observation struct {
	Results []retrieval.Result `json:"results"`
	Count   int                `json:"count"`
	Error   string             `json:"error,omitempty"`
}

// invoke runs one strategy request. The second return reports an invalid
// request, which the caller counts against the single allowed re-prompt.
func (a *Agent) invoke(ctx context.Context, sessionID uuid.UUID, req *ai.ToolRequest) (observation, bool) {
	results, err := a.strategies.Execute(ctx, req)
	switch {
	case err == nil:
		a.logger.Debug("strategy invoked",
			"session_id", sessionID, "strategy", req.Name, "results", len(results))
		if results == nil {
			results = []retrieval.Result{}
		}
		return observation{Results: results, Count: len(results)}, false

	case errors.Is(err, ErrInvalidStrategyRequest):
		a.logger.Warn("invalid strategy request",
			"session_id", sessionID, "strategy", req.Name, "error", err)
		return observation{Results: []retrieval.Result{}, Error: err.Error()}, true

	default:
		// One failed evidence source must not lose the turn's progress.
		a.logger.Warn("strategy failed",
			"session_id", sessionID, "strategy", req.Name, "error", err)
		return observation{Results: []retrieval.Result{}, Error: err.Error()}, false
	}
}

// forceRespond ends a turn whose iteration bound tripped: one last
// generation from the gathered evidence, with the incompleteness
// disclaimer always attached.
func (a *Agent) forceRespond(ctx context.Context, sessionID uuid.UUID, system string, messages []*ai.Message, cb StreamCallback) (*Response, error) {
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(forcedFinalInstruction)))

	resp, err := a.planner.Decide(ctx, system, messages, cb)
	if err != nil {
		return a.endWithApology(ctx, sessionID, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = emptyResponseFallback
	}
	text = text + "\n\n" + incompleteDisclaimer
	return a.finish(ctx, sessionID, text, true)
}

// endWithApology ends the turn with a generic apology instead of crashing
// the session when the generative provider is unavailable.
func (a *Agent) endWithApology(ctx context.Context, sessionID uuid.UUID, cause error) (*Response, error) {
	if ctx.Err() != nil {
		// Caller abandoned the turn; discard partial progress.
		return nil, ctx.Err()
	}
	a.logger.Error("generation unavailable, ending turn with apology",
		"session_id", sessionID, "error", cause)
	return a.finish(ctx, sessionID, apologyMessage, false)
}

// finish persists the agent turn and returns the response.
func (a *Agent) finish(ctx context.Context, sessionID uuid.UUID, text string, incomplete bool) (*Response, error) {
	if err := a.sessions.Append(ctx, sessionID, []session.Turn{
		{Role: session.RoleAgent, Content: text},
	}); err != nil {
		// Best-effort: the user already has the answer on the wire.
		a.logger.Warn("persisting agent turn", "session_id", sessionID, "error", err)
	}
	return &Response{SessionID: sessionID, Text: text, Incomplete: incomplete}, nil
}

// historyMessages converts persisted turns into model messages.
func historyMessages(turns []session.Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(turns)+2)
	for _, turn := range turns {
		switch turn.Role {
		case session.RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		case session.RoleAgent:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return messages
}
