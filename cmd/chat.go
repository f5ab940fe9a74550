package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"

	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/app"
	"github.com/selahapp/selah/internal/config"
	"github.com/selahapp/selah/internal/tui"
)

// runChat initializes and starts the interactive conversation TUI.
func runChat() error {
	chatFlags := flag.NewFlagSet("chat", flag.ContinueOnError)
	chatFlags.SetOutput(os.Stderr)

	persona := chatFlags.String("persona", "", "Persona for the conversation: companion or preacher")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := chatFlags.Parse(args); err != nil {
		return fmt.Errorf("parsing chat flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flag wins over the configured default.
	chosen := cfg.Persona
	if *persona != "" {
		chosen = *persona
	}
	if chosen == "" {
		chosen = agent.PersonaCompanion
	}
	if !agent.ValidPersona(chosen) {
		return fmt.Errorf("unknown persona %q: use %s or %s", chosen, agent.PersonaCompanion, agent.PersonaPreacher)
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

	model, err := tui.New(ctx, a.Flow, chosen)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
