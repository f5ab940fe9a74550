package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selahapp/selah/internal/config"
	"github.com/selahapp/selah/internal/session"
)

const sessionsListLimit = 100

// runSessions dispatches the sessions subcommands. Only the database is
// needed here, so the AI provider is never initialized.
func runSessions() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store, err := session.NewStore(pool, cfg.MaxSessionTurns, slog.Default())
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	sub := "list"
	if len(os.Args) > 2 {
		sub = os.Args[2]
	}

	switch sub {
	case "list":
		return runSessionsList(ctx, store)
	case "show":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: selah sessions show <session-id>")
		}
		return runSessionsShow(ctx, store, os.Args[3])
	case "delete":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: selah sessions delete <session-id>")
		}
		return runSessionsDelete(ctx, store, os.Args[3])
	default:
		return fmt.Errorf("unknown sessions subcommand: %s (use list, show, or delete)", sub)
	}
}

func runSessionsList(ctx context.Context, store *session.Store) error {
	sessions, err := store.List(ctx, sessionsListLimit, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No stored conversations.")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-16s  %s\n", "ID", "PERSONA", "CREATED", "UPDATED")
	for _, s := range sessions {
		fmt.Printf("%-36s  %-10s  %-16s  %s\n",
			s.ID, s.Persona, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, store *session.Store, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}
	turns, err := store.History(ctx, id)
	if err != nil {
		return fmt.Errorf("getting history: %w", err)
	}

	fmt.Printf("Session: %s\n", sess.ID)
	fmt.Printf("Persona: %s\n", sess.Persona)
	fmt.Printf("Created: %s\n", formatTime(sess.CreatedAt))
	fmt.Printf("Turns:   %d\n", len(turns))
	fmt.Println()

	for _, turn := range turns {
		who := "You"
		if turn.Role == session.RoleAgent {
			who = "Selah"
		}
		fmt.Printf("%s> %s\n\n", who, turn.Content)
	}
	return nil
}

func runSessionsDelete(ctx context.Context, store *session.Store, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", id)
	return nil
}

// formatTime formats time in a human-readable format.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
