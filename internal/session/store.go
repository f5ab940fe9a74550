package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages session persistence backed by PostgreSQL.
//
// Store supports concurrent append/read across distinct sessions. Appends
// to the same session are serialized by a per-session advisory lock, so the
// strictly-increasing sequence contract holds even if two callers race on
// one session id.
type Store struct {
	pool     *pgxpool.Pool
	maxTurns int32
	logger   *slog.Logger
}

// NewStore creates a session Store. maxTurns is the per-session retention
// bound; appending beyond it drops the oldest turns.
func NewStore(pool *pgxpool.Pool, maxTurns int32, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if maxTurns < 2 {
		return nil, fmt.Errorf("maxTurns must be at least 2, got %d", maxTurns)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, maxTurns: maxTurns, logger: logger}, nil
}

// GetOrCreate returns the session with the given id, creating it with the
// given persona on first reference. A nil id creates a fresh session with a
// generated id.
func (s *Store) GetOrCreate(ctx context.Context, id uuid.UUID, persona string) (*Session, error) {
	if persona == "" {
		persona = "companion"
	}

	if id == uuid.Nil {
		var sess Session
		err := s.pool.QueryRow(ctx,
			`INSERT INTO sessions (persona) VALUES ($1)
			 RETURNING id, persona, created_at, updated_at`,
			persona).Scan(&sess.ID, &sess.Persona, &sess.CreatedAt, &sess.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.logger.Debug("created session", "id", sess.ID, "persona", sess.Persona)
		return &sess, nil
	}

	// Insert-if-absent, then read back. The persona of an existing session
	// is never overwritten by a later request.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, persona) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, persona)
	if err != nil {
		return nil, fmt.Errorf("ensuring session %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Get returns the session with the given id, or ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, persona, created_at, updated_at FROM sessions WHERE id = $1`,
		id).Scan(&sess.ID, &sess.Persona, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Session, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, persona, created_at, updated_at FROM sessions
		 ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0, limit)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Persona, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and all its turns (CASCADE).
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// Append atomically adds turns to a session, assigning consecutive sequence
// numbers, then prunes any turns older than the retention bound.
//
// The transaction takes a per-session advisory lock first, so concurrent
// appends to the same session cannot interleave sequence assignment.
// pg_advisory_xact_lock releases automatically at commit/rollback.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for i, turn := range turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidRole, i, turn.Role)
		}
		if turn.Content == "" {
			return fmt.Errorf("%w: turn %d", ErrEmptyContent, i)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID.String()); err != nil {
		return fmt.Errorf("acquiring advisory lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("checking session %s: %w", sessionID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var maxSeq int32
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM session_turns WHERE session_id = $1`,
		sessionID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("reading max sequence for %s: %w", sessionID, err)
	}

	for i, turn := range turns {
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- i bounded by slice length
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_turns (session_id, seq, role, content) VALUES ($1, $2, $3, $4)`,
			sessionID, seq, string(turn.Role), turn.Content); err != nil {
			return fmt.Errorf("inserting turn %d for %s: %w", seq, sessionID, err)
		}
	}
	newMax := maxSeq + int32(len(turns)) // #nosec G115 -- len bounded by practical turn counts

	// Drop everything outside the retention window.
	if newMax > s.maxTurns {
		if _, err := tx.Exec(ctx,
			`DELETE FROM session_turns WHERE session_id = $1 AND seq <= $2`,
			sessionID, newMax-s.maxTurns); err != nil {
			return fmt.Errorf("pruning turns for %s: %w", sessionID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("touching session %s: %w", sessionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing turns for %s: %w", sessionID, err)
	}

	s.logger.Debug("appended turns", "session_id", sessionID, "count", len(turns), "max_seq", newMax)
	return nil
}

// History returns the retained turns of a session in sequence order.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, seq, role, content, created_at
		 FROM session_turns WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn Turn
			role string
		)
		if err := rows.Scan(&turn.SessionID, &turn.Seq, &role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}
