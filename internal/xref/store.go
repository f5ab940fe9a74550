// Package xref provides access to the weighted directed graph of
// cross-references between passages.
package xref

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Edge is one directed cross-reference with its community vote weight.
type Edge struct {
	From  string
	To    string
	Votes int
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides query access to the cross-reference graph.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     querier
	logger *slog.Logger
}

// New creates a cross-reference Store. db is typically a *pgxpool.Pool.
func New(db querier, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// EdgesFrom returns up to limit outgoing edges from ref, ordered by votes
// descending with ties broken by target reference ascending. A reference
// with no outgoing edges yields an empty slice, not an error.
func (s *Store) EdgesFrom(ctx context.Context, ref string, limit int) ([]Edge, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.Query(ctx,
		`SELECT from_reference, to_reference, votes
		 FROM cross_references
		 WHERE from_reference = $1
		 ORDER BY votes DESC, to_reference ASC
		 LIMIT $2`,
		ref, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cross-references for %q: %w", ref, err)
	}
	defer rows.Close()

	edges := make([]Edge, 0, limit)
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.From, &e.To, &e.Votes); err != nil {
			return nil, fmt.Errorf("scanning cross-reference: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cross-references: %w", err)
	}
	return edges, nil
}
