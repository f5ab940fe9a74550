// Package corpus provides read access to the passage corpus backed by
// PostgreSQL + pgvector.
//
// The corpus is written once by the ingestion pipeline and is read-only at
// query time, so Store is safe for concurrent use by many sessions without
// locking.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// passageCols is the standard SELECT column list for scanPassage.
const passageCols = `reference, book, chapter, verse, text, translation`

// Store provides query access to the passage corpus.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     querier
	logger *slog.Logger
}

// New creates a corpus Store. db is typically a *pgxpool.Pool.
func New(db querier, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// GetByRef returns the passage with the given canonical reference.
// Returns ErrPassageNotFound when the reference does not exist.
func (s *Store) GetByRef(ctx context.Context, ref string) (*Passage, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+passageCols+` FROM passages WHERE reference = $1`, ref)

	var p Passage
	if err := row.Scan(&p.Reference, &p.Book, &p.Chapter, &p.Verse, &p.Text, &p.Translation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrPassageNotFound, ref)
		}
		return nil, fmt.Errorf("getting passage %q: %w", ref, err)
	}
	return &p, nil
}

// GetByRefs returns the passages for the given references in a single round
// trip. References with no corpus entry are silently absent from the result;
// the caller decides how to handle gaps.
func (s *Store) GetByRefs(ctx context.Context, refs []string) (map[string]Passage, error) {
	if len(refs) == 0 {
		return map[string]Passage{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+passageCols+` FROM passages WHERE reference = ANY($1)`, refs)
	if err != nil {
		return nil, fmt.Errorf("getting passages by refs: %w", err)
	}
	defer rows.Close()

	passages, err := scanPassages(rows)
	if err != nil {
		return nil, err
	}

	byRef := make(map[string]Passage, len(passages))
	for _, p := range passages {
		byRef[p.Reference] = p
	}
	return byRef, nil
}

// Window returns the passages of (book, chapter) with verse numbers in
// [center-radius, center+radius], clipped at 1, ordered by verse ascending.
// An unknown book/chapter yields an empty slice, not an error; the caller
// decides whether that is a not-found condition.
func (s *Store) Window(ctx context.Context, book string, chapter, center, radius int) ([]Passage, error) {
	start := center - radius
	if start < 1 {
		start = 1
	}
	end := center + radius

	rows, err := s.db.Query(ctx,
		`SELECT `+passageCols+` FROM passages
		 WHERE book = $1 AND chapter = $2 AND verse BETWEEN $3 AND $4
		 ORDER BY verse ASC`,
		book, chapter, start, end)
	if err != nil {
		return nil, fmt.Errorf("scanning window %s %d:%d-%d: %w", book, chapter, start, end, err)
	}
	defer rows.Close()

	return scanPassages(rows)
}

// SearchSimilar returns up to limit passages whose embedding cosine
// similarity to vec is at least minSimilarity, ordered by similarity
// descending. Similarity is 1 - cosine distance.
func (s *Store) SearchSimilar(ctx context.Context, vec []float32, minSimilarity float64, limit int) ([]SimilarPassage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	qv := pgvector.NewVector(vec)
	rows, err := s.db.Query(ctx,
		`SELECT `+passageCols+`, 1 - (embedding <=> $1) AS similarity
		 FROM passages
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		qv, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	results := make([]SimilarPassage, 0, limit)
	for rows.Next() {
		var sp SimilarPassage
		if err := rows.Scan(&sp.Reference, &sp.Book, &sp.Chapter, &sp.Verse,
			&sp.Text, &sp.Translation, &sp.Similarity); err != nil {
			return nil, fmt.Errorf("scanning similar passage: %w", err)
		}
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similar passages: %w", err)
	}

	s.logger.Debug("similarity search", "results", len(results), "min_similarity", minSimilarity)
	return results, nil
}

// Count returns the number of passages in the corpus. Used by readiness
// checks to detect an unloaded corpus.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM passages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}

// scanPassages drains rows into a Passage slice.
func scanPassages(rows pgx.Rows) ([]Passage, error) {
	var passages []Passage
	for rows.Next() {
		var p Passage
		if err := rows.Scan(&p.Reference, &p.Book, &p.Chapter, &p.Verse, &p.Text, &p.Translation); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return passages, nil
}
