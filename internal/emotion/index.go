package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TagRecord is the emotion annotation of one passage: the labels assigned at
// ingestion and the classifier's confidence in the assignment as a whole.
type TagRecord struct {
	Reference  string
	Emotions   []string
	Confidence float64
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Index provides label-based lookup over the emotion tags.
//
// Index is safe for concurrent use by multiple goroutines.
type Index struct {
	db     querier
	logger *slog.Logger
}

// NewIndex creates an emotion Index. db is typically a *pgxpool.Pool.
func NewIndex(db querier, logger *slog.Logger) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{db: db, logger: logger}, nil
}

// WithLabel returns up to limit tag records whose emotions contain label,
// ordered by confidence descending. Matching is exact on the stored label.
func (ix *Index) WithLabel(ctx context.Context, label string, limit int) ([]TagRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	// jsonb containment against the gin index: emotions @> '["label"]'.
	needle, err := json.Marshal([]string{label})
	if err != nil {
		return nil, fmt.Errorf("encoding label %q: %w", label, err)
	}

	rows, err := ix.db.Query(ctx,
		`SELECT reference, emotions, confidence
		 FROM emotion_tags
		 WHERE emotions @> $1
		 ORDER BY confidence DESC
		 LIMIT $2`,
		string(needle), limit)
	if err != nil {
		return nil, fmt.Errorf("querying emotion tags for %q: %w", label, err)
	}
	defer rows.Close()

	records := make([]TagRecord, 0, limit)
	for rows.Next() {
		var (
			rec TagRecord
			raw []byte
		)
		if err := rows.Scan(&rec.Reference, &raw, &rec.Confidence); err != nil {
			return nil, fmt.Errorf("scanning emotion tag: %w", err)
		}
		if err := json.Unmarshal(raw, &rec.Emotions); err != nil {
			return nil, fmt.Errorf("decoding emotions for %q: %w", rec.Reference, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating emotion tags: %w", err)
	}
	return records, nil
}
