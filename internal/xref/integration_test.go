//go:build integration

package xref

import (
	"context"
	"log"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/selahapp/selah/internal/testutil"
)

var sharedDB *testutil.TestDB

func TestMain(m *testing.M) {
	var (
		cleanup func()
		err     error
	)
	sharedDB, cleanup, err = testutil.SetupTestDBForMain()
	if err != nil {
		log.Fatalf("starting test database: %v", err)
	}
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	testutil.CleanTables(t, sharedDB.Pool)

	store, err := New(sharedDB.Pool, slog.Default())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return store
}

func insertEdge(t *testing.T, pool *pgxpool.Pool, from, to string, votes int) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO cross_references (from_reference, to_reference, votes) VALUES ($1, $2, $3)`,
		from, to, votes)
	if err != nil {
		t.Fatalf("inserting edge %s -> %s: %v", from, to, err)
	}
}

func TestEdgesFrom(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertEdge(t, sharedDB.Pool, "Philippians 4:6", "Matthew 6:25", 80)
	insertEdge(t, sharedDB.Pool, "Philippians 4:6", "1 Peter 5:7", 120)
	insertEdge(t, sharedDB.Pool, "Philippians 4:6", "Psalms 55:22", 120)
	insertEdge(t, sharedDB.Pool, "Philippians 4:6", "Luke 12:22", 10)
	insertEdge(t, sharedDB.Pool, "John 3:16", "Romans 5:8", 300)

	t.Run("ordered by votes then target", func(t *testing.T) {
		got, err := store.EdgesFrom(ctx, "Philippians 4:6", 10)
		if err != nil {
			t.Fatalf("EdgesFrom() unexpected error: %v", err)
		}
		wantTo := []string{"1 Peter 5:7", "Psalms 55:22", "Matthew 6:25", "Luke 12:22"}
		if len(got) != len(wantTo) {
			t.Fatalf("EdgesFrom() returned %d edges, want %d", len(got), len(wantTo))
		}
		for i, e := range got {
			if e.To != wantTo[i] {
				t.Errorf("EdgesFrom()[%d].To = %q, want %q", i, e.To, wantTo[i])
			}
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		got, err := store.EdgesFrom(ctx, "Philippians 4:6", 2)
		if err != nil {
			t.Fatalf("EdgesFrom() unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("EdgesFrom() returned %d edges, want 2", len(got))
		}
		if got[0].To != "1 Peter 5:7" || got[1].To != "Psalms 55:22" {
			t.Errorf("EdgesFrom() top 2 = %q, %q", got[0].To, got[1].To)
		}
	})

	t.Run("no edges is empty not error", func(t *testing.T) {
		got, err := store.EdgesFrom(ctx, "Obadiah 1:1", 10)
		if err != nil {
			t.Fatalf("EdgesFrom() unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("EdgesFrom() returned %d edges, want 0", len(got))
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		if _, err := store.EdgesFrom(ctx, "Philippians 4:6", 0); err == nil {
			t.Error("EdgesFrom() with limit 0 expected error, got nil")
		}
	})
}
