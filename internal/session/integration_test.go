//go:build integration

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

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

func setupStore(t *testing.T, maxTurns int32) *Store {
	t.Helper()
	testutil.CleanTables(t, sharedDB.Pool)

	store, err := NewStore(sharedDB.Pool, maxTurns, slog.Default())
	if err != nil {
		t.Fatalf("NewStore() unexpected error: %v", err)
	}
	return store
}

func userTurn(content string) Turn  { return Turn{Role: RoleUser, Content: content} }
func agentTurn(content string) Turn { return Turn{Role: RoleAgent, Content: content} }

func TestGetOrCreate(t *testing.T) {
	store := setupStore(t, 40)
	ctx := context.Background()

	t.Run("nil id generates a session", func(t *testing.T) {
		sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
		if err != nil {
			t.Fatalf("GetOrCreate() unexpected error: %v", err)
		}
		if sess.ID == uuid.Nil {
			t.Error("GetOrCreate() returned nil session id")
		}
		if sess.Persona != "companion" {
			t.Errorf("GetOrCreate() persona = %q, want default companion", sess.Persona)
		}
	})

	t.Run("caller-supplied id is created on first reference", func(t *testing.T) {
		id := uuid.New()
		sess, err := store.GetOrCreate(ctx, id, "preacher")
		if err != nil {
			t.Fatalf("GetOrCreate() unexpected error: %v", err)
		}
		if sess.ID != id || sess.Persona != "preacher" {
			t.Errorf("GetOrCreate() = %+v, want id %s persona preacher", sess, id)
		}
	})

	t.Run("existing persona is not overwritten", func(t *testing.T) {
		id := uuid.New()
		if _, err := store.GetOrCreate(ctx, id, "preacher"); err != nil {
			t.Fatalf("GetOrCreate() unexpected error: %v", err)
		}
		sess, err := store.GetOrCreate(ctx, id, "companion")
		if err != nil {
			t.Fatalf("GetOrCreate() unexpected error: %v", err)
		}
		if sess.Persona != "preacher" {
			t.Errorf("GetOrCreate() persona = %q, want original preacher", sess.Persona)
		}
	})
}

func TestGetUnknownSession(t *testing.T) {
	store := setupStore(t, 40)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestAppendAndHistory(t *testing.T) {
	store := setupStore(t, 40)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	if err := store.Append(ctx, sess.ID, []Turn{userTurn("hello"), agentTurn("hi there")}); err != nil {
		t.Fatalf("Append() unexpected error: %v", err)
	}
	if err := store.Append(ctx, sess.ID, []Turn{userTurn("how are you")}); err != nil {
		t.Fatalf("Append() unexpected error: %v", err)
	}

	turns, err := store.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("History() returned %d turns, want 3", len(turns))
	}
	for i, turn := range turns {
		if turn.Seq != int32(i+1) {
			t.Errorf("History()[%d].Seq = %d, want %d", i, turn.Seq, i+1)
		}
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleAgent || turns[2].Role != RoleUser {
		t.Errorf("History() roles = %v, %v, %v", turns[0].Role, turns[1].Role, turns[2].Role)
	}
}

func TestAppendValidation(t *testing.T) {
	store := setupStore(t, 40)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	if err := store.Append(ctx, sess.ID, []Turn{{Role: "system", Content: "x"}}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Append() invalid role error = %v, want ErrInvalidRole", err)
	}
	if err := store.Append(ctx, sess.ID, []Turn{{Role: RoleUser, Content: ""}}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Append() empty content error = %v, want ErrEmptyContent", err)
	}
	if err := store.Append(ctx, uuid.New(), []Turn{userTurn("x")}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Append() unknown session error = %v, want ErrSessionNotFound", err)
	}
	if err := store.Append(ctx, sess.ID, nil); err != nil {
		t.Errorf("Append() with no turns = %v, want nil", err)
	}
}

func TestRetentionDropsOldest(t *testing.T) {
	store := setupStore(t, 4)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	for i := 1; i <= 6; i++ {
		if err := store.Append(ctx, sess.ID, []Turn{userTurn(fmt.Sprintf("turn %d", i))}); err != nil {
			t.Fatalf("Append() turn %d unexpected error: %v", i, err)
		}
	}

	turns, err := store.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("History() returned %d turns, want 4 (retention bound)", len(turns))
	}
	// The oldest turns are gone; the survivors keep their original sequence
	// numbers in order with no gaps.
	for i, turn := range turns {
		wantSeq := int32(i + 3)
		if turn.Seq != wantSeq {
			t.Errorf("History()[%d].Seq = %d, want %d", i, turn.Seq, wantSeq)
		}
		if turn.Content != fmt.Sprintf("turn %d", wantSeq) {
			t.Errorf("History()[%d].Content = %q, want turn %d", i, turn.Content, wantSeq)
		}
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	store := setupStore(t, 100)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, sess.ID, []Turn{userTurn(fmt.Sprintf("writer %d", i))})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Append() unexpected error: %v", err)
		}
	}

	turns, err := store.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(turns) != writers {
		t.Fatalf("History() returned %d turns, want %d", len(turns), writers)
	}
	for i, turn := range turns {
		if turn.Seq != int32(i+1) {
			t.Errorf("History()[%d].Seq = %d, want %d (no gaps or duplicates)", i, turn.Seq, i+1)
		}
	}
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	store := setupStore(t, 40)
	ctx := context.Background()

	const sessions = 6
	ids := make([]uuid.UUID, sessions)
	for i := range ids {
		sess, err := store.GetOrCreate(ctx, uuid.Nil, "")
		if err != nil {
			t.Fatalf("GetOrCreate() unexpected error: %v", err)
		}
		ids[i] = sess.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := store.Append(ctx, id, []Turn{userTurn("x"), agentTurn("y")}); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Append() unexpected error: %v", err)
		}
	}

	for _, id := range ids {
		turns, err := store.History(ctx, id)
		if err != nil {
			t.Fatalf("History() unexpected error: %v", err)
		}
		if len(turns) != 10 {
			t.Errorf("History(%s) returned %d turns, want 10", id, len(turns))
		}
	}
}

func TestListAndDelete(t *testing.T) {
	store := setupStore(t, 40)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}
	second, err := store.GetOrCreate(ctx, uuid.Nil, "")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	// Touch the first session so it sorts newest.
	if err := store.Append(ctx, first.ID, []Turn{userTurn("hello")}); err != nil {
		t.Fatalf("Append() unexpected error: %v", err)
	}

	listed, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("List() returned %d sessions, want 2", len(listed))
	}
	if listed[0].ID != first.ID {
		t.Errorf("List()[0].ID = %s, want most recently updated %s", listed[0].ID, first.ID)
	}

	if err := store.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if err := store.Delete(ctx, second.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	turns, err := store.History(ctx, first.ID)
	if err != nil {
		t.Fatalf("History() after delete unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("History() after delete returned %d turns, want 0 (cascade)", len(turns))
	}
}
