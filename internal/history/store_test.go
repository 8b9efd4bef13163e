package history_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jxucoder/meepoo/internal/history"
	"github.com/jxucoder/meepoo/pkg/llm"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := history.NewStore("/no/such/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s1.Record(ctx, &history.Generation{Kind: llm.KindPrompt, Input: "in", Output: "out"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s1.Close()

	s2, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()
	gens, err := s2.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gens) != 1 {
		t.Fatalf("got %d generations after reopen, want 1", len(gens))
	}
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &history.Generation{
		Kind:   llm.KindHunks,
		Model:  "qwen2.5-7b-instruct-1m",
		Input:  "a.txt: added func\nb.txt: removed var",
		Output: "refactor: move helpers",
	}
	if err := store.Record(ctx, g); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if g.ID == "" {
		t.Fatal("Record did not assign an ID")
	}
	if g.CreatedAt.IsZero() {
		t.Fatal("Record did not set CreatedAt")
	}

	got, err := store.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != g.Kind || got.Model != g.Model || got.Input != g.Input || got.Output != g.Output {
		t.Errorf("Get = %+v, want %+v", got, g)
	}
	if d := got.CreatedAt.Sub(g.CreatedAt); d > time.Second || d < -time.Second {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, g.CreatedAt)
	}
}

func TestRecord_KeepsGivenID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	g := &history.Generation{ID: "fixed-id", Kind: llm.KindDiff, Input: "d", Output: "o"}
	if err := store.Record(ctx, g); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if g.ID != "fixed-id" {
		t.Fatalf("ID = %q, want fixed-id", g.ID)
	}
	if err := store.Record(ctx, &history.Generation{ID: "fixed-id", Kind: llm.KindDiff}); err == nil {
		t.Fatal("expected duplicate ID to fail")
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		g := &history.Generation{
			Kind:      llm.KindSummary,
			Input:     fmt.Sprintf("in-%d", i),
			Output:    fmt.Sprintf("out-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, g); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	gens, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gens) != 3 {
		t.Fatalf("got %d generations, want 3", len(gens))
	}
	for i, want := range []string{"out-4", "out-3", "out-2"} {
		if gens[i].Output != want {
			t.Errorf("gens[%d].Output = %q, want %q", i, gens[i].Output, want)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d generations, want 5", len(all))
	}
}

func TestList_Empty(t *testing.T) {
	store := newTestStore(t)
	gens, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gens) != 0 {
		t.Fatalf("expected no generations, got %d", len(gens))
	}
}
