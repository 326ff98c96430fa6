package memory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okdesk/deskagent/internal/memory"
)

// Compile-time interface guard.
var _ memory.Store = (*memory.InMemoryStore)(nil)

func timeZero() time.Time { return time.Time{} }

func TestInMemoryStore_RecentMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	for i := 1; i <= 5; i++ {
		if err := store.AppendMessage(ctx, "s1", "user", fmt.Sprintf("msg-%d", i), timeZero()); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	turns, err := store.RecentMessages(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	// Oldest-first within the returned window.
	want := []string{"msg-3", "msg-4", "msg-5"}
	for i, w := range want {
		if turns[i].Content != w {
			t.Errorf("turns[%d].Content = %q, want %q", i, turns[i].Content, w)
		}
	}

	// Limit larger than the log returns everything.
	all, err := store.RecentMessages(ctx, "s1", 100)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("got %d turns, want 5", len(all))
	}

	// Unknown session yields an empty result, not an error.
	none, err := store.RecentMessages(ctx, "nope", 3)
	if err != nil {
		t.Fatalf("RecentMessages(unknown): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d turns for unknown session, want 0", len(none))
	}
}

func TestInMemoryStore_SearchMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	contents := []string{"打开计算器", "hello world", "计算一下", "goodbye"}
	for _, c := range contents {
		if err := store.AppendMessage(ctx, "s1", "user", c, timeZero()); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	turns, err := store.SearchMessages(ctx, "s1", "计算", 10)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d matches, want 2", len(turns))
	}
	// Newest-first.
	if turns[0].Content != "计算一下" || turns[1].Content != "打开计算器" {
		t.Errorf("unexpected order: %q, %q", turns[0].Content, turns[1].Content)
	}

	empty, err := store.SearchMessages(ctx, "s1", "不存在的词", 10)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d matches, want 0", len(empty))
	}
}

func TestInMemoryStore_Facts_LastWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	if err := store.PutFact(ctx, "s1", "favorite_color", "blue"); err != nil {
		t.Fatalf("PutFact: %v", err)
	}
	if err := store.PutFact(ctx, "s1", "favorite_color", "red"); err != nil {
		t.Fatalf("PutFact: %v", err)
	}

	v, err := store.GetFact(ctx, "s1", "favorite_color")
	if err != nil {
		t.Fatalf("GetFact: %v", err)
	}
	if v != "red" {
		t.Errorf("GetFact = %v, want red", v)
	}

	// Absent key is a distinct signal.
	if _, err := store.GetFact(ctx, "s1", "missing"); !errors.Is(err, memory.ErrFactNotFound) {
		t.Errorf("GetFact(missing) = %v, want ErrFactNotFound", err)
	}

	// Other sessions are isolated.
	if _, err := store.GetFact(ctx, "s2", "favorite_color"); !errors.Is(err, memory.ErrFactNotFound) {
		t.Errorf("GetFact(other session) = %v, want ErrFactNotFound", err)
	}
}

func TestInMemoryStore_StoredEmptyValueIsNotAMiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	if err := store.PutFact(ctx, "s1", "note", ""); err != nil {
		t.Fatalf("PutFact: %v", err)
	}
	v, err := store.GetFact(ctx, "s1", "note")
	if err != nil {
		t.Fatalf("GetFact: %v", err)
	}
	if v != "" {
		t.Errorf("GetFact = %v, want empty string", v)
	}
}

func TestInMemoryStore_Operations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	for i := 1; i <= 3; i++ {
		err := store.RecordOperation(ctx, "s1", "execute", fmt.Sprintf("打开应用 %d", i), map[string]string{"n": fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("RecordOperation: %v", err)
		}
	}

	ops, err := store.RecentOperations(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentOperations: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operations, want 2", len(ops))
	}
	if ops[0].Summary != "打开应用 2" {
		t.Errorf("ops[0].Summary = %q", ops[0].Summary)
	}

	found, err := store.SearchOperations(ctx, "s1", "应用 3", 10)
	if err != nil {
		t.Fatalf("SearchOperations: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d matches, want 1", len(found))
	}
}

func TestInMemoryStore_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.AppendMessage(ctx, "s1", "user", fmt.Sprintf("m-%d", n), timeZero())
		}(i)
	}
	wg.Wait()

	turns, err := store.RecentMessages(ctx, "s1", 100)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(turns) != 20 {
		t.Errorf("got %d turns, want 20", len(turns))
	}
}
