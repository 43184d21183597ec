package cache

import (
	"context"
	"testing"
	"time"

	"todo-api/internal/models"
)

func TestListKey(t *testing.T) {
	done := false
	tests := []struct {
		name string
		q    models.ListQuery
		want string
	}{
		{
			name: "no filters",
			q:    models.ListQuery{Page: 1, Limit: 10},
			want: "todos-u1-1-10-undefined-undefined-undefined",
		},
		{
			name: "all filters",
			q:    models.ListQuery{Page: 2, Limit: 5, Status: &done, StartDate: "2024-01-01", EndDate: "2024-12-31"},
			want: "todos-u1-2-5-false-2024-01-01-2024-12-31",
		},
		{
			name: "end date only",
			q:    models.ListQuery{Page: 1, Limit: 10, EndDate: "2024-12-31"},
			want: "todos-u1-1-10-undefined-undefined-2024-12-31",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ListKey("u1", tt.q); got != tt.want {
				t.Fatalf("ListKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemKey(t *testing.T) {
	if got := ItemKey("t1", "u1"); got != "todo-t1-u1" {
		t.Fatalf("ItemKey = %q", got)
	}
}

func newTestCache() *QueryCache {
	return NewQueryCache(NewMemoryBackend(1000, time.Minute), time.Minute)
}

func TestQueryCacheListRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	key := ListKey("u1", models.ListQuery{Page: 1, Limit: 10})

	if _, ok, err := c.GetList(ctx, key); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	page := models.TodoPage{
		Todos:      []models.Todo{{ID: "t1", OwnerID: "u1", Title: "Buy milk", CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}},
		Total:      1,
		TotalPages: 1,
	}
	if err := c.SetList(ctx, key, page); err != nil {
		t.Fatalf("SetList: %v", err)
	}

	got, ok, err := c.GetList(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Total != 1 || got.TotalPages != 1 || len(got.Todos) != 1 || got.Todos[0].Title != "Buy milk" {
		t.Fatalf("unexpected page: %+v", got)
	}
	if !got.Todos[0].CreatedAt.Equal(page.Todos[0].CreatedAt) {
		t.Fatalf("CreatedAt = %v", got.Todos[0].CreatedAt)
	}
}

func TestQueryCacheInvalidateListsIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	mine := []string{
		ListKey("u1", models.ListQuery{Page: 1, Limit: 10}),
		ListKey("u1", models.ListQuery{Page: 2, Limit: 10}),
		ListKey("u1", models.ListQuery{Page: 1, Limit: 5, StartDate: "2024-01-01"}),
	}
	theirs := ListKey("u2", models.ListQuery{Page: 1, Limit: 10})
	item := ItemKey("t1", "u1")

	for _, key := range append(mine, theirs) {
		if err := c.SetList(ctx, key, models.TodoPage{Total: 1, TotalPages: 1}); err != nil {
			t.Fatalf("SetList: %v", err)
		}
	}
	if err := c.SetTodo(ctx, item, models.Todo{ID: "t1", OwnerID: "u1"}); err != nil {
		t.Fatalf("SetTodo: %v", err)
	}

	if err := c.InvalidateLists(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateLists: %v", err)
	}

	for _, key := range mine {
		if _, ok, _ := c.GetList(ctx, key); ok {
			t.Errorf("%s survived invalidation", key)
		}
	}
	if _, ok, _ := c.GetList(ctx, theirs); !ok {
		t.Error("another owner's list was invalidated")
	}
	if _, ok, _ := c.GetTodo(ctx, item); !ok {
		t.Error("list invalidation must not drop single todos")
	}
}

func TestQueryCacheInvalidateTodo(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	listKey := ListKey("u1", models.ListQuery{Page: 1, Limit: 10})
	item := ItemKey("t1", "u1")
	other := ItemKey("t2", "u1")

	_ = c.SetList(ctx, listKey, models.TodoPage{})
	_ = c.SetTodo(ctx, item, models.Todo{ID: "t1"})
	_ = c.SetTodo(ctx, other, models.Todo{ID: "t2"})

	if err := c.InvalidateTodo(ctx, "t1", "u1"); err != nil {
		t.Fatalf("InvalidateTodo: %v", err)
	}
	if _, ok, _ := c.GetTodo(ctx, item); ok {
		t.Error("todo survived invalidation")
	}
	if _, ok, _ := c.GetList(ctx, listKey); ok {
		t.Error("list survived invalidation")
	}
	if _, ok, _ := c.GetTodo(ctx, other); !ok {
		t.Error("unrelated todo was invalidated")
	}
}

func TestQueryCacheDropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(1000, time.Minute)
	c := NewQueryCache(backend, time.Minute)

	_ = backend.Set(ctx, "todo-t1-u1", []byte("{not json"), time.Minute)

	if _, ok, err := c.GetTodo(ctx, "todo-t1-u1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := backend.Get(ctx, "todo-t1-u1"); ok {
		t.Fatal("corrupt entry should be deleted")
	}
}

func TestQueryCacheFillDroppedAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	listKey := ListKey("u1", models.ListQuery{Page: 1, Limit: 10})
	item := ItemKey("t1", "u1")

	gen := c.Generation("u1")
	other := c.Generation("u2")
	if err := c.InvalidateLists(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateLists: %v", err)
	}

	if ok, err := c.FillList(ctx, "u1", gen, listKey, models.TodoPage{Total: 1}); ok || err != nil {
		t.Fatalf("FillList = %v, %v; want dropped", ok, err)
	}
	if ok, err := c.FillTodo(ctx, "u1", gen, item, models.Todo{ID: "t1"}); ok || err != nil {
		t.Fatalf("FillTodo = %v, %v; want dropped", ok, err)
	}
	if _, ok, _ := c.GetList(ctx, listKey); ok {
		t.Fatal("stale list was cached")
	}

	theirs := ListKey("u2", models.ListQuery{Page: 1, Limit: 10})
	if ok, err := c.FillList(ctx, "u2", other, theirs, models.TodoPage{}); !ok || err != nil {
		t.Fatalf("another owner's fill = %v, %v; want written", ok, err)
	}

	current := c.Generation("u1")
	if ok, err := c.FillList(ctx, "u1", current, listKey, models.TodoPage{Total: 1}); !ok || err != nil {
		t.Fatalf("FillList = %v, %v; want written", ok, err)
	}
	if got, ok, _ := c.GetList(ctx, listKey); !ok || got.Total != 1 {
		t.Fatalf("GetList = %+v, %v", got, ok)
	}

	if err := c.InvalidateTodo(ctx, "t1", "u1"); err != nil {
		t.Fatalf("InvalidateTodo: %v", err)
	}
	if ok, _ := c.FillTodo(ctx, "u1", current, item, models.Todo{ID: "t1"}); ok {
		t.Fatal("InvalidateTodo must also retire the generation")
	}
}
