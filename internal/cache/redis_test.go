package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"todo-api/internal/models"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), 5)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	b := NewRedisBackend(client)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackendGetSetDelete(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBackend(t)

	if _, ok, err := b.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := b.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := b.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatal("key survived Delete")
	}
	if err := b.Delete(ctx); err != nil {
		t.Fatalf("Delete with no keys: %v", err)
	}
}

func TestRedisBackendTTLExpiry(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)
	c := NewQueryCache(b, 300*time.Second)
	key := ItemKey("t1", "u1")

	if err := c.SetTodo(ctx, key, models.Todo{ID: "t1", OwnerID: "u1", Title: "Buy milk"}); err != nil {
		t.Fatalf("SetTodo: %v", err)
	}

	mr.FastForward(299 * time.Second)
	if _, ok, _ := c.GetTodo(ctx, key); !ok {
		t.Fatal("entry expired before its TTL")
	}

	mr.FastForward(2 * time.Second)
	if _, ok, _ := c.GetTodo(ctx, key); ok {
		t.Fatal("entry served past its TTL")
	}
}

func TestRedisBackendDeletePrefix(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBackend(t)

	// more than one SCAN batch
	for i := 0; i < scanBatch+25; i++ {
		if err := b.Set(ctx, fmt.Sprintf("todos-u1-%d-10-undefined-undefined-undefined", i), []byte("{}"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	_ = b.Set(ctx, "todos-u2-1-10-undefined-undefined-undefined", []byte("{}"), time.Minute)
	_ = b.Set(ctx, "todo-t1-u1", []byte("{}"), time.Minute)

	n, err := b.DeletePrefix(ctx, ListPrefix("u1"))
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != scanBatch+25 {
		t.Fatalf("deleted %d keys, want %d", n, scanBatch+25)
	}
	if _, ok, _ := b.Get(ctx, "todos-u2-1-10-undefined-undefined-undefined"); !ok {
		t.Fatal("other owner's list was deleted")
	}
	if _, ok, _ := b.Get(ctx, "todo-t1-u1"); !ok {
		t.Fatal("single todo key was deleted")
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("todos-a*b?[c]-"); got != `todos-a\*b\?\[c\]-` {
		t.Fatalf("escapeGlob = %q", got)
	}
}

func TestRedisBackendSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)
	mr.Close()

	if _, _, err := b.Get(ctx, "k"); err == nil {
		t.Fatal("expected error from a closed server")
	}
	if _, err := b.DeletePrefix(ctx, "todos-u1-"); err == nil {
		t.Fatal("expected error from a closed server")
	}
}
