// Package cache holds the per-user query cache for todos and the backends it
// can run on.
//
// Keys follow two shapes:
//
//	todos-{ownerId}-{page}-{limit}-{status}-{startDate}-{endDate}   list results
//	todo-{todoId}-{ownerId}                                          single todos
//
// Absent list filters render as "undefined". Every list key of an owner shares
// the prefix "todos-{ownerId}-", which is what InvalidateLists deletes.
//
// Read-through fills are tagged with the owner's generation, taken before the
// store is read. Every invalidation bumps the generation, and a fill whose
// generation is no longer current is dropped.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

const undefined = "undefined"

// Backend is the key-value store behind QueryCache. DeletePrefix must remove
// every key starting with prefix.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// ListKey renders the cache key of a list query.
func ListKey(ownerID string, q models.ListQuery) string {
	status := undefined
	if q.Status != nil {
		status = strconv.FormatBool(*q.Status)
	}
	return fmt.Sprintf("%s%d-%d-%s-%s-%s",
		ListPrefix(ownerID), q.Page, q.Limit, status, orUndefined(q.StartDate), orUndefined(q.EndDate))
}

// ListPrefix is shared by every list key of ownerID.
func ListPrefix(ownerID string) string {
	return "todos-" + ownerID + "-"
}

// ItemKey renders the cache key of a single todo.
func ItemKey(todoID, ownerID string) string {
	return "todo-" + todoID + "-" + ownerID
}

func orUndefined(s string) string {
	if s == "" {
		return undefined
	}
	return s
}

// QueryCache stores list pages and single todos as JSON with a fixed TTL.
type QueryCache struct {
	backend Backend
	ttl     time.Duration

	mu     sync.Mutex
	owners map[string]*ownerGen
}

// ownerGen serializes conditional fills against invalidations of one owner.
type ownerGen struct {
	mu  sync.Mutex
	gen uint64
}

// NewQueryCache returns a cache writing entries with ttl.
func NewQueryCache(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{backend: backend, ttl: ttl, owners: map[string]*ownerGen{}}
}

func (c *QueryCache) owner(ownerID string) *ownerGen {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.owners[ownerID]
	if !ok {
		o = &ownerGen{}
		c.owners[ownerID] = o
	}
	return o
}

// Generation returns the owner's invalidation generation. Read it before
// loading from the store and pass it to FillList or FillTodo.
func (c *QueryCache) Generation(ownerID string) uint64 {
	o := c.owner(ownerID)
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

func (c *QueryCache) bump(ownerID string) {
	o := c.owner(ownerID)
	o.mu.Lock()
	o.gen++
	o.mu.Unlock()
}

// fill writes v unless ownerID was invalidated after gen was read. The owner
// lock is held across the write so an invalidation either precedes the check
// or follows the write and deletes it.
func (c *QueryCache) fill(ctx context.Context, ownerID string, gen uint64, key string, v any) (bool, error) {
	o := c.owner(ownerID)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		logger.Debug(ctx, "Dropped fill after invalidation", "key", key)
		return false, nil
	}
	if err := c.setJSON(ctx, key, v); err != nil {
		return false, err
	}
	return true, nil
}

// TTL returns the entry lifetime.
func (c *QueryCache) TTL() time.Duration {
	return c.ttl
}

// GetList returns a cached page. A miss is (zero, false, nil).
func (c *QueryCache) GetList(ctx context.Context, key string) (models.TodoPage, bool, error) {
	return getJSON[models.TodoPage](ctx, c.backend, key)
}

// SetList caches a page under key.
func (c *QueryCache) SetList(ctx context.Context, key string, page models.TodoPage) error {
	return c.setJSON(ctx, key, page)
}

// FillList caches a page loaded at generation gen. It reports whether the
// page was written.
func (c *QueryCache) FillList(ctx context.Context, ownerID string, gen uint64, key string, page models.TodoPage) (bool, error) {
	return c.fill(ctx, ownerID, gen, key, page)
}

// GetTodo returns a cached todo. A miss is (zero, false, nil).
func (c *QueryCache) GetTodo(ctx context.Context, key string) (models.Todo, bool, error) {
	return getJSON[models.Todo](ctx, c.backend, key)
}

// SetTodo caches a todo under key.
func (c *QueryCache) SetTodo(ctx context.Context, key string, todo models.Todo) error {
	return c.setJSON(ctx, key, todo)
}

// FillTodo caches a todo loaded at generation gen. It reports whether the
// todo was written.
func (c *QueryCache) FillTodo(ctx context.Context, ownerID string, gen uint64, key string, todo models.Todo) (bool, error) {
	return c.fill(ctx, ownerID, gen, key, todo)
}

// InvalidateLists drops every cached list of ownerID.
func (c *QueryCache) InvalidateLists(ctx context.Context, ownerID string) error {
	c.bump(ownerID)
	return c.deleteLists(ctx, ownerID)
}

func (c *QueryCache) deleteLists(ctx context.Context, ownerID string) error {
	n, err := c.backend.DeletePrefix(ctx, ListPrefix(ownerID))
	if err != nil {
		return fmt.Errorf("invalidate lists of %s: %w", ownerID, err)
	}
	logger.Debug(ctx, "Invalidated cached lists", "owner_id", ownerID, "keys", n)
	return nil
}

// InvalidateTodo drops the cached todo and every cached list of its owner.
func (c *QueryCache) InvalidateTodo(ctx context.Context, todoID, ownerID string) error {
	c.bump(ownerID)
	if err := c.backend.Delete(ctx, ItemKey(todoID, ownerID)); err != nil {
		return fmt.Errorf("invalidate todo %s: %w", todoID, err)
	}
	return c.deleteLists(ctx, ownerID)
}

// Ping checks the backend.
func (c *QueryCache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

func (c *QueryCache) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	return c.backend.Set(ctx, key, b, c.ttl)
}

func getJSON[T any](ctx context.Context, backend Backend, key string) (T, bool, error) {
	var zero T
	b, ok, err := backend.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		logger.Warn(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		_ = backend.Delete(ctx, key)
		return zero, false, nil
	}
	return v, true, nil
}
