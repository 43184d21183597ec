package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-api/internal/models"
)

// MemoryTodoRepository keeps todos in process. It backs development runs
// without DATABASE_URL and the tests of the layers above.
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	todos map[string]models.Todo
	now   func() time.Time
}

func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{todos: map[string]models.Todo{}, now: time.Now}
}

func (r *MemoryTodoRepository) Create(_ context.Context, todo *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	todo.CreatedAt = r.now().UTC()
	r.todos[todo.ID] = *todo
	return nil
}

func (r *MemoryTodoRepository) List(_ context.Context, ownerID string, f models.TodoFilter, offset, limit int) ([]models.Todo, error) {
	r.mu.RLock()
	matched := []models.Todo{}
	for _, t := range r.todos {
		if t.OwnerID == ownerID && f.Matches(t) {
			matched = append(matched, t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	if offset < 0 || offset >= len(matched) || limit < 1 {
		return []models.Todo{}, nil
	}
	end := len(matched)
	if limit < end-offset {
		end = offset + limit
	}
	return matched[offset:end], nil
}

func (r *MemoryTodoRepository) CountByOwner(_ context.Context, ownerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.todos {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryTodoRepository) FindOne(_ context.Context, id, ownerID string) (models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return models.Todo{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryTodoRepository) Update(_ context.Context, id, ownerID string, p models.TodoPatch) (models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return models.Todo{}, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	r.todos[id] = t
	return t, nil
}

func (r *MemoryTodoRepository) Delete(_ context.Context, id, ownerID string) (models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return models.Todo{}, ErrNotFound
	}
	delete(r.todos, id)
	return t, nil
}

// MemoryUserRepository keeps users in process, indexed by email.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byEmail: map[string]models.User{}}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[u.Email]; taken {
		return ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()
	r.byEmail[u.Email] = *u
	return nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
