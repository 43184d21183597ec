// Package service holds the auth flow and the cached todo queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"todo-api/internal/apperror"
	"todo-api/internal/cache"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"
)

type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo) error
	List(ctx context.Context, ownerID string, f models.TodoFilter, offset, limit int) ([]models.Todo, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	FindOne(ctx context.Context, id, ownerID string) (models.Todo, error)
	Update(ctx context.Context, id, ownerID string, p models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, id, ownerID string) (models.Todo, error)
}

// EventPublisher announces completed writes to other replicas.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.TodoEvent) error
}

// CreateTodoInput is a validated create request.
type CreateTodoInput struct {
	Title       string
	Description string
	IsCompleted bool
}

// TodosService serves owner-scoped todo operations through the query cache.
type TodosService struct {
	store  TodoStore
	cache  *cache.QueryCache
	events EventPublisher
	origin string
	lists  singleflight.Group
}

// NewTodosService wires the service. events may be nil; origin tags published
// events so their sender can ignore them.
func NewTodosService(store TodoStore, qc *cache.QueryCache, events EventPublisher, origin string) *TodosService {
	return &TodosService{store: store, cache: qc, events: events, origin: origin}
}

// FindAll returns one page of the owner's todos. Results are cached per query.
func (s *TodosService) FindAll(ctx context.Context, ownerID string, q models.ListQuery) (models.TodoPage, error) {
	if err := q.Validate(); err != nil {
		return models.TodoPage{}, apperror.NewBadRequest(err.Error())
	}
	filter, err := q.Filter()
	if err != nil {
		return models.TodoPage{}, apperror.NewBadRequest(err.Error())
	}

	key := cache.ListKey(ownerID, q)
	page, hit, err := s.cache.GetList(ctx, key)
	if err != nil {
		return models.TodoPage{}, apperror.NewInternal(err)
	}
	if hit {
		logger.Debug(ctx, "List cache hit", "key", key)
		return page, nil
	}

	// A load only serves callers that arrived in the same generation, so a
	// read issued after a write never joins a load that started before it.
	gen := s.cache.Generation(ownerID)
	flight := fmt.Sprintf("%s@%d", key, gen)
	v, err, shared := s.lists.Do(flight, func() (interface{}, error) {
		// Detached so one cancelled caller does not fail the others sharing this call.
		return s.loadPage(context.WithoutCancel(ctx), key, ownerID, gen, filter, q)
	})
	if err != nil {
		return models.TodoPage{}, apperror.NewInternal(err)
	}
	if shared {
		logger.Debug(ctx, "List load shared", "key", key)
	}
	return v.(models.TodoPage), nil
}

func (s *TodosService) loadPage(ctx context.Context, key, ownerID string, gen uint64, f models.TodoFilter, q models.ListQuery) (models.TodoPage, error) {
	var (
		todos []models.Todo
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		todos, err = s.store.List(gctx, ownerID, f, q.Offset(), q.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountByOwner(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.TodoPage{}, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	page := models.TodoPage{Todos: todos, Total: total, TotalPages: models.TotalPages(total, q.Limit)}
	if _, err := s.cache.FillList(ctx, ownerID, gen, key, page); err != nil {
		return models.TodoPage{}, err
	}
	return page, nil
}

// FindOne returns the owner's todo with id.
func (s *TodosService) FindOne(ctx context.Context, id, ownerID string) (models.Todo, error) {
	if err := validateID(id); err != nil {
		return models.Todo{}, err
	}
	key := cache.ItemKey(id, ownerID)
	todo, hit, err := s.cache.GetTodo(ctx, key)
	if err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	if hit {
		return todo, nil
	}

	gen := s.cache.Generation(ownerID)
	todo, err = s.store.FindOne(ctx, id, ownerID)
	if err != nil {
		return models.Todo{}, storeError(err, id)
	}
	if _, err := s.cache.FillTodo(ctx, ownerID, gen, key, todo); err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	return todo, nil
}

// Create stores a new todo owned by ownerID.
func (s *TodosService) Create(ctx context.Context, in CreateTodoInput, ownerID string) (models.Todo, error) {
	todo := &models.Todo{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
	}
	if err := s.store.Create(ctx, todo); err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	if err := s.cache.InvalidateLists(ctx, ownerID); err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	s.publish(ctx, models.ActionCreated, *todo)
	return *todo, nil
}

// Update applies p to the owner's todo with id.
func (s *TodosService) Update(ctx context.Context, id string, p models.TodoPatch, ownerID string) (models.Todo, error) {
	if err := validateID(id); err != nil {
		return models.Todo{}, err
	}
	todo, err := s.store.Update(ctx, id, ownerID, p)
	if err != nil {
		return models.Todo{}, storeError(err, id)
	}
	if err := s.cache.InvalidateTodo(ctx, id, ownerID); err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	s.publish(ctx, models.ActionUpdated, todo)
	return todo, nil
}

// Remove deletes the owner's todo with id and returns it.
func (s *TodosService) Remove(ctx context.Context, id, ownerID string) (models.Todo, error) {
	if err := validateID(id); err != nil {
		return models.Todo{}, err
	}
	todo, err := s.store.Delete(ctx, id, ownerID)
	if err != nil {
		return models.Todo{}, storeError(err, id)
	}
	if err := s.cache.InvalidateTodo(ctx, id, ownerID); err != nil {
		return models.Todo{}, apperror.NewInternal(err)
	}
	s.publish(ctx, models.ActionDeleted, todo)
	return todo, nil
}

// Ping reports whether the cache backend is reachable.
func (s *TodosService) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func (s *TodosService) publish(ctx context.Context, action string, todo models.Todo) {
	if s.events == nil {
		return
	}
	ev := models.TodoEvent{
		Action:     action,
		TodoID:     todo.ID,
		OwnerID:    todo.OwnerID,
		Origin:     s.origin,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "TodoEvent publish failed", "error", err, "action", action, "todo_id", todo.ID)
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("%s is not a valid id", id))
	}
	return nil
}

func storeError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewNotFound(fmt.Sprintf("Todo with ID %q not found", id))
	}
	return apperror.NewInternal(err)
}
