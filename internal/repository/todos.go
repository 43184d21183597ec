package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

const todoColumns = `id, user_id, title, description, completed, created_at`

// TodoRepository persists todos in Postgres. Every statement is scoped by user_id.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts a new todo, filling ID and CreatedAt.
func (r *TodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	todo.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		todo.ID, todo.OwnerID, todo.Title, todo.Description, todo.IsCompleted, todo.CreatedAt)
	if err != nil {
		logger.Error(ctx, "Repository Create failed", "error", err)
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// List returns one page of the owner's todos matching f, oldest first.
func (r *TodoRepository) List(ctx context.Context, ownerID string, f models.TodoFilter, offset, limit int) ([]models.Todo, error) {
	where, args := listWhere(ownerID, f)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM todos WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		todoColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.Error(ctx, "Repository List failed", "error", err)
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func listWhere(ownerID string, f models.TodoFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{ownerID}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("completed = $%d", len(args)))
	}
	if f.CreatedFrom != nil {
		args = append(args, *f.CreatedFrom)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.CreatedTo != nil {
		args = append(args, *f.CreatedTo)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// CountByOwner counts every todo of the owner, ignoring list filters.
func (r *TodoRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, ownerID).Scan(&n); err != nil {
		logger.Error(ctx, "Repository Count failed", "error", err)
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return n, nil
}

// FindOne returns the todo with id owned by ownerID, or ErrNotFound.
func (r *TodoRepository) FindOne(ctx context.Context, id, ownerID string) (models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID)
	return r.scanOne(ctx, row, "find", id)
}

// Update applies the non-nil fields of p in one statement and returns the new row.
func (r *TodoRepository) Update(ctx context.Context, id, ownerID string, p models.TodoPatch) (models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE todos SET title = COALESCE($1, title), description = COALESCE($2, description),
		 completed = COALESCE($3, completed) WHERE id = $4 AND user_id = $5 RETURNING `+todoColumns,
		p.Title, p.Description, p.IsCompleted, id, ownerID)
	return r.scanOne(ctx, row, "update", id)
}

// Delete removes the todo and returns it as it was.
func (r *TodoRepository) Delete(ctx context.Context, id, ownerID string) (models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2 RETURNING `+todoColumns, id, ownerID)
	return r.scanOne(ctx, row, "delete", id)
}

func (r *TodoRepository) scanOne(ctx context.Context, row *sql.Row, op, id string) (models.Todo, error) {
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository "+op+" failed", "error", err, "id", id)
		return models.Todo{}, fmt.Errorf("%s todo %s: %w", op, id, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (models.Todo, error) {
	var t models.Todo
	err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.IsCompleted, &t.CreatedAt)
	return t, err
}
