package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"todo-api/internal/apperror"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/service"
	"todo-api/pkg/logger"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

const ownerFieldMessage = "you cannot pass user id"

// ReadinessCheck is one dependency checked by Ready.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler serves the HTTP API on top of the auth and todos services.
type Handler struct {
	auth   *service.AuthService
	todos  *service.TodosService
	checks []ReadinessCheck
}

func NewHandler(auth *service.AuthService, todos *service.TodosService, checks ...ReadinessCheck) *Handler {
	return &Handler{auth: auth, todos: todos, checks: checks}
}

type createTodoRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	IsCompleted bool            `json:"isCompleted"`
	User        json.RawMessage `json:"user"`
	OwnerID     json.RawMessage `json:"ownerId"`
}

type updateTodoRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	IsCompleted *bool           `json:"isCompleted"`
	User        json.RawMessage `json:"user"`
	OwnerID     json.RawMessage `json:"ownerId"`
}

// CreateTodo (auth): stores a todo for the caller and returns it (201).
func (h *Handler) CreateTodo(c *gin.Context) {
	var req createTodoRequest
	err := c.ShouldBindJSON(&req)
	if req.User != nil || req.OwnerID != nil {
		respondError(c, apperror.NewBadRequest(ownerFieldMessage))
		return
	}
	if err != nil {
		respondError(c, apperror.NewBadRequest(bindingMessage(err)))
		return
	}
	in := service.CreateTodoInput{Title: req.Title, Description: req.Description, IsCompleted: req.IsCompleted}
	todo, err := h.todos.Create(c.Request.Context(), in, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// GetTodos (auth): lists the caller's todos with filters and pagination.
func (h *Handler) GetTodos(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.todos.FindAll(c.Request.Context(), middleware.UserID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewPageResponse(page, q.Page, q.Limit))
}

func parseListQuery(c *gin.Context) (models.ListQuery, error) {
	page, err := positiveQuery(c, "page", defaultPage)
	if err != nil {
		return models.ListQuery{}, err
	}
	limit, err := positiveQuery(c, "limit", defaultLimit)
	if err != nil {
		return models.ListQuery{}, err
	}
	q := models.ListQuery{
		Page:      page,
		Limit:     limit,
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	if raw, ok := c.GetQuery("status"); ok {
		status := raw == "true"
		q.Status = &status
	}
	if err := q.Validate(); err != nil {
		return models.ListQuery{}, apperror.NewBadRequest(err.Error())
	}
	return q, nil
}

func positiveQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.NewBadRequest(name + " must be a positive integer")
	}
	return n, nil
}

// GetTodo (auth): returns one of the caller's todos.
func (h *Handler) GetTodo(c *gin.Context) {
	todo, err := h.todos.FindOne(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// UpdateTodo (auth): applies a partial update and returns the new todo.
func (h *Handler) UpdateTodo(c *gin.Context) {
	var req updateTodoRequest
	err := c.ShouldBindJSON(&req)
	if req.User != nil || req.OwnerID != nil {
		respondError(c, apperror.NewBadRequest(ownerFieldMessage))
		return
	}
	if err != nil {
		respondError(c, apperror.NewBadRequest(bindingMessage(err)))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		respondError(c, apperror.NewBadRequest("title should not be empty"))
		return
	}
	patch := models.TodoPatch{Title: req.Title, Description: req.Description, IsCompleted: req.IsCompleted}
	todo, err := h.todos.Update(c.Request.Context(), c.Param("id"), patch, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// DeleteTodo (auth): deletes one of the caller's todos and returns it.
func (h *Handler) DeleteTodo(c *gin.Context) {
	todo, err := h.todos.Remove(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// Health returns 200 if the process is alive. Used by load balancers.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if every dependency answers. Used by K8s readiness probes.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.Warn(ctx, "Readiness check failed", "check", check.Name, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + " unavailable"})
			return
		}
	}
	c.String(http.StatusOK, "OK")
}

func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if isContextErr(err) && ctx.Err() != nil {
		// client went away; nothing to write to
		c.Abort()
		return
	}
	appErr := apperror.From(err)
	if appErr.Kind == apperror.Internal {
		logger.Error(ctx, "Request failed", "error", err)
	}
	resp := appErr.ToResponse()
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
