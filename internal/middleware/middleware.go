package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"todo-api/internal/apperror"
	"todo-api/pkg/logger"
)

// UserKey is the gin context key holding the authenticated user id.
const UserKey = "user"

const requestIDHeader = "X-Request-ID"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller's id under UserKey.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if header == "" || !strings.HasPrefix(header, prefix) {
			logger.Debug(ctx, "Missing or invalid Authorization header")
			abortUnauthenticated(c)
			return
		}
		userID, err := verifier.Verify(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			logger.Debug(ctx, "JWT verification failed", "error", err)
			abortUnauthenticated(c)
			return
		}
		c.Set(UserKey, userID)
		c.Request = c.Request.WithContext(logger.With(ctx, "user_id", userID))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	resp := apperror.NewUnauthenticated("Unauthorized", nil).ToResponse()
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}

// UserID returns the id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserKey)
}

// RequestLogger tags the request context with a request id and logs each
// completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)
		ctx := logger.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "Request failed", args...)
			return
		}
		logger.Info(c.Request.Context(), "Request handled", args...)
	}
}
