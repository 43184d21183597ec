package routes

import (
	"github.com/gin-gonic/gin"

	"todo-api/internal/controller"
	"todo-api/internal/middleware"
)

func Router(h *controller.Handler, verifier middleware.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	controller.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// Health for load balancers and K8s probes
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	// Public: no auth
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/login", h.Login)
	}

	// Protected: JWT required
	api := router.Group("/todos")
	api.Use(middleware.AuthMiddleware(verifier))
	{
		api.POST("", h.CreateTodo)
		api.GET("", h.GetTodos)
		api.GET("/:id", h.GetTodo)
		api.PATCH("/:id", h.UpdateTodo)
		api.DELETE("/:id", h.DeleteTodo)
	}

	return router
}
