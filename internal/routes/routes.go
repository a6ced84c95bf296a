package routes

import (
	"todo-api/internal/config"
	"todo-api/internal/handlers"
	"todo-api/internal/realtime"
	"todo-api/internal/store"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, taskStore *store.TaskStore, hub *realtime.Hub) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204) // This depends on the implementation of the frontend
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Server TODO API is running in Health Check Endpoint",
		})
	})

	taskHandler := handlers.NewTaskHandler(taskStore, hub, cfg.ListCacheTTL)

	api := ginRouter.Group("/api")
	{
		// Task endpoints
		api.GET("/tasks", taskHandler.ListTasks)
		api.GET("/tasks/:id", taskHandler.GetTaskByID)
		api.POST("/tasks", taskHandler.CreateTask)
		api.PUT("/tasks/:id", taskHandler.ReplaceTask)
		api.PATCH("/tasks/:id", taskHandler.PatchTask)
		api.PATCH("/tasks/:id/lock", taskHandler.SetTaskLock)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)
		// Realtime task events
		api.GET("/ws", handlers.WebSocketHandler(hub))
	}

	return ginRouter
}
