package main

import (
	"log"

	"todo-api/internal/config"
	"todo-api/internal/realtime"
	"todo-api/internal/routes"
	"todo-api/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	gin.SetMode(cfg.GinMode)

	// The task collection lives here and is passed down explicitly;
	// state is process-wide only, nothing survives a restart.
	taskStore := store.New()
	hub := realtime.NewHub()

	// Setup the routes
	ginRoutes := routes.SetupRoutes(cfg, taskStore, hub)

	// Start server
	port := ":" + cfg.HTTPPort
	log.Printf("Server starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  GET    /api/tasks")
	log.Println("  GET    /api/tasks/:id")
	log.Println("  POST   /api/tasks")
	log.Println("  PUT    /api/tasks/:id")
	log.Println("  PATCH  /api/tasks/:id")
	log.Println("  PATCH  /api/tasks/:id/lock")
	log.Println("  DELETE /api/tasks/:id")
	log.Println("  GET    /api/ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
