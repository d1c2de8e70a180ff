package main

import (
	"log"

	"payment-webhook-api/internal/api"
	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/database"
	"payment-webhook-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize optional backends (audit db, delivery status store)
	if err := database.InitDatabase(); err != nil {
		logging.Warnf("Optional backends unavailable: %v", err)
	}
	defer database.CloseDatabase()

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r)

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
