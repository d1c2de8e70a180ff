package api

import (
	"payment-webhook-api/internal/database"
	"payment-webhook-api/internal/middleware"
	"payment-webhook-api/internal/services"

	"github.com/gin-gonic/gin"
)

var (
	forwardService = services.NewForwardService()
	auditService   *services.AuditService
	statusStore    *services.DeliveryStatusService
	emailNotifier  *services.EmailNotifier
)

// InitServices wires the optional supporting services from whatever the
// database package managed to connect. Each stays nil (disabled) when its
// backend is unavailable.
func InitServices() {
	auditService = services.NewAuditService(database.GetDB())
	statusStore = services.NewDeliveryStatusService(database.GetRedis())
	emailNotifier = services.NewEmailNotifier()
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	InitServices()

	api := r.Group("/api")
	{
		webhook := api.Group("/payment-webhook")
		webhook.Use(middleware.WebhookKeyMiddleware())
		{
			webhook.POST("", PaymentWebhookPost)
			webhook.GET("", PaymentWebhookGet)
			webhook.GET("/status", ForwardStatusGet)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "payment-webhook-service",
		})
	})
}
