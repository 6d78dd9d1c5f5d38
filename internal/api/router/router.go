package router

import (
	"net/http"

	"github.com/fieldtrack/tracker-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "tracker-service",
					"error":   err.Error(),
				})
				return
			}
		}
		if deps.Rabbit != nil && !deps.Rabbit.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "tracker-service",
				"error":   "rabbitmq connection lost",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "tracker-service",
		})
	})

	trackingHandler := handler.NewTrackingHandler(deps)
	walletHandler := handler.NewWalletHandler(deps)
	policyHandler := handler.NewPolicyHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		tracking := v1.Group("/tracking")
		{
			// POST /api/v1/tracking/:order_id/open - Load the order and start its engine
			tracking.POST("/:order_id/open", trackingHandler.OpenTracking)

			// GET /api/v1/tracking/:order_id - Current engine snapshot
			tracking.GET("/:order_id", trackingHandler.GetSnapshot)

			// Stage transitions
			tracking.POST("/:order_id/moving", trackingHandler.StartMoving)
			tracking.POST("/:order_id/arrived", trackingHandler.ConfirmArrival)
			tracking.POST("/:order_id/start", trackingHandler.StartWork)
			tracking.POST("/:order_id/waiting", trackingHandler.StartWaiting)
			tracking.POST("/:order_id/customer-arrived", trackingHandler.CustomerArrived)
			tracking.POST("/:order_id/no-show", trackingHandler.ConfirmNoShow)
			tracking.POST("/:order_id/finish", trackingHandler.FinishWork)
			tracking.POST("/:order_id/extend", trackingHandler.RequestExtension)
			tracking.POST("/:order_id/payment/confirm", trackingHandler.ConfirmPayment)
			tracking.POST("/:order_id/payment/not-received", trackingHandler.ReportPaymentNotReceived)
			tracking.POST("/:order_id/rating", trackingHandler.Rate)
			tracking.POST("/:order_id/rating/submit", trackingHandler.SubmitRating)
			tracking.POST("/:order_id/cancel", trackingHandler.Cancel)
		}

		wallet := v1.Group("/wallet")
		{
			// GET /api/v1/wallet/:specialist_id/balance - Current wallet balance
			wallet.GET("/:specialist_id/balance", walletHandler.GetBalance)

			// GET /api/v1/wallet/:specialist_id/transactions - Ledger entries, paginated
			wallet.GET("/:specialist_id/transactions", walletHandler.ListTransactions)
		}

		policies := v1.Group("/policies")
		{
			// GET /api/v1/policies/wait/:sub_service - Wait window configuration
			policies.GET("/wait/:sub_service", policyHandler.GetWaitPolicy)
		}
	}

	return r
}
