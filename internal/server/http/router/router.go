package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/quickcart/internal/config"
	"github.com/polkiloo/quickcart/internal/server/http/handlers"
	"github.com/polkiloo/quickcart/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.StoreFacade, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade, cfg.BalanceFallback)
	webhookHandler := handlers.NewWebhookHandler(facade)
	balanceHandler := handlers.NewBalanceHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)
	engine.POST("/webhooks/payment", webhookHandler.Receive)

	api := engine.Group("/api")
	api.POST("/orders", orderHandler.Checkout)
	api.GET("/orders/:invoice", orderHandler.Status)
	api.POST("/orders/:invoice/cancel", orderHandler.Cancel)

	users := api.Group("/users")
	users.GET("/:id/orders", orderHandler.History)
	users.GET("/:id/balance", balanceHandler.Summary)
	users.POST("/:id/balance/adjust", balanceHandler.Adjust)

	return engine
}
