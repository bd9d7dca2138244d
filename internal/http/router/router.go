package router

import (
	"github.com/gin-gonic/gin"

	"github.com/lukamba/kitadi-backend/internal/config"
	"github.com/lukamba/kitadi-backend/internal/http/handlers"
	"github.com/lukamba/kitadi-backend/internal/http/middleware"
	"github.com/lukamba/kitadi-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	contractHandler *handlers.ContractHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	rateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(rateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/wallets", walletHandler.Create)
		protected.GET("/wallets/default", walletHandler.GetDefault)
		protected.GET("/wallets/transactions", walletHandler.ListTransactions)
		protected.GET("/wallets/:id", middleware.UUIDValidator("id"), walletHandler.Get)
		protected.POST("/wallets/deposit", walletHandler.Deposit)
		protected.POST("/wallets/transfer", walletHandler.Transfer)

		protected.POST("/contracts", rateLimit, contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/stats", contractHandler.Stats)
		protected.GET("/contracts/confirmations/pending", contractHandler.PendingConfirmations)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
		protected.POST("/contracts/:id/confirm", middleware.UUIDValidator("id"), contractHandler.Confirm)
		protected.POST("/contracts/:id/cancel", middleware.UUIDValidator("id"), contractHandler.Cancel)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.CountUnread)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return r
}
