package routes

import (
	"github.com/cryptopulse/api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers agrupa todos los handlers del API para registrar las rutas
type Handlers struct {
	Auth      *middleware.AuthHandler
	Users     *middleware.UserHandler
	Profile   *middleware.ProfileHandler
	Admin     *middleware.AdminHandler
	Clerk     *middleware.ClerkHandler
	Prices    *middleware.PriceHandler
	Portfolio *middleware.PortfolioHandler
	Alerts    *middleware.AlertHandler
}

func RegisterRoutes(router *gin.Engine, h *Handlers) {
	// Rutas públicas
	router.GET("/health", h.Prices.Health)
	router.GET("/cryptos", h.Prices.ListCryptos)
	router.GET("/cryptos/:symbol", h.Prices.GetCrypto)
	router.GET("/ws/prices", h.Prices.StreamPrices)

	router.POST("/signup", h.Auth.Signup)
	router.POST("/login", h.Auth.Login)
	router.POST("/logout", middleware.AuthMiddleware(), h.Auth.Logout)

	router.POST("/request-reset-password", h.Users.RequestResetPassword)
	router.POST("/reset-password", h.Users.ResetPassword)

	// Sincronización de usuarios desde Clerk (firmado con Svix)
	router.POST("/clerk/webhook", h.Clerk.Webhook)

	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.PUT("/users", h.Users.UpdateUser)
		protected.DELETE("/users", h.Users.DeleteUser)

		protected.GET("/profile", h.Profile.GetProfile)
		protected.PUT("/profile/discord", h.Profile.SetDiscordWebhook)
		protected.DELETE("/profile/discord", h.Profile.DeleteDiscordWebhook)
		protected.POST("/profile/discord/test", h.Profile.TestDiscordWebhook)

		protected.POST("/portfolios", h.Portfolio.CreatePortfolio)
		protected.GET("/portfolios", h.Portfolio.ListPortfolios)
		protected.GET("/portfolios/:id", h.Portfolio.GetPortfolio)
		protected.PUT("/portfolios/:id", h.Portfolio.UpdatePortfolio)
		protected.DELETE("/portfolios/:id", h.Portfolio.DeletePortfolio)

		protected.POST("/portfolios/:id/buy", h.Portfolio.Buy)
		protected.POST("/portfolios/:id/sell", h.Portfolio.Sell)
		protected.GET("/portfolios/:id/positions", h.Portfolio.GetPositions)
		protected.GET("/portfolios/:id/positions/:symbol", h.Portfolio.GetPosition)
		protected.GET("/portfolios/:id/transactions", h.Portfolio.GetTransactions)
		protected.GET("/portfolios/:id/stats", h.Portfolio.GetStats)
		protected.GET("/portfolios/:id/allocation", h.Portfolio.GetAllocation)
		protected.GET("/portfolios/:id/performance", h.Portfolio.GetPerformance)

		protected.POST("/alerts", h.Alerts.CreateAlert)
		protected.GET("/alerts", h.Alerts.ListAlerts)
		protected.POST("/alerts/check-now", h.Alerts.CheckNow)
		protected.GET("/alerts/stats", h.Alerts.GetAlertStats)
		protected.GET("/alerts/:id", h.Alerts.GetAlert)
		protected.PUT("/alerts/:id", h.Alerts.UpdateAlert)
		protected.DELETE("/alerts/:id", h.Alerts.DeleteAlert)
	}

	// Rutas de admin
	admin := router.Group("/admin")
	admin.Use(middleware.AdminAuth())
	{
		admin.GET("/users", h.Admin.GetUsers)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.GET("/users/email/:email", h.Admin.GetUserByEmail)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)

		admin.POST("/prices/refresh", h.Prices.RefreshPrices)
	}
}
