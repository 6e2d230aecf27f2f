// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"folio/internal/handlers"
	"folio/internal/metrics"
	"folio/internal/middleware"
)

// Deps holds everything the router needs.
type Deps struct {
	DB          *gorm.DB
	Tokens      *middleware.TokenIssuer
	AdminAPIKey string
	// Admins resolves the admin role for the /users routes.
	Admins middleware.AdminChecker

	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Portfolios   *handlers.PortfolioHandler
	Transactions *handlers.TransactionHandler
	Valuations   *handlers.ValuationHandler
	Search       *handlers.SearchHandler
	Statistics   *handlers.StatisticsHandler
	Admin        *handlers.AdminHandler
}

// NewRouter registers middleware and every API route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(metrics.Middleware())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Health check endpoint
	router.GET("/api/health", health(d.DB))

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminKeyMiddleware(d.AdminAPIKey))
	admin.POST("/index-prices/fetch", d.Admin.FetchIndexPrice)
	admin.POST("/index-prices/backfill", d.Admin.BackfillIndexPrices)
	admin.POST("/users/:username/promote", d.Users.PromoteUser)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Tokens))

	// User profile
	protected.GET("/profile", d.Auth.GetProfile)
	protected.PUT("/profile", d.Auth.UpdateProfile)
	protected.DELETE("/profile", d.Auth.DeleteProfile)
	protected.GET("/profile/preferences", d.Auth.GetPreferences)
	protected.PUT("/profile/preferences", d.Auth.UpdatePreferences)

	// Portfolio routes
	portfolios := protected.Group("/portfolios")
	portfolios.POST("", d.Portfolios.CreatePortfolio)
	portfolios.GET("", d.Portfolios.GetUserPortfolios)
	portfolios.GET("/charts", d.Portfolios.GetPortfoliosWithCharts)
	portfolios.GET("/:id", d.Portfolios.GetPortfolio)
	portfolios.PUT("/:id", d.Portfolios.UpdatePortfolio)
	portfolios.DELETE("/:id", d.Portfolios.DeletePortfolio)
	portfolios.GET("/:id/transactions", d.Transactions.GetPortfolioTransactions)
	portfolios.GET("/:id/positions", d.Valuations.GetPortfolioPositions)
	portfolios.GET("/:id/chart", d.Valuations.GetPortfolioChart)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", d.Transactions.CreateTransaction)
	transactions.GET("", d.Transactions.GetUserTransactions)
	transactions.GET("/:id", d.Transactions.GetTransactionByID)
	transactions.DELETE("/:id", d.Transactions.DeleteTransaction)

	protected.GET("/stocks/:ticker/transactions", d.Transactions.GetTickerTransactions)
	protected.GET("/positions", d.Valuations.GetPositions)

	// Chart routes
	charts := protected.Group("/charts")
	charts.GET("/summary", d.Valuations.GetSummaryChart)
	charts.GET("/stock/:ticker", d.Valuations.GetStockChart)
	charts.GET("/compare", d.Valuations.GetCompareChart)

	protected.GET("/search/stock", d.Search.SearchStock)

	statistics := protected.Group("/statistics")
	statistics.GET("/stock/:ticker", d.Statistics.GetStockStatistics)
	statistics.GET("/portfolio/:id", d.Statistics.GetPortfolioStatistics)

	// User administration
	users := protected.Group("/users")
	users.Use(middleware.RequireAdmin(d.Admins))
	users.GET("", d.Users.ListUsers)
	users.POST("/:username/promote", d.Users.PromoteUser)
	users.POST("/:username/demote", d.Users.DemoteUser)
	users.DELETE("/:username", d.Users.DeleteUser)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
