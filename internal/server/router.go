package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mememonize/backend/internal/handlers"
	"github.com/mememonize/backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins     []string
	RequestLog         *middleware.RequestLogMiddleware
	AssetHandler       *handlers.AssetHandler
	UserHandler        *handlers.UserHandler
	TransactionHandler *handlers.TransactionHandler
	SearchHandler      *handlers.SearchHandler
	ContractHandler    *handlers.ContractHandler
	MarketHandler      *handlers.MarketHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.RequestLog != nil {
		router.Use(cfg.RequestLog.Log())
	}

	router.GET("/", handlers.Welcome)
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Assets
		api.GET("/assets", cfg.AssetHandler.List)
		api.POST("/assets", cfg.AssetHandler.Create)
		api.GET("/assets/:id", cfg.AssetHandler.Get)
		api.PUT("/assets/:id", cfg.AssetHandler.Update)
		api.PUT("/assets/:id/availability", cfg.AssetHandler.SetAvailability)
		api.DELETE("/assets/:id", cfg.AssetHandler.Delete)

		// Users
		api.GET("/users", cfg.UserHandler.List)
		api.POST("/users", cfg.UserHandler.Create)
		api.GET("/users/:id", cfg.UserHandler.Get)
		api.PUT("/users/:id", cfg.UserHandler.Update)
		api.DELETE("/users/:id", cfg.UserHandler.Delete)
		api.GET("/users/wallet/:address", cfg.UserHandler.GetByWallet)

		// Transactions
		api.GET("/transactions", cfg.TransactionHandler.List)
		api.POST("/transactions", cfg.TransactionHandler.Create)
		api.GET("/transactions/:id", cfg.TransactionHandler.Get)
		api.PUT("/transactions/:id/status", cfg.TransactionHandler.UpdateStatus)
		api.GET("/transactions/hash/:hash", cfg.TransactionHandler.GetByHash)
		api.GET("/transactions/ledger/:ledgerID", cfg.TransactionHandler.GetByLedgerID)
		api.GET("/transactions/user/:userID", cfg.TransactionHandler.ListByUser)

		// Search
		api.GET("/search", cfg.SearchHandler.Search)
		api.GET("/search/categories", cfg.SearchHandler.Categories)

		// Contract
		api.GET("/contract-address", cfg.ContractHandler.Address)

		// Market: ledger-first operations through the coordinator
		market := api.Group("/market")
		{
			market.POST("/list", cfg.MarketHandler.List)
			market.POST("/mint", cfg.MarketHandler.Mint)
			market.POST("/purchase", cfg.MarketHandler.Purchase)
			market.POST("/complete/:ref", cfg.MarketHandler.Complete)
			market.POST("/cancel/:ref", cfg.MarketHandler.Cancel)
			market.POST("/resync", cfg.MarketHandler.Resync)
		}
	}

	return router
}
