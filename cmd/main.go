package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mememonize/backend/internal/db"
	"github.com/mememonize/backend/internal/handlers"
	"github.com/mememonize/backend/internal/ledger"
	"github.com/mememonize/backend/internal/logger"
	"github.com/mememonize/backend/internal/middleware"
	"github.com/mememonize/backend/internal/reconcile"
	"github.com/mememonize/backend/internal/repos"
	"github.com/mememonize/backend/internal/server"
	"github.com/mememonize/backend/internal/services"
	"github.com/mememonize/backend/internal/store"
	"github.com/mememonize/backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Env
	log.Info("Loading environment variables from main...")
	ledgerCfg := ledger.Config{
		RPCURL:           utils.GetEnv("LEDGER_RPC_URL", "http://localhost:8545", log),
		ReadOnlyRPCURL:   utils.GetEnv("LEDGER_READONLY_RPC_URL", "", log),
		ContractAddress:  utils.GetEnv("CONTRACT_ADDRESS", "", log),
		ContractVersion:  utils.GetEnv("CONTRACT_VERSION", "v2", log),
		SignerKeyHex:     utils.GetEnv("LEDGER_SIGNER_KEY", "", log),
		FallbackGasLimit: uint64(utils.GetEnvAsInt("LEDGER_FALLBACK_GAS_LIMIT", 500000, log)),
	}
	pollInterval := utils.GetEnvAsDuration("LEDGER_POLL_INTERVAL", 5*time.Second, log)
	allowedOrigins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	assetRepo := repos.NewAssetRepo(thePG, log)
	transactionRepo := repos.NewTransactionRepo(thePG, log)

	// Ledger
	log.Info("Setting up LedgerClient from main...")
	ledgerClient, err := ledger.NewClient(log, ledgerCfg)
	if err != nil {
		log.Error("Could not init LedgerClient", "error", err)
		os.Exit(1)
	}
	if err := ledgerClient.Connect(ctx); err != nil {
		log.Error("Could not connect to ledger provider", "error", err)
		os.Exit(1)
	}
	defer ledgerClient.Close()
	desc := ledgerClient.Descriptor()

	resolver := ledger.NewIdentifierResolver(log, ledgerClient)
	watcher := ledger.NewWatcher(log, ledgerClient, desc.PurchaseEvent, pollInterval)

	// Record store
	recordStore, err := store.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init record store client", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	userService := services.NewUserService(thePG, log, userRepo)
	assetService := services.NewAssetService(thePG, log, assetRepo)
	transactionService := services.NewTransactionService(thePG, log, transactionRepo, assetRepo, userRepo, userService)
	settlementService := services.NewSettlementService(thePG, log, watcher, transactionRepo, assetRepo)

	sub, err := settlementService.Start(ctx)
	if err != nil {
		log.Warn("Settlement watcher not started", "error", err)
	} else {
		defer sub.Close()
	}

	// Coordinator
	coordinator := reconcile.NewCoordinator(log, ledgerClient, resolver, recordStore, desc)

	// Handlers
	log.Info("Setting up handlers from main...")
	assetHandler := handlers.NewAssetHandler(assetService)
	userHandler := handlers.NewUserHandler(userService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	searchHandler := handlers.NewSearchHandler(assetService)
	contractHandler := handlers.NewContractHandler(ledgerCfg.ContractAddress, desc.Version)
	marketHandler := handlers.NewMarketHandler(coordinator)

	// Middleware
	requestLog := middleware.NewRequestLogMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins:     allowedOrigins,
		RequestLog:         requestLog,
		AssetHandler:       assetHandler,
		UserHandler:        userHandler,
		TransactionHandler: transactionHandler,
		SearchHandler:      searchHandler,
		ContractHandler:    contractHandler,
		MarketHandler:      marketHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
