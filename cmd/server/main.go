package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	inventoryapp "github.com/stockbooks/backend/internal/application/inventory"
	invoicingapp "github.com/stockbooks/backend/internal/application/invoicing"
	reportapp "github.com/stockbooks/backend/internal/application/report"
	"github.com/stockbooks/backend/internal/infrastructure/auth"
	"github.com/stockbooks/backend/internal/infrastructure/cache"
	"github.com/stockbooks/backend/internal/infrastructure/config"
	"github.com/stockbooks/backend/internal/infrastructure/event"
	"github.com/stockbooks/backend/internal/infrastructure/logger"
	"github.com/stockbooks/backend/internal/infrastructure/persistence"
	"github.com/stockbooks/backend/internal/interfaces/http/handler"
	"github.com/stockbooks/backend/internal/interfaces/http/middleware"
	"github.com/stockbooks/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting StockBooks backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	purchaseInvoiceRepo := persistence.NewGormPurchaseInvoiceRepository(db.DB)
	salesInvoiceRepo := persistence.NewGormSalesInvoiceRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	returnedItemRepo := persistence.NewGormReturnedItemRepository(db.DB)

	// The reconciler runs every fulfillment pass inside a single transaction
	scope := persistence.NewGormTransactionScope(db.DB)

	// No location resolver is configured; new inventory rows are created
	// without a default location.
	reconciler := invoicingapp.NewReconciliationService(scope, nil)

	// Initialize application services
	purchaseService := invoicingapp.NewPurchaseInvoiceService(scope, purchaseInvoiceRepo, ledgerRepo, reconciler)
	salesService := invoicingapp.NewSalesInvoiceService(scope, salesInvoiceRepo, ledgerRepo, reconciler)
	returnService := invoicingapp.NewReturnService(scope, reconciler, invoicingapp.ReturnRestockPolicy{
		RestockOnReturn: cfg.Reconcile.ReturnRestock,
	})
	inventoryService := inventoryapp.NewInventoryService(inventoryRepo, ledgerRepo)
	reportService := reportapp.NewReportService(purchaseInvoiceRepo, salesInvoiceRepo, inventoryRepo, returnedItemRepo)
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore := cache.NewIdempotencyStore(cfg.Redis, log)

	lowStockHandler := event.NewIdempotentHandler(
		inventoryapp.NewLowStockAlertHandler(log), idempotencyStore, log)
	eventBus.Subscribe(lowStockHandler)
	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	purchaseService.SetEventPublisher(eventBus)
	salesService.SetEventPublisher(eventBus)
	returnService.SetEventPublisher(eventBus)
	reconciler.SetEventPublisher(eventBus)

	// Initialize HTTP handlers
	purchaseHandler := handler.NewPurchaseInvoiceHandler(purchaseService)
	salesHandler := handler.NewSalesInvoiceHandler(salesService, returnService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	reportHandler := handler.NewReportHandler(reportService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Report validation failures by json field name
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health probes live outside API versioning
	engine.GET("/healthz", systemHandler.Healthz)
	engine.GET("/readyz", systemHandler.Readyz)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	r.Use(middleware.JWTAuthWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/system/info",
		},
		Logger: log,
	}))

	r.Register(purchaseHandler).
		Register(salesHandler).
		Register(inventoryHandler).
		Register(reportHandler).
		Register(systemHandler)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
