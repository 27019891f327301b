package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tilldesk/tilldesk/internal/app"
	"github.com/tilldesk/tilldesk/internal/auth"
	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/credit"
	"github.com/tilldesk/tilldesk/internal/customers"
	"github.com/tilldesk/tilldesk/internal/observability"
	"github.com/tilldesk/tilldesk/internal/platform/cache"
	"github.com/tilldesk/tilldesk/internal/platform/db"
	"github.com/tilldesk/tilldesk/internal/pos"
	"github.com/tilldesk/tilldesk/internal/receipts"
	"github.com/tilldesk/tilldesk/internal/shared"
	"github.com/tilldesk/tilldesk/internal/stock"
	"github.com/tilldesk/tilldesk/internal/suppliers"
	"github.com/tilldesk/tilldesk/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "tilldesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	supplierService := suppliers.NewService(suppliers.NewRepository(pool))
	supplierHandler := suppliers.NewHandler(logger, supplierService)

	customerService := customers.NewService(customers.NewRepository(pool))
	customerHandler := customers.NewHandler(logger, customerService)

	stockService := stock.NewService(stock.NewRepository(pool), auditLogger, stock.ServiceConfig{
		AllowShortfall: cfg.AllowStockShortfall,
	})
	stockHandler := stock.NewHandler(logger, stockService)

	creditService := credit.NewService(credit.NewRepository(pool), auditLogger)
	creditHandler := credit.NewHandler(logger, creditService)

	cartService := pos.NewCartService(catalogService, customerService, sessionManager)
	posService := pos.NewService(pos.NewRepository(pool), cartService, metrics, pos.ServiceConfig{
		AllowShortfall: cfg.AllowStockShortfall,
	})
	posHandler := pos.NewHandler(logger, cartService, posService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	extractor := receipts.NewGeminiExtractor(receipts.GeminiConfig{
		BaseURL: cfg.ExtractorURL,
		APIKey:  cfg.ExtractorAPIKey,
		Model:   cfg.ExtractorModel,
		Timeout: cfg.ExtractorTimeout,
	})
	receiptService := receipts.NewService(logger, receipts.NewRepository(pool), extractor,
		catalogService, stockService, supplierService, jobClient)
	receiptHandler := receipts.NewHandler(logger, receiptService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		AuthHandler:     authHandler,
		CatalogHandler:  catalogHandler,
		SupplierHandler: supplierHandler,
		CustomerHandler: customerHandler,
		StockHandler:    stockHandler,
		CreditHandler:   creditHandler,
		POSHandler:      posHandler,
		ReceiptHandler:  receiptHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
