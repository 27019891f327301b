package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tilldesk/tilldesk/internal/app"
	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/observability"
	"github.com/tilldesk/tilldesk/internal/platform/db"
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

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	supplierService := suppliers.NewService(suppliers.NewRepository(pool))
	stockService := stock.NewService(stock.NewRepository(pool), auditLogger, stock.ServiceConfig{
		AllowShortfall: cfg.AllowStockShortfall,
	})

	extractor := receipts.NewGeminiExtractor(receipts.GeminiConfig{
		BaseURL: cfg.ExtractorURL,
		APIKey:  cfg.ExtractorAPIKey,
		Model:   cfg.ExtractorModel,
		Timeout: cfg.ExtractorTimeout,
	})
	// Imports picked up here already sit in the queue, so the service runs
	// them inline rather than re-enqueueing.
	receiptService := receipts.NewService(logger, receipts.NewRepository(pool), extractor,
		catalogService, stockService, supplierService, nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeReceiptImport, Handler: jobs.HandleReceiptImportTask(receiptService)},
			{Type: jobs.TaskTypeLowStockScan, Handler: jobs.HandleLowStockScanTask(stockService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 1h", Task: jobs.NewLowStockScanTask()},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
