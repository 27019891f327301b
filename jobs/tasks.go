package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tilldesk/tilldesk/internal/receipts"
	"github.com/tilldesk/tilldesk/internal/stock"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReceiptImport runs extraction and apply for a queued receipt.
	TaskTypeReceiptImport = "receipt:import"
	// TaskTypeLowStockScan refreshes the low-stock gauge on a schedule.
	TaskTypeLowStockScan = "stock:lowstock"
)

// ReceiptImportPayload identifies a pending import and carries its image.
type ReceiptImportPayload struct {
	ImportID    string `json:"import_id"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type,omitempty"`
	Mode        string `json:"mode"`
}

// NewReceiptImportTask constructs an Asynq task.
func NewReceiptImportTask(payload ReceiptImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptImport, data), nil
}

// NewLowStockScanTask constructs the scheduled scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLowStockScan, nil)
}

// ReceiptImporter is the worker-side slice of the receipts service.
type ReceiptImporter interface {
	ProcessImport(ctx context.Context, importID string, in receipts.ExtractInput) error
}

// HandleReceiptImportTask builds the handler for TaskTypeReceiptImport.
func HandleReceiptImportTask(importer ReceiptImporter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptImportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return importer.ProcessImport(ctx, payload.ImportID, receipts.ExtractInput{
			ImageBase64: payload.ImageBase64,
			MimeType:    payload.MimeType,
		})
	}
}

// LowStockScanner is the worker-side slice of the stock service.
type LowStockScanner interface {
	LowStock(ctx context.Context) ([]stock.LowStockEntry, error)
}

// LowStockMetrics records the scan result.
type LowStockMetrics interface {
	SetLowStockCount(n int)
}

// HandleLowStockScanTask builds the handler for TaskTypeLowStockScan.
func HandleLowStockScanTask(scanner LowStockScanner, metrics LowStockMetrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		entries, err := scanner.LowStock(ctx)
		if err != nil {
			return err
		}
		if metrics != nil {
			metrics.SetLowStockCount(len(entries))
		}
		for _, e := range entries {
			logger.Warn("low stock",
				slog.String("product_id", e.ProductID),
				slog.String("name", e.Name),
				slog.Float64("total_stock", e.TotalStock),
				slog.Float64("reorder_level", e.ReorderLevel))
		}
		return nil
	}
}
