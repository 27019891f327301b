package receipts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedReceipt is the structured output of the extraction collaborator.
// It is best-effort data: the apply step validates per item and skips what
// it cannot use rather than failing the whole receipt.
type ExtractedReceipt struct {
	SupplierName string          `json:"supplier_name,omitempty"`
	PurchaseDate *time.Time      `json:"purchase_date,omitempty"`
	Items        []ExtractedItem `json:"items"`
	Total        decimal.Decimal `json:"total,omitempty"`
}

// ExtractedItem is one line read off a supplier receipt.
type ExtractedItem struct {
	Name       string          `json:"name"`
	Quantity   float64         `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price,omitempty"`
	Unit       string          `json:"unit,omitempty"`
}

// ImportMode controls how far an applied receipt reaches into stock.
type ImportMode string

const (
	// ModePricesOnly records purchase prices without touching batches.
	ModePricesOnly ImportMode = "prices"
	// ModeRestock also adds the received quantities as stock batches.
	ModeRestock ImportMode = "restock"
)

// ValidImportMode reports whether m is a known mode.
func ValidImportMode(m ImportMode) bool {
	return m == ModePricesOnly || m == ModeRestock
}

// ItemAction describes what the apply step did with one item.
type ItemAction string

const (
	ActionMatched ItemAction = "matched"
	ActionCreated ItemAction = "created"
	ActionSkipped ItemAction = "skipped"
)

// ItemOutcome is the per-item result of applying a receipt.
type ItemOutcome struct {
	Name      string          `json:"name"`
	ProductID string          `json:"product_id,omitempty"`
	Action    ItemAction      `json:"action"`
	Restocked bool            `json:"restocked"`
	Quantity  float64         `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Reason    string          `json:"reason,omitempty"`
}

// ImportStatus tracks an async import through its lifecycle.
type ImportStatus string

const (
	StatusPending   ImportStatus = "pending"
	StatusCompleted ImportStatus = "completed"
	StatusFailed    ImportStatus = "failed"
)

// Import is a persisted receipt import, async or synchronous.
type Import struct {
	ID          string        `json:"id"`
	Mode        ImportMode    `json:"mode"`
	Status      ImportStatus  `json:"status"`
	SupplierID  string        `json:"supplier_id,omitempty"`
	Outcomes    []ItemOutcome `json:"outcomes,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

var (
	// ErrNoItems indicates a receipt with nothing usable on it.
	ErrNoItems = errors.New("receipts: no items extracted")
	// ErrInvalidMode indicates an unknown import mode.
	ErrInvalidMode = errors.New("receipts: invalid import mode")
	// ErrNotFound indicates a missing import.
	ErrNotFound = errors.New("receipts: import not found")
	// ErrExtractorUnavailable indicates extraction is not configured.
	ErrExtractorUnavailable = errors.New("receipts: extractor not configured")
)
