package stock

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/shared"
)

// Batch is a quantity of one product acquired at a specific unit cost on a
// specific date. Batches are the unit of stock accounting: they are
// decremented on sale and retained at zero so the cost history stays
// traceable.
type Batch struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     float64         `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	PurchaseDate time.Time       `json:"purchase_date"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PriceSource identifies how a purchase price observation arrived.
type PriceSource string

const (
	// SourceManual marks a price recorded during a manual restock.
	SourceManual PriceSource = "manual"
	// SourceReceipt marks a price imported from a scanned receipt.
	SourceReceipt PriceSource = "receipt"
)

// PurchasePriceRecord is one observed unit cost for a product. Append-only.
type PurchasePriceRecord struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Quantity   float64         `json:"quantity"`
	SupplierID string          `json:"supplier_id,omitempty"`
	Source     PriceSource     `json:"source"`
	ObservedAt time.Time       `json:"observed_at"`
}

// AddStockInput describes a stock addition.
type AddStockInput struct {
	ProductID  string
	Quantity   float64
	UnitCost   decimal.Decimal
	ExpiryDate *time.Time
	SupplierID string
	Source     PriceSource
	ActorID    string
}

// AddStockResult reports which path an addition took.
type AddStockResult struct {
	Batch  Batch `json:"batch"`
	Merged bool  `json:"merged"`
}

// BatchConsumption is one batch's share of a deduction.
type BatchConsumption struct {
	BatchID  string  `json:"batch_id"`
	Quantity float64 `json:"quantity"`
}

// DeductionResult reports requested versus actually deducted quantities.
// Shortfall is never swallowed: callers decide whether a partial deduction
// is acceptable.
type DeductionResult struct {
	ProductID string             `json:"product_id"`
	Requested float64            `json:"requested"`
	Deducted  float64            `json:"deducted"`
	Shortfall float64            `json:"shortfall"`
	Consumed  []BatchConsumption `json:"consumed,omitempty"`
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("stock: unit cost must be >= 0")
	// ErrInsufficientStock indicates a deduction larger than the available
	// stock while shortfalls are disallowed.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrNotFound indicates no batches exist for the product.
	ErrNotFound = errors.New("stock: not found")
)

// NewBatchNumber generates a unique, human-readable batch number.
func NewBatchNumber(now time.Time) string {
	return fmt.Sprintf("BATCH-%d-%s", now.Unix(), shared.RandomToken(4))
}

// sortForConsumption orders batches deterministically for deduction:
// earliest expiry first (batches without expiry last), then earliest
// purchase date, then batch id as the tie breaker.
func sortForConsumption(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.Before(b.PurchaseDate)
		}
		return a.ID < b.ID
	})
}

// Allocate plans a deduction of qty across the given batches. It mutates
// nothing: it returns the per-batch consumptions and the shortfall left
// over once every batch is exhausted. No batch is ever planned below zero.
func Allocate(batches []Batch, qty float64) ([]BatchConsumption, float64) {
	ordered := make([]Batch, len(batches))
	copy(ordered, batches)
	sortForConsumption(ordered)

	remaining := qty
	var consumed []BatchConsumption
	for _, b := range ordered {
		if remaining <= 0 {
			break
		}
		if b.Quantity <= 0 {
			continue
		}
		take := b.Quantity
		if remaining < take {
			take = remaining
		}
		consumed = append(consumed, BatchConsumption{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	if remaining < 0 {
		remaining = 0
	}
	return consumed, remaining
}

// FindMergeTarget returns the batch newly received stock merges into: the
// one holding the exact same unit cost with quantity still above zero.
// Batches exist to preserve cost history, not to fragment identical-cost
// stock.
func FindMergeTarget(batches []Batch, unitCost decimal.Decimal) (Batch, bool) {
	for _, b := range batches {
		if b.Quantity > 0 && b.UnitCost.Equal(unitCost) {
			return b, true
		}
	}
	return Batch{}, false
}

// TotalQuantity sums quantity over the batches; zero batches contribute 0.
func TotalQuantity(batches []Batch) float64 {
	var total float64
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}
