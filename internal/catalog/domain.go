package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ItemType distinguishes countable products from bulk products sold by
// weight or volume.
type ItemType string

const (
	// ItemTypeUnit is a countable product sold in whole units.
	ItemTypeUnit ItemType = "unit"
	// ItemTypeBulk is a divisible product sold by weight or volume.
	ItemTypeBulk ItemType = "bulk"
)

// Product represents a sellable product or SKU.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	RetailPrice   decimal.Decimal `json:"retail_price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	ReorderLevel  float64         `json:"reorder_level"`
	IsActive      bool            `json:"is_active"`
	ItemType      ItemType        `json:"item_type"`

	// Bulk-only fields: size of one package in base units, and pricing per
	// base unit (e.g. per kilogram).
	PackageSize      float64         `json:"package_size,omitempty"`
	PricePerBaseUnit decimal.Decimal `json:"price_per_base_unit,omitempty"`
	CostPerBaseUnit  decimal.Decimal `json:"cost_per_base_unit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound indicates a missing product.
var ErrNotFound = errors.New("catalog: product not found")

// ErrDuplicateSKU indicates a SKU collision.
var ErrDuplicateSKU = errors.New("catalog: sku already exists")

// ListFilters narrows product listings.
type ListFilters struct {
	Search   string
	Category string
	IsActive *bool
	Limit    int
	Offset   int
}
