package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides catalog business logic.
type Service struct {
	repo Repository
}

// NewService constructs a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateProductInput carries the fields accepted at product creation.
type CreateProductInput struct {
	Name           string
	SKU            string
	Category       string
	Unit           string
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	CostPrice      decimal.Decimal
	ReorderLevel   float64
	ItemType       ItemType
	PackageSize    float64
	PricePerBaseUnit decimal.Decimal
	CostPerBaseUnit  decimal.Decimal
}

func (s *Service) validate(in CreateProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("product name is required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		return errors.New("product sku is required")
	}
	if in.RetailPrice.IsNegative() || in.WholesalePrice.IsNegative() || in.CostPrice.IsNegative() {
		return errors.New("prices must not be negative")
	}
	switch in.ItemType {
	case ItemTypeUnit:
	case ItemTypeBulk:
		if in.PackageSize <= 0 {
			return errors.New("bulk products require a positive package size")
		}
	default:
		return fmt.Errorf("unknown item type %q", in.ItemType)
	}
	return nil
}

// CreateProduct registers a new product.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	if err := s.validate(in); err != nil {
		return Product{}, err
	}
	now := time.Now()
	p := Product{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		SKU:            strings.ToUpper(strings.TrimSpace(in.SKU)),
		Category:       strings.TrimSpace(in.Category),
		Unit:           in.Unit,
		RetailPrice:    in.RetailPrice,
		WholesalePrice: in.WholesalePrice,
		CostPrice:      in.CostPrice,
		ReorderLevel:   in.ReorderLevel,
		IsActive:       true,
		ItemType:       in.ItemType,
		PackageSize:    in.PackageSize,
		PricePerBaseUnit: in.PricePerBaseUnit,
		CostPerBaseUnit:  in.CostPerBaseUnit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in CreateProductInput) (Product, error) {
	if err := s.validate(in); err != nil {
		return Product{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.SKU = strings.ToUpper(strings.TrimSpace(in.SKU))
	existing.Category = strings.TrimSpace(in.Category)
	existing.Unit = in.Unit
	existing.RetailPrice = in.RetailPrice
	existing.WholesalePrice = in.WholesalePrice
	existing.CostPrice = in.CostPrice
	existing.ReorderLevel = in.ReorderLevel
	existing.ItemType = in.ItemType
	existing.PackageSize = in.PackageSize
	existing.PricePerBaseUnit = in.PricePerBaseUnit
	existing.CostPerBaseUnit = in.CostPerBaseUnit
	if err := s.repo.Update(ctx, existing); err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return existing, nil
}

// GetProduct retrieves one product.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// ListProducts lists products using the given filters.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

// DeactivateProduct soft-deactivates a product. Products are never deleted:
// historical transactions and batches keep referencing them.
func (s *Service) DeactivateProduct(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// ActivateProduct re-enables a previously deactivated product.
func (s *Service) ActivateProduct(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, true)
}
