package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tilldesk/tilldesk/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowShortfall lets a deduction proceed even when the batches cannot
	// cover the requested quantity; the result then carries the shortfall.
	// When false, such a deduction fails with ErrInsufficientStock before
	// any batch is touched.
	AllowShortfall bool
}

// Service coordinates stock batch operations.
type Service struct {
	repo           RepositoryPort
	audit          AuditPort
	allowShortfall bool
	now            func() time.Time
	scan           singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, allowShortfall: cfg.AllowShortfall, now: time.Now}
}

// GetStock returns the total quantity on hand for a product.
func (s *Service) GetStock(ctx context.Context, productID string) (float64, error) {
	batches, err := s.repo.Batches(ctx, productID)
	if err != nil {
		return 0, err
	}
	return TotalQuantity(batches), nil
}

// ListBatches returns all batches for a product, including retained
// zero-quantity ones.
func (s *Service) ListBatches(ctx context.Context, productID string) ([]Batch, error) {
	return s.repo.Batches(ctx, productID)
}

// PriceHistory returns the purchase price trail for a product.
func (s *Service) PriceHistory(ctx context.Context, productID string, limit int) ([]PurchasePriceRecord, error) {
	return s.repo.PriceHistory(ctx, productID, limit)
}

// LowStock lists products at or below their reorder level. The scan walks
// every product, so concurrent callers share a single execution.
func (s *Service) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	v, err, _ := s.scan.Do("lowstock", func() (any, error) {
		return s.repo.LowStockProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]LowStockEntry), nil
}

// AddStock receives stock using the merge-or-split policy: quantities join
// the live batch with the exact same unit cost, otherwise a new batch is
// opened. Every addition also appends a purchase price record.
func (s *Service) AddStock(ctx context.Context, in AddStockInput) (AddStockResult, error) {
	if in.ProductID == "" {
		return AddStockResult{}, fmt.Errorf("stock: product required")
	}
	if in.Quantity <= 0 {
		return AddStockResult{}, ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() {
		return AddStockResult{}, ErrInvalidUnitCost
	}
	if in.Source == "" {
		in.Source = SourceManual
	}

	now := s.now()
	var result AddStockResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batches, err := tx.BatchesForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if target, ok := FindMergeTarget(batches, in.UnitCost); ok {
			if err := tx.UpdateBatchQuantity(ctx, target.ID, target.Quantity+in.Quantity); err != nil {
				return err
			}
			target.Quantity += in.Quantity
			result = AddStockResult{Batch: target, Merged: true}
		} else {
			b := Batch{
				ID:           uuid.NewString(),
				ProductID:    in.ProductID,
				BatchNumber:  NewBatchNumber(now),
				Quantity:     in.Quantity,
				UnitCost:     in.UnitCost,
				PurchaseDate: now,
				ExpiryDate:   in.ExpiryDate,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.InsertBatch(ctx, b); err != nil {
				return err
			}
			result = AddStockResult{Batch: b, Merged: false}
		}

		return tx.InsertPriceRecord(ctx, PurchasePriceRecord{
			ID:         uuid.NewString(),
			ProductID:  in.ProductID,
			UnitCost:   in.UnitCost,
			Quantity:   in.Quantity,
			SupplierID: in.SupplierID,
			Source:     in.Source,
			ObservedAt: now,
		})
	})
	if err != nil {
		return AddStockResult{}, fmt.Errorf("add stock: %w", err)
	}

	if s.audit != nil && in.ActorID != "" {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "stock.add",
			Entity:   "product",
			EntityID: in.ProductID,
			Meta:     map[string]any{"quantity": in.Quantity, "unit_cost": in.UnitCost.String(), "merged": result.Merged},
			At:       now,
		})
	}
	return result, nil
}

// RecordPrice appends a purchase price observation without touching
// batches. Receipt imports in prices-only mode go through here.
func (s *Service) RecordPrice(ctx context.Context, in AddStockInput) error {
	if in.ProductID == "" {
		return fmt.Errorf("stock: product required")
	}
	if in.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if in.UnitCost.IsNegative() {
		return ErrInvalidUnitCost
	}
	if in.Source == "" {
		in.Source = SourceManual
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertPriceRecord(ctx, PurchasePriceRecord{
			ID:         uuid.NewString(),
			ProductID:  in.ProductID,
			UnitCost:   in.UnitCost,
			Quantity:   in.Quantity,
			SupplierID: in.SupplierID,
			Source:     in.Source,
			ObservedAt: s.now(),
		})
	})
}

// Deduct consumes stock for a sale. Batches are consumed earliest expiry
// first, then earliest purchase date; no batch ever goes below zero. The
// result reports the requested, deducted and shortfall quantities.
func (s *Service) Deduct(ctx context.Context, productID string, qty float64) (DeductionResult, error) {
	if qty <= 0 {
		return DeductionResult{}, ErrInvalidQuantity
	}

	var result DeductionResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batches, err := tx.BatchesForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		res, err := ApplyDeduction(ctx, tx, batches, productID, qty, s.allowShortfall)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return DeductionResult{}, err
	}
	return result, nil
}

// ApplyDeduction plans and writes a deduction against already-locked
// batches. It is shared with the checkout flow, which calls it inside its
// own transaction.
func ApplyDeduction(ctx context.Context, tx TxRepository, batches []Batch, productID string, qty float64, allowShortfall bool) (DeductionResult, error) {
	consumed, shortfall := Allocate(batches, qty)
	if shortfall > 0 && !allowShortfall {
		return DeductionResult{}, fmt.Errorf("%w: requested %.3f, available %.3f", ErrInsufficientStock, qty, TotalQuantity(batches))
	}

	byID := make(map[string]Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	for _, c := range consumed {
		b := byID[c.BatchID]
		if err := tx.UpdateBatchQuantity(ctx, b.ID, b.Quantity-c.Quantity); err != nil {
			return DeductionResult{}, err
		}
	}

	return DeductionResult{
		ProductID: productID,
		Requested: qty,
		Deducted:  qty - shortfall,
		Shortfall: shortfall,
		Consumed:  consumed,
	}, nil
}
