package stock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	batches map[string][]Batch
	prices  []PurchasePriceRecord
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: make(map[string][]Batch)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Batches(ctx context.Context, productID string) ([]Batch, error) {
	result := make([]Batch, len(r.batches[productID]))
	copy(result, r.batches[productID])
	return result, nil
}

func (r *memoryRepo) PriceHistory(ctx context.Context, productID string, limit int) ([]PurchasePriceRecord, error) {
	var records []PurchasePriceRecord
	for _, rec := range r.prices {
		if rec.ProductID == productID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryRepo) LowStockProducts(ctx context.Context) ([]LowStockEntry, error) {
	return nil, nil
}

func (tx *memoryTx) BatchesForUpdate(ctx context.Context, productID string) ([]Batch, error) {
	return tx.repo.Batches(ctx, productID)
}

func (tx *memoryTx) InsertBatch(ctx context.Context, b Batch) error {
	tx.repo.batches[b.ProductID] = append(tx.repo.batches[b.ProductID], b)
	return nil
}

func (tx *memoryTx) UpdateBatchQuantity(ctx context.Context, batchID string, quantity float64) error {
	for productID, batches := range tx.repo.batches {
		for i := range batches {
			if batches[i].ID == batchID {
				tx.repo.batches[productID][i].Quantity = quantity
				return nil
			}
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) InsertPriceRecord(ctx context.Context, rec PurchasePriceRecord) error {
	tx.repo.prices = append(tx.repo.prices, rec)
	return nil
}

func TestAddStockMergesEqualCost(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{AllowShortfall: true})
	ctx := context.Background()

	first, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 10, UnitCost: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.False(t, first.Merged)

	second, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 7, UnitCost: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.True(t, second.Merged)
	require.InDelta(t, 17, second.Batch.Quantity, 0.0001)

	batches, err := svc.ListBatches(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 1)

	total, err := svc.GetStock(ctx, "p1")
	require.NoError(t, err)
	require.InDelta(t, 17, total, 0.0001)
}

func TestAddStockSplitsOnDistinctCost(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{AllowShortfall: true})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 5, UnitCost: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 5, UnitCost: decimal.NewFromInt(120)})
	require.NoError(t, err)

	// Same cost as the first batch merges back into it rather than opening
	// a third batch.
	res, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 3, UnitCost: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.True(t, res.Merged)
	require.InDelta(t, 8, res.Batch.Quantity, 0.0001)

	batches, err := svc.ListBatches(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 2)
}

func TestAddStockRecordsPurchasePrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 4, UnitCost: decimal.NewFromInt(90), SupplierID: "s1"})
	require.NoError(t, err)

	records, err := svc.PriceHistory(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].UnitCost.Equal(decimal.NewFromInt(90)))
	require.Equal(t, SourceManual, records[0].Source)
}

func TestAddStockRejectsInvalidInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 0, UnitCost: decimal.NewFromInt(10)})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 1, UnitCost: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrInvalidUnitCost)
}

func TestDeductAcrossBatches(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{AllowShortfall: true})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 10, UnitCost: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 10, UnitCost: decimal.NewFromInt(120)})
	require.NoError(t, err)

	res, err := svc.Deduct(ctx, "p1", 14)
	require.NoError(t, err)
	require.InDelta(t, 14, res.Deducted, 0.0001)
	require.InDelta(t, 0, res.Shortfall, 0.0001)
	require.Len(t, res.Consumed, 2)

	total, err := svc.GetStock(ctx, "p1")
	require.NoError(t, err)
	require.InDelta(t, 6, total, 0.0001)

	// Emptied batches are retained as zero records.
	batches, err := svc.ListBatches(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	for _, b := range batches {
		require.GreaterOrEqual(t, b.Quantity, 0.0)
	}
}

func TestDeductShortfallReported(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{AllowShortfall: true})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 30, UnitCost: decimal.NewFromInt(50)})
	require.NoError(t, err)

	// Deducting 50 from 30 leaves total stock at 0, never negative, with
	// the 20 shortfall reported rather than swallowed.
	res, err := svc.Deduct(ctx, "p1", 50)
	require.NoError(t, err)
	require.InDelta(t, 50, res.Requested, 0.0001)
	require.InDelta(t, 30, res.Deducted, 0.0001)
	require.InDelta(t, 20, res.Shortfall, 0.0001)

	total, err := svc.GetStock(ctx, "p1")
	require.NoError(t, err)
	require.InDelta(t, 0, total, 0.0001)
}

func TestDeductInsufficientStockGuard(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{AllowShortfall: false})
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: "p1", Quantity: 30, UnitCost: decimal.NewFromInt(50)})
	require.NoError(t, err)

	_, err = svc.Deduct(ctx, "p1", 50)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing was touched.
	total, err := svc.GetStock(ctx, "p1")
	require.NoError(t, err)
	require.InDelta(t, 30, total, 0.0001)
}

func TestAllocateOrdersByExpiryThenPurchaseDate(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	soon := base.AddDate(0, 0, 7)
	later := base.AddDate(0, 1, 0)

	batches := []Batch{
		{ID: "no-expiry", Quantity: 10, PurchaseDate: base},
		{ID: "late-expiry", Quantity: 10, PurchaseDate: base.AddDate(0, 0, 1), ExpiryDate: &later},
		{ID: "soon-expiry", Quantity: 10, PurchaseDate: base.AddDate(0, 0, 2), ExpiryDate: &soon},
	}

	consumed, shortfall := Allocate(batches, 15)
	require.InDelta(t, 0, shortfall, 0.0001)
	require.Len(t, consumed, 2)
	require.Equal(t, "soon-expiry", consumed[0].BatchID)
	require.InDelta(t, 10, consumed[0].Quantity, 0.0001)
	require.Equal(t, "late-expiry", consumed[1].BatchID)
	require.InDelta(t, 5, consumed[1].Quantity, 0.0001)
}

func TestAllocateSkipsZeroBatches(t *testing.T) {
	base := time.Now()
	batches := []Batch{
		{ID: "empty", Quantity: 0, PurchaseDate: base.Add(-time.Hour)},
		{ID: "full", Quantity: 5, PurchaseDate: base},
	}
	consumed, shortfall := Allocate(batches, 3)
	require.InDelta(t, 0, shortfall, 0.0001)
	require.Len(t, consumed, 1)
	require.Equal(t, "full", consumed[0].BatchID)
}
