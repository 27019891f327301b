package receipts

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/stock"
	"github.com/tilldesk/tilldesk/internal/suppliers"
)

type fakeProducts struct {
	products []catalog.Product
}

func (f *fakeProducts) ListProducts(ctx context.Context, filters catalog.ListFilters) ([]catalog.Product, error) {
	return append([]catalog.Product(nil), f.products...), nil
}

func (f *fakeProducts) CreateProduct(ctx context.Context, in catalog.CreateProductInput) (catalog.Product, error) {
	p := catalog.Product{ID: uuid.NewString(), Name: in.Name, SKU: in.SKU, IsActive: true}
	f.products = append(f.products, p)
	return p, nil
}

type fakeStock struct {
	added  []stock.AddStockInput
	priced []stock.AddStockInput
}

func (f *fakeStock) AddStock(ctx context.Context, in stock.AddStockInput) (stock.AddStockResult, error) {
	f.added = append(f.added, in)
	return stock.AddStockResult{}, nil
}

func (f *fakeStock) RecordPrice(ctx context.Context, in stock.AddStockInput) error {
	f.priced = append(f.priced, in)
	return nil
}

type fakeSuppliers struct {
	suppliers []suppliers.Supplier
}

func (f *fakeSuppliers) List(ctx context.Context, activeOnly bool) ([]suppliers.Supplier, error) {
	return f.suppliers, nil
}

func (f *fakeSuppliers) Create(ctx context.Context, in suppliers.Input) (suppliers.Supplier, error) {
	s := suppliers.Supplier{ID: uuid.NewString(), Name: in.Name}
	f.suppliers = append(f.suppliers, s)
	return s, nil
}

type fakeImportRepo struct {
	imports map[string]*Import
}

func newFakeImportRepo() *fakeImportRepo {
	return &fakeImportRepo{imports: make(map[string]*Import)}
}

func (r *fakeImportRepo) Create(ctx context.Context, imp Import) error {
	cp := imp
	r.imports[imp.ID] = &cp
	return nil
}

func (r *fakeImportRepo) Get(ctx context.Context, id string) (Import, error) {
	imp, ok := r.imports[id]
	if !ok {
		return Import{}, ErrNotFound
	}
	return *imp, nil
}

func (r *fakeImportRepo) List(ctx context.Context, limit int) ([]Import, error) {
	var all []Import
	for _, imp := range r.imports {
		all = append(all, *imp)
	}
	return all, nil
}

func (r *fakeImportRepo) MarkCompleted(ctx context.Context, id string, outcomes []ItemOutcome, at time.Time) error {
	imp, ok := r.imports[id]
	if !ok {
		return ErrNotFound
	}
	imp.Status = StatusCompleted
	imp.Outcomes = outcomes
	imp.CompletedAt = &at
	return nil
}

func (r *fakeImportRepo) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	imp, ok := r.imports[id]
	if !ok {
		return ErrNotFound
	}
	imp.Status = StatusFailed
	imp.Error = reason
	imp.CompletedAt = &at
	return nil
}

type stubExtractor struct {
	receipt ExtractedReceipt
	err     error
}

func (s *stubExtractor) Extract(ctx context.Context, in ExtractInput) (ExtractedReceipt, error) {
	return s.receipt, s.err
}

func newApplyFixture() (*Service, *fakeProducts, *fakeStock, *fakeSuppliers) {
	products := &fakeProducts{products: []catalog.Product{
		{ID: "p-milk", Name: "Peak Milk", IsActive: true},
		{ID: "p-sugar", Name: "Sugar 1kg", IsActive: true},
	}}
	stockPort := &fakeStock{}
	supplierPort := &fakeSuppliers{}
	svc := NewService(slog.Default(), newFakeImportRepo(), &stubExtractor{}, products, stockPort, supplierPort, nil)
	return svc, products, stockPort, supplierPort
}

func TestApplyMatchesAndCreates(t *testing.T) {
	svc, products, stockPort, _ := newApplyFixture()
	ctx := context.Background()

	outcomes, err := svc.Apply(ctx, ExtractedReceipt{Items: []ExtractedItem{
		{Name: "PEAK MILK", Quantity: 12, UnitPrice: decimal.NewFromInt(250)},
		{Name: "Sugar", Quantity: 2, UnitPrice: decimal.NewFromInt(900)},
		{Name: "Detergent 500g", Quantity: 3, UnitPrice: decimal.NewFromInt(400)},
	}}, ModePricesOnly, "cashier-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	// Exact case-folded match.
	require.Equal(t, ActionMatched, outcomes[0].Action)
	require.Equal(t, "p-milk", outcomes[0].ProductID)
	// Substring match ("Sugar" within "Sugar 1kg").
	require.Equal(t, ActionMatched, outcomes[1].Action)
	require.Equal(t, "p-sugar", outcomes[1].ProductID)
	// Unknown item creates a product.
	require.Equal(t, ActionCreated, outcomes[2].Action)
	require.NotEmpty(t, outcomes[2].ProductID)
	require.Len(t, products.products, 3)

	// Prices-only mode records prices and never touches batches.
	require.Len(t, stockPort.priced, 3)
	require.Empty(t, stockPort.added)
	for _, in := range stockPort.priced {
		require.Equal(t, stock.SourceReceipt, in.Source)
	}
}

func TestApplyRestockAddsBatches(t *testing.T) {
	svc, _, stockPort, _ := newApplyFixture()

	outcomes, err := svc.Apply(context.Background(), ExtractedReceipt{Items: []ExtractedItem{
		{Name: "Peak Milk", Quantity: 12, UnitPrice: decimal.NewFromInt(250)},
	}}, ModeRestock, "")
	require.NoError(t, err)
	require.True(t, outcomes[0].Restocked)
	require.Len(t, stockPort.added, 1)
	require.InDelta(t, 12, stockPort.added[0].Quantity, 0.0001)
	require.Empty(t, stockPort.priced)
}

func TestApplySkipsUnusableItems(t *testing.T) {
	svc, _, stockPort, _ := newApplyFixture()

	outcomes, err := svc.Apply(context.Background(), ExtractedReceipt{Items: []ExtractedItem{
		{Name: "", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		{Name: "Peak Milk", Quantity: 0, UnitPrice: decimal.NewFromInt(100)},
		{Name: "Peak Milk", Quantity: 2, UnitPrice: decimal.NewFromInt(250)},
	}}, ModePricesOnly, "")
	require.NoError(t, err)
	require.Equal(t, ActionSkipped, outcomes[0].Action)
	require.Equal(t, ActionSkipped, outcomes[1].Action)
	require.Equal(t, ActionMatched, outcomes[2].Action)
	require.Len(t, stockPort.priced, 1)
}

func TestApplyDuplicateLineCreatesOnce(t *testing.T) {
	svc, products, _, _ := newApplyFixture()

	outcomes, err := svc.Apply(context.Background(), ExtractedReceipt{Items: []ExtractedItem{
		{Name: "Candles", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		{Name: "Candles", Quantity: 3, UnitPrice: decimal.NewFromInt(50)},
	}}, ModePricesOnly, "")
	require.NoError(t, err)
	require.Equal(t, ActionCreated, outcomes[0].Action)
	require.Equal(t, ActionMatched, outcomes[1].Action)
	require.Equal(t, outcomes[0].ProductID, outcomes[1].ProductID)
	require.Len(t, products.products, 3)
}

func TestApplyEmptyReceipt(t *testing.T) {
	svc, _, _, _ := newApplyFixture()
	_, err := svc.Apply(context.Background(), ExtractedReceipt{}, ModePricesOnly, "")
	require.ErrorIs(t, err, ErrNoItems)
}

func TestApplyResolvesSupplier(t *testing.T) {
	svc, _, stockPort, supplierPort := newApplyFixture()
	ctx := context.Background()

	_, err := svc.Apply(ctx, ExtractedReceipt{
		SupplierName: "Mama Nkechi Stores",
		Items:        []ExtractedItem{{Name: "Peak Milk", Quantity: 1, UnitPrice: decimal.NewFromInt(250)}},
	}, ModePricesOnly, "")
	require.NoError(t, err)
	require.Len(t, supplierPort.suppliers, 1)
	require.Equal(t, supplierPort.suppliers[0].ID, stockPort.priced[0].SupplierID)

	// Same supplier on a later receipt is reused, not duplicated.
	_, err = svc.Apply(ctx, ExtractedReceipt{
		SupplierName: "MAMA NKECHI STORES",
		Items:        []ExtractedItem{{Name: "Peak Milk", Quantity: 1, UnitPrice: decimal.NewFromInt(250)}},
	}, ModePricesOnly, "")
	require.NoError(t, err)
	require.Len(t, supplierPort.suppliers, 1)
}

func TestImportLifecycle(t *testing.T) {
	repo := newFakeImportRepo()
	extractor := &stubExtractor{receipt: ExtractedReceipt{Items: []ExtractedItem{
		{Name: "Peak Milk", Quantity: 6, UnitPrice: decimal.NewFromInt(250)},
	}}}
	products := &fakeProducts{products: []catalog.Product{{ID: "p-milk", Name: "Peak Milk", IsActive: true}}}
	stockPort := &fakeStock{}
	svc := NewService(slog.Default(), repo, extractor, products, stockPort, &fakeSuppliers{}, nil)

	imp, err := svc.StartImport(context.Background(), ExtractInput{ImageBase64: "Zm9v"}, ModeRestock, "cashier-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, imp.Status)
	require.Len(t, imp.Outcomes, 1)
	require.True(t, imp.Outcomes[0].Restocked)

	stored, err := svc.GetImport(context.Background(), imp.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestImportExtractionFailureRecorded(t *testing.T) {
	repo := newFakeImportRepo()
	extractor := &stubExtractor{err: ErrExtractorUnavailable}
	svc := NewService(slog.Default(), repo, extractor, &fakeProducts{}, &fakeStock{}, &fakeSuppliers{}, nil)

	imp, err := svc.StartImport(context.Background(), ExtractInput{ImageBase64: "Zm9v"}, ModePricesOnly, "")
	require.Error(t, err)
	require.Equal(t, StatusFailed, imp.Status)

	stored, err := svc.GetImport(context.Background(), imp.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, stored.Status)
	require.NotEmpty(t, stored.Error)
}
