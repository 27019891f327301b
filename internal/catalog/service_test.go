package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[string]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[string]Product{}}
}

func (m *memoryRepo) List(_ context.Context, filters ListFilters) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if filters.Search != "" {
			s := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(p.Name), s) && !strings.Contains(strings.ToLower(p.SKU), s) {
				continue
			}
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) GetBySKU(_ context.Context, sku string) (Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, p Product) error {
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return ErrDuplicateSKU
		}
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) Update(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, id string, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = active
	m.products[id] = p
	return nil
}

func TestCreateProductNormalizesSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:        "  Peak Milk 170g ",
		SKU:         " pk-milk-170 ",
		Category:    "dairy",
		Unit:        "tin",
		RetailPrice: decimal.NewFromInt(450),
		ItemType:    ItemTypeUnit,
	})
	require.NoError(t, err)
	require.Equal(t, "Peak Milk 170g", p.Name)
	require.Equal(t, "PK-MILK-170", p.SKU)
	require.True(t, p.IsActive)
	require.NotEmpty(t, p.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "X", ItemType: ItemTypeUnit})
	require.Error(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "X", ItemType: ItemTypeUnit})
	require.Error(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name: "X", SKU: "X",
		RetailPrice: decimal.NewFromInt(-1),
		ItemType:    ItemTypeUnit,
	})
	require.Error(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "X", SKU: "X", ItemType: "carton"})
	require.Error(t, err)
}

func TestCreateBulkProductRequiresPackageSize(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Rice", SKU: "RICE-50", ItemType: ItemTypeBulk,
	})
	require.Error(t, err)

	p, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:             "Rice",
		SKU:              "RICE-50",
		Unit:             "kg",
		ItemType:         ItemTypeBulk,
		PackageSize:      50,
		PricePerBaseUnit: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	require.Equal(t, ItemTypeBulk, p.ItemType)
	require.Equal(t, float64(50), p.PackageSize)
}

func TestDuplicateSKURejected(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "A", SKU: "DUP-1", ItemType: ItemTypeUnit})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "B", SKU: "dup-1", ItemType: ItemTypeUnit})
	require.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestUpdateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductInput{
		Name: "Soap", SKU: "SOAP-1",
		RetailPrice: decimal.NewFromInt(500),
		ItemType:    ItemTypeUnit,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, CreateProductInput{
		Name: "Soap XL", SKU: "SOAP-1",
		RetailPrice:    decimal.NewFromInt(650),
		WholesalePrice: decimal.NewFromInt(600),
		ItemType:       ItemTypeUnit,
	})
	require.NoError(t, err)
	require.Equal(t, "Soap XL", updated.Name)
	require.True(t, updated.RetailPrice.Equal(decimal.NewFromInt(650)))

	_, err = svc.UpdateProduct(ctx, "missing", CreateProductInput{
		Name: "X", SKU: "X", ItemType: ItemTypeUnit,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateAndActivate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Soap", SKU: "SOAP-1", ItemType: ItemTypeUnit})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(ctx, p.ID))
	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.NoError(t, svc.ActivateProduct(ctx, p.ID))
	got, err = svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestListProductsFilters(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Peak Milk", SKU: "MILK-1", Category: "dairy", ItemType: ItemTypeUnit})
	require.NoError(t, err)
	soap, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Bar Soap", SKU: "SOAP-1", Category: "household", ItemType: ItemTypeUnit})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateProduct(ctx, soap.ID))

	got, err := svc.ListProducts(ctx, ListFilters{Search: "milk"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Peak Milk", got[0].Name)

	active := true
	got, err = svc.ListProducts(ctx, ListFilters{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.ListProducts(ctx, ListFilters{Category: "household"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Bar Soap", got[0].Name)
}
