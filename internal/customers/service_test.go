package customers

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	customers map[string]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[string]Customer{}}
}

func (m *memoryRepo) List(_ context.Context, search string) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) Create(_ context.Context, c Customer) error {
	m.customers[c.ID] = c
	return nil
}

func (m *memoryRepo) Update(_ context.Context, c Customer) error {
	if _, ok := m.customers[c.ID]; !ok {
		return ErrNotFound
	}
	m.customers[c.ID] = c
	return nil
}

func TestCreateCustomerDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo())

	c, err := svc.Create(context.Background(), Input{Name: " Mama Ngozi "})
	require.NoError(t, err)
	require.Equal(t, "Mama Ngozi", c.Name)
	require.Equal(t, TypeRetail, c.Type)
	require.True(t, c.CurrentBalance.IsZero())
	require.NotEmpty(t, c.ID)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{})
	require.Error(t, err)

	_, err = svc.Create(ctx, Input{Name: "X", Type: "corporate"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Input{Name: "X", CreditLimit: decimal.NewFromInt(-1)})
	require.Error(t, err)
}

func TestUpdateCustomerKeepsBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: "Chidi", Type: TypeWholesale})
	require.NoError(t, err)

	// Balance is owned by the credit ledger; Update must never touch it.
	stored := repo.customers[c.ID]
	stored.CurrentBalance = decimal.NewFromInt(3500)
	repo.customers[c.ID] = stored

	updated, err := svc.Update(ctx, c.ID, Input{
		Name:        "Chidi O.",
		Phone:       "0803",
		Type:        TypeVIP,
		CreditLimit: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	require.Equal(t, "Chidi O.", updated.Name)
	require.Equal(t, TypeVIP, updated.Type)
	require.True(t, updated.CurrentBalance.Equal(decimal.NewFromInt(3500)))

	_, err = svc.Update(ctx, "missing", Input{Name: "X"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListCustomersSearch(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "Mama Ngozi"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Chidi"})
	require.NoError(t, err)

	got, err := svc.List(ctx, "ngozi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Mama Ngozi", got[0].Name)
}
