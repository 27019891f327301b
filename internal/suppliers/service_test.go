package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	suppliers map[string]Supplier
}

func (m *memoryRepo) List(_ context.Context, activeOnly bool) ([]Supplier, error) {
	var out []Supplier
	for _, s := range m.suppliers {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Create(_ context.Context, s Supplier) error {
	m.suppliers[s.ID] = s
	return nil
}

func (m *memoryRepo) Update(_ context.Context, s Supplier) error {
	if _, ok := m.suppliers[s.ID]; !ok {
		return ErrNotFound
	}
	m.suppliers[s.ID] = s
	return nil
}

func TestCreateSupplier(t *testing.T) {
	svc := NewService(&memoryRepo{suppliers: map[string]Supplier{}})
	ctx := context.Background()

	s, err := svc.Create(ctx, Input{Name: " Golden Penny Distributors ", Phone: "0701"})
	require.NoError(t, err)
	require.Equal(t, "Golden Penny Distributors", s.Name)
	require.True(t, s.IsActive)

	_, err = svc.Create(ctx, Input{Name: "   "})
	require.Error(t, err)
}

func TestUpdateSupplier(t *testing.T) {
	repo := &memoryRepo{suppliers: map[string]Supplier{}}
	svc := NewService(repo)
	ctx := context.Background()

	s, err := svc.Create(ctx, Input{Name: "Dangote Depot"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, s.ID, Input{Contact: "Musa", Phone: "0802"})
	require.NoError(t, err)
	require.Equal(t, "Dangote Depot", updated.Name)
	require.Equal(t, "Musa", updated.Contact)

	_, err = svc.Update(ctx, "missing", Input{})
	require.ErrorIs(t, err, ErrNotFound)
}
