package suppliers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service provides supplier business logic.
type Service struct {
	repo Repository
}

// NewService constructs a supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries supplier fields for create and update.
type Input struct {
	Name    string
	Contact string
	Phone   string
	Email   string
	Notes   string
}

// Create registers a new supplier.
func (s *Service) Create(ctx context.Context, in Input) (Supplier, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Supplier{}, errors.New("supplier name is required")
	}
	now := time.Now()
	sup := Supplier{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Contact:   in.Contact,
		Phone:     in.Phone,
		Email:     in.Email,
		Notes:     in.Notes,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

// Update replaces supplier contact details.
func (s *Service) Update(ctx context.Context, id string, in Input) (Supplier, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	if strings.TrimSpace(in.Name) != "" {
		existing.Name = strings.TrimSpace(in.Name)
	}
	existing.Contact = in.Contact
	existing.Phone = in.Phone
	existing.Email = in.Email
	existing.Notes = in.Notes
	if err := s.repo.Update(ctx, existing); err != nil {
		return Supplier{}, err
	}
	return existing, nil
}

// Get retrieves one supplier.
func (s *Service) Get(ctx context.Context, id string) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

// List returns suppliers, optionally active only.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	return s.repo.List(ctx, activeOnly)
}
