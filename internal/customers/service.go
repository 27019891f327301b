package customers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides customer business logic.
type Service struct {
	repo Repository
}

// NewService constructs a customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries customer profile fields.
type Input struct {
	Name          string
	Phone         string
	Email         string
	Type          Type
	CreditLimit   decimal.Decimal
	LoyaltyPoints int
}

func validateType(t Type) error {
	switch t {
	case TypeRetail, TypeWholesale, TypeVIP:
		return nil
	}
	return errors.New("unknown customer type")
}

// Create registers a new customer with a zero opening balance.
func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Customer{}, errors.New("customer name is required")
	}
	if in.Type == "" {
		in.Type = TypeRetail
	}
	if err := validateType(in.Type); err != nil {
		return Customer{}, err
	}
	if in.CreditLimit.IsNegative() {
		return Customer{}, errors.New("credit limit must not be negative")
	}
	now := time.Now()
	c := Customer{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		Email:          in.Email,
		Type:           in.Type,
		CreditLimit:    in.CreditLimit,
		CurrentBalance: decimal.Zero,
		LoyaltyPoints:  in.LoyaltyPoints,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Update replaces profile fields. The balance is untouchable here.
func (s *Service) Update(ctx context.Context, id string, in Input) (Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if strings.TrimSpace(in.Name) != "" {
		existing.Name = strings.TrimSpace(in.Name)
	}
	if in.Type != "" {
		if err := validateType(in.Type); err != nil {
			return Customer{}, err
		}
		existing.Type = in.Type
	}
	if in.CreditLimit.IsNegative() {
		return Customer{}, errors.New("credit limit must not be negative")
	}
	existing.Phone = in.Phone
	existing.Email = in.Email
	existing.CreditLimit = in.CreditLimit
	existing.LoyaltyPoints = in.LoyaltyPoints
	if err := s.repo.Update(ctx, existing); err != nil {
		return Customer{}, err
	}
	return existing, nil
}

// Get retrieves one customer.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers matching the search term.
func (s *Service) List(ctx context.Context, search string) ([]Customer, error) {
	return s.repo.List(ctx, search)
}
