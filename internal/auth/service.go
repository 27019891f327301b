package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilldesk/tilldesk/internal/shared"
)

// Service handles cashier authentication. Login starts the session that
// carries the cart; logout destroys both.
type Service struct {
	repo Repository
}

// NewService constructs an auth service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Login verifies a cashier code and PIN and binds the cashier to the
// session. The PIN format is checked before any lookup.
func (s *Service) Login(ctx context.Context, sess *shared.Session, code, pin string) (Cashier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Cashier{}, shared.ErrInvalidCredentials
	}
	if !ValidPIN(pin) {
		return Cashier{}, ErrInvalidPIN
	}

	cashier, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cashier{}, shared.ErrInvalidCredentials
		}
		return Cashier{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cashier.PINHash), []byte(pin)); err != nil {
		return Cashier{}, shared.ErrInvalidCredentials
	}

	sess.SetCashier(cashier.ID)
	return cashier, nil
}

// Current returns the cashier bound to the session.
func (s *Service) Current(ctx context.Context, sess *shared.Session) (Cashier, error) {
	if sess == nil || sess.Cashier() == "" {
		return Cashier{}, shared.ErrNotLoggedIn
	}
	return s.repo.Get(ctx, sess.Cashier())
}

// RegisterInput carries the fields for creating a cashier.
type RegisterInput struct {
	Name string
	Code string
	PIN  string
}

// Register creates a cashier with a hashed PIN.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Cashier, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" {
		return Cashier{}, errors.New("auth: name and code are required")
	}
	if !ValidPIN(in.PIN) {
		return Cashier{}, ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Cashier{}, err
	}
	now := time.Now()
	cashier := Cashier{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Code:      strings.TrimSpace(in.Code),
		PINHash:   string(hash),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, cashier); err != nil {
		return Cashier{}, err
	}
	return cashier, nil
}
