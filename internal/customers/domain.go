package customers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies a customer for pricing purposes.
type Type string

const (
	TypeRetail    Type = "retail"
	TypeWholesale Type = "wholesale"
	TypeVIP       Type = "vip"
)

// Customer represents a known buyer. CurrentBalance is the outstanding
// credit owed by the customer; it is mutated only through the credit
// ledger, never directly.
type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Type           Type            `json:"type"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	LoyaltyPoints  int             `json:"loyalty_points"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ErrNotFound indicates a missing customer.
var ErrNotFound = errors.New("customers: not found")
