package auth

import (
	"errors"
	"regexp"
	"time"
)

// Cashier is a till operator. PINs are stored as bcrypt hashes.
type Cashier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	PINHash   string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// ValidPIN reports whether the raw PIN is 4 to 6 digits. Malformed PINs
// are rejected before any lookup or hash comparison.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

var (
	// ErrInvalidPIN indicates a malformed PIN.
	ErrInvalidPIN = errors.New("auth: pin must be 4 to 6 digits")
	// ErrNotFound indicates a missing cashier.
	ErrNotFound = errors.New("auth: cashier not found")
)
