package credit

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	// TypeCreditSale increases the customer's outstanding balance.
	TypeCreditSale TransactionType = "credit_sale"
	// TypePayment decreases the outstanding balance.
	TypePayment TransactionType = "payment"
	// TypeAdjustment is a manual correction in either direction.
	TypeAdjustment TransactionType = "adjustment"
)

// Transaction is one immutable ledger entry. BalanceBefore and BalanceAfter
// snapshot the customer's balance around the entry, so the ledger doubles
// as a statement without replaying history.
type Transaction struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id"`
	SaleTransactionID string          `json:"sale_transaction_id,omitempty"`
	Type              TransactionType `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	BalanceBefore     decimal.Decimal `json:"balance_before"`
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Reference         string          `json:"reference,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

var (
	// ErrInvalidAmount indicates a non-positive amount for a sale or payment.
	ErrInvalidAmount = errors.New("credit: amount must be positive")
	// ErrCustomerNotFound indicates the customer does not exist.
	ErrCustomerNotFound = errors.New("credit: customer not found")
)

// apply computes the balance movement for a transaction type. Credit sales
// and upward adjustments raise the balance; payments lower it. Payments may
// push the balance negative, which represents store credit.
func apply(balance decimal.Decimal, typ TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch typ {
	case TypePayment:
		return balance.Sub(amount)
	default:
		return balance.Add(amount)
	}
}
