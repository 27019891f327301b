package pos

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/shared"
)

// PaymentMethod identifies how a sale was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
	// PaymentCredit books the sale against the customer's ledger instead of
	// taking money at the till.
	PaymentCredit PaymentMethod = "credit"
)

// ValidPaymentMethod reports whether m is a known method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

// CartItem is one line of the in-progress cart. Fractional lines represent
// a weighed bulk portion: they carry the actual weight and a total fixed at
// weighing time, and are never merged with other lines.
type CartItem struct {
	LineID       string          `json:"line_id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     float64         `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"`
	Fractional   bool            `json:"fractional"`
	ActualWeight float64         `json:"actual_weight,omitempty"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// Cart is the session-held working state of a sale.
type Cart struct {
	Items      []CartItem `json:"items"`
	CustomerID string     `json:"customer_id,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Subtotal sums the line totals.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// Transaction is a completed, immutable sale.
type Transaction struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	CashierID     string            `json:"cashier_id"`
	CustomerID    string            `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Discount      decimal.Decimal   `json:"discount"`
	Total         decimal.Decimal   `json:"total"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	ChangeDue     decimal.Decimal   `json:"change_due"`
	Notes         string            `json:"notes,omitempty"`
	Items         []TransactionItem `json:"items,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TransactionItem is one immutable line of a completed sale.
type TransactionItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      float64         `json:"quantity"`
	Discount      decimal.Decimal `json:"discount"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

var (
	// ErrEmptyCart indicates a checkout with nothing in the cart.
	ErrEmptyCart = errors.New("pos: cart is empty")
	// ErrLineNotFound indicates an unknown cart line.
	ErrLineNotFound = errors.New("pos: cart line not found")
	// ErrCustomerRequired indicates a credit sale without a customer.
	ErrCustomerRequired = errors.New("pos: credit sale requires a customer")
	// ErrInvalidPayment indicates an unknown payment method or an
	// insufficient amount paid.
	ErrInvalidPayment = errors.New("pos: invalid payment")
	// ErrNotFound indicates a missing transaction.
	ErrNotFound = errors.New("pos: transaction not found")
)

// NewTransactionNumber builds a receipt number like TXN-20250301-K7PQ.
func NewTransactionNumber(now time.Time) string {
	return "TXN-" + now.Format("20060102") + "-" + shared.RandomToken(4)
}
