package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/credit"
	"github.com/tilldesk/tilldesk/internal/shared"
	"github.com/tilldesk/tilldesk/internal/stock"
)

// MetricsPort is the slice of observability the service needs.
type MetricsPort interface {
	SaleCompleted()
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowShortfall mirrors the stock policy: when true a sale may deduct
	// more than the batches hold, bottoming batches out at zero and
	// reporting the shortfall on the result.
	AllowShortfall bool
}

// Service completes sales. A checkout writes the sale record, the batch
// deductions and any credit posting inside one transaction, so a failure
// at any step leaves nothing half-applied.
type Service struct {
	repo           RepositoryPort
	cart           *CartService
	metrics        MetricsPort
	allowShortfall bool
	now            func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, cart *CartService, metrics MetricsPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, cart: cart, metrics: metrics, allowShortfall: cfg.AllowShortfall, now: time.Now}
}

// CheckoutInput describes the payment side of a checkout.
type CheckoutInput struct {
	PaymentMethod PaymentMethod
	AmountPaid    decimal.Decimal
	// Discount is an order-level discount on top of line discounts.
	Discount decimal.Decimal
	Notes    string
}

// CheckoutResult pairs the completed sale with any stock shortfalls, so
// the till can surface them on the spot.
type CheckoutResult struct {
	Transaction Transaction             `json:"transaction"`
	Deductions  []stock.DeductionResult `json:"deductions"`
	CreditEntry *credit.Transaction     `json:"credit_entry,omitempty"`
}

// Checkout completes the session's cart as a sale. The cart is cleared
// only after the transaction commits.
func (s *Service) Checkout(ctx context.Context, sess *shared.Session, in CheckoutInput) (CheckoutResult, error) {
	cashierID := sess.Cashier()
	if cashierID == "" {
		return CheckoutResult{}, shared.ErrNotLoggedIn
	}

	cart, err := s.cart.Cart(sess)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(cart.Items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}
	if !ValidPaymentMethod(in.PaymentMethod) {
		return CheckoutResult{}, ErrInvalidPayment
	}
	if in.PaymentMethod == PaymentCredit && cart.CustomerID == "" {
		return CheckoutResult{}, ErrCustomerRequired
	}
	if in.Discount.IsNegative() {
		return CheckoutResult{}, ErrInvalidPayment
	}

	subtotal := cart.Subtotal()
	total := subtotal.Sub(in.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	txn := Transaction{
		ID:            uuid.NewString(),
		Number:        NewTransactionNumber(now),
		CashierID:     cashierID,
		CustomerID:    cart.CustomerID,
		PaymentMethod: in.PaymentMethod,
		Subtotal:      subtotal,
		Discount:      in.Discount,
		Total:         total,
		AmountPaid:    in.AmountPaid,
		Notes:         in.Notes,
		CreatedAt:     now,
	}
	switch in.PaymentMethod {
	case PaymentCash:
		if in.AmountPaid.LessThan(total) {
			return CheckoutResult{}, fmt.Errorf("%w: paid %s of %s", ErrInvalidPayment, in.AmountPaid, total)
		}
		txn.ChangeDue = in.AmountPaid.Sub(total)
	case PaymentCredit:
		txn.AmountPaid = decimal.Zero
	default:
		txn.AmountPaid = total
	}
	for _, line := range cart.Items {
		txn.Items = append(txn.Items, TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: txn.ID,
			ProductID:     line.ProductID,
			Name:          line.Name,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			Discount:      line.Discount,
			LineTotal:     line.LineTotal,
		})
	}

	result := CheckoutResult{Transaction: txn}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx CheckoutTx) error {
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, line := range cart.Items {
			qty := line.Quantity
			if line.Fractional {
				qty = line.ActualWeight
			}
			batches, err := tx.Stock().BatchesForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			ded, err := stock.ApplyDeduction(ctx, tx.Stock(), batches, line.ProductID, qty, s.allowShortfall)
			if err != nil {
				return err
			}
			result.Deductions = append(result.Deductions, ded)
		}

		if in.PaymentMethod == PaymentCredit {
			entry, err := credit.Post(ctx, tx.Credit(), credit.Transaction{
				CustomerID:        cart.CustomerID,
				SaleTransactionID: txn.ID,
				Type:              credit.TypeCreditSale,
				Amount:            total,
				Reference:         txn.Number,
				CreatedBy:         cashierID,
			}, now)
			if err != nil {
				return err
			}
			result.CreditEntry = &entry
		}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	if s.metrics != nil {
		s.metrics.SaleCompleted()
	}
	// The sale is committed; a failed cart clear only risks a stale cart
	// in Redis until the session expires.
	_ = s.cart.Clear(ctx, sess)
	return result, nil
}

// List returns completed sales.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Transaction, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one completed sale with its lines.
func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	return s.repo.Get(ctx, id)
}
