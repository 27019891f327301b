package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the credit ledger.
type Service struct {
	repo   RepositoryPort
	policy Policy
	audit  AuditPort
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// PaymentInput describes a payment against an outstanding balance.
type PaymentInput struct {
	CustomerID    string
	Amount        decimal.Decimal
	PaymentMethod string
	Reference     string
	Notes         string
	ActorID       string
}

// AdjustmentInput describes a manual balance correction. Amount may be
// negative to lower the balance.
type AdjustmentInput struct {
	CustomerID string
	Amount     decimal.Decimal
	Notes      string
	ActorID    string
}

// Check evaluates a proposed credit sale against the customer's limit.
func (s *Service) Check(ctx context.Context, customerID string, amount decimal.Decimal) (CheckResult, error) {
	limit, balance, err := s.repo.CustomerCredit(ctx, customerID)
	if err != nil {
		return CheckResult{}, err
	}
	return s.policy.Check(limit, balance, amount), nil
}

// RecordCreditSale posts a credit sale, raising the customer's balance.
// Checkout posts inside its own transaction via Post; this entry point
// serves callers recording a sale made outside the till.
func (s *Service) RecordCreditSale(ctx context.Context, customerID string, amount decimal.Decimal, saleTxID, actorID string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	var entry Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = Post(ctx, tx, Transaction{
			CustomerID:        customerID,
			SaleTransactionID: saleTxID,
			Type:              TypeCreditSale,
			Amount:            amount,
			CreatedBy:         actorID,
		}, s.now())
		return err
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("record credit sale: %w", err)
	}
	return entry, nil
}

// RecordPayment posts a payment, lowering the customer's balance. Payments
// larger than the balance leave a negative balance (store credit).
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (Transaction, error) {
	if !in.Amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	var entry Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = Post(ctx, tx, Transaction{
			CustomerID:    in.CustomerID,
			Type:          TypePayment,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			Reference:     in.Reference,
			Notes:         in.Notes,
			CreatedBy:     in.ActorID,
		}, s.now())
		return err
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("record payment: %w", err)
	}
	return entry, nil
}

// Adjust posts a manual correction and audits it.
func (s *Service) Adjust(ctx context.Context, in AdjustmentInput) (Transaction, error) {
	if in.Amount.IsZero() {
		return Transaction{}, ErrInvalidAmount
	}

	var entry Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = Post(ctx, tx, Transaction{
			CustomerID: in.CustomerID,
			Type:       TypeAdjustment,
			Amount:     in.Amount,
			Notes:      in.Notes,
			CreatedBy:  in.ActorID,
		}, s.now())
		return err
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("adjust credit: %w", err)
	}

	if s.audit != nil && in.ActorID != "" {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "credit.adjust",
			Entity:   "customer",
			EntityID: in.CustomerID,
			Meta:     map[string]any{"amount": in.Amount.String(), "balance_after": entry.BalanceAfter.String()},
			At:       entry.CreatedAt,
		})
	}
	return entry, nil
}

// History returns the customer's ledger, most recent first.
func (s *Service) History(ctx context.Context, customerID string, limit int) ([]Transaction, error) {
	return s.repo.History(ctx, customerID, limit)
}

// Post locks the customer balance, appends a ledger entry carrying the
// before and after balances, and writes the new balance back. It is shared
// with the checkout flow, which posts credit sales inside the sale's own
// transaction.
func Post(ctx context.Context, tx TxRepository, t Transaction, now time.Time) (Transaction, error) {
	if t.CustomerID == "" {
		return Transaction{}, ErrCustomerNotFound
	}

	balance, err := tx.CustomerBalanceForUpdate(ctx, t.CustomerID)
	if err != nil {
		return Transaction{}, err
	}

	t.ID = uuid.NewString()
	t.BalanceBefore = balance
	t.BalanceAfter = apply(balance, t.Type, t.Amount)
	t.CreatedAt = now

	if err := tx.InsertTransaction(ctx, t); err != nil {
		return Transaction{}, err
	}
	if err := tx.UpdateCustomerBalance(ctx, t.CustomerID, t.BalanceAfter); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
