package credit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/platform/db"
)

// TxRepository exposes the ledger operations used inside a transaction.
type TxRepository interface {
	CustomerBalanceForUpdate(ctx context.Context, customerID string) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, t Transaction) error
	UpdateCustomerBalance(ctx context.Context, customerID string, balance decimal.Decimal) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	History(ctx context.Context, customerID string, limit int) ([]Transaction, error)
	CustomerCredit(ctx context.Context, customerID string) (limit, balance decimal.Decimal, err error)
}

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const transactionColumns = `id, customer_id, sale_transaction_id, type, amount, balance_before, balance_after, payment_method, reference, notes, created_by, created_at`

// History returns ledger entries for a customer, most recent first.
func (r *Repository) History(ctx context.Context, customerID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM credit_transactions
		WHERE customer_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, t)
	}
	return all, rows.Err()
}

// CustomerCredit returns the customer's credit limit and current balance.
func (r *Repository) CustomerCredit(ctx context.Context, customerID string) (decimal.Decimal, decimal.Decimal, error) {
	var limit, balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT credit_limit, current_balance FROM customers WHERE id = $1`, customerID).Scan(&limit, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, decimal.Zero, ErrCustomerNotFound
	}
	return limit, balance, err
}

// TxStore implements TxRepository over any Querier, so the checkout flow
// can post a credit sale inside the sale's own transaction.
type TxStore struct {
	q db.Querier
}

// NewTxStore wraps a Querier (pool or open transaction).
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{q: q}
}

// CustomerBalanceForUpdate locks the customer row and returns the balance.
func (s *TxStore) CustomerBalanceForUpdate(ctx context.Context, customerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.q.QueryRow(ctx, `SELECT current_balance FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrCustomerNotFound
	}
	return balance, err
}

// InsertTransaction appends a ledger entry.
func (s *TxStore) InsertTransaction(ctx context.Context, t Transaction) error {
	var saleID any
	if t.SaleTransactionID != "" {
		saleID = t.SaleTransactionID
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO credit_transactions (id, customer_id, sale_transaction_id, type, amount, balance_before, balance_after, payment_method, reference, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.CustomerID, saleID, string(t.Type), t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.PaymentMethod, t.Reference, t.Notes, t.CreatedBy, t.CreatedAt)
	return err
}

// UpdateCustomerBalance sets the customer's outstanding balance.
func (s *TxStore) UpdateCustomerBalance(ctx context.Context, customerID string, balance decimal.Decimal) error {
	tag, err := s.q.Exec(ctx, `UPDATE customers SET current_balance=$2, updated_at=NOW() WHERE id = $1`, customerID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var typ string
	var saleID *string
	err := row.Scan(&t.ID, &t.CustomerID, &saleID, &typ, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&t.PaymentMethod, &t.Reference, &t.Notes, &t.CreatedBy, &t.CreatedAt)
	if saleID != nil {
		t.SaleTransactionID = *saleID
	}
	t.Type = TransactionType(typ)
	return t, err
}
