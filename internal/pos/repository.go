package pos

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tilldesk/tilldesk/internal/credit"
	"github.com/tilldesk/tilldesk/internal/platform/db"
	"github.com/tilldesk/tilldesk/internal/stock"
)

// CheckoutTx groups everything a checkout writes in one transaction: the
// sale record, the batch deductions and the credit posting.
type CheckoutTx interface {
	InsertTransaction(ctx context.Context, t Transaction) error
	Stock() stock.TxRepository
	Credit() credit.TxRepository
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, CheckoutTx) error) error
	List(ctx context.Context, filters ListFilters) ([]Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
}

// ListFilters narrows transaction listings.
type ListFilters struct {
	CashierID  string
	CustomerID string
	Limit      int
	Offset     int
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, CheckoutTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{
			q:      tx,
			stock:  stock.NewTxStore(tx),
			credit: credit.NewTxStore(tx),
		})
	})
}

const transactionColumns = `id, number, cashier_id, customer_id, payment_method, subtotal, discount, total, amount_paid, change_due, notes, created_at`

// List returns transactions, most recent first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM sale_transactions`
	var conds []string
	var args []any
	if filters.CashierID != "" {
		args = append(args, filters.CashierID)
		conds = append(conds, `cashier_id = $1`)
	}
	if filters.CustomerID != "" {
		args = append(args, filters.CustomerID)
		if len(args) == 1 {
			conds = append(conds, `customer_id = $1`)
		} else {
			conds = append(conds, `customer_id = $2`)
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + conds[0]
		for _, c := range conds[1:] {
			query += ` AND ` + c
		}
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC, id DESC`
	args = append(args, limit, filters.Offset)
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
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

// Get returns one transaction with its items.
func (r *Repository) Get(ctx context.Context, id string) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM sale_transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, product_id, name, unit_price, quantity, discount, line_total
		FROM sale_transaction_items WHERE transaction_id = $1 ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Name,
			&item.UnitPrice, &item.Quantity, &item.Discount, &item.LineTotal); err != nil {
			return Transaction{}, err
		}
		t.Items = append(t.Items, item)
	}
	return t, rows.Err()
}

type txStore struct {
	q      db.Querier
	stock  *stock.TxStore
	credit *credit.TxStore
}

func (s *txStore) Stock() stock.TxRepository   { return s.stock }
func (s *txStore) Credit() credit.TxRepository { return s.credit }

func (s *txStore) InsertTransaction(ctx context.Context, t Transaction) error {
	var customer any
	if t.CustomerID != "" {
		customer = t.CustomerID
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO sale_transactions (id, number, cashier_id, customer_id, payment_method, subtotal, discount, total, amount_paid, change_due, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Number, t.CashierID, customer, string(t.PaymentMethod),
		t.Subtotal, t.Discount, t.Total, t.AmountPaid, t.ChangeDue, t.Notes, t.CreatedAt)
	if err != nil {
		return err
	}
	for _, item := range t.Items {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO sale_transaction_items (id, transaction_id, product_id, name, unit_price, quantity, discount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.TransactionID, item.ProductID, item.Name,
			item.UnitPrice, item.Quantity, item.Discount, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var method string
	var customer *string
	err := row.Scan(&t.ID, &t.Number, &t.CashierID, &customer, &method,
		&t.Subtotal, &t.Discount, &t.Total, &t.AmountPaid, &t.ChangeDue, &t.Notes, &t.CreatedAt)
	if customer != nil {
		t.CustomerID = *customer
	}
	t.PaymentMethod = PaymentMethod(method)
	return t, err
}
