package stock

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/platform/db"
)

// TxRepository exposes the batch operations used inside a transaction.
type TxRepository interface {
	BatchesForUpdate(ctx context.Context, productID string) ([]Batch, error)
	InsertBatch(ctx context.Context, b Batch) error
	UpdateBatchQuantity(ctx context.Context, batchID string, quantity float64) error
	InsertPriceRecord(ctx context.Context, rec PurchasePriceRecord) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Batches(ctx context.Context, productID string) ([]Batch, error)
	PriceHistory(ctx context.Context, productID string, limit int) ([]PurchasePriceRecord, error)
	LowStockProducts(ctx context.Context) ([]LowStockEntry, error)
}

// LowStockEntry pairs a product with its remaining total stock.
type LowStockEntry struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	TotalStock   float64 `json:"total_stock"`
	ReorderLevel float64 `json:"reorder_level"`
}

// Repository persists batches and price records in PostgreSQL.
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

// Batches lists all batches for a product, zero-quantity ones included.
func (r *Repository) Batches(ctx context.Context, productID string) ([]Batch, error) {
	return queryBatches(ctx, r.pool, productID, false)
}

// PriceHistory returns the most recent purchase price observations.
func (r *Repository) PriceHistory(ctx context.Context, productID string, limit int) ([]PurchasePriceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, unit_cost, quantity, COALESCE(supplier_id, ''), source, observed_at
		FROM purchase_price_records WHERE product_id = $1
		ORDER BY observed_at DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PurchasePriceRecord
	for rows.Next() {
		var rec PurchasePriceRecord
		var source string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.UnitCost, &rec.Quantity, &rec.SupplierID, &source, &rec.ObservedAt); err != nil {
			return nil, err
		}
		rec.Source = PriceSource(source)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LowStockProducts lists active products whose total stock is at or below
// their reorder level.
func (r *Repository) LowStockProducts(ctx context.Context) ([]LowStockEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(SUM(b.quantity), 0) AS total, p.reorder_level
		FROM products p
		LEFT JOIN inventory_batches b ON b.product_id = p.id
		WHERE p.is_active
		GROUP BY p.id, p.name, p.reorder_level
		HAVING COALESCE(SUM(b.quantity), 0) <= p.reorder_level
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LowStockEntry
	for rows.Next() {
		var e LowStockEntry
		if err := rows.Scan(&e.ProductID, &e.Name, &e.TotalStock, &e.ReorderLevel); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TxStore implements TxRepository over any Querier, so the checkout flow
// can run batch deductions inside its own transaction.
type TxStore struct {
	q db.Querier
}

// NewTxStore wraps a Querier (pool or open transaction).
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{q: q}
}

const batchColumns = `id, product_id, batch_number, quantity, unit_cost, purchase_date, expiry_date, created_at, updated_at`

// BatchesForUpdate locks and returns all batches for a product.
func (s *TxStore) BatchesForUpdate(ctx context.Context, productID string) ([]Batch, error) {
	return queryBatches(ctx, s.q, productID, true)
}

// InsertBatch stores a new batch.
func (s *TxStore) InsertBatch(ctx context.Context, b Batch) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO inventory_batches (id, product_id, batch_number, quantity, unit_cost, purchase_date, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ProductID, b.BatchNumber, b.Quantity, b.UnitCost, b.PurchaseDate, b.ExpiryDate, b.CreatedAt, b.UpdatedAt)
	return err
}

// UpdateBatchQuantity sets the remaining quantity of a batch.
func (s *TxStore) UpdateBatchQuantity(ctx context.Context, batchID string, quantity float64) error {
	_, err := s.q.Exec(ctx, `UPDATE inventory_batches SET quantity=$2, updated_at=NOW() WHERE id = $1`, batchID, quantity)
	return err
}

// InsertPriceRecord appends a purchase price observation.
func (s *TxStore) InsertPriceRecord(ctx context.Context, rec PurchasePriceRecord) error {
	var supplier any
	if rec.SupplierID != "" {
		supplier = rec.SupplierID
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO purchase_price_records (id, product_id, unit_cost, quantity, supplier_id, source, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.ProductID, rec.UnitCost, rec.Quantity, supplier, string(rec.Source), rec.ObservedAt)
	return err
}

func queryBatches(ctx context.Context, q db.Querier, productID string, forUpdate bool) ([]Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE product_id = $1 ORDER BY purchase_date ASC, id ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var cost decimal.Decimal
		var expiry *time.Time
		if err := rows.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.Quantity, &cost, &b.PurchaseDate, &expiry, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.UnitCost = cost
		b.ExpiryDate = expiry
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
