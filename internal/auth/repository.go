package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository abstracts cashier persistence.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Cashier, error)
	Get(ctx context.Context, id string) (Cashier, error)
	Create(ctx context.Context, c Cashier) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const cashierColumns = `id, name, code, pin_hash, is_active, created_at, updated_at`

func (r *repository) GetByCode(ctx context.Context, code string) (Cashier, error) {
	row := r.db.QueryRow(ctx, `SELECT `+cashierColumns+` FROM cashiers WHERE code = $1 AND is_active`, code)
	return scanCashier(row)
}

func (r *repository) Get(ctx context.Context, id string) (Cashier, error) {
	row := r.db.QueryRow(ctx, `SELECT `+cashierColumns+` FROM cashiers WHERE id = $1`, id)
	return scanCashier(row)
}

func (r *repository) Create(ctx context.Context, c Cashier) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cashiers (id, name, code, pin_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Code, c.PINHash, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return err
}

func scanCashier(row pgx.Row) (Cashier, error) {
	var c Cashier
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.PINHash, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cashier{}, ErrNotFound
	}
	return c, err
}
