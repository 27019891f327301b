package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository abstracts import persistence.
type Repository interface {
	Create(ctx context.Context, imp Import) error
	Get(ctx context.Context, id string) (Import, error)
	List(ctx context.Context, limit int) ([]Import, error)
	MarkCompleted(ctx context.Context, id string, outcomes []ItemOutcome, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, imp Import) error {
	var supplier any
	if imp.SupplierID != "" {
		supplier = imp.SupplierID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO receipt_imports (id, mode, status, supplier_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		imp.ID, string(imp.Mode), string(imp.Status), supplier, imp.CreatedBy, imp.CreatedAt)
	return err
}

func (r *repository) Get(ctx context.Context, id string) (Import, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, mode, status, COALESCE(supplier_id, ''), outcomes, COALESCE(error, ''), created_by, created_at, completed_at
		FROM receipt_imports WHERE id = $1`, id)
	imp, err := scanImport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Import{}, ErrNotFound
	}
	return imp, err
}

func (r *repository) List(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, mode, status, COALESCE(supplier_id, ''), outcomes, COALESCE(error, ''), created_by, created_at, completed_at
		FROM receipt_imports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, imp)
	}
	return all, rows.Err()
}

func (r *repository) MarkCompleted(ctx context.Context, id string, outcomes []ItemOutcome, at time.Time) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE receipt_imports SET status=$2, outcomes=$3, completed_at=$4 WHERE id = $1`,
		id, string(StatusCompleted), data, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE receipt_imports SET status=$2, error=$3, completed_at=$4 WHERE id = $1`,
		id, string(StatusFailed), reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImport(row rowScanner) (Import, error) {
	var imp Import
	var mode, status string
	var outcomes []byte
	err := row.Scan(&imp.ID, &mode, &status, &imp.SupplierID, &outcomes, &imp.Error, &imp.CreatedBy, &imp.CreatedAt, &imp.CompletedAt)
	if err != nil {
		return Import{}, err
	}
	imp.Mode = ImportMode(mode)
	imp.Status = ImportStatus(status)
	if len(outcomes) > 0 {
		if err := json.Unmarshal(outcomes, &imp.Outcomes); err != nil {
			return Import{}, err
		}
	}
	return imp, nil
}
