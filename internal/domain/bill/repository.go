package bill

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines bill inventory data access
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Bill, error)
	FindAvailable(ctx context.Context, customerCode string, providerID uuid.UUID) ([]*Bill, error)
	Reserve(ctx context.Context, id uuid.UUID) (*Bill, error)
	MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id, exportedToID uuid.UUID) error
	ExpireBefore(ctx context.Context, cutoff time.Time) (int, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the bill repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const billColumns = `id, customer_code, customer_name, provider_id, period, previous_amount, current_amount, total_amount, status, exported_to_id, exported_at, added_by_id, notes, created_at, updated_at`

func (r *repository) Create(ctx context.Context, b *Bill) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO bills (customer_code, customer_name, provider_id, period, previous_amount, current_amount, total_amount, status, added_by_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		b.CustomerCode,
		b.CustomerName,
		b.ProviderID,
		b.Period,
		b.PreviousAmount,
		b.CurrentAmount,
		b.TotalAmount,
		b.Status,
		b.AddedByID,
		b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var b Bill
	err := r.db.GetContext(ctx, &b, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Bill, error) {
	var b Bill
	err := tx.GetContext(ctx, &b, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindAvailable(ctx context.Context, customerCode string, providerID uuid.UUID) ([]*Bill, error) {
	var bills []*Bill
	err := r.db.SelectContext(ctx, &bills, `
		SELECT `+billColumns+`
		FROM bills
		WHERE customer_code = $1 AND provider_id = $2 AND status = 'available'
		ORDER BY period DESC, created_at DESC
	`, customerCode, providerID)
	return bills, err
}

// Reserve flips available -> reserved in a single statement. A zero-row
// update means the bill is gone or no longer available; the follow-up read
// tells which.
func (r *repository) Reserve(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var b Bill
	err := r.db.QueryRowxContext(ctx, `
		UPDATE bills
		SET status = 'reserved', updated_at = now()
		WHERE id = $1 AND status = 'available'
		RETURNING `+billColumns+`
	`, id).StructScan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == StatusSold {
			return nil, ErrBillSold
		}
		return nil, ErrNotAvailable
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) MarkSoldTx(ctx context.Context, tx *sqlx.Tx, id, exportedToID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE bills
		SET status = 'sold', exported_to_id = $2, exported_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('available', 'reserved')
	`, id, exportedToID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		var status Status
		if err := tx.GetContext(ctx, &status, `SELECT status FROM bills WHERE id = $1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if status == StatusSold {
			return ErrBillSold
		}
		return ErrNotAvailable
	}
	return nil
}

func (r *repository) ExpireBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bills
		SET status = 'expired', updated_at = now()
		WHERE status = 'available' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM bills WHERE ($1 = '' OR status = $1)
	`, status); err != nil {
		return nil, 0, err
	}

	var bills []*Bill
	err := r.db.SelectContext(ctx, &bills, `
		SELECT `+billColumns+`
		FROM bills
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return bills, total, err
}
