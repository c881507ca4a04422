package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository defines transaction data access. Tx variants run inside the
// caller's transaction.
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByCode(ctx context.Context, code string) (*Transaction, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status) error
	VoidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, notes string) error
	SetCommissionAmountTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, amount decimal.Decimal) error
	SumCompletedByActorTypeSince(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, t Type, since time.Time) (decimal.Decimal, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Transaction, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the transaction repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const txColumns = `id, code, type, status, amount, fee_amount, commission_amount, net_amount, actor_id, actor_role, related_entity_id, related_entity_type, payment_method, notes, created_at, processed_at, completed_at`

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (code, type, status, amount, fee_amount, commission_amount, net_amount, actor_id, actor_role, related_entity_id, related_entity_type, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`,
		t.Code,
		t.Type,
		t.Status,
		t.Amount,
		t.FeeAmount,
		t.CommissionAmount,
		t.NetAmount,
		t.ActorID,
		t.ActorRole,
		t.RelatedEntityID,
		t.RelatedEntityType,
		t.PaymentMethod,
		t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeConflict
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetForUpdateTx serializes concurrent status transitions on one row.
func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status) error {
	query := `UPDATE transactions SET status = $2, processed_at = now() WHERE id = $1`
	if status == StatusCompleted {
		query = `UPDATE transactions SET status = $2, processed_at = now(), completed_at = now() WHERE id = $1`
	}
	result, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// VoidTx writes a terminal cancelled or failed status together with the
// updated notes, so the caller's reason and the status land in one UPDATE.
func (r *repository) VoidTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, notes string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $2, notes = $3, processed_at = now() WHERE id = $1
	`, id, status, notes)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetCommissionAmountTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions SET commission_amount = $2 WHERE id = $1
	`, id, amount)
	return err
}

// SumCompletedByActorTypeSince totals completed and in-flight transactions
// of one type for limit checks. Pending rows count so a burst of requests
// cannot slip past the limit before any of them settles.
func (r *repository) SumCompletedByActorTypeSince(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, t Type, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE actor_id = $1 AND type = $2 AND status IN ('pending', 'processing', 'completed') AND created_at >= $3
	`, actorID, t, since)
	return sum, err
}

func (r *repository) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM transactions WHERE actor_id = $1
	`, actorID); err != nil {
		return nil, 0, err
	}

	var items []*Transaction
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, actorID, limit, offset)
	return items, total, err
}
