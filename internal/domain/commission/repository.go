package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines commission data access. Tx variants run inside the
// caller's transaction.
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, c *Commission) error
	MarkPaidByTransactionTx(ctx context.Context, tx *sqlx.Tx, transactionID uuid.UUID) (int, error)
	MarkPaidByRecipientTx(ctx context.Context, tx *sqlx.Tx, recipientID uuid.UUID) (int, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Commission, error)
	ListPendingByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*Commission, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the commission repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, c *Commission) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO commissions (id, transaction_id, recipient_id, recipient_role, base_amount, rate, commission_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`,
		c.ID,
		c.TransactionID,
		c.RecipientID,
		c.RecipientRole,
		c.BaseAmount,
		c.Rate,
		c.Amount,
		c.Status,
	)
	return err
}

func (r *repository) MarkPaidByTransactionTx(ctx context.Context, tx *sqlx.Tx, transactionID uuid.UUID) (int, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE commissions
		SET status = 'paid', paid_at = now()
		WHERE transaction_id = $1 AND status = 'pending'
	`, transactionID)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

func (r *repository) MarkPaidByRecipientTx(ctx context.Context, tx *sqlx.Tx, recipientID uuid.UUID) (int, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE commissions
		SET status = 'paid', paid_at = now()
		WHERE recipient_id = $1 AND status = 'pending'
	`, recipientID)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

const commissionColumns = `id, transaction_id, recipient_id, recipient_role, base_amount, rate, commission_amount, status, paid_at, created_at`

func (r *repository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Commission, error) {
	var items []*Commission
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE transaction_id = $1
		ORDER BY created_at
	`, transactionID)
	return items, err
}

func (r *repository) ListPendingByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*Commission, error) {
	var items []*Commission
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+commissionColumns+`
		FROM commissions
		WHERE recipient_id = $1 AND status = 'pending'
		ORDER BY created_at
	`, recipientID)
	return items, err
}
