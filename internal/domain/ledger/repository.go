package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository defines balance data access. Tx variants compose into a
// caller's transaction and do not commit or roll back — the caller owns the
// unit of work.
type Repository interface {
	EnsureAccount(ctx context.Context, ownerID uuid.UUID, ownerType OwnerType) error
	GetBalance(ctx context.Context, ownerID uuid.UUID) (*Balance, error)
	// GetBalanceForUpdateTx reads the row under the caller's FOR UPDATE
	// lock, so a before-image taken through it cannot go stale.
	GetBalanceForUpdateTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (*Balance, error)

	CreditTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)
	DebitTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)
	FreezeTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)
	UnfreezeTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)
	// SpendFrozenTx permanently removes earmarked funds, e.g. when an
	// approved withdrawal settles.
	SpendFrozenTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the balance repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) EnsureAccount(ctx context.Context, ownerID uuid.UUID, ownerType OwnerType) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_balances (owner_id, owner_type)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, ownerType)
	return err
}

const balanceColumns = `owner_id, owner_type, available_balance, frozen_balance, daily_limit, monthly_limit, updated_at`

func (r *repository) GetBalance(ctx context.Context, ownerID uuid.UUID) (*Balance, error) {
	var b Balance
	err := r.db.GetContext(ctx, &b, `
		SELECT `+balanceColumns+`
		FROM account_balances
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetBalanceForUpdateTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (*Balance, error) {
	return r.lockBalance(ctx, tx, ownerID)
}

// lockBalance takes a FOR UPDATE row lock on the owner's balance for the
// duration of the surrounding transaction.
func (r *repository) lockBalance(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (*Balance, error) {
	var b Balance
	err := tx.GetContext(ctx, &b, `
		SELECT `+balanceColumns+`
		FROM account_balances
		WHERE owner_id = $1
		FOR UPDATE
	`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) updateBalance(ctx context.Context, tx *sqlx.Tx, b *Balance) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE account_balances
		SET available_balance = $2, frozen_balance = $3, updated_at = now()
		WHERE owner_id = $1
	`, b.OwnerID, b.Available, b.Frozen)
	return err
}

func (r *repository) CreditTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error) {
	b, err := r.lockBalance(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	b.Available = b.Available.Add(amount)
	if err := r.updateBalance(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) DebitTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error) {
	b, err := r.lockBalance(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if b.Available.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	b.Available = b.Available.Sub(amount)
	if err := r.updateBalance(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) FreezeTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error) {
	b, err := r.lockBalance(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if b.Available.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	b.Available = b.Available.Sub(amount)
	b.Frozen = b.Frozen.Add(amount)
	if err := r.updateBalance(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) UnfreezeTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error) {
	b, err := r.lockBalance(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if b.Frozen.LessThan(amount) {
		return nil, ErrInsufficientFrozen
	}

	b.Frozen = b.Frozen.Sub(amount)
	b.Available = b.Available.Add(amount)
	if err := r.updateBalance(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *repository) SpendFrozenTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error) {
	b, err := r.lockBalance(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	if b.Frozen.LessThan(amount) {
		return nil, ErrInsufficientFrozen
	}

	b.Frozen = b.Frozen.Sub(amount)
	if err := r.updateBalance(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}
