package ledger

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/jmoiron/sqlx"
)

// Actor is the verified caller of a balance operation, used for audit
// records.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Service wraps each standalone balance mutation in its own transaction and
// pairs it with an audit record in the same unit of work.
type Service struct {
	db    *sqlx.DB
	repo  Repository
	audit audit.Recorder
}

// NewService creates the ledger service
func NewService(db *sqlx.DB, repo Repository, recorder audit.Recorder) *Service {
	return &Service{db: db, repo: repo, audit: recorder}
}

func (s *Service) GetBalance(ctx context.Context, ownerID uuid.UUID) (*Balance, error) {
	return s.repo.GetBalance(ctx, ownerID)
}

func (s *Service) EnsureAccount(ctx context.Context, ownerID uuid.UUID, ownerType OwnerType) error {
	return s.repo.EnsureAccount(ctx, ownerID, ownerType)
}

type mutation func(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*Balance, error)

func (s *Service) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, actor Actor) (*Balance, error) {
	return s.apply(ctx, ownerID, amount, actor, "ledger.credit", s.repo.CreditTx)
}

func (s *Service) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, actor Actor) (*Balance, error) {
	return s.apply(ctx, ownerID, amount, actor, "ledger.debit", s.repo.DebitTx)
}

func (s *Service) Freeze(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, actor Actor) (*Balance, error) {
	return s.apply(ctx, ownerID, amount, actor, "ledger.freeze", s.repo.FreezeTx)
}

func (s *Service) Unfreeze(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, actor Actor) (*Balance, error) {
	return s.apply(ctx, ownerID, amount, actor, "ledger.unfreeze", s.repo.UnfreezeTx)
}

func (s *Service) apply(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, actor Actor, action string, mutate mutation) (*Balance, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The before-image for the audit record is read under the same row
	// lock the mutation takes, so it cannot race a concurrent mutation.
	before, err := s.repo.GetBalanceForUpdateTx(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	after, err := mutate(ctx, tx, ownerID, amount)
	if err != nil {
		return nil, err
	}

	entry := audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: "account_balance",
		TargetID:   ownerID.String(),
		OldValue:   audit.MarshalValue(before),
		NewValue:   audit.MarshalValue(after),
	}
	if err := s.audit.RecordTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("owner_id", ownerID.String()).
		Str("action", action).
		Str("amount", amount.String()).
		Str("available", after.Available.String()).
		Str("frozen", after.Frozen.String()).
		Msg("balance mutation applied")

	return after, nil
}
