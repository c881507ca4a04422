package transaction

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/domain/bill"
	"github.com/coolnight20187/python-7ty-system/internal/domain/commission"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
	"github.com/coolnight20187/python-7ty-system/internal/middleware"
)

// AgentRateSource resolves the effective commission rate for a selling
// agent's user id.
type AgentRateSource interface {
	EffectiveRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// Actor is the verified caller of a transaction operation
type Actor struct {
	ID   uuid.UUID
	Role string
}

// CreateInput carries the fields needed to open a transaction
type CreateInput struct {
	Type              Type
	Amount            decimal.Decimal
	FeeAmount         decimal.Decimal
	ActorID           uuid.UUID
	ActorRole         string
	RelatedEntityID   uuid.NullUUID
	RelatedEntityType string
	PaymentMethod     string
	Notes             string
}

// Service drives the transaction state machine. Every transition runs in a
// single database transaction with a FOR UPDATE lock on the row, so
// concurrent confirms serialize and the loser sees a terminal status.
type Service struct {
	db          *sqlx.DB
	repo        Repository
	ledger      ledger.Repository
	bills       bill.Repository
	commissions commission.Repository
	rates       AgentRateSource
	audit       audit.Recorder
}

func NewService(db *sqlx.DB, repo Repository, ledgerRepo ledger.Repository, billRepo bill.Repository, commissionRepo commission.Repository, rates AgentRateSource, recorder audit.Recorder) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		ledger:      ledgerRepo,
		bills:       billRepo,
		commissions: commissionRepo,
		rates:       rates,
		audit:       recorder,
	}
}

// Create opens a pending transaction. A withdrawal freezes the requested
// amount in the same unit of work, so the funds cannot be spent twice while
// the withdrawal awaits approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transaction, error) {
	if !ValidType(in.Type) {
		return nil, ErrInvalidArgument
	}
	if in.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.FeeAmount.Sign() < 0 || in.FeeAmount.GreaterThan(in.Amount) {
		return nil, ErrInvalidArgument
	}
	if in.Type == TypeTransfer && !in.RelatedEntityID.Valid {
		return nil, ErrInvalidArgument
	}

	t := &Transaction{
		Code:            GenerateCode(in.Type, in.ActorID, time.Now()),
		Type:            in.Type,
		Status:          StatusPending,
		Amount:          in.Amount,
		FeeAmount:       in.FeeAmount,
		NetAmount:       in.Amount.Sub(in.FeeAmount),
		ActorID:         in.ActorID,
		ActorRole:       in.ActorRole,
		RelatedEntityID: in.RelatedEntityID,
		Notes:           in.Notes,
	}
	if in.RelatedEntityType != "" {
		t.RelatedEntityType = sql.NullString{String: in.RelatedEntityType, Valid: true}
	}
	if in.PaymentMethod != "" {
		t.PaymentMethod = sql.NullString{String: in.PaymentMethod, Valid: true}
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if in.Type == TypeWithdrawal {
		if err := s.checkWithdrawalLimits(ctx, tx, in.ActorID, in.Amount); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}

	if in.Type == TypeWithdrawal {
		if _, err := s.ledger.FreezeTx(ctx, tx, in.ActorID, in.Amount); err != nil {
			return nil, err
		}
	}

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    in.ActorID,
		ActorRole:  in.ActorRole,
		Action:     "transaction.create",
		TargetType: "transaction",
		TargetID:   t.ID.String(),
		NewValue:   audit.MarshalValue(t),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", t.ID.String()).
		Str("code", t.Code).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.String()).
		Msg("transaction created")

	return t, nil
}

func (s *Service) checkWithdrawalLimits(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, amount decimal.Decimal) error {
	balance, err := s.ledger.GetBalance(ctx, actorID)
	if err != nil {
		return err
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	daily, err := s.repo.SumCompletedByActorTypeSince(ctx, tx, actorID, TypeWithdrawal, dayStart)
	if err != nil {
		return err
	}
	if daily.Add(amount).GreaterThan(balance.DailyLimit) {
		return ErrLimitExceeded
	}

	monthly, err := s.repo.SumCompletedByActorTypeSince(ctx, tx, actorID, TypeWithdrawal, monthStart)
	if err != nil {
		return err
	}
	if monthly.Add(amount).GreaterThan(balance.MonthlyLimit) {
		return ErrLimitExceeded
	}
	return nil
}

// Confirm settles a pending or processing transaction. Balance checks run
// at confirm time against the locked balance row, not against whatever was
// true at creation.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := s.repo.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !CanConfirm(t.Status) {
		return nil, ErrInvalidState
	}

	if err := s.settleTx(ctx, tx, t); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatusTx(ctx, tx, t.ID, StatusCompleted); err != nil {
		return nil, err
	}
	t.Status = StatusCompleted

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "transaction.confirm",
		TargetType: "transaction",
		TargetID:   t.ID.String(),
		NewValue:   audit.MarshalValue(t),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", t.ID.String()).
		Str("code", t.Code).
		Str("type", string(t.Type)).
		Msg("transaction confirmed")

	return t, nil
}

// settleTx moves the money for a confirm, inside the caller's transaction.
func (s *Service) settleTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	switch t.Type {
	case TypePayment:
		if _, err := s.ledger.DebitTx(ctx, tx, t.ActorID, t.Amount); err != nil {
			return err
		}
		if t.RelatedEntityID.Valid && t.RelatedEntityType.String == "bill" {
			if err := s.bills.MarkSoldTx(ctx, tx, t.RelatedEntityID.UUID, t.ActorID); err != nil {
				return err
			}
		}
		return s.createCommissionTx(ctx, tx, t)

	case TypeDeposit, TypeRefund:
		_, err := s.ledger.CreditTx(ctx, tx, t.ActorID, t.NetAmount)
		return err

	case TypeWithdrawal:
		_, err := s.ledger.SpendFrozenTx(ctx, tx, t.ActorID, t.Amount)
		return err

	case TypeCommission:
		if _, err := s.ledger.CreditTx(ctx, tx, t.ActorID, t.Amount); err != nil {
			return err
		}
		var marked int
		var err error
		if t.RelatedEntityID.Valid && t.RelatedEntityType.String == "transaction" {
			marked, err = s.commissions.MarkPaidByTransactionTx(ctx, tx, t.RelatedEntityID.UUID)
		} else {
			marked, err = s.commissions.MarkPaidByRecipientTx(ctx, tx, t.ActorID)
		}
		if err != nil {
			return err
		}
		log.Debug().Int("marked", marked).Str("transaction_id", t.ID.String()).Msg("commission rows settled")
		return nil

	case TypeTransfer:
		if !t.RelatedEntityID.Valid {
			return ErrInvalidArgument
		}
		if _, err := s.ledger.DebitTx(ctx, tx, t.ActorID, t.Amount); err != nil {
			return err
		}
		_, err := s.ledger.CreditTx(ctx, tx, t.RelatedEntityID.UUID, t.NetAmount)
		return err
	}
	return ErrInvalidArgument
}

// createCommissionTx writes the pending commission row earned by an agent
// on a payment, using the agent's effective rate at confirm time.
func (s *Service) createCommissionTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	if t.ActorRole != middleware.RoleAgent || s.rates == nil {
		return nil
	}

	rate, err := s.rates.EffectiveRate(ctx, t.ActorID)
	if err != nil {
		return err
	}
	amount, err := commission.Calculate(t.Amount, rate)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}

	c := &commission.Commission{
		ID:            uuid.New(),
		TransactionID: t.ID,
		RecipientID:   t.ActorID,
		RecipientRole: t.ActorRole,
		BaseAmount:    t.Amount,
		Rate:          rate,
		Amount:        amount,
		Status:        commission.StatusPending,
	}
	if err := s.commissions.CreateTx(ctx, tx, c); err != nil {
		return err
	}

	t.CommissionAmount = amount
	return s.repo.SetCommissionAmountTx(ctx, tx, t.ID, amount)
}

// Cancel voids a pending or processing transaction and reverses any
// withdrawal hold. The reason lands in the transaction notes. Cancelling an
// already cancelled transaction succeeds.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) (*Transaction, error) {
	return s.void(ctx, id, actor, StatusCancelled, "transaction.cancel", reason)
}

// Fail marks a transaction failed after a system error, with the same
// reversal semantics as Cancel. Idempotent on already failed rows.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, actor Actor, reason string) (*Transaction, error) {
	return s.void(ctx, id, actor, StatusFailed, "transaction.fail", reason)
}

func (s *Service) void(ctx context.Context, id uuid.UUID, actor Actor, target Status, action, reason string) (*Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := s.repo.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == target {
		return t, nil
	}
	if !CanCancel(t.Status) {
		return nil, ErrInvalidState
	}

	if t.Type == TypeWithdrawal {
		if _, err := s.ledger.UnfreezeTx(ctx, tx, t.ActorID, t.Amount); err != nil {
			return nil, err
		}
	}

	if reason != "" {
		if t.Notes != "" {
			t.Notes += "; " + reason
		} else {
			t.Notes = reason
		}
	}
	if err := s.repo.VoidTx(ctx, tx, t.ID, target, t.Notes); err != nil {
		return nil, err
	}
	t.Status = target

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: "transaction",
		TargetID:   t.ID.String(),
		NewValue:   audit.MarshalValue(t),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", t.ID.String()).
		Str("code", t.Code).
		Str("status", string(target)).
		Msg("transaction voided")

	return t, nil
}

// PayBill creates and settles a bill payment in one unit of work: the
// payment transaction, the balance debit, the sold flag on the bill and the
// agent commission either all land or none do.
func (s *Service) PayBill(ctx context.Context, billID, actorID uuid.UUID, actorRole, paymentMethod, notes string) (*bill.PaymentResult, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := s.bills.GetForUpdateTx(ctx, tx, billID)
	if err != nil {
		return nil, err
	}
	if !b.Exportable() {
		if b.Status == bill.StatusSold {
			return nil, bill.ErrBillSold
		}
		return nil, bill.ErrNotAvailable
	}

	t := &Transaction{
		Code:              GenerateCode(TypePayment, actorID, time.Now()),
		Type:              TypePayment,
		Status:            StatusPending,
		Amount:            b.TotalAmount,
		FeeAmount:         decimal.Zero,
		NetAmount:         b.TotalAmount,
		ActorID:           actorID,
		ActorRole:         actorRole,
		RelatedEntityID:   uuid.NullUUID{UUID: b.ID, Valid: true},
		RelatedEntityType: sql.NullString{String: "bill", Valid: true},
		Notes:             notes,
	}
	if paymentMethod != "" {
		t.PaymentMethod = sql.NullString{String: paymentMethod, Valid: true}
	}
	if err := s.repo.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}

	if err := s.settleTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatusTx(ctx, tx, t.ID, StatusCompleted); err != nil {
		return nil, err
	}
	t.Status = StatusCompleted

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     "transaction.pay_bill",
		TargetType: "bill",
		TargetID:   b.ID.String(),
		NewValue:   audit.MarshalValue(t),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("bill_id", b.ID.String()).
		Str("transaction_id", t.ID.String()).
		Str("amount", t.Amount.String()).
		Msg("bill paid")

	return &bill.PaymentResult{
		TransactionID:   t.ID,
		TransactionCode: t.Code,
		Amount:          t.Amount,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Transaction, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) ListByActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByActor(ctx, actorID, limit, offset)
}
