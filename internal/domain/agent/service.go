package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/domain/approval"
	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/domain/commission"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
	"github.com/coolnight20187/python-7ty-system/internal/domain/transaction"
)

// ApprovalSubmitter opens approval requests. Wired to the approval service
// in main; a narrow interface keeps construction order flexible.
type ApprovalSubmitter interface {
	Submit(ctx context.Context, in approval.SubmitInput) (*approval.Approval, error)
}

// SubmitterFunc adapts a closure to ApprovalSubmitter
type SubmitterFunc func(ctx context.Context, in approval.SubmitInput) (*approval.Approval, error)

func (f SubmitterFunc) Submit(ctx context.Context, in approval.SubmitInput) (*approval.Approval, error) {
	return f(ctx, in)
}

// RegisterInput carries a new agent application
type RegisterInput struct {
	UserID  uuid.UUID
	Name    string
	Phone   string
	Email   string
	Address string
	Level   string
}

// WithdrawalInput carries an agent withdrawal request
type WithdrawalInput struct {
	UserID        uuid.UUID
	Role          string
	Amount        decimal.Decimal
	PaymentMethod string
	Notes         string
}

// Service manages agent lifecycle. Registration and withdrawal both route
// through the approval workflow; nothing here activates or pays directly.
type Service struct {
	repo         Repository
	ledger       ledger.Repository
	transactions *transaction.Service
	approvals    ApprovalSubmitter
	audit        audit.Recorder
}

func NewService(repo Repository, ledgerRepo ledger.Repository, transactions *transaction.Service, approvals ApprovalSubmitter, recorder audit.Recorder) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledgerRepo,
		transactions: transactions,
		approvals:    approvals,
		audit:        recorder,
	}
}

// Register creates a pending agent, opens its balance account and submits
// the registration for approval.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Agent, *approval.Approval, error) {
	level := in.Level
	if level == "" {
		level = "basic"
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	seq, err := s.repo.CountCreatedSince(ctx, dayStart)
	if err != nil {
		return nil, nil, err
	}

	a := &Agent{
		UserID:  in.UserID,
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
		Level:   level,
		Status:  StatusPending,
	}

	// Same-day registrations race on the sequence; retry with the next one.
	// Only code collisions retry, a duplicate user fails outright.
	for attempt := 0; attempt < 3; attempt++ {
		a.Code = GenerateCode(now, seq+1+attempt)
		err = s.repo.Create(ctx, a)
		if !errors.Is(err, ErrCodeConflict) {
			break
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if err := s.ledger.EnsureAccount(ctx, a.UserID, ledger.OwnerTypeAgent); err != nil {
		return nil, nil, err
	}

	ap, err := s.approvals.Submit(ctx, approval.SubmitInput{
		Type:           approval.TypeAgentRegistration,
		TargetID:       a.ID,
		TargetType:     "agent",
		TargetSnapshot: audit.MarshalValue(map[string]any{"new": a}),
		RequesterID:    in.UserID,
		RequesterRole:  "agent",
		Reason:         "agent registration",
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("agent_id", a.ID.String()).
		Str("code", a.Code).
		Str("approval_id", ap.ID.String()).
		Msg("agent registered, awaiting approval")

	return a, ap, nil
}

// Activate flips a pending agent to active. Called by approval settlement;
// activating an already active agent is a no-op.
func (s *Service) Activate(ctx context.Context, agentID uuid.UUID) error {
	a, err := s.repo.Activate(ctx, agentID)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorRole:  "system",
		Action:     "agent.activate",
		TargetType: "agent",
		TargetID:   agentID.String(),
		NewValue:   audit.MarshalValue(a),
	})
	return nil
}

// ApplyProfileUpdate applies an approved profile change. Unknown fields in
// the payload are dropped by the allow-list struct.
func (s *Service) ApplyProfileUpdate(ctx context.Context, agentID uuid.UUID, newValues json.RawMessage) error {
	var u ProfileUpdate
	if err := json.Unmarshal(newValues, &u); err != nil {
		return err
	}
	if u.Empty() {
		return ErrEmptyUpdate
	}

	a, err := s.repo.ApplyUpdate(ctx, agentID, &u)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorRole:  "system",
		Action:     "agent.profile_update",
		TargetType: "agent",
		TargetID:   agentID.String(),
		NewValue:   audit.MarshalValue(a),
	})
	return nil
}

// RequestWithdrawal freezes the amount in a pending withdrawal transaction
// and submits it for approval.
func (s *Service) RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*transaction.Transaction, *approval.Approval, error) {
	t, err := s.transactions.Create(ctx, transaction.CreateInput{
		Type:          transaction.TypeWithdrawal,
		Amount:        in.Amount,
		ActorID:       in.UserID,
		ActorRole:     in.Role,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, nil, err
	}

	ap, err := s.approvals.Submit(ctx, approval.SubmitInput{
		Type:           approval.TypeWithdrawal,
		TargetID:       t.ID,
		TargetType:     "transaction",
		TargetSnapshot: audit.MarshalValue(map[string]any{"new": t}),
		RequesterID:    in.UserID,
		RequesterRole:  in.Role,
		Reason:         "agent withdrawal request",
	})
	if err != nil {
		return nil, nil, err
	}

	return t, ap, nil
}

// EffectiveRate resolves the commission rate for a selling agent's user id.
// A missing agent profile falls back to the basic tier.
func (s *Service) EffectiveRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	a, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		log.Warn().Str("user_id", userID.String()).Msg("no agent profile for commission rate, using basic tier")
		return commission.RateForLevel("basic"), nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	var override *decimal.Decimal
	if a.CommissionRate.Valid {
		override = &a.CommissionRate.Decimal
	}
	return commission.ResolveRate(a.Level, override), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Agent, error) {
	return s.repo.GetByUserID(ctx, userID)
}
