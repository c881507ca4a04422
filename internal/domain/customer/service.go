package customer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coolnight20187/python-7ty-system/internal/domain/approval"
	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
)

// ApprovalSubmitter opens approval requests; wired to the approval service
// in main.
type ApprovalSubmitter interface {
	Submit(ctx context.Context, in approval.SubmitInput) (*approval.Approval, error)
}

// RegisterInput carries a new customer application
type RegisterInput struct {
	FullName      string
	Phone         string
	AgentID       uuid.NullUUID
	RequesterID   uuid.UUID
	RequesterRole string
}

// Service manages customer lifecycle. Registration routes through the
// approval workflow; activation only happens via settlement.
type Service struct {
	repo      Repository
	ledger    ledger.Repository
	approvals ApprovalSubmitter
	audit     audit.Recorder
}

func NewService(repo Repository, ledgerRepo ledger.Repository, approvals ApprovalSubmitter, recorder audit.Recorder) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerRepo,
		approvals: approvals,
		audit:     recorder,
	}
}

// Register creates a pending customer, opens its balance account and
// submits the registration for approval.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Customer, *approval.Approval, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	seq, err := s.repo.CountCreatedSince(ctx, dayStart)
	if err != nil {
		return nil, nil, err
	}

	c := &Customer{
		FullName: in.FullName,
		Phone:    in.Phone,
		AgentID:  in.AgentID,
		Status:   StatusPending,
	}

	for attempt := 0; attempt < 3; attempt++ {
		c.Code = GenerateCode(now, seq+1+attempt)
		err = s.repo.Create(ctx, c)
		if !errors.Is(err, ErrCodeConflict) {
			break
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if err := s.ledger.EnsureAccount(ctx, c.ID, ledger.OwnerTypeCustomer); err != nil {
		return nil, nil, err
	}

	ap, err := s.approvals.Submit(ctx, approval.SubmitInput{
		Type:           approval.TypeCustomerRegistration,
		TargetID:       c.ID,
		TargetType:     "customer",
		TargetSnapshot: audit.MarshalValue(map[string]any{"new": c}),
		RequesterID:    in.RequesterID,
		RequesterRole:  in.RequesterRole,
		Reason:         "customer registration",
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("customer_id", c.ID.String()).
		Str("code", c.Code).
		Str("approval_id", ap.ID.String()).
		Msg("customer registered, awaiting approval")

	return c, ap, nil
}

// Activate flips a pending customer to active. Called by approval
// settlement; idempotent for already active customers.
func (s *Service) Activate(ctx context.Context, customerID uuid.UUID) error {
	c, err := s.repo.Activate(ctx, customerID)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorRole:  "system",
		Action:     "customer.activate",
		TargetType: "customer",
		TargetID:   customerID.String(),
		NewValue:   audit.MarshalValue(c),
	})
	return nil
}

// ApplyProfileUpdate applies an approved profile change through the
// allow-list struct.
func (s *Service) ApplyProfileUpdate(ctx context.Context, customerID uuid.UUID, newValues json.RawMessage) error {
	var u ProfileUpdate
	if err := json.Unmarshal(newValues, &u); err != nil {
		return err
	}
	if u.Empty() {
		return ErrEmptyUpdate
	}

	c, err := s.repo.ApplyUpdate(ctx, customerID, &u)
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorRole:  "system",
		Action:     "customer.profile_update",
		TargetType: "customer",
		TargetID:   customerID.String(),
		NewValue:   audit.MarshalValue(c),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByAgent(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]*Customer, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByAgent(ctx, agentID, limit, offset)
}
