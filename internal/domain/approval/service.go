package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/middleware"
)

// Actor is the verified caller of an approval operation
type Actor struct {
	ID   uuid.UUID
	Role string
}

// SubmitInput carries the fields needed to open an approval
type SubmitInput struct {
	Type           Type
	TargetID       uuid.UUID
	TargetType     string
	TargetSnapshot json.RawMessage
	RequesterID    uuid.UUID
	RequesterRole  string
	Reason         string
	StepRoles      []string // empty means DefaultSteps(Type)
	TimeoutHours   int      // 0 means the 24h default
}

// Service drives the approval workflow. Step decisions and the resulting
// approval transition commit first; settlement runs after the commit, and a
// settlement failure leaves the approval approved with a logged and audited
// failure record for operators to replay.
type Service struct {
	db           *sqlx.DB
	repo         Repository
	agents       AgentSettler
	customers    CustomerSettler
	transactions TransactionConfirmer
	audit        audit.Recorder
}

func NewService(db *sqlx.DB, repo Repository, agents AgentSettler, customers CustomerSettler, transactions TransactionConfirmer, recorder audit.Recorder) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		agents:       agents,
		customers:    customers,
		transactions: transactions,
		audit:        recorder,
	}
}

// Submit opens a pending approval with its ordered step chain.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Approval, error) {
	if !ValidType(in.Type) || in.TargetID == uuid.Nil {
		return nil, ErrInvalidArgument
	}

	roles := in.StepRoles
	if len(roles) == 0 {
		roles = DefaultSteps(in.Type)
	}
	timeout := in.TimeoutHours
	if timeout <= 0 {
		timeout = 24
	}
	snapshot := in.TargetSnapshot
	if len(snapshot) == 0 {
		snapshot = json.RawMessage(`{}`)
	}

	a := &Approval{
		Code:           GenerateCode(in.RequesterID, time.Now()),
		Type:           in.Type,
		Status:         StatusPending,
		TargetID:       in.TargetID,
		TargetType:     in.TargetType,
		TargetSnapshot: snapshot,
		RequesterID:    in.RequesterID,
		RequesterRole:  in.RequesterRole,
		Reason:         in.Reason,
		CurrentStep:    1,
		TotalSteps:     len(roles),
	}
	for i, role := range roles {
		a.Steps = append(a.Steps, &Step{
			StepOrder:            i + 1,
			ApproverRoleRequired: role,
			Status:               StepPending,
			IsRequired:           true,
			TimeoutHours:         timeout,
		})
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.repo.CreateTx(ctx, tx, a); err != nil {
		return nil, err
	}

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    in.RequesterID,
		ActorRole:  in.RequesterRole,
		Action:     "approval.submit",
		TargetType: "approval",
		TargetID:   a.ID.String(),
		NewValue:   audit.MarshalValue(a),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("approval_id", a.ID.String()).
		Str("code", a.Code).
		Str("type", string(a.Type)).
		Int("total_steps", a.TotalSteps).
		Msg("approval submitted")

	return a, nil
}

// guardStep applies the ordering, idempotency and role rules for a decision
// on one step. Admins may act on any step's turn; everyone else only on
// steps assigned to their role.
func guardStep(a *Approval, stepOrder int, actorRole string) (*Step, error) {
	if IsTerminal(a.Status) {
		return nil, ErrAlreadyProcessed
	}

	var step *Step
	for _, st := range a.Steps {
		if st.StepOrder == stepOrder {
			step = st
			break
		}
	}
	if step == nil {
		return nil, ErrStepNotFound
	}
	if step.Status != StepPending {
		return nil, ErrAlreadyProcessed
	}
	if stepOrder != a.CurrentStep {
		return nil, ErrOutOfOrder
	}
	if actorRole != step.ApproverRoleRequired && actorRole != middleware.RoleAdmin {
		return nil, ErrForbidden
	}
	return step, nil
}

// ActOnStep records an approver's decision. A rejection vetoes the whole
// approval and leaves the unreached steps pending; the final approval
// settles the underlying change.
func (s *Service) ActOnStep(ctx context.Context, approvalID uuid.UUID, stepOrder int, decision Decision, notes string, actor Actor) (*Approval, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, ErrInvalidArgument
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := s.repo.GetForUpdateTx(ctx, tx, approvalID)
	if err != nil {
		return nil, err
	}

	step, err := guardStep(a, stepOrder, actor.Role)
	if err != nil {
		return nil, err
	}

	step.ApproverID = uuid.NullUUID{UUID: actor.ID, Valid: true}
	step.DecisionNotes = notes

	if decision == DecisionReject {
		step.Status = StepRejected
		a.Status = StatusRejected
		a.FinalDecision = sql.NullString{String: "rejected", Valid: true}
	} else {
		step.Status = StepApproved
		if stepOrder == a.TotalSteps {
			a.Status = StatusApproved
			a.FinalDecision = sql.NullString{String: "approved", Valid: true}
		} else {
			a.Status = StatusInProgress
			a.CurrentStep = stepOrder + 1
		}
	}

	if err := s.repo.UpdateStepTx(ctx, tx, step); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatusTx(ctx, tx, a); err != nil {
		return nil, err
	}

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "approval." + string(decision),
		TargetType: "approval",
		TargetID:   a.ID.String(),
		NewValue:   audit.MarshalValue(a),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("approval_id", a.ID.String()).
		Int("step", stepOrder).
		Str("decision", string(decision)).
		Str("status", string(a.Status)).
		Msg("approval step decided")

	switch a.Status {
	case StatusApproved:
		s.settle(ctx, a, actor)
	case StatusRejected:
		s.reverse(ctx, a, actor)
	}

	return a, nil
}

// Cancel withdraws a non-terminal approval. Only the requester or an admin
// may cancel; any underlying money hold is released.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Approval, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := s.repo.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(a.Status) {
		return nil, ErrInvalidState
	}
	if actor.ID != a.RequesterID && actor.Role != middleware.RoleAdmin {
		return nil, ErrForbidden
	}

	a.Status = StatusCancelled
	a.FinalDecision = sql.NullString{String: "cancelled", Valid: true}

	if err := s.repo.SkipPendingStepsTx(ctx, tx, a.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatusTx(ctx, tx, a); err != nil {
		return nil, err
	}

	if err := s.audit.RecordTx(ctx, tx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "approval.cancel",
		TargetType: "approval",
		TargetID:   a.ID.String(),
		NewValue:   audit.MarshalValue(a),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Str("approval_id", a.ID.String()).Msg("approval cancelled")

	s.reverse(ctx, a, actor)
	return a, nil
}

// settle dispatches the approved change. Runs after the approval commit:
// the decision stands even if settlement fails, and the failure is logged
// and audited so operators can replay it.
func (s *Service) settle(ctx context.Context, a *Approval, actor Actor) {
	var err error
	switch a.Type {
	case TypeAgentRegistration:
		err = s.agents.Activate(ctx, a.TargetID)
	case TypeCustomerRegistration:
		err = s.customers.Activate(ctx, a.TargetID)
	case TypeDeposit, TypeWithdrawal, TypeTransaction, TypeCommission:
		err = s.transactions.Confirm(ctx, a.TargetID)
	case TypeOther:
		err = s.applyProfileUpdate(ctx, a)
	}
	if err != nil {
		s.recordSettlementFailure(ctx, a, actor, "approval.settlement_failed", err)
	}
}

// reverse releases holds behind a rejected or cancelled money approval.
func (s *Service) reverse(ctx context.Context, a *Approval, actor Actor) {
	switch a.Type {
	case TypeDeposit, TypeWithdrawal, TypeTransaction, TypeCommission:
		if err := s.transactions.Cancel(ctx, a.TargetID); err != nil {
			s.recordSettlementFailure(ctx, a, actor, "approval.reversal_failed", err)
		}
	}
}

func (s *Service) applyProfileUpdate(ctx context.Context, a *Approval) error {
	var snapshot struct {
		NewValues json.RawMessage `json:"new_values"`
	}
	if err := json.Unmarshal(a.TargetSnapshot, &snapshot); err != nil {
		return err
	}

	switch a.TargetType {
	case "agent":
		return s.agents.ApplyProfileUpdate(ctx, a.TargetID, snapshot.NewValues)
	case "customer":
		return s.customers.ApplyProfileUpdate(ctx, a.TargetID, snapshot.NewValues)
	}
	return ErrInvalidArgument
}

func (s *Service) recordSettlementFailure(ctx context.Context, a *Approval, actor Actor, action string, cause error) {
	log.Error().
		Err(cause).
		Str("approval_id", a.ID.String()).
		Str("type", string(a.Type)).
		Str("target_id", a.TargetID.String()).
		Msg("approval settlement failed, approval state kept")

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: "approval",
		TargetID:   a.ID.String(),
		NewValue:   audit.MarshalValue(map[string]string{"error": cause.Error()}),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Approval, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Approval, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) ListPendingForRole(ctx context.Context, role string, limit, offset int) ([]*Approval, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPendingForRole(ctx, role, limit, offset)
}

func (s *Service) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Approval, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRequester(ctx, requesterID, limit, offset)
}
