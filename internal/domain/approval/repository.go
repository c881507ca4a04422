package approval

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines approval data access. Tx variants run inside the
// caller's transaction.
type Repository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, a *Approval) error
	GetByID(ctx context.Context, id uuid.UUID) (*Approval, error)
	GetByCode(ctx context.Context, code string) (*Approval, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Approval, error)
	UpdateStepTx(ctx context.Context, tx *sqlx.Tx, s *Step) error
	SkipPendingStepsTx(ctx context.Context, tx *sqlx.Tx, approvalID uuid.UUID) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, a *Approval) error
	ListPendingForRole(ctx context.Context, role string, limit, offset int) ([]*Approval, int, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Approval, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the approval repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const approvalColumns = `id, code, type, status, target_id, target_type, target_snapshot, requester_id, requester_role, reason, current_step, total_steps, final_decision, submitted_at, completed_at`

const stepColumns = `id, approval_id, step_order, approver_role_required, approver_id, status, decision_notes, is_required, timeout_hours, assigned_at, processed_at`

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, a *Approval) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO approvals (code, type, status, target_id, target_type, target_snapshot, requester_id, requester_role, reason, current_step, total_steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, submitted_at
	`,
		a.Code,
		a.Type,
		a.Status,
		a.TargetID,
		a.TargetType,
		a.TargetSnapshot,
		a.RequesterID,
		a.RequesterRole,
		a.Reason,
		a.CurrentStep,
		a.TotalSteps,
	).Scan(&a.ID, &a.SubmittedAt)
	if err != nil {
		return err
	}

	for _, s := range a.Steps {
		s.ApprovalID = a.ID
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO approval_steps (approval_id, step_order, approver_role_required, status, is_required, timeout_hours)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, assigned_at
		`,
			s.ApprovalID,
			s.StepOrder,
			s.ApproverRoleRequired,
			s.Status,
			s.IsRequired,
			s.TimeoutHours,
		).Scan(&s.ID, &s.AssignedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) loadSteps(ctx context.Context, q sqlx.QueryerContext, a *Approval) error {
	return sqlx.SelectContext(ctx, q, &a.Steps, `
		SELECT `+stepColumns+`
		FROM approval_steps
		WHERE approval_id = $1
		ORDER BY step_order
	`, a.ID)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Approval, error) {
	var a Approval
	err := r.db.GetContext(ctx, &a, `
		SELECT `+approvalColumns+`
		FROM approvals
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, r.db, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Approval, error) {
	var a Approval
	err := r.db.GetContext(ctx, &a, `
		SELECT `+approvalColumns+`
		FROM approvals
		WHERE code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, r.db, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetForUpdateTx locks the approval row so concurrent decisions on the same
// approval serialize.
func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Approval, error) {
	var a Approval
	err := tx.GetContext(ctx, &a, `
		SELECT `+approvalColumns+`
		FROM approvals
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSteps(ctx, tx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) UpdateStepTx(ctx context.Context, tx *sqlx.Tx, s *Step) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE approval_steps
		SET status = $2, approver_id = $3, decision_notes = $4, processed_at = now()
		WHERE id = $1
	`, s.ID, s.Status, s.ApproverID, s.DecisionNotes)
	return err
}

// SkipPendingStepsTx marks the not-yet-reached steps skipped when an
// approval is cancelled. A veto does not use it: rejected approvals keep
// their unreached steps pending.
func (r *repository) SkipPendingStepsTx(ctx context.Context, tx *sqlx.Tx, approvalID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE approval_steps
		SET status = 'skipped', processed_at = now()
		WHERE approval_id = $1 AND status = 'pending'
	`, approvalID)
	return err
}

func (r *repository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, a *Approval) error {
	completed := IsTerminal(a.Status)
	_, err := tx.ExecContext(ctx, `
		UPDATE approvals
		SET status = $2, current_step = $3, final_decision = $4,
		    completed_at = CASE WHEN $5 THEN now() ELSE completed_at END
		WHERE id = $1
	`, a.ID, a.Status, a.CurrentStep, a.FinalDecision, completed)
	return err
}

// ListPendingForRole returns approvals whose current step awaits the given
// role's decision.
func (r *repository) ListPendingForRole(ctx context.Context, role string, limit, offset int) ([]*Approval, int, error) {
	const where = `
		FROM approvals a
		WHERE a.status IN ('pending', 'in_progress')
		  AND EXISTS (
			SELECT 1 FROM approval_steps s
			WHERE s.approval_id = a.id
			  AND s.step_order = a.current_step
			  AND s.status = 'pending'
			  AND s.approver_role_required = $1
		  )`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+where, role); err != nil {
		return nil, 0, err
	}

	var items []*Approval
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+prefixColumns("a")+` `+where+`
		ORDER BY a.submitted_at
		LIMIT $2 OFFSET $3
	`, role, limit, offset)
	return items, total, err
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*Approval, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM approvals WHERE requester_id = $1
	`, requesterID); err != nil {
		return nil, 0, err
	}

	var items []*Approval
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+approvalColumns+`
		FROM approvals
		WHERE requester_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`, requesterID, limit, offset)
	return items, total, err
}

func prefixColumns(alias string) string {
	return alias + ".id, " + alias + ".code, " + alias + ".type, " + alias + ".status, " +
		alias + ".target_id, " + alias + ".target_type, " + alias + ".target_snapshot, " +
		alias + ".requester_id, " + alias + ".requester_role, " + alias + ".reason, " +
		alias + ".current_step, " + alias + ".total_steps, " + alias + ".final_decision, " +
		alias + ".submitted_at, " + alias + ".completed_at"
}
