package approval

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type represents what kind of change an approval authorizes
type Type string

const (
	TypeAgentRegistration    Type = "agent_registration"
	TypeCustomerRegistration Type = "customer_registration"
	TypeDeposit              Type = "deposit"
	TypeWithdrawal           Type = "withdrawal"
	TypeTransaction          Type = "transaction"
	TypeCommission           Type = "commission"
	TypeOther                Type = "other"
)

// Status represents approval lifecycle status
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// StepStatus represents a single step's status
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// Decision is an approver's verdict on a step
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Approval is a multi-step review of a requested change. Steps act in
// order; one rejection vetoes the whole chain.
type Approval struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Code           string          `db:"code" json:"code"`
	Type           Type            `db:"type" json:"type"`
	Status         Status          `db:"status" json:"status"`
	TargetID       uuid.UUID       `db:"target_id" json:"target_id"`
	TargetType     string          `db:"target_type" json:"target_type"`
	TargetSnapshot json.RawMessage `db:"target_snapshot" json:"target_snapshot"`
	RequesterID    uuid.UUID       `db:"requester_id" json:"requester_id"`
	RequesterRole  string          `db:"requester_role" json:"requester_role"`
	Reason         string          `db:"reason" json:"reason"`
	CurrentStep    int             `db:"current_step" json:"current_step"`
	TotalSteps     int             `db:"total_steps" json:"total_steps"`
	FinalDecision  sql.NullString  `db:"final_decision" json:"final_decision,omitempty"`
	SubmittedAt    time.Time       `db:"submitted_at" json:"submitted_at"`
	CompletedAt    sql.NullTime    `db:"completed_at" json:"completed_at,omitempty"`

	Steps []*Step `db:"-" json:"steps,omitempty"`
}

// Step is one stop in an approval chain, assigned to a role.
type Step struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	ApprovalID           uuid.UUID     `db:"approval_id" json:"approval_id"`
	StepOrder            int           `db:"step_order" json:"step_order"`
	ApproverRoleRequired string        `db:"approver_role_required" json:"approver_role_required"`
	ApproverID           uuid.NullUUID `db:"approver_id" json:"approver_id,omitempty"`
	Status               StepStatus    `db:"status" json:"status"`
	DecisionNotes        string        `db:"decision_notes" json:"decision_notes"`
	IsRequired           bool          `db:"is_required" json:"is_required"`
	TimeoutHours         int           `db:"timeout_hours" json:"timeout_hours"`
	AssignedAt           time.Time     `db:"assigned_at" json:"assigned_at"`
	ProcessedAt          sql.NullTime  `db:"processed_at" json:"processed_at,omitempty"`
}

// IsExpired reports whether a still-pending step has outlived its timeout.
func (s *Step) IsExpired(now time.Time) bool {
	if s.Status != StepPending || s.TimeoutHours <= 0 {
		return false
	}
	return now.After(s.AssignedAt.Add(time.Duration(s.TimeoutHours) * time.Hour))
}

// GenerateCode builds the approval code, e.g. AP_20250114093055_<uuid>.
func GenerateCode(requesterID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("AP_%s_%s", now.Format("20060102150405"), requesterID)
}

// CanAct reports whether the approval still accepts step decisions.
func CanAct(s Status) bool {
	return s == StatusPending || s == StatusInProgress
}

// IsTerminal reports whether the approval reached a final state.
func IsTerminal(s Status) bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// DefaultSteps returns the reviewer role chain for an approval type.
func DefaultSteps(t Type) []string {
	switch t {
	case TypeAgentRegistration, TypeWithdrawal:
		return []string{"staff", "admin"}
	case TypeCustomerRegistration, TypeDeposit:
		return []string{"staff"}
	default:
		return []string{"admin"}
	}
}

// ValidType reports whether t is a known approval type.
func ValidType(t Type) bool {
	switch t {
	case TypeAgentRegistration, TypeCustomerRegistration, TypeDeposit, TypeWithdrawal, TypeTransaction, TypeCommission, TypeOther:
		return true
	}
	return false
}
