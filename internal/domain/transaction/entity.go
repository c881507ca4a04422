package transaction

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents transaction type
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypePayment    Type = "payment"
	TypeCommission Type = "commission"
	TypeRefund     Type = "refund"
	TypeTransfer   Type = "transfer"
)

// Status represents transaction lifecycle status
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Transaction is a money movement with a generated human-readable code.
// net_amount is fixed at creation and never recomputed.
type Transaction struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	Type              Type            `db:"type" json:"type"`
	Status            Status          `db:"status" json:"status"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	FeeAmount         decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	CommissionAmount  decimal.Decimal `db:"commission_amount" json:"commission_amount"`
	NetAmount         decimal.Decimal `db:"net_amount" json:"net_amount"`
	ActorID           uuid.UUID       `db:"actor_id" json:"actor_id"`
	ActorRole         string          `db:"actor_role" json:"actor_role"`
	RelatedEntityID   uuid.NullUUID   `db:"related_entity_id" json:"related_entity_id,omitempty"`
	RelatedEntityType sql.NullString  `db:"related_entity_type" json:"related_entity_type,omitempty"`
	PaymentMethod     sql.NullString  `db:"payment_method" json:"payment_method,omitempty"`
	Notes             string          `db:"notes" json:"notes"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt       sql.NullTime    `db:"processed_at" json:"processed_at,omitempty"`
	CompletedAt       sql.NullTime    `db:"completed_at" json:"completed_at,omitempty"`
}

// GenerateCode builds the unique transaction code, e.g.
// WITHDRAWAL_20250114093055_<actor uuid>.
func GenerateCode(t Type, actorID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(string(t)), now.Format("20060102150405"), actorID)
}

// CanConfirm reports whether a transaction in the given status may be
// confirmed.
func CanConfirm(s Status) bool {
	return s == StatusPending || s == StatusProcessing
}

// CanCancel reports whether a transaction in the given status may be
// cancelled or failed.
func CanCancel(s Status) bool {
	return s == StatusPending || s == StatusProcessing
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ValidType reports whether t is a known transaction type.
func ValidType(t Type) bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypePayment, TypeCommission, TypeRefund, TypeTransfer:
		return true
	}
	return false
}
