package agent

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents agent account status
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Agent is a selling agent. Registration leaves the agent pending until an
// approval chain activates it.
type Agent struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	UserID         uuid.UUID           `db:"user_id" json:"user_id"`
	Code           string              `db:"code" json:"code"`
	Name           string              `db:"name" json:"name"`
	Phone          string              `db:"phone" json:"phone"`
	Email          string              `db:"email" json:"email"`
	Address        string              `db:"address" json:"address"`
	Level          string              `db:"level" json:"level"`
	CommissionRate decimal.NullDecimal `db:"commission_rate" json:"commission_rate,omitempty"`
	Status         Status              `db:"status" json:"status"`
	ActivatedAt    sql.NullTime        `db:"activated_at" json:"activated_at,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate is the allow-list of fields an approved profile change may
// touch. Level, rate and status never travel through this path.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u *ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil && u.Address == nil
}

// GenerateCode builds the agent code, e.g. DL202501140007.
func GenerateCode(now time.Time, seq int) string {
	return fmt.Sprintf("DL%s%04d", now.Format("20060102"), seq)
}
