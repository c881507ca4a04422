package customer

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents customer account status
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Customer is an end customer, optionally attached to the agent who
// registered them.
type Customer struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	Code        string        `db:"code" json:"code"`
	FullName    string        `db:"full_name" json:"full_name"`
	Phone       string        `db:"phone" json:"phone"`
	AgentID     uuid.NullUUID `db:"agent_id" json:"agent_id,omitempty"`
	Status      Status        `db:"status" json:"status"`
	ActivatedAt sql.NullTime  `db:"activated_at" json:"activated_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate is the allow-list of fields an approved profile change may
// touch.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u *ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Phone == nil
}

// GenerateCode builds the customer code, e.g. KH202501140012.
func GenerateCode(now time.Time, seq int) string {
	return fmt.Sprintf("KH%s%04d", now.Format("20060102"), seq)
}
