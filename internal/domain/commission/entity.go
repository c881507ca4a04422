package commission

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents commission payout status
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Commission is a payout owed to an agent or staff member, owned by its
// parent transaction. Voiding the transaction voids its commissions.
type Commission struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	RecipientID   uuid.UUID       `db:"recipient_id" json:"recipient_id"`
	RecipientRole string          `db:"recipient_role" json:"recipient_role"`
	BaseAmount    decimal.Decimal `db:"base_amount" json:"base_amount"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	Amount        decimal.Decimal `db:"commission_amount" json:"commission_amount"`
	Status        Status          `db:"status" json:"status"`
	PaidAt        sql.NullTime    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
