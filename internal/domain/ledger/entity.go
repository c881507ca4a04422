package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType identifies which kind of account holder owns a balance row
type OwnerType string

const (
	OwnerTypeAgent    OwnerType = "agent"
	OwnerTypeCustomer OwnerType = "customer"
)

// Balance is one wallet row. available_balance and frozen_balance never go
// negative; every mutation re-checks under a row lock.
type Balance struct {
	OwnerID      uuid.UUID       `db:"owner_id" json:"owner_id"`
	OwnerType    OwnerType       `db:"owner_type" json:"owner_type"`
	Available    decimal.Decimal `db:"available_balance" json:"available_balance"`
	Frozen       decimal.Decimal `db:"frozen_balance" json:"frozen_balance"`
	DailyLimit   decimal.Decimal `db:"daily_limit" json:"daily_limit"`
	MonthlyLimit decimal.Decimal `db:"monthly_limit" json:"monthly_limit"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
