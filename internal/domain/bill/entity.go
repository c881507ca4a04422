package bill

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents bill inventory status
type Status string

const (
	StatusAvailable  Status = "available"
	StatusReserved   Status = "reserved"
	StatusSold       Status = "sold"
	StatusExpired    Status = "expired"
	StatusProcessing Status = "processing"
)

// Bill is a payable utility bill held in inventory. Available and reserved
// bills can be exported (sold) to an agent; sold and expired are terminal.
type Bill struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	CustomerCode   string          `db:"customer_code" json:"customer_code"`
	CustomerName   string          `db:"customer_name" json:"customer_name"`
	ProviderID     uuid.UUID       `db:"provider_id" json:"provider_id"`
	Period         string          `db:"period" json:"period"`
	PreviousAmount decimal.Decimal `db:"previous_amount" json:"previous_amount"`
	CurrentAmount  decimal.Decimal `db:"current_amount" json:"current_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         Status          `db:"status" json:"status"`
	ExportedToID   uuid.NullUUID   `db:"exported_to_id" json:"exported_to_id,omitempty"`
	ExportedAt     sql.NullTime    `db:"exported_at" json:"exported_at,omitempty"`
	AddedByID      uuid.NullUUID   `db:"added_by_id" json:"added_by_id,omitempty"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Exportable reports whether the bill can still be sold to an agent.
func (b *Bill) Exportable() bool {
	return b.Status == StatusAvailable || b.Status == StatusReserved
}
