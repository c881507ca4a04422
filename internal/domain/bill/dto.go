package bill

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	CustomerCode   string          `json:"customer_code" validate:"required,max=20"`
	CustomerName   string          `json:"customer_name" validate:"max=100"`
	ProviderID     uuid.UUID       `json:"provider_id" validate:"required"`
	Period         string          `json:"period" validate:"required,max=10"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount" validate:"required"`
	Notes          string          `json:"notes" validate:"max=500"`
}

type LookupRequest struct {
	CustomerCode string    `json:"customer_code" validate:"required,max=20"`
	ProviderID   uuid.UUID `json:"provider_id" validate:"required"`
}

type ExportRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	Notes         string `json:"notes" validate:"max=500"`
}

// PaymentResult is what an export hands back to the caller once the payment
// transaction settles.
type PaymentResult struct {
	TransactionID   uuid.UUID       `json:"transaction_id"`
	TransactionCode string          `json:"transaction_code"`
	Amount          decimal.Decimal `json:"amount"`
}
