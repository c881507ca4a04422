package transaction

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Type              string          `json:"type" validate:"required,txtype"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	FeeAmount         decimal.Decimal `json:"fee_amount"`
	RelatedEntityID   *uuid.UUID      `json:"related_entity_id,omitempty"`
	RelatedEntityType string          `json:"related_entity_type,omitempty" validate:"max=30"`
	PaymentMethod     string          `json:"payment_method,omitempty" validate:"payment_method"`
	Notes             string          `json:"notes,omitempty" validate:"max=500"`
}

type VoidRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}
