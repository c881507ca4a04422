package agent

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"max=20"`
	Email   string `json:"email" validate:"omitempty,email,max=100"`
	Address string `json:"address" validate:"max=500"`
	Level   string `json:"level" validate:"omitempty,oneof=basic silver gold platinum"`
}

type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,payment_method"`
	Notes         string          `json:"notes" validate:"max=500"`
}
