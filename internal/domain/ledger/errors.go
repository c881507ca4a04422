package ledger

import "errors"

var (
	ErrAccountNotFound    = errors.New("balance account not found")
	ErrInsufficientFunds  = errors.New("insufficient available balance")
	ErrInsufficientFrozen = errors.New("insufficient frozen balance")
	ErrInvalidAmount      = errors.New("amount must be positive")
)
