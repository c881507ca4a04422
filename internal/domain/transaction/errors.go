package transaction

import "errors"

var (
	ErrNotFound        = errors.New("transaction not found")
	ErrInvalidState    = errors.New("transaction status does not allow this transition")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidArgument = errors.New("invalid transaction arguments")
	ErrCodeConflict    = errors.New("transaction code already exists")
	ErrLimitExceeded   = errors.New("transaction limit exceeded")
)
