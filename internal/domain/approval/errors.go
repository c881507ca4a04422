package approval

import "errors"

var (
	ErrNotFound         = errors.New("approval not found")
	ErrStepNotFound     = errors.New("approval step not found")
	ErrOutOfOrder       = errors.New("approval steps must be acted on in order")
	ErrForbidden        = errors.New("actor role cannot act on this step")
	ErrAlreadyProcessed = errors.New("approval or step already processed")
	ErrInvalidState     = errors.New("approval status does not allow this action")
	ErrInvalidArgument  = errors.New("invalid approval arguments")
)
