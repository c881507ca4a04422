package commission

import "errors"

var (
	ErrInvalidArgument = errors.New("base amount and rate must be non-negative")
	ErrNotFound        = errors.New("commission not found")
)
