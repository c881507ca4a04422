package customer

import "errors"

var (
	ErrNotFound     = errors.New("customer not found")
	ErrCodeConflict = errors.New("customer code already exists")
	ErrInvalidState = errors.New("customer status does not allow this action")
	ErrEmptyUpdate  = errors.New("profile update carries no changes")
)
