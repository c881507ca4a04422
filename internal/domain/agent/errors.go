package agent

import "errors"

var (
	ErrNotFound          = errors.New("agent not found")
	ErrAlreadyRegistered = errors.New("user already has an agent profile")
	ErrCodeConflict      = errors.New("agent code already exists")
	ErrInvalidState      = errors.New("agent status does not allow this action")
	ErrEmptyUpdate       = errors.New("profile update carries no changes")
)
