package approval

import (
	"encoding/json"

	"github.com/google/uuid"
)

type SubmitRequest struct {
	Type           string          `json:"type" validate:"required,approval_type"`
	TargetID       uuid.UUID       `json:"target_id" validate:"required"`
	TargetType     string          `json:"target_type" validate:"required,max=30"`
	TargetSnapshot json.RawMessage `json:"target_snapshot,omitempty"`
	Reason         string          `json:"reason" validate:"max=500"`
	StepRoles      []string        `json:"step_roles,omitempty" validate:"omitempty,max=5,dive,role"`
	TimeoutHours   int             `json:"timeout_hours,omitempty" validate:"omitempty,gte=1,lte=168"`
}

type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,decision"`
	Notes    string `json:"notes" validate:"max=500"`
}
