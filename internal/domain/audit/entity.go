package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is a single audit record: who did what to which entity, with the
// before/after values.
type Entry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actor_id"`
	ActorRole  string          `db:"actor_role" json:"actor_role"`
	Action     string          `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   string          `db:"target_id" json:"target_id"`
	OldValue   json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue   json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// MarshalValue serializes an arbitrary payload for the old/new columns.
// Serialization failures become null rather than failing the audited
// operation.
func MarshalValue(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
