package approval

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Settlement collaborators. Defined here so the workflow engine stays
// decoupled from the packages it settles into; main wires the adapters.

// AgentSettler activates agents and applies approved profile updates
type AgentSettler interface {
	Activate(ctx context.Context, agentID uuid.UUID) error
	ApplyProfileUpdate(ctx context.Context, agentID uuid.UUID, newValues json.RawMessage) error
}

// CustomerSettler activates customers and applies approved profile updates
type CustomerSettler interface {
	Activate(ctx context.Context, customerID uuid.UUID) error
	ApplyProfileUpdate(ctx context.Context, customerID uuid.UUID, newValues json.RawMessage) error
}

// TransactionConfirmer settles money approvals: confirm on final approval,
// cancel on rejection so any withdrawal hold is released.
type TransactionConfirmer interface {
	Confirm(ctx context.Context, transactionID uuid.UUID) error
	Cancel(ctx context.Context, transactionID uuid.UUID) error
}
