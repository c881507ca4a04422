package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Recorder defines the audit collaborator the core components depend on.
type Recorder interface {
	// Record writes an audit entry in its own statement. Fire-and-forget:
	// failures are logged, never propagated.
	Record(ctx context.Context, entry Entry)
	// RecordTx writes an audit entry inside the caller's transaction so the
	// record commits or rolls back with the mutation it describes.
	RecordTx(ctx context.Context, tx *sqlx.Tx, entry Entry) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the audit log repository
func NewRepository(db *sqlx.DB) Recorder {
	return &repository{db: db}
}

const insertQuery = `
	INSERT INTO audit_logs (id, actor_id, actor_role, action, target_type, target_id, old_value, new_value, created_at)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, now())
`

func (r *repository) Record(ctx context.Context, entry Entry) {
	_, err := r.db.ExecContext(ctx, insertQuery,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		nullableRaw(entry.OldValue),
		nullableRaw(entry.NewValue),
	)
	if err != nil {
		log.Error().Err(err).
			Str("action", entry.Action).
			Str("target_type", entry.TargetType).
			Str("target_id", entry.TargetID).
			Msg("Failed to write audit record")
	}
}

func (r *repository) RecordTx(ctx context.Context, tx *sqlx.Tx, entry Entry) error {
	_, err := tx.ExecContext(ctx, insertQuery,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		nullableRaw(entry.OldValue),
		nullableRaw(entry.NewValue),
	)
	return err
}

func nullableRaw(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
