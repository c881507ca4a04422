package agent

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines agent data access
type Repository interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Agent, error)
	Activate(ctx context.Context, id uuid.UUID) (*Agent, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, u *ProfileUpdate) (*Agent, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the agent repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const agentColumns = `id, user_id, code, name, phone, email, address, level, commission_rate, status, activated_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, a *Agent) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO agents (user_id, code, name, phone, email, address, level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		a.UserID,
		a.Code,
		a.Name,
		a.Phone,
		a.Email,
		a.Address,
		a.Level,
		a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// A code collision is retryable; a duplicate user is not.
			if strings.Contains(pqErr.Constraint, "code") {
				return ErrCodeConflict
			}
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Agent, error) {
	var a Agent
	err := r.db.GetContext(ctx, &a, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Agent, error) {
	var a Agent
	err := r.db.GetContext(ctx, &a, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID) (*Agent, error) {
	var a Agent
	err := r.db.QueryRowxContext(ctx, `
		UPDATE agents
		SET status = 'active', activated_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+agentColumns+`
	`, id).StructScan(&a)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == StatusActive {
			return current, nil
		}
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) ApplyUpdate(ctx context.Context, id uuid.UUID, u *ProfileUpdate) (*Agent, error) {
	var a Agent
	err := r.db.QueryRowxContext(ctx, `
		UPDATE agents
		SET name    = COALESCE($2, name),
		    phone   = COALESCE($3, phone),
		    email   = COALESCE($4, email),
		    address = COALESCE($5, address),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns+`
	`, id, u.Name, u.Phone, u.Email, u.Address).StructScan(&a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM agents WHERE created_at >= $1
	`, since)
	return count, err
}
