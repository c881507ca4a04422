package customer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines customer data access
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	Activate(ctx context.Context, id uuid.UUID) (*Customer, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, u *ProfileUpdate) (*Customer, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]*Customer, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the customer repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const customerColumns = `id, code, full_name, phone, agent_id, status, activated_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, c *Customer) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO customers (code, full_name, phone, agent_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`,
		c.Code,
		c.FullName,
		c.Phone,
		c.AgentID,
		c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeConflict
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var c Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) Activate(ctx context.Context, id uuid.UUID) (*Customer, error) {
	var c Customer
	err := r.db.QueryRowxContext(ctx, `
		UPDATE customers
		SET status = 'active', activated_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+customerColumns+`
	`, id).StructScan(&c)
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
	return &c, nil
}

func (r *repository) ApplyUpdate(ctx context.Context, id uuid.UUID, u *ProfileUpdate) (*Customer, error) {
	var c Customer
	err := r.db.QueryRowxContext(ctx, `
		UPDATE customers
		SET full_name = COALESCE($2, full_name),
		    phone     = COALESCE($3, phone),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns+`
	`, id, u.FullName, u.Phone).StructScan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM customers WHERE created_at >= $1
	`, since)
	return count, err
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]*Customer, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM customers WHERE agent_id = $1
	`, agentID); err != nil {
		return nil, 0, err
	}

	var items []*Customer
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, agentID, limit, offset)
	return items, total, err
}
