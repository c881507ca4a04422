package bill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/billprovider"
)

// ProviderClient fetches bill data from the external provider
type ProviderClient interface {
	Fetch(ctx context.Context, customerCode string, providerID uuid.UUID) (*billprovider.BillFields, error)
}

// Service manages the bill inventory and the provider lookup chain
type Service struct {
	repo     Repository
	cache    *redis.Client
	provider ProviderClient
	cacheTTL time.Duration
	audit    audit.Recorder
}

// NewService creates the bill service. cache and provider may be nil, in
// which case lookups stop at the local inventory.
func NewService(repo Repository, cache *redis.Client, provider ProviderClient, cacheTTL time.Duration, recorder audit.Recorder) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		provider: provider,
		cacheTTL: cacheTTL,
		audit:    recorder,
	}
}

// Create adds a bill to the inventory by hand (back-office entry).
func (s *Service) Create(ctx context.Context, b *Bill, actorID uuid.UUID, actorRole string) (*Bill, error) {
	if b.PreviousAmount.Sign() < 0 || b.CurrentAmount.Sign() < 0 || b.TotalAmount.Sign() <= 0 {
		return nil, ErrInvalidBill
	}
	b.Status = StatusAvailable
	b.AddedByID = uuid.NullUUID{UUID: actorID, Valid: true}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     "bill.create",
		TargetType: "bill",
		TargetID:   b.ID.String(),
		NewValue:   audit.MarshalValue(b),
	})
	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

// Reserve holds an available bill for an agent ahead of payment.
func (s *Service) Reserve(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorRole string) (*Bill, error) {
	b, err := s.repo.Reserve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     "bill.reserve",
		TargetType: "bill",
		TargetID:   b.ID.String(),
		NewValue:   audit.MarshalValue(b),
	})
	return b, nil
}

// Expire retires available bills older than the cutoff.
func (s *Service) Expire(ctx context.Context, olderThan time.Duration) (int, error) {
	count, err := s.repo.ExpireBefore(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int("count", count).Msg("expired stale bills")
	}
	return count, nil
}

// Lookup finds bills for a customer: local inventory first, then the redis
// lookup cache, then the external provider. Provider hits are persisted as
// available inventory so the next lookup is local.
func (s *Service) Lookup(ctx context.Context, customerCode string, providerID uuid.UUID) ([]*Bill, error) {
	local, err := s.repo.FindAvailable(ctx, customerCode, providerID)
	if err != nil {
		return nil, err
	}
	if len(local) > 0 {
		return local, nil
	}

	if fields := s.cachedLookup(ctx, customerCode, providerID); fields != nil {
		return s.persistExternal(ctx, customerCode, providerID, fields)
	}

	if s.provider == nil {
		return nil, ErrNotFound
	}
	fields, err := s.provider.Fetch(ctx, customerCode, providerID)
	if err != nil {
		if errors.Is(err, billprovider.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cacheLookup(ctx, customerCode, providerID, fields)
	return s.persistExternal(ctx, customerCode, providerID, fields)
}

func (s *Service) persistExternal(ctx context.Context, customerCode string, providerID uuid.UUID, fields *billprovider.BillFields) ([]*Bill, error) {
	b := &Bill{
		CustomerCode:   customerCode,
		CustomerName:   fields.CustomerName,
		ProviderID:     providerID,
		Period:         fields.Period,
		PreviousAmount: fields.PreviousAmount,
		CurrentAmount:  fields.CurrentAmount,
		TotalAmount:    fields.TotalAmount,
		Status:         StatusAvailable,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return []*Bill{b}, nil
}

func lookupCacheKey(customerCode string, providerID uuid.UUID) string {
	return fmt.Sprintf("bill:lookup:%s:%s", providerID, customerCode)
}

func (s *Service) cachedLookup(ctx context.Context, customerCode string, providerID uuid.UUID) *billprovider.BillFields {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, lookupCacheKey(customerCode, providerID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("bill lookup cache read failed")
		}
		return nil
	}
	var fields billprovider.BillFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return &fields
}

func (s *Service) cacheLookup(ctx context.Context, customerCode string, providerID uuid.UUID, fields *billprovider.BillFields) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, lookupCacheKey(customerCode, providerID), raw, s.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("bill lookup cache write failed")
	}
}
