package bill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/pkg/billprovider"
)

type memRepo struct {
	bills []*Bill
}

func (m *memRepo) Create(_ context.Context, b *Bill) error {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bills = append(m.bills, b)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	for _, b := range m.bills {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetForUpdateTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID) (*Bill, error) {
	return m.GetByID(context.Background(), id)
}

func (m *memRepo) FindAvailable(_ context.Context, customerCode string, providerID uuid.UUID) ([]*Bill, error) {
	var out []*Bill
	for _, b := range m.bills {
		if b.CustomerCode == customerCode && b.ProviderID == providerID && b.Status == StatusAvailable {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memRepo) Reserve(_ context.Context, id uuid.UUID) (*Bill, error) {
	b, err := m.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusSold {
		return nil, ErrBillSold
	}
	if b.Status != StatusAvailable {
		return nil, ErrNotAvailable
	}
	b.Status = StatusReserved
	return b, nil
}

func (m *memRepo) MarkSoldTx(_ context.Context, _ *sqlx.Tx, id, exportedToID uuid.UUID) error {
	b, err := m.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	if b.Status == StatusSold {
		return ErrBillSold
	}
	b.Status = StatusSold
	b.ExportedToID = uuid.NullUUID{UUID: exportedToID, Valid: true}
	return nil
}

func (m *memRepo) ExpireBefore(_ context.Context, cutoff time.Time) (int, error) {
	n := 0
	for _, b := range m.bills {
		if b.Status == StatusAvailable && b.CreatedAt.Before(cutoff) {
			b.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memRepo) List(_ context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	return m.bills, len(m.bills), nil
}

type fakeProvider struct {
	fields *billprovider.BillFields
	err    error
	calls  int
}

func (f *fakeProvider) Fetch(_ context.Context, _ string, _ uuid.UUID) (*billprovider.BillFields, error) {
	f.calls++
	return f.fields, f.err
}

type nopRecorder struct{}

func (nopRecorder) Record(_ context.Context, _ audit.Entry) {}

func (nopRecorder) RecordTx(_ context.Context, _ *sqlx.Tx, _ audit.Entry) error { return nil }

func TestLookupLocalHit(t *testing.T) {
	repo := &memRepo{}
	providerID := uuid.New()
	repo.bills = append(repo.bills, &Bill{
		ID:           uuid.New(),
		CustomerCode: "PE010203",
		ProviderID:   providerID,
		Status:       StatusAvailable,
		TotalAmount:  decimal.NewFromInt(100),
	})

	provider := &fakeProvider{}
	svc := NewService(repo, nil, provider, time.Minute, nopRecorder{})

	bills, err := svc.Lookup(context.Background(), "PE010203", providerID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("bills = %d, want 1", len(bills))
	}
	if provider.calls != 0 {
		t.Errorf("local hit should not reach the provider, calls = %d", provider.calls)
	}
}

func TestLookupExternalPersists(t *testing.T) {
	repo := &memRepo{}
	providerID := uuid.New()
	provider := &fakeProvider{fields: &billprovider.BillFields{
		CustomerCode:  "PE999999",
		CustomerName:  "Nguyen Van A",
		Period:        "01/2025",
		CurrentAmount: decimal.NewFromInt(150),
		TotalAmount:   decimal.NewFromInt(150),
	}}
	svc := NewService(repo, nil, provider, time.Minute, nopRecorder{})

	bills, err := svc.Lookup(context.Background(), "PE999999", providerID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(bills) != 1 || bills[0].Status != StatusAvailable {
		t.Fatalf("external result not persisted as available: %+v", bills)
	}

	// The persisted bill now serves lookups locally
	again, err := svc.Lookup(context.Background(), "PE999999", providerID)
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("second lookup bills = %d, want 1", len(again))
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestLookupProviderMiss(t *testing.T) {
	repo := &memRepo{}
	provider := &fakeProvider{err: billprovider.ErrNotFound}
	svc := NewService(repo, nil, provider, time.Minute, nopRecorder{})

	if _, err := svc.Lookup(context.Background(), "NOPE", uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLookupWithoutProvider(t *testing.T) {
	svc := NewService(&memRepo{}, nil, nil, time.Minute, nopRecorder{})

	if _, err := svc.Lookup(context.Background(), "PE010203", uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCreateValidatesAmounts(t *testing.T) {
	svc := NewService(&memRepo{}, nil, nil, time.Minute, nopRecorder{})

	_, err := svc.Create(context.Background(), &Bill{
		CustomerCode: "PE010203",
		ProviderID:   uuid.New(),
		TotalAmount:  decimal.Zero,
	}, uuid.New(), "staff")
	if !errors.Is(err, ErrInvalidBill) {
		t.Fatalf("got %v, want ErrInvalidBill", err)
	}
}
