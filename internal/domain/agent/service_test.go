package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/coolnight20187/python-7ty-system/internal/domain/approval"
	"github.com/coolnight20187/python-7ty-system/internal/domain/audit"
	"github.com/coolnight20187/python-7ty-system/internal/domain/ledger"
)

type fakeRepo struct {
	createErrs []error // consumed one per Create call, nil means success
	codes      []string
	created    *Agent
}

func (f *fakeRepo) Create(_ context.Context, a *Agent) error {
	f.codes = append(f.codes, a.Code)
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	a.ID = uuid.New()
	f.created = a
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, _ uuid.UUID) (*Agent, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) GetByUserID(_ context.Context, _ uuid.UUID) (*Agent, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) Activate(_ context.Context, _ uuid.UUID) (*Agent, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) ApplyUpdate(_ context.Context, _ uuid.UUID, _ *ProfileUpdate) (*Agent, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) CountCreatedSince(_ context.Context, _ time.Time) (int, error) {
	return 4, nil
}

type fakeLedger struct {
	accounts []uuid.UUID
}

func (f *fakeLedger) EnsureAccount(_ context.Context, ownerID uuid.UUID, _ ledger.OwnerType) error {
	f.accounts = append(f.accounts, ownerID)
	return nil
}

func (f *fakeLedger) GetBalance(_ context.Context, _ uuid.UUID) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) GetBalanceForUpdateTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) CreditTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _ decimal.Decimal) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) DebitTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _ decimal.Decimal) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) FreezeTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _ decimal.Decimal) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) UnfreezeTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _ decimal.Decimal) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

func (f *fakeLedger) SpendFrozenTx(_ context.Context, _ *sqlx.Tx, _ uuid.UUID, _ decimal.Decimal) (*ledger.Balance, error) {
	return nil, ledger.ErrAccountNotFound
}

type nopRecorder struct{}

func (nopRecorder) Record(_ context.Context, _ audit.Entry) {}

func (nopRecorder) RecordTx(_ context.Context, _ *sqlx.Tx, _ audit.Entry) error { return nil }

func TestRegisterRetriesCodeCollision(t *testing.T) {
	repo := &fakeRepo{createErrs: []error{ErrCodeConflict, ErrCodeConflict, nil}}
	ledgerRepo := &fakeLedger{}
	submitted := 0
	sub := SubmitterFunc(func(_ context.Context, in approval.SubmitInput) (*approval.Approval, error) {
		submitted++
		return &approval.Approval{ID: uuid.New(), Type: in.Type}, nil
	})
	svc := NewService(repo, ledgerRepo, nil, sub, nopRecorder{})

	userID := uuid.New()
	a, ap, err := svc.Register(context.Background(), RegisterInput{UserID: userID, Name: "Tran Thi B"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(repo.codes) != 3 {
		t.Fatalf("create attempts = %d, want 3", len(repo.codes))
	}
	if repo.codes[0] == repo.codes[1] || repo.codes[1] == repo.codes[2] {
		t.Errorf("retries must advance the code sequence: %v", repo.codes)
	}
	if a.Code != repo.codes[2] {
		t.Errorf("agent code = %s, want the last attempted %s", a.Code, repo.codes[2])
	}
	if ap == nil || submitted != 1 {
		t.Errorf("approval submissions = %d, want 1", submitted)
	}
	if len(ledgerRepo.accounts) != 1 || ledgerRepo.accounts[0] != userID {
		t.Errorf("accounts = %v, want exactly [%s]", ledgerRepo.accounts, userID)
	}
}

func TestRegisterDuplicateUserDoesNotRetry(t *testing.T) {
	repo := &fakeRepo{createErrs: []error{ErrAlreadyRegistered}}
	sub := SubmitterFunc(func(_ context.Context, _ approval.SubmitInput) (*approval.Approval, error) {
		t.Fatal("no approval should be submitted for a failed registration")
		return nil, nil
	})
	svc := NewService(repo, &fakeLedger{}, nil, sub, nopRecorder{})

	_, _, err := svc.Register(context.Background(), RegisterInput{UserID: uuid.New(), Name: "Tran Thi B"})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("got %v, want ErrAlreadyRegistered", err)
	}
	if len(repo.codes) != 1 {
		t.Errorf("create attempts = %d, want 1", len(repo.codes))
	}
}
