package transaction

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateCode(t *testing.T) {
	actorID := uuid.MustParse("7f9c24e8-3b12-4a6f-9d58-1c2b3a4d5e6f")
	at := time.Date(2025, 1, 14, 9, 30, 55, 0, time.UTC)

	got := GenerateCode(TypeWithdrawal, actorID, at)
	want := fmt.Sprintf("WITHDRAWAL_20250114093055_%s", actorID)
	if got != want {
		t.Errorf("GenerateCode = %q, want %q", got, want)
	}

	if got := GenerateCode(TypePayment, actorID, at); got == GenerateCode(TypeDeposit, actorID, at) {
		t.Error("codes for different types should differ")
	}
}

func TestStatusGuards(t *testing.T) {
	tests := []struct {
		status     Status
		canConfirm bool
		canCancel  bool
		terminal   bool
	}{
		{StatusPending, true, true, false},
		{StatusProcessing, true, true, false},
		{StatusCompleted, false, false, true},
		{StatusFailed, false, false, true},
		{StatusCancelled, false, false, true},
	}

	for _, tt := range tests {
		if got := CanConfirm(tt.status); got != tt.canConfirm {
			t.Errorf("CanConfirm(%s) = %v, want %v", tt.status, got, tt.canConfirm)
		}
		if got := CanCancel(tt.status); got != tt.canCancel {
			t.Errorf("CanCancel(%s) = %v, want %v", tt.status, got, tt.canCancel)
		}
		if got := IsTerminal(tt.status); got != tt.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestValidType(t *testing.T) {
	for _, valid := range []Type{TypeDeposit, TypeWithdrawal, TypePayment, TypeCommission, TypeRefund, TypeTransfer} {
		if !ValidType(valid) {
			t.Errorf("ValidType(%s) = false, want true", valid)
		}
	}
	if ValidType(Type("chargeback")) {
		t.Error("ValidType(chargeback) = true, want false")
	}
	if ValidType(Type("")) {
		t.Error("ValidType(empty) = true, want false")
	}
}
