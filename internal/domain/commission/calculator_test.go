package commission

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		base string
		rate string
		want string
	}{
		{"basic rate on round amount", "100000", "0.02", "2000"},
		{"zero base", "0", "0.05", "0"},
		{"zero rate", "100000", "0", "0"},
		{"rounds half up", "333.33", "0.025", "8.33"},
		{"half cent rounds up", "100.10", "0.025", "2.5"},
		{"platinum rate", "100000", "0.035", "3500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := decimal.RequireFromString(tt.base)
			rate := decimal.RequireFromString(tt.rate)
			got, err := Calculate(base, rate)
			if err != nil {
				t.Fatalf("Calculate(%s, %s) returned error: %v", tt.base, tt.rate, err)
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Calculate(%s, %s) = %s, want %s", tt.base, tt.rate, got, want)
			}
		})
	}
}

func TestCalculateRejectsNegative(t *testing.T) {
	if _, err := Calculate(decimal.NewFromInt(-1), decimal.NewFromFloat(0.02)); err != ErrInvalidArgument {
		t.Errorf("negative base: got %v, want ErrInvalidArgument", err)
	}
	if _, err := Calculate(decimal.NewFromInt(100), decimal.NewFromFloat(-0.02)); err != ErrInvalidArgument {
		t.Errorf("negative rate: got %v, want ErrInvalidArgument", err)
	}
}

func TestRateForLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"basic", "0.02"},
		{"silver", "0.025"},
		{"gold", "0.03"},
		{"platinum", "0.035"},
		{"diamond", "0.02"},
		{"", "0.02"},
	}

	for _, tt := range tests {
		got := RateForLevel(tt.level)
		want := decimal.RequireFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("RateForLevel(%q) = %s, want %s", tt.level, got, want)
		}
	}
}

func TestResolveRate(t *testing.T) {
	override := decimal.NewFromFloat(0.05)

	if got := ResolveRate("gold", &override); !got.Equal(override) {
		t.Errorf("override should win over tier: got %s", got)
	}
	if got := ResolveRate("gold", nil); !got.Equal(decimal.NewFromFloat(0.03)) {
		t.Errorf("nil override should fall back to tier: got %s", got)
	}

	negative := decimal.NewFromFloat(-0.01)
	if got := ResolveRate("silver", &negative); !got.Equal(decimal.NewFromFloat(0.025)) {
		t.Errorf("negative override should be ignored: got %s", got)
	}
}
