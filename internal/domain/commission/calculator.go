package commission

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Agent tier rates. Unknown tiers fall back to basic.
var tierRates = map[string]decimal.Decimal{
	"basic":    decimal.NewFromFloat(0.02),  // 2%
	"silver":   decimal.NewFromFloat(0.025), // 2.5%
	"gold":     decimal.NewFromFloat(0.03),  // 3%
	"platinum": decimal.NewFromFloat(0.035), // 3.5%
}

// Calculate returns base * rate rounded half-up to 2 decimal places. Money
// never carries more precision than the smallest currency unit. Negative
// inputs fail ErrInvalidArgument.
func Calculate(base, rate decimal.Decimal) (decimal.Decimal, error) {
	if base.Sign() < 0 || rate.Sign() < 0 {
		return decimal.Zero, ErrInvalidArgument
	}
	return base.Mul(rate).Round(2), nil
}

// RateForLevel resolves the commission rate for an agent level from the
// tier table.
func RateForLevel(level string) decimal.Decimal {
	if rate, ok := tierRates[level]; ok {
		return rate
	}
	log.Warn().Str("level", level).Msg("unknown agent level, falling back to basic tier rate")
	return tierRates["basic"]
}

// ResolveRate picks the effective rate for an agent: a non-nil per-agent
// override wins, otherwise the level tier applies.
func ResolveRate(level string, override *decimal.Decimal) decimal.Decimal {
	if override != nil && override.Sign() >= 0 {
		return *override
	}
	return RateForLevel(level)
}
