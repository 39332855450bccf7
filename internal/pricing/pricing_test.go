package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCost_Default(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 350.0, ComputeCost("Anyone", 75000, s))
	assert.Equal(t, 0.0, ComputeCost("Anyone", 0, s))
}

func TestComputeCost_Tax(t *testing.T) {
	s := DefaultSettings()
	untaxed := ComputeCost("Anyone", 75000, s)

	s.IncludeTax = true
	s.TaxRate = 0.15
	assert.Equal(t, untaxed*(1+0.15), ComputeCost("Anyone", 75000, s))
}

func TestComputeCost_TaxRateIgnoredWhenDisabled(t *testing.T) {
	s := DefaultSettings()
	s.TaxRate = 0.5
	assert.Equal(t, 250.0, ComputeCost("Anyone", 10, s))
}

func TestComputeCost_Override(t *testing.T) {
	price := 100.0
	step := int64(10000)
	s := DefaultSettings()
	s.Overrides = []OverrideRule{
		{Match: ParseMatch("/^beta/i"), Tier: TierOverride{BasePrice: &price, StepSize: &step}},
	}

	// 60000 records: 10000 over base at 10000 per step under the override.
	assert.Equal(t, 200.0, ComputeCost("Beta Industries", 60000, s))
	assert.Equal(t, 350.0, ComputeCost("Gamma", 60000, s))

	tier, overridden := EffectiveTier("beta", s)
	assert.True(t, overridden)
	assert.Equal(t, 100.0, tier.BasePrice)
	assert.Equal(t, int64(50000), tier.BaseLimit)
}

func TestFormatCurrency(t *testing.T) {
	taxed := 100.1
	taxed *= 1.15

	tests := []struct {
		value   float64
		symbol  string
		roundTo int
		want    string
	}{
		{287.5, "$", 2, "$287.50"},
		{0, "$", 2, "$0.00"},
		{350, "NZ$", 0, "NZ$350"},
		{1234.5678, "€", 3, "€1234.568"},
		{math.NaN(), "$", 2, "$0.00"},
		{math.Inf(1), "$", 1, "$0.0"},
		{12.3, "$", -1, "$12"},
		{1.005, "$", 2, "$1.00"},
		{2.675, "$", 2, "$2.67"},
		{1.045, "$", 2, "$1.04"},
		{taxed, "$", 2, "$115.11"},
		{0.125, "$", 2, "$0.13"},
		{2.5, "$", 0, "$3"},
		{287.5, "$", 0, "$288"},
		{1.0005, "$", 3, "$1.000"},
		{-1.005, "$", 2, "$-1.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrency(tt.value, tt.symbol, tt.roundTo))
	}
}

func TestFormatCurrency_TaxedCostMatchesDisplay(t *testing.T) {
	s := DefaultSettings()
	s.IncludeTax = true
	s.DefaultTier.BasePrice = 100.1

	cost := ComputeCost("Anyone", 10, s)
	assert.InDelta(t, 115.115, cost, 1e-9)
	assert.Equal(t, "$115.11", FormatCurrency(cost, s.CurrencySymbol, s.RoundTo))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "$", s.CurrencySymbol)
	assert.Equal(t, "NZD", s.Currency)
	assert.False(t, s.IncludeTax)
	assert.Equal(t, 0.15, s.TaxRate)
	assert.Equal(t, 2, s.RoundTo)
	assert.Equal(t, standardTier(), s.DefaultTier)
	assert.Empty(t, s.Overrides)
	assert.Equal(t, int64(2_500_000), s.Limits.MaxRecords)
	assert.Equal(t, 920.0, s.Limits.MaxStorageGB)
	assert.Equal(t, 2280.0, s.Limits.MonthlyBaseCost)
	assert.Equal(t, 1.65, s.Limits.ExchangeRate)
}
