package pricing

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// CapacityLimits describes the reseller's own plan: record/storage ceilings
// and the recurring base cost (in USD) with its conversion rate.
type CapacityLimits struct {
	MaxRecords      int64   `json:"maxRecords" toml:"max_records" mapstructure:"max_records"`
	MaxStorageGB    float64 `json:"maxStorageGB" toml:"max_storage_gb" mapstructure:"max_storage_gb"`
	MonthlyBaseCost float64 `json:"monthlyBaseCost" toml:"monthly_base_cost" mapstructure:"monthly_base_cost"`
	ExchangeRate    float64 `json:"exchangeRate" toml:"exchange_rate" mapstructure:"exchange_rate"`
}

// Settings holds everything a processing pass needs to price rows.
type Settings struct {
	CurrencySymbol string         `json:"currencySymbol"`
	Currency       string         `json:"currency"`
	IncludeTax     bool           `json:"includeTax"`
	TaxRate        float64        `json:"taxRate"`
	RoundTo        int            `json:"roundTo"`
	DefaultTier    Tier           `json:"tier"`
	Overrides      []OverrideRule `json:"customerOverrides"`
	Limits         CapacityLimits `json:"limits"`
}

// DefaultSettings returns the documented defaults used when a field is unset.
func DefaultSettings() Settings {
	return Settings{
		CurrencySymbol: "$",
		Currency:       "NZD",
		IncludeTax:     false,
		TaxRate:        0.15,
		RoundTo:        2,
		DefaultTier: Tier{
			BaseLimit:  50_000,
			BasePrice:  250,
			StepSize:   25_000,
			StepPrice:  100,
			ZeroIsFree: true,
		},
		Overrides: []OverrideRule{},
		Limits: CapacityLimits{
			MaxRecords:      2_500_000,
			MaxStorageGB:    920,
			MonthlyBaseCost: 2280,
			ExchangeRate:    1.65,
		},
	}
}

// EffectiveTier returns the default tier with the first matching override
// merged on top, and whether an override applied.
func EffectiveTier(name string, s Settings) (Tier, bool) {
	rule, ok := MatchOverride(name, s.Overrides)
	if !ok {
		return s.DefaultTier, false
	}
	return s.DefaultTier.Merge(rule.Tier), true
}

// ComputeCost prices one customer. Tax is applied when enabled. The result
// is not rounded; rounding belongs to FormatCurrency.
func ComputeCost(name string, records int64, s Settings) float64 {
	tier, _ := EffectiveTier(name, s)
	cost := TieredCost(records, tier)
	if s.IncludeTax {
		cost *= 1 + s.TaxRate
	}
	return cost
}

// FormatCurrency renders value with exactly roundTo decimals after symbol.
// NaN and infinities render as zero.
func FormatCurrency(value float64, symbol string, roundTo int) string {
	return symbol + ToFixed(value, roundTo)
}

// ToFixed renders value with exactly digits decimals the way a browser's
// Number.toFixed does: the exact binary value of the float is rounded, with
// ties going away from zero. 1.005 is stored as 1.00499999... and renders
// as "1.00". NaN and infinities render as zero.
func ToFixed(value float64, digits int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	if digits < 0 {
		digits = 0
	}
	return exactDecimal(value).StringFixed(int32(digits))
}

// exactDecimal converts v without the shortest-representation step of
// decimal.NewFromFloat: v = mant * 2^exp = mant * 5^-exp * 10^exp.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := int64(frac * (1 << 53))
	exp -= 53

	if exp >= 0 {
		return decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(mant), uint(exp)), 0)
	}
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(five.Mul(five, big.NewInt(mant)), int32(exp))
}
