// Package pricing implements the tiered reseller pricing model, per-customer
// overrides, and currency formatting.
package pricing

// Tier is a flat base price up to BaseLimit records, then StepPrice for
// every StepSize records (or part thereof) beyond it.
type Tier struct {
	BaseLimit  int64   `json:"baseLimit" toml:"base_limit" mapstructure:"base_limit"`
	BasePrice  float64 `json:"basePrice" toml:"base_price" mapstructure:"base_price"`
	StepSize   int64   `json:"stepSize" toml:"step_size" mapstructure:"step_size"`
	StepPrice  float64 `json:"stepPrice" toml:"step_price" mapstructure:"step_price"`
	ZeroIsFree bool    `json:"zeroIsFree" toml:"zero_is_free" mapstructure:"zero_is_free"`
}

// TierOverride replaces individual Tier fields. Nil fields inherit.
type TierOverride struct {
	BaseLimit  *int64   `json:"baseLimit,omitempty" toml:"base_limit,omitempty" mapstructure:"base_limit"`
	BasePrice  *float64 `json:"basePrice,omitempty" toml:"base_price,omitempty" mapstructure:"base_price"`
	StepSize   *int64   `json:"stepSize,omitempty" toml:"step_size,omitempty" mapstructure:"step_size"`
	StepPrice  *float64 `json:"stepPrice,omitempty" toml:"step_price,omitempty" mapstructure:"step_price"`
	ZeroIsFree *bool    `json:"zeroIsFree,omitempty" toml:"zero_is_free,omitempty" mapstructure:"zero_is_free"`
}

// IsZero reports whether the override changes nothing.
func (o TierOverride) IsZero() bool {
	return o.BaseLimit == nil && o.BasePrice == nil && o.StepSize == nil &&
		o.StepPrice == nil && o.ZeroIsFree == nil
}

// Merge returns t with every field set in o replacing the corresponding field.
func (t Tier) Merge(o TierOverride) Tier {
	if o.BaseLimit != nil {
		t.BaseLimit = *o.BaseLimit
	}
	if o.BasePrice != nil {
		t.BasePrice = *o.BasePrice
	}
	if o.StepSize != nil {
		t.StepSize = *o.StepSize
	}
	if o.StepPrice != nil {
		t.StepPrice = *o.StepPrice
	}
	if o.ZeroIsFree != nil {
		t.ZeroIsFree = *o.ZeroIsFree
	}
	return t
}

// TieredCost computes the untaxed cost of a record count under tier.
// Negative counts are clamped to zero. A StepSize below 1 is treated as 1.
func TieredCost(records int64, tier Tier) float64 {
	r := max(records, 0)
	if r == 0 && tier.ZeroIsFree {
		return 0
	}

	// The r > 0 guard also makes zero records cost nothing when ZeroIsFree
	// is false, as long as 0 <= BaseLimit.
	if r <= tier.BaseLimit {
		if r > 0 {
			return tier.BasePrice
		}
		return 0
	}

	step := max(tier.StepSize, 1)
	extra := r - tier.BaseLimit
	steps := (extra + step - 1) / step
	return tier.BasePrice + float64(steps)*tier.StepPrice
}
