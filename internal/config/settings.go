package config

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// ErrInvalidOverrides is returned when an override list cannot be decoded.
// Nothing is persisted when it is returned.
var ErrInvalidOverrides = eris.New("config: invalid customer overrides")

const maxRoundTo = 10

// Settings converts the file configuration into pricing settings, falling
// back to defaults for unset or out-of-range values.
func (c Config) Settings() (pricing.Settings, error) {
	d := pricing.DefaultSettings()
	s := pricing.Settings{
		CurrencySymbol: c.Pricing.CurrencySymbol,
		Currency:       c.Pricing.Currency,
		IncludeTax:     c.Pricing.IncludeTax,
		TaxRate:        min(max(c.Pricing.TaxRate, 0), 1),
		RoundTo:        min(max(c.Pricing.RoundTo, 0), maxRoundTo),
		DefaultTier:    c.Tier,
		Limits:         c.Limits,
	}

	if s.CurrencySymbol == "" {
		s.CurrencySymbol = d.CurrencySymbol
	}
	if strings.TrimSpace(s.Currency) == "" {
		s.Currency = d.Currency
	}

	if s.DefaultTier.StepSize < 1 {
		s.DefaultTier.StepSize = 1
	}
	if s.DefaultTier.BaseLimit < 0 {
		s.DefaultTier.BaseLimit = 0
	}

	if s.Limits.MaxRecords <= 0 {
		s.Limits.MaxRecords = d.Limits.MaxRecords
	}
	if s.Limits.MaxStorageGB <= 0 {
		s.Limits.MaxStorageGB = d.Limits.MaxStorageGB
	}
	if s.Limits.MonthlyBaseCost < 0 {
		s.Limits.MonthlyBaseCost = d.Limits.MonthlyBaseCost
	}
	if s.Limits.ExchangeRate <= 0 {
		s.Limits.ExchangeRate = d.Limits.ExchangeRate
	}

	rules, err := c.rules()
	if err != nil {
		return d, err
	}
	s.Overrides = rules
	return s, nil
}

func (c Config) rules() ([]pricing.OverrideRule, error) {
	rules := make([]pricing.OverrideRule, 0, len(c.Overrides))
	for i, o := range c.Overrides {
		var m pricing.Matcher
		switch {
		case o.Pattern != "":
			m = pricing.PatternMatch{Source: o.Pattern, Flags: o.Flags}
		case o.Match == "":
			return nil, eris.Wrapf(ErrInvalidOverrides, "override %d has no match", i+1)
		case o.Literal:
			m = pricing.LiteralMatch{Name: o.Match}
		default:
			m = pricing.ParseMatch(o.Match)
		}
		rules = append(rules, pricing.OverrideRule{Match: m, Tier: o.Tier})
	}
	return rules, nil
}

// SetOverrides replaces the override list with rules.
func (c *Config) SetOverrides(rules []pricing.OverrideRule) {
	out := make([]OverrideConfig, 0, len(rules))
	for _, r := range rules {
		var o OverrideConfig
		switch m := r.Match.(type) {
		case pricing.PatternMatch:
			o.Match = m.String()
		case pricing.LiteralMatch:
			o.Match = m.Name
			_, o.Literal = pricing.ParseMatch(m.Name).(pricing.PatternMatch)
		default:
			continue
		}
		o.Tier = r.Tier
		out = append(out, o)
	}
	c.Overrides = out
}

// SetOverridesJSON decodes the options-page JSON override list and stores
// it. On failure the config is left unchanged and ErrInvalidOverrides is
// returned.
func (c *Config) SetOverridesJSON(text string) error {
	rules, err := pricing.ParseOverridesJSON([]byte(text))
	if err != nil {
		return eris.Wrap(ErrInvalidOverrides, err.Error())
	}
	c.SetOverrides(rules)
	return nil
}

// OverridesJSON renders the override list as options-page JSON.
func (c Config) OverridesJSON() (string, error) {
	rules, err := c.rules()
	if err != nil {
		return "", err
	}
	return pricing.FormatOverridesJSON(rules)
}

// FileSettings loads settings from a config file on every call, so each
// processing pass sees the file as it is at that moment.
type FileSettings struct {
	Path string
}

// Settings loads and normalizes the configuration at f.Path.
func (f FileSettings) Settings(ctx context.Context) (pricing.Settings, error) {
	if err := ctx.Err(); err != nil {
		return pricing.Settings{}, err
	}
	cfg, err := Load(f.Path)
	if err != nil {
		return pricing.DefaultSettings(), err
	}
	return cfg.Settings()
}
