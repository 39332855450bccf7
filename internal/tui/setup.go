package tui

import (
	"strconv"
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/rotisserie/eris"
)

// SettingsValues is the editable text form of every setting. huh inputs
// bind to strings, so numbers are parsed on Apply.
type SettingsValues struct {
	CurrencySymbol string
	Currency       string
	IncludeTax     bool
	TaxRate        string
	RoundTo        string

	BaseLimit  string
	BasePrice  string
	StepSize   string
	StepPrice  string
	ZeroIsFree bool

	MaxRecords      string
	MaxStorageGB    string
	MonthlyBaseCost string
	ExchangeRate    string

	Overrides string

	Theme       string
	AutoRefresh bool
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// ValuesFromConfig fills the form from cfg.
func ValuesFromConfig(cfg config.Config) *SettingsValues {
	overrides, err := cfg.OverridesJSON()
	if err != nil {
		overrides = "[]"
	}
	return &SettingsValues{
		CurrencySymbol:  cfg.Pricing.CurrencySymbol,
		Currency:        cfg.Pricing.Currency,
		IncludeTax:      cfg.Pricing.IncludeTax,
		TaxRate:         fmtFloat(cfg.Pricing.TaxRate),
		RoundTo:         strconv.Itoa(cfg.Pricing.RoundTo),
		BaseLimit:       strconv.FormatInt(cfg.Tier.BaseLimit, 10),
		BasePrice:       fmtFloat(cfg.Tier.BasePrice),
		StepSize:        strconv.FormatInt(cfg.Tier.StepSize, 10),
		StepPrice:       fmtFloat(cfg.Tier.StepPrice),
		ZeroIsFree:      cfg.Tier.ZeroIsFree,
		MaxRecords:      strconv.FormatInt(cfg.Limits.MaxRecords, 10),
		MaxStorageGB:    fmtFloat(cfg.Limits.MaxStorageGB),
		MonthlyBaseCost: fmtFloat(cfg.Limits.MonthlyBaseCost),
		ExchangeRate:    fmtFloat(cfg.Limits.ExchangeRate),
		Overrides:       overrides,
		Theme:           theme.ByName(cfg.TUI.Theme).Name,
		AutoRefresh:     cfg.TUI.AutoRefresh,
	}
}

// Apply returns cfg with the form values written into it. Any unparsable
// field or an invalid override list is an error and cfg is returned as is.
func (v *SettingsValues) Apply(cfg config.Config) (config.Config, error) {
	out := cfg
	var p fieldParser

	out.Pricing.CurrencySymbol = strings.TrimSpace(v.CurrencySymbol)
	out.Pricing.Currency = strings.ToUpper(strings.TrimSpace(v.Currency))
	out.Pricing.IncludeTax = v.IncludeTax
	out.Pricing.TaxRate = p.float("tax rate", v.TaxRate)
	out.Pricing.RoundTo = int(p.int("round to", v.RoundTo))

	out.Tier = pricing.Tier{
		BaseLimit:  p.int("base limit", v.BaseLimit),
		BasePrice:  p.float("base price", v.BasePrice),
		StepSize:   p.int("step size", v.StepSize),
		StepPrice:  p.float("step price", v.StepPrice),
		ZeroIsFree: v.ZeroIsFree,
	}

	out.Limits = pricing.CapacityLimits{
		MaxRecords:      p.int("max records", v.MaxRecords),
		MaxStorageGB:    p.float("max storage", v.MaxStorageGB),
		MonthlyBaseCost: p.float("monthly base cost", v.MonthlyBaseCost),
		ExchangeRate:    p.float("exchange rate", v.ExchangeRate),
	}

	out.TUI.Theme = v.Theme
	out.TUI.AutoRefresh = v.AutoRefresh

	if p.err != nil {
		return cfg, p.err
	}
	if err := out.SetOverridesJSON(v.Overrides); err != nil {
		return cfg, err
	}
	if _, err := out.Settings(); err != nil {
		return cfg, err
	}
	return out, nil
}

// fieldParser keeps the first parse error.
type fieldParser struct{ err error }

func (p *fieldParser) float(name, s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && p.err == nil {
		p.err = eris.Wrapf(err, "settings: %s", name)
	}
	return f
}

func (p *fieldParser) int(name, s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil && p.err == nil {
		p.err = eris.Wrapf(err, "settings: %s", name)
	}
	return n
}

func validFloat(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return eris.New("enter a number")
	}
	return nil
}

func validInt(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return eris.New("enter a whole number")
	}
	return nil
}

func validOverrides(s string) error {
	if _, err := pricing.ParseOverridesJSON([]byte(s)); err != nil {
		return eris.New("invalid JSON override list")
	}
	return nil
}

// NewSettingsForm builds the options form over v.
func NewSettingsForm(v *SettingsValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Pricing").
				Description("Currency, tax and rounding applied to every app."),
			huh.NewInput().Title("Currency symbol").Value(&v.CurrencySymbol),
			huh.NewInput().Title("Currency code").Description("e.g. NZD").Value(&v.Currency),
			huh.NewConfirm().Title("Include tax?").Value(&v.IncludeTax),
			huh.NewInput().Title("Tax rate").Description("Fraction, e.g. 0.15").
				Value(&v.TaxRate).Validate(validFloat),
			huh.NewInput().Title("Decimal places").Value(&v.RoundTo).Validate(validInt),
		),
		huh.NewGroup(
			huh.NewNote().
				Title("Default tier").
				Description("Base price covers up to the base limit; each extra step adds the step price."),
			huh.NewInput().Title("Base limit (records)").Value(&v.BaseLimit).Validate(validInt),
			huh.NewInput().Title("Base price").Value(&v.BasePrice).Validate(validFloat),
			huh.NewInput().Title("Step size (records)").Value(&v.StepSize).Validate(validInt),
			huh.NewInput().Title("Step price").Value(&v.StepPrice).Validate(validFloat),
			huh.NewConfirm().Title("Apps with 0 records are free?").Value(&v.ZeroIsFree),
		),
		huh.NewGroup(
			huh.NewNote().Title("Plan capacity"),
			huh.NewInput().Title("Max records").Value(&v.MaxRecords).Validate(validInt),
			huh.NewInput().Title("Max storage (GB)").Value(&v.MaxStorageGB).Validate(validFloat),
			huh.NewInput().Title("Monthly base cost (USD)").Value(&v.MonthlyBaseCost).Validate(validFloat),
			huh.NewInput().Title("USD exchange rate").Value(&v.ExchangeRate).Validate(validFloat),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Customer overrides").
				Description(`JSON list, e.g. [{"match": "/^acme/i", "tier": {"basePrice": 100}}]`).
				Lines(10).
				CharLimit(20000).
				Value(&v.Overrides).
				Validate(validOverrides),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
			huh.NewConfirm().Title("Auto-refresh the dashboard?").Value(&v.AutoRefresh),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}
