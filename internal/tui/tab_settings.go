package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/components"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	goodStyle := lipgloss.NewStyle().Foreground(t.Good)
	warnStyle := lipgloss.NewStyle().Foreground(t.Warn)

	s, err := a.cfg.Settings()
	if err != nil {
		s = pricing.DefaultSettings()
	}

	tax := "off"
	if s.IncludeTax {
		tax = fmt.Sprintf("%g%%", s.TaxRate*100)
	}
	zero := "charged base price"
	if s.DefaultTier.ZeroIsFree {
		zero = "free"
	}

	fields := [][2]string{
		{"Currency", fmt.Sprintf("%s (%s)", s.CurrencySymbol, s.Currency)},
		{"Tax", tax},
		{"Decimal places", strconv.Itoa(s.RoundTo)},
		{"Base tier", fmt.Sprintf("%s up to %s records",
			pricing.FormatCurrency(s.DefaultTier.BasePrice, s.CurrencySymbol, s.RoundTo), cli.FormatNumber(s.DefaultTier.BaseLimit))},
		{"Each extra step", fmt.Sprintf("%s per %s records",
			pricing.FormatCurrency(s.DefaultTier.StepPrice, s.CurrencySymbol, s.RoundTo), cli.FormatNumber(s.DefaultTier.StepSize))},
		{"Empty apps", zero},
		{"Plan capacity", fmt.Sprintf("%s records, %s",
			cli.FormatNumber(s.Limits.MaxRecords), cli.FormatStorage(s.Limits.MaxStorageGB))},
		{"Monthly base", fmt.Sprintf("$%g USD × %g", s.Limits.MonthlyBaseCost, s.Limits.ExchangeRate)},
		{"Theme", theme.Active.Name},
		{"Auto refresh", strconv.FormatBool(a.autoRefresh)},
	}

	var body strings.Builder
	for _, f := range fields {
		body.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f[0]+":")))
		body.WriteString(valueStyle.Render(f[1]))
		body.WriteString("\n")
	}

	switch {
	case a.formErr != nil:
		body.WriteString("\n")
		body.WriteString(warnStyle.Render(fmt.Sprintf("Not saved: %s", a.formErr)))
		body.WriteString("\n")
	case a.formSaved:
		body.WriteString("\n")
		body.WriteString(goodStyle.Render("Saved."))
		body.WriteString("\n")
	case a.cfgErr != nil:
		body.WriteString("\n")
		body.WriteString(warnStyle.Render(fmt.Sprintf("Config unreadable, using defaults: %s", a.cfgErr)))
		body.WriteString("\n")
	}
	body.WriteString("\n")
	body.WriteString(labelStyle.Render("[e] edit settings"))

	var rules strings.Builder
	if len(s.Overrides) == 0 {
		rules.WriteString(labelStyle.Render("No customer overrides."))
	}
	for i, r := range s.Overrides {
		if r.Match == nil {
			continue
		}
		if i > 0 {
			rules.WriteString("\n")
		}
		rules.WriteString(valueStyle.Render(truncStr(r.Match.String(), 40)))
		rules.WriteString(labelStyle.Render("  " + describeOverride(r.Tier, s)))
	}

	path := a.opts.ConfigPath
	if path == "" {
		path = config.Path()
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", body.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Customer Overrides", rules.String(), cw))
	b.WriteString("\n ")
	b.WriteString(labelStyle.Render("Config file: " + path))
	return b.String()
}

// describeOverride lists only the fields a rule replaces.
func describeOverride(o pricing.TierOverride, s pricing.Settings) string {
	var parts []string
	if o.BaseLimit != nil {
		parts = append(parts, "limit "+cli.FormatNumber(*o.BaseLimit))
	}
	if o.BasePrice != nil {
		parts = append(parts, "base "+pricing.FormatCurrency(*o.BasePrice, s.CurrencySymbol, s.RoundTo))
	}
	if o.StepSize != nil {
		parts = append(parts, "step "+cli.FormatNumber(*o.StepSize))
	}
	if o.StepPrice != nil {
		parts = append(parts, "step price "+pricing.FormatCurrency(*o.StepPrice, s.CurrencySymbol, s.RoundTo))
	}
	if o.ZeroIsFree != nil {
		parts = append(parts, "zero free "+strconv.FormatBool(*o.ZeroIsFree))
	}
	if len(parts) == 0 {
		return "(default tier)"
	}
	return strings.Join(parts, ", ")
}
