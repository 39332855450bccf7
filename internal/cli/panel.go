package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// RenderUsageBar draws pct as a bar of the given width. The bar is full at
// 100% and turns red above the warning threshold.
func RenderUsageBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(min(max(pct, 0), 100) / 100 * float64(width))
	style := goodStyle
	if pct > analytics.WarnThreshold {
		style = warnStyle
	}
	return style.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

func usageStyle(pct float64) lipgloss.Style {
	if pct > analytics.WarnThreshold {
		return warnStyle
	}
	return goodStyle
}

// RenderAnalytics renders the usage and financial summary panel.
func RenderAnalytics(sum analytics.Summary, s pricing.Settings) string {
	var b strings.Builder
	const barWidth = 30

	b.WriteString(RenderTitle("Knack Usage Analytics"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s %s\n", headerStyle.Render(fmt.Sprintf("%-8s", "Records")),
		usageStyle(sum.RecordsUsedPct).Render(FormatPercent(sum.RecordsUsedPct)))
	fmt.Fprintf(&b, "  %s\n", RenderUsageBar(sum.RecordsUsedPct, barWidth))
	fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%s / %s  (%s remaining)",
		FormatNumber(sum.TotalRecords), FormatNumber(s.Limits.MaxRecords), FormatNumber(sum.RecordsRemaining))))
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %s %s\n", headerStyle.Render(fmt.Sprintf("%-8s", "Storage")),
		usageStyle(sum.StorageUsedPct).Render(FormatPercent(sum.StorageUsedPct)))
	fmt.Fprintf(&b, "  %s\n", RenderUsageBar(sum.StorageUsedPct, barWidth))
	fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%s / %s  (%s remaining)",
		FormatStorage(sum.TotalStorageGB), FormatStorage(s.Limits.MaxStorageGB), FormatStorage(sum.StorageRemaining))))
	b.WriteString("\n")

	margin := warnStyle
	if sum.Profitable() {
		margin = goodStyle
	}

	rows := [][]string{
		{"Monthly Rate (USD)", costStyle.Render(fmt.Sprintf("$%g", sum.MonthlyBaseCost))},
		{fmt.Sprintf("Customer Revenue (%s)", s.Currency), valueStyle.Render(FormatWhole(s.CurrencySymbol, sum.TotalCost))},
		{fmt.Sprintf("Profit Margin (%s)", FormatPercent(sum.MarginPct)), margin.Render(FormatWhole(s.CurrencySymbol, sum.Margin))},
	}
	b.WriteString(RenderTable(Table{Title: "Financial Summary", Rows: rows}))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(ConversionLine(sum, s)))
	b.WriteString("\n")
	return b.String()
}

// ConversionLine explains how the base cost was converted, e.g.
// "Monthly Cost: $2280 USD × 1.65 = $3762 NZD".
func ConversionLine(sum analytics.Summary, s pricing.Settings) string {
	return fmt.Sprintf("Monthly Cost: $%g USD × %g = %s %s",
		sum.MonthlyBaseCost, sum.ExchangeRate, FormatWhole(s.CurrencySymbol, sum.MonthlyCostConverted), s.Currency)
}
