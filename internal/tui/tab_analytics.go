package tui

import (
	"fmt"
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/components"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderAnalyticsTab(cw int) string {
	t := theme.Active
	sum := a.summary
	s := a.pass.Settings

	if a.loadErr != nil && len(a.sorted) == 0 {
		return components.ContentCard("Usage", a.emptyNotice(), cw)
	}

	const labelW = 8
	barW := min(max(components.CardInnerWidth(cw)-labelW-40, 10), 50)

	var usage strings.Builder
	usage.WriteString(components.UsageBar("Records", sum.RecordsUsedPct,
		fmt.Sprintf("%s / %s  (%s left)",
			cli.FormatNumber(sum.TotalRecords), cli.FormatNumber(s.Limits.MaxRecords), cli.FormatNumber(sum.RecordsRemaining)),
		labelW, barW))
	usage.WriteString("\n")
	usage.WriteString(components.UsageBar("Storage", sum.StorageUsedPct,
		fmt.Sprintf("%s / %s  (%s left)",
			cli.FormatStorage(sum.TotalStorageGB), cli.FormatStorage(s.Limits.MaxStorageGB), cli.FormatStorage(sum.StorageRemaining)),
		labelW, barW))

	marginColor := t.Warn
	if sum.Profitable() {
		marginColor = t.Good
	}
	cards := components.MetricCardRow([]components.Metric{
		{Label: "Monthly Rate (USD)", Value: fmt.Sprintf("$%g", sum.MonthlyBaseCost)},
		{Label: fmt.Sprintf("Customer Revenue (%s)", s.Currency), Value: cli.FormatWhole(s.CurrencySymbol, sum.TotalCost), Color: t.Cost},
		{Label: "Profit Margin", Value: cli.FormatWhole(s.CurrencySymbol, sum.Margin), Note: cli.FormatPercent(sum.MarginPct), Color: marginColor},
	}, cw)

	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(components.ContentCard("Usage", usage.String(), cw))
	b.WriteString("\n")
	b.WriteString(cards)
	b.WriteString("\n ")
	b.WriteString(muted.Render(cli.ConversionLine(sum, s)))
	return b.String()
}
