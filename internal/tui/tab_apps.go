package tui

import (
	"fmt"
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/components"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	colRecordsW = 12
	colStorageW = 10
	colTasksW   = 10
	colCostW    = 12
	colNameMinW = 16

	// two padding columns per cell, five cells
	appsCellPadding = 10
)

func newAppsTable() table.Model {
	t := table.New(
		table.WithColumns(appsColumns(maxContentWidth)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(appsTableStyles())
	return t
}

func appsColumns(width int) []table.Column {
	nameW := width - colRecordsW - colStorageW - colTasksW - colCostW - appsCellPadding - 4
	if nameW < colNameMinW {
		nameW = colNameMinW
	}
	return []table.Column{
		{Title: "Name", Width: nameW},
		{Title: "Records", Width: colRecordsW},
		{Title: "Storage", Width: colStorageW},
		{Title: "Tasks", Width: colTasksW},
		{Title: "Cost", Width: colCostW},
	}
}

func appsTableStyles() table.Styles {
	t := theme.Active
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.TextMuted).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true)
	return s
}

// appRows renders costed rows as table rows; cells show the scraped text
// as-is plus the rendered cost.
func appRows(rows []model.CostedRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{r.Name, r.RecordText, r.StorageText, r.TasksText, r.CostText}
	}
	return out
}

// layoutAppsTable sizes the table to the current window.
func (a *App) layoutAppsTable() {
	cw := a.contentWidth()
	a.apps.SetColumns(appsColumns(cw))
	a.apps.SetWidth(cw - 2)
	// tab bar, header line, status bar, footer
	a.apps.SetHeight(max(a.height-6, minContentHeight))
}

func (a App) renderAppsTab(cw int) string {
	t := theme.Active

	if msg := a.emptyNotice(); msg != "" {
		return components.ContentCard("Apps", msg, cw)
	}

	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	cost := lipgloss.NewStyle().Foreground(t.Cost).Bold(true)

	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(a.apps.View())
	b.WriteString("\n ")

	n := len(a.sorted)
	footer := fmt.Sprintf("%d apps", n)
	if n == 1 {
		footer = "1 app"
	}
	b.WriteString(muted.Render(footer))
	if n > 0 {
		sel := a.sorted[min(a.apps.Cursor(), n-1)]
		b.WriteString(muted.Render("  │  "))
		b.WriteString(muted.Render(truncStr(sel.Name, 40) + " "))
		b.WriteString(cost.Render(sel.CostText))
	}
	return b.String()
}

// emptyNotice explains why there is nothing to show, or returns "".
func (a App) emptyNotice() string {
	t := theme.Active
	warn := lipgloss.NewStyle().Foreground(t.Warn)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	switch {
	case a.loadErr != nil && len(a.sorted) == 0:
		return warn.Render(a.loadErr.Error()) + "\n\n" + muted.Render("Press r to retry.")
	case len(a.sorted) == 0:
		return muted.Render("No Knack apps in the source.")
	}
	return ""
}
