package components

import (
	"strings"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar: key hints on the left and
// the toolbar totals (or a refresh notice) on the right.
func RenderStatusBar(width int, totals, dataAge string, refreshing bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	accent := lipgloss.NewStyle().
		Foreground(t.Cost).
		Background(t.Surface).
		Bold(true)

	left := style.Render(" [?]help  [r]efresh  [q]uit")

	right := accent.Render(totals)
	switch {
	case refreshing:
		right = style.Render("refreshing… ") + right
	case dataAge != "":
		right = style.Render(dataAge+"  ") + right
	}
	right += style.Render(" ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		// Too narrow for both; totals win.
		r := []rune(totals)
		if len(r) > width {
			r = r[:width]
		}
		return style.Width(width).Render(string(r))
	}
	return left + style.Render(strings.Repeat(" ", padding)) + right
}
