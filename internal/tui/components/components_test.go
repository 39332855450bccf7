package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	assert.Nil(t, LayoutRow(100, 0))
	assert.Equal(t, []int{34, 33, 33}, LayoutRow(100, 3))

	sum := 0
	for _, w := range LayoutRow(121, 4) {
		sum += w
	}
	assert.Equal(t, 121, sum)
}

func TestCardRowHeightMatchesTallest(t *testing.T) {
	theme.SetActive("github-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	tallLines := len(strings.Split(tallCard, "\n"))
	require.Less(t, len(strings.Split(shortCard, "\n")), tallLines)

	joined := CardRow([]string{tallCard, shortCard})
	assert.Len(t, strings.Split(joined, "\n"), tallLines)
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("github-dark")

	row := MetricCardRow([]Metric{
		{Label: "Monthly Rate (USD)", Value: "$2280"},
		{Label: "Customer Revenue (NZD)", Value: "$4750", Color: theme.Active.Cost},
		{Label: "Profit Margin", Value: "$988", Note: "20.8%"},
	}, 90)

	for _, line := range strings.Split(row, "\n") {
		assert.Equal(t, 90, lipgloss.Width(line))
	}
	assert.Contains(t, row, "$4750")
	assert.Empty(t, MetricCardRow(nil, 90))
}

func TestColorForPct(t *testing.T) {
	theme.SetActive("github-dark")

	assert.Equal(t, theme.Active.Good, ColorForPct(80))
	assert.Equal(t, theme.Active.Warn, ColorForPct(80.1))
	assert.Equal(t, theme.Active.Good, ColorForPct(0))
}

func TestUsageBarShowsUncappedPercent(t *testing.T) {
	theme.SetActive("terminal")
	defer theme.SetActive("github-dark")

	out := UsageBar("Records", 125, "1,250 / 1,000", 8, 20)
	assert.Contains(t, out, "125.0%")
	assert.Contains(t, out, "1,250 / 1,000")
}

func TestTabIdxByKey(t *testing.T) {
	assert.Equal(t, 0, TabIdxByKey('a'))
	assert.Equal(t, 1, TabIdxByKey('y'))
	assert.Equal(t, 2, TabIdxByKey('s'))
	assert.Equal(t, -1, TabIdxByKey('z'))
}

func TestRenderTabBarWidth(t *testing.T) {
	theme.SetActive("github-dark")

	for active := range Tabs {
		bar := RenderTabBar(active, 80)
		assert.Equal(t, 80, lipgloss.Width(bar))
		assert.Contains(t, bar, Tabs[active].Name)
	}
}

func TestRenderStatusBar(t *testing.T) {
	theme.SetActive("github-dark")

	bar := RenderStatusBar(100, "Records: 1,234  Storage: 1.5GB  Cost: $500.00", "0.1s", false)
	assert.Equal(t, 100, lipgloss.Width(bar))
	assert.Contains(t, bar, "Cost: $500.00")

	narrow := RenderStatusBar(30, "Records: 1,234  Storage: 1.5GB", "", true)
	assert.Equal(t, 30, lipgloss.Width(narrow))
}
