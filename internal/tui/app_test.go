package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/source"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/components"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testApp(t *testing.T) App {
	t.Helper()
	return NewApp(Options{
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		SourceName: "apps.html",
	})
}

func testPass() pipeline.Pass {
	s := pricing.DefaultSettings()
	rows := []model.Row{
		{Name: "Small", RecordText: "10"},
		{Name: "Large", RecordText: "90,000", StorageText: "2GB"},
		{Name: "Medium", RecordText: "5,000"},
	}
	return pipeline.Pass{Settings: s, Result: pipeline.Aggregate(rows, s)}
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	require.True(t, ok)
	return next
}

func loaded(t *testing.T) App {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(t, a, DataLoadedMsg{Pass: testPass()})
}

func names(rows []model.CostedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			assert.Equal(t, i, a.tabAtX(pos+w/2), "active=%d tab=%d", active, i)
			pos += w + 1
		}
		assert.Equal(t, -1, a.tabAtX(pos+50))
	}
}

func TestAppSortsByRecordsAndFlips(t *testing.T) {
	a := loaded(t)
	assert.Equal(t, []string{"Large", "Medium", "Small"}, names(a.sorted))

	a = update(t, a, key("o"))
	assert.True(t, a.asc)
	assert.Equal(t, []string{"Small", "Medium", "Large"}, names(a.sorted))

	// Totals come from the pass, not the display order.
	assert.Equal(t, int64(95010), a.pass.Result.TotalRecords)
}

func TestAppTabKeys(t *testing.T) {
	a := loaded(t)

	a = update(t, a, key("y"))
	assert.Equal(t, tabAnalytics, a.activeTab)
	a = update(t, a, key("s"))
	assert.Equal(t, tabSettings, a.activeTab)
	a = update(t, a, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabApps, a.activeTab)
	a = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, tabSettings, a.activeTab)
}

func TestAppIgnoresKeysUntilLoaded(t *testing.T) {
	a := testApp(t)
	a = update(t, a, key("y"))
	assert.Equal(t, tabApps, a.activeTab)
}

func TestAppHelpToggle(t *testing.T) {
	a := loaded(t)
	a = update(t, a, key("?"))
	assert.True(t, a.showHelp)
	assert.Contains(t, a.View(), "Keyboard Shortcuts")

	a = update(t, a, key("y"))
	assert.False(t, a.showHelp)
	assert.Equal(t, tabApps, a.activeTab, "dismissing help swallows the key")
}

func TestAppViewShowsTotals(t *testing.T) {
	a := loaded(t)
	out := a.View()
	assert.Contains(t, out, "Records: 95,010")
	assert.Contains(t, out, "Large")

	a = update(t, a, key("y"))
	out = a.View()
	assert.Contains(t, out, "Monthly Cost:")
	assert.Contains(t, out, "Profit Margin")

	a = update(t, a, key("s"))
	assert.Contains(t, a.View(), "No customer overrides.")
}

func TestAppLoadErrorKeepsRunning(t *testing.T) {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	a = update(t, a, DataLoadedMsg{Err: source.ErrNoTable})

	assert.True(t, a.loaded)
	assert.Contains(t, a.View(), "No Knack apps table found")
}

func TestAppRefreshErrorKeepsLastPass(t *testing.T) {
	a := loaded(t)
	a = update(t, a, RefreshDataMsg{Err: source.ErrNoTable})

	assert.Len(t, a.sorted, 3)
	assert.False(t, a.refreshing)
}

func TestAppTooNarrow(t *testing.T) {
	a := testApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, a.View(), "Terminal too narrow")
}

func TestSettingsValuesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pricing.TaxRate = 0.15
	cfg.Tier.BasePrice = 120.5

	v := ValuesFromConfig(cfg)
	assert.Equal(t, "0.15", v.TaxRate)
	assert.Equal(t, "120.5", v.BasePrice)
	assert.Equal(t, "[]", v.Overrides)

	out, err := v.Apply(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, cfg.Pricing, out.Pricing)
	assert.Equal(t, cfg.Tier, out.Tier)
	assert.Equal(t, cfg.Limits, out.Limits)
}

func TestSettingsValuesApplyOverrides(t *testing.T) {
	v := ValuesFromConfig(config.DefaultConfig())
	v.Overrides = `[{"match": "/^acme/i", "tier": {"basePrice": 99}}]`

	out, err := v.Apply(config.DefaultConfig())
	require.NoError(t, err)

	s, err := out.Settings()
	require.NoError(t, err)
	require.Len(t, s.Overrides, 1)
	assert.Equal(t, "/^acme/i", s.Overrides[0].Match.String())
}

func TestSettingsValuesRejectInvalid(t *testing.T) {
	base := config.DefaultConfig()

	t.Run("bad overrides", func(t *testing.T) {
		v := ValuesFromConfig(base)
		v.Overrides = `[{"match": `
		out, err := v.Apply(base)
		require.Error(t, err)
		assert.True(t, eris.Is(err, config.ErrInvalidOverrides))
		assert.Equal(t, base.Tier, out.Tier)
	})

	t.Run("bad number", func(t *testing.T) {
		v := ValuesFromConfig(base)
		v.StepSize = "lots"
		_, err := v.Apply(base)
		assert.Error(t, err)
	})
}

func TestFieldValidators(t *testing.T) {
	assert.NoError(t, validFloat(" 1.5 "))
	assert.Error(t, validFloat("x"))
	assert.NoError(t, validInt("10"))
	assert.Error(t, validInt("1.5"))
	assert.NoError(t, validOverrides(""))
	assert.Error(t, validOverrides("{"))
}
