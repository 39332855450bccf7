// Package tui provides the interactive Bubble Tea dashboard for knackcost.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/analytics"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/cli"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/components"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// DataLoadedMsg is sent when the first pass finishes.
type DataLoadedMsg struct {
	Pass pipeline.Pass
	Err  error
}

// ProgressMsg reports source reading progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background pass completes.
type RefreshDataMsg struct {
	Pass pipeline.Pass
	Err  error
}

// Options configures the dashboard.
type Options struct {
	ConfigPath string
	Sources    []pipeline.RowSource
	SourceName string // shown in the header
	Asc        bool
}

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	pass     pipeline.Pass
	summary  analytics.Summary
	sorted   []model.CostedRow
	loaded   bool
	loadErr  error
	asc      bool
	cfg      config.Config
	cfgErr   error
	lastLoad time.Time

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	apps      table.Model

	// Settings form (huh)
	form      *huh.Form
	formVals  *SettingsValues
	formErr   error
	formSaved bool

	// Loading - channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 160
	minContentHeight = 5

	minRefreshInterval = 5 * time.Second
	passTimeout        = 30 * time.Second
)

const (
	tabApps = iota
	tabAnalytics
	tabSettings
)

// loadConfigOrDefault loads config, returning defaults on error so the
// dashboard can always start.
func loadConfigOrDefault(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		logging.Warn("config load failed; using defaults", zap.Error(err))
		return config.DefaultConfig(), err
	}
	return cfg, nil
}

func refreshIntervalFor(cfg config.Config) time.Duration {
	d := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if d < minRefreshInterval {
		d = 30 * time.Second
	}
	return d
}

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	cfg, cfgErr := loadConfigOrDefault(opts.ConfigPath)
	theme.SetActive(cfg.TUI.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:            opts,
		asc:             opts.Asc,
		cfg:             cfg,
		cfgErr:          cfgErr,
		autoRefresh:     cfg.TUI.AutoRefresh,
		refreshInterval: refreshIntervalFor(cfg),
		apps:            newAppsTable(),
		spinner:         sp,
		loadSub:         make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// applyPass stores a pass and recomputes everything derived from it.
func (a *App) applyPass(p pipeline.Pass) {
	a.pass = p
	a.summary = analytics.Summarize(p.Result, p.Settings.Limits)
	a.lastLoad = time.Now()
	a.resort()
}

func (a *App) resort() {
	a.sorted = pipeline.SortByRecords(a.pass.Result.Rows, a.asc)
	a.apps.SetRows(appRows(a.sorted))
	if a.apps.Cursor() >= len(a.sorted) {
		a.apps.SetCursor(max(len(a.sorted)-1, 0))
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layoutAppsTable()
		if a.form != nil {
			a.form = a.form.WithWidth(a.contentWidth()).WithHeight(a.height - 2)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.form != nil {
			return a, nil
		}

		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabApps {
				a.apps.MoveUp(1)
			}
			return a, nil

		case tea.MouseButtonWheelDown:
			if a.activeTab == tabApps {
				a.apps.MoveDown(1)
			}
			return a, nil

		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
			return a, nil
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if !a.loaded {
			return a, nil
		}

		// The settings form intercepts all keys
		if a.form != nil {
			if key == "esc" {
				a.form = nil
				return a, nil
			}
			return a.updateForm(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}

		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.refreshing {
				a.refreshing = true
				return a, refreshDataCmd(a.opts)
			}
			return a, nil
		case "R":
			a.autoRefresh = !a.autoRefresh
			a.cfg.TUI.AutoRefresh = a.autoRefresh
			if err := config.Save(a.opts.ConfigPath, a.cfg); err != nil {
				logging.Warn("save auto-refresh preference", zap.Error(err))
			}
			return a, nil
		case "o":
			a.asc = !a.asc
			a.resort()
			return a, nil
		case "left", "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}

		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
				return a, nil
			}
		}

		if a.activeTab == tabSettings && (key == "e" || key == "enter") {
			return a.openForm()
		}

		if a.activeTab == tabApps {
			var cmd tea.Cmd
			a.apps, cmd = a.apps.Update(msg)
			return a, cmd
		}
		return a, nil

	case DataLoadedMsg:
		a.loaded = true
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.applyPass(msg.Pass)
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && a.form == nil &&
			time.Since(a.lastLoad) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts))
		}
		return a, tea.Batch(cmds...)

	case RefreshDataMsg:
		a.refreshing = false
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.applyPass(msg.Pass)
		} else {
			// Keep showing the previous pass.
			a.lastLoad = time.Now()
		}
		return a, nil
	}

	// Forward unhandled messages to the form (cursor blinks, etc.)
	if a.form != nil {
		return a.updateForm(msg)
	}

	return a, nil
}

func (a App) openForm() (tea.Model, tea.Cmd) {
	a.formVals = ValuesFromConfig(a.cfg)
	a.formErr = nil
	a.formSaved = false
	a.form = NewSettingsForm(a.formVals).WithWidth(a.contentWidth()).WithHeight(a.height - 2)
	return a, a.form.Init()
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.form = nil
		next, err := a.formVals.Apply(a.cfg)
		if err == nil {
			err = config.Save(a.opts.ConfigPath, next)
		}
		a.formErr = err
		if err != nil {
			logging.Warn("settings not saved", zap.Error(err))
			return a, nil
		}
		a.cfg = next
		a.cfgErr = nil
		a.formSaved = true
		a.autoRefresh = next.TUI.AutoRefresh
		theme.SetActive(next.TUI.Theme)
		a.apps.SetStyles(appsTableStyles())
		a.refreshing = true
		return a, refreshDataCmd(a.opts)

	case huh.StateAborted:
		a.form = nil
		return a, nil
	}

	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.form != nil {
		return a.viewForm()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  knackcost needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ knackcost"))
	b.WriteString(subtitleStyle.Render(" · Knack App Costs"))
	b.WriteString("\n\n")

	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	if a.progressMax > 1 {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Reading sources %d / %d\n\n", a.progress, a.progressMax)))
		barW := min(max(a.width-30, 20), 40)
		b.WriteString(components.ProgressBar(float64(a.progress)/float64(a.progressMax), barW))
	} else {
		b.WriteString(subtitleStyle.Render(" Reading apps table..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cost).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"a y s", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move through apps"},
			{"g G", "First / last app"},
		}},
		{"Actions", [][2]string{
			{"o", "Flip sort order (records)"},
			{"e", "Edit settings (Settings tab)"},
			{"r", "Refresh now"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-8s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewForm() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render(" ◈ Settings") +
		lipgloss.NewStyle().Foreground(t.TextDim).Render("  esc to cancel")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", a.form.View())
}

// headerLine shows the source, sort order and refresh state under the tabs.
func (a App) headerLine(w int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	order := "records ↓"
	if a.asc {
		order = "records ↑"
	}
	line := dim.Render(" ") + accent.Render(a.opts.SourceName) +
		dim.Render(" │ sort ") + accent.Render(order)
	if a.autoRefresh {
		line += dim.Render(fmt.Sprintf(" │ auto-refresh %s", a.refreshInterval))
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(line)
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.headerLine(w)

	dataAge := ""
	if !a.lastLoad.IsZero() {
		dataAge = fmt.Sprintf("pass %s", a.pass.Duration.Round(time.Millisecond))
	}
	statusBar := components.RenderStatusBar(w, cli.Totals(a.pass.Result, a.pass.Settings), dataAge, a.refreshing)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabApps:
		content = a.renderAppsTab(cw)
	case tabAnalytics:
		content = a.renderAnalyticsTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// runPass reads every source and prices the rows with freshly loaded
// settings.
func runPass(opts Options, progress pipeline.ProgressFunc) (pipeline.Pass, error) {
	ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
	defer cancel()
	rows := pipeline.MultiSource{Sources: opts.Sources, Progress: progress}
	return pipeline.RunPass(ctx, config.FileSettings{Path: opts.ConfigPath}, rows)
}

// loadDataCmd runs the first pass in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			// Non-blocking send so workers aren't stalled; the next update catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			p, err := runPass(opts, progressFn)
			sub <- DataLoadedMsg{Pass: p, Err: err}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd runs a pass in the background with no progress UI.
func refreshDataCmd(opts Options) tea.Cmd {
	return func() tea.Msg {
		p, err := runPass(opts, nil)
		if err != nil {
			logging.Warn("refresh failed", zap.Error(err))
		}
		return RefreshDataMsg{Pass: p, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes use the same widths as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1
	}
	return -1
}
