// Package theme defines color themes for the knackcost dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name         string
	Background   lipgloss.Color // Main app background
	Surface      lipgloss.Color // Card/panel backgrounds
	SurfaceHover lipgloss.Color // Selected row
	Border       lipgloss.Color
	BorderAccent lipgloss.Color // Focus borders
	TextDim      lipgloss.Color // Hints, disabled
	TextMuted    lipgloss.Color // Labels, metadata
	TextPrimary  lipgloss.Color
	Accent       lipgloss.Color // Links, active tab
	AccentBright lipgloss.Color
	Good         lipgloss.Color // Usage under the warning threshold, positive margin
	Warn         lipgloss.Color // Usage over the threshold, negative margin
	Cost         lipgloss.Color // Cost column and totals
}

// GitHubDark matches the toolbar the dashboard injects into the Knack
// builder page.
var GitHubDark = Theme{
	Name:         "github-dark",
	Background:   lipgloss.Color("#0d1117"),
	Surface:      lipgloss.Color("#161b22"),
	SurfaceHover: lipgloss.Color("#21262d"),
	Border:       lipgloss.Color("#30363d"),
	BorderAccent: lipgloss.Color("#58a6ff"),
	TextDim:      lipgloss.Color("#484f58"),
	TextMuted:    lipgloss.Color("#8b949e"),
	TextPrimary:  lipgloss.Color("#e6edf3"),
	Accent:       lipgloss.Color("#79c0ff"),
	AccentBright: lipgloss.Color("#a5d6ff"),
	Good:         lipgloss.Color("#2ea043"),
	Warn:         lipgloss.Color("#f85149"),
	Cost:         lipgloss.Color("#ffa657"),
}

// Terminal uses ANSI 16 colors only - maximum compatibility.
var Terminal = Theme{
	Name:         "terminal",
	Background:   lipgloss.Color("0"),
	Surface:      lipgloss.Color("0"),
	SurfaceHover: lipgloss.Color("8"),
	Border:       lipgloss.Color("8"),
	BorderAccent: lipgloss.Color("6"),
	TextDim:      lipgloss.Color("8"),
	TextMuted:    lipgloss.Color("7"),
	TextPrimary:  lipgloss.Color("15"),
	Accent:       lipgloss.Color("6"),
	AccentBright: lipgloss.Color("14"),
	Good:         lipgloss.Color("2"),
	Warn:         lipgloss.Color("1"),
	Cost:         lipgloss.Color("3"),
}

// Active is the currently selected theme.
var Active = GitHubDark

// All available themes.
var All = []Theme{GitHubDark, Terminal}

// Names lists the theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// ByName returns a theme by its name, defaulting to GitHubDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return GitHubDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
