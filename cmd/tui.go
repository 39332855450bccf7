package cmd

import (
	"github.com/rotisserie/eris"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	sources, err := openSources()
	if err != nil {
		return err
	}

	// Force TrueColor so background styling always produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		ConfigPath: flagConfig,
		Sources:    sources,
		SourceName: sourceName(),
		Asc:        flagAsc,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return eris.Wrap(err, "tui")
	}
	return nil
}
