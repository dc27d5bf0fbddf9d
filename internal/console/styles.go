// Package console implements the CLI's human-readable status/tools output
// (SPEC_FULL.md's out-of-scope-but-present CLI boundary). Grounded directly
// on the teacher's pkg/output package (Printer, amberStyles, table
// rendering), re-themed around the Internet Computer's blue/purple brand
// colors instead of gridctl's amber.
package console

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Internet Computer brand palette, in place of the teacher's amber theme.
var (
	ColorBlue   = lipgloss.Color("#29abe2") // primary brand color
	ColorPurple = lipgloss.Color("#522785") // secondary brand color
	ColorWhite  = lipgloss.Color("#fafaf9")
	ColorMuted  = lipgloss.Color("#78716c")
	ColorGreen  = lipgloss.Color("#10b981") // connected / ok
	ColorRed    = lipgloss.Color("#f43f5e") // failed / error
	ColorGray   = lipgloss.Color("#a8a29e")
)

// icpStyles returns charmbracelet/log styles themed on the IC blue palette.
func icpStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(ColorBlue).
		Bold(true)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(lipgloss.Color("#eab308")).
		Bold(true)

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(ColorRed).
		Bold(true)

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(ColorMuted)

	styles.Timestamp = lipgloss.NewStyle().Foreground(ColorMuted)
	styles.Key = lipgloss.NewStyle().Foreground(ColorBlue)
	styles.Value = lipgloss.NewStyle().Foreground(ColorGray)

	return styles
}
