package console

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Printer handles the CLI's terminal output, IC-blue themed.
type Printer struct {
	out    io.Writer
	logger *log.Logger
	isTTY  bool
}

// New creates a Printer writing to stdout.
func New() *Printer {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Printer with a custom writer, for tests and for
// commands that render to stderr.
func NewWithWriter(w io.Writer) *Printer {
	isTTY := isTerminal(w)

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	if isTTY {
		logger.SetStyles(icpStyles())
	}

	return &Printer{out: w, logger: logger, isTTY: isTTY}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func (p *Printer) Info(msg string, keyvals ...any)  { p.logger.Info(msg, keyvals...) }
func (p *Printer) Warn(msg string, keyvals ...any)  { p.logger.Warn(msg, keyvals...) }
func (p *Printer) Error(msg string, keyvals ...any) { p.logger.Error(msg, keyvals...) }
func (p *Printer) Debug(msg string, keyvals ...any) { p.logger.Debug(msg, keyvals...) }

// SetDebug enables or disables debug-level logging.
func (p *Printer) SetDebug(enabled bool) {
	if enabled {
		p.logger.SetLevel(log.DebugLevel)
	} else {
		p.logger.SetLevel(log.InfoLevel)
	}
}

// Banner prints the CLI's name and version, styled when writing to a TTY.
func (p *Printer) Banner(ver string) {
	if !p.isTTY {
		fmt.Fprintf(p.out, "icarus-bridge %s\n\n", ver)
		return
	}

	blue := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintln(p.out, blue.Render("icarus-bridge"))
	fmt.Fprintf(p.out, "%s %s\n\n", muted.Render("version"), blue.Render(ver))
}

// Print writes a message directly to output without formatting.
func (p *Printer) Print(format string, args ...any) { fmt.Fprintf(p.out, format, args...) }

// Println writes a message with a trailing newline directly to output.
func (p *Printer) Println(args ...any) { fmt.Fprintln(p.out, args...) }

// Section prints a section header.
func (p *Printer) Section(title string) {
	if p.isTTY {
		style := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
		p.Println(style.Render(title))
	} else {
		p.Println(title)
	}
}
