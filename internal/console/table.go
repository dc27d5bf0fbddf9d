package console

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ToolSummary is one row of the `tools` command's table, built from a
// canister's cached internal/schemamap.ToolDescriptor catalog.
type ToolSummary struct {
	Name        string
	Style       string // positional, record, empty
	ParamCount  int
	Description string
}

// StatusField is one row of the `status` command's key/value table.
type StatusField struct {
	Field string
	Value string
}

// Tools prints the canister's tool catalog as a table.
func (p *Printer) Tools(tools []ToolSummary) {
	if len(tools) == 0 {
		p.Println("no tools registered")
		return
	}

	p.Println()
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"Name", "Style", "Params", "Description"})
	for _, tl := range tools {
		t.AppendRow(table.Row{tl.Name, tl.Style, tl.ParamCount, tl.Description})
	}
	t.Render()
	p.Println()
}

// Status prints the bridge's connection status as a key/value table.
func (p *Printer) Status(fields []StatusField) {
	p.Println()
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	for _, f := range fields {
		value := f.Value
		if p.isTTY && (f.Field == "State" || f.Field == "Status") {
			value = colorState(f.Value)
		}
		t.AppendRow(table.Row{f.Field, value})
	}
	t.Render()
	p.Println()
}

// colorState applies color to a state/status value based on its meaning.
func colorState(state string) string {
	var style = lipgloss.NewStyle().Foreground(ColorGray)
	switch state {
	case "connected", "serving", "running", "ready":
		style = lipgloss.NewStyle().Foreground(ColorGreen)
	case "failed", "error", "shutdown":
		style = lipgloss.NewStyle().Foreground(ColorRed)
	case "uninitialized", "pending":
		style = lipgloss.NewStyle().Foreground(ColorBlue)
	}
	return style.Render(state)
}

// tableStyle returns the standard IC-blue themed table style.
func (p *Printer) tableStyle() table.Style {
	style := table.StyleRounded
	if p.isTTY {
		style.Color.Header = text.Colors{text.FgHiCyan, text.Bold}
		style.Color.Border = text.Colors{text.FgHiBlack}
	}
	style.Options.SeparateRows = false
	return style
}
