package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows in aligned columns under a styled heading row
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given column headings
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow appends a row; missing cells render empty and extra cells are dropped
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.Headers))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return t
}

// Render returns the table as a string
func (t *Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(t.renderRow(t.Headers, widths, TableHeaderStyle))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(t.renderRow(row, widths, ResultValueStyle))
	}
	return b.String()
}

func (t *Table) renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = style.Width(widths[i]).Render(cell)
	}
	return "  " + strings.Join(parts, "  ")
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}
