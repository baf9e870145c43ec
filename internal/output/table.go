package output

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// columnGap separates table columns.
const columnGap = "  "

// Table lays out rows of cells in aligned columns under a dashed header.
// Widths are measured in terminal cells, so styled or wide text lines up.
type Table struct {
	headers    []string
	rows       [][]string
	rightAlign map[int]bool
}

// NewTable returns a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, rightAlign: map[int]bool{}}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// AlignRight right-aligns the given columns, typically amounts.
func (t *Table) AlignRight(cols ...int) {
	for _, c := range cols {
		t.rightAlign[c] = true
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table. An empty table writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}
	widths := t.widths()

	var sb strings.Builder
	if len(t.headers) > 0 {
		t.writeLine(&sb, t.headers, widths)
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		sb.WriteString(strings.Join(dashes, columnGap) + "\n")
	}
	for _, row := range t.rows {
		t.writeLine(&sb, row, widths)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) widths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	return widths
}

func (t *Table) writeLine(sb *strings.Builder, cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-lipgloss.Width(cell))
		if t.rightAlign[i] {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	sb.WriteString(strings.TrimRight(strings.Join(parts, columnGap), " ") + "\n")
}
