// Package visualization renders console tables for run summaries.
package visualization

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table is a simple row/column model decoupled from the rendering
// library.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns a table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one row. Rows shorter than the header are padded by the
// renderer.
func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// Draw renders the table to the writer.
func (t *Table) Draw(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.headers)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(t.rows)
	table.Render()
}
