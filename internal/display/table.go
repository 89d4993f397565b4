// Package display holds the two widgets the dashboard draws into: the
// position table and the camera image.
package display

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Columns shown for each fix, after the timestamp.
var fixColumns = []table.Column{
	{Title: "Timestamp", Width: 10},
	{Title: "Latitude", Width: 12},
	{Title: "Longitude", Width: 12},
	{Title: "Altitude", Width: 9},
	{Title: "Grid Reference", Width: 16},
}

// Table is the position table. Rows are appended at the bottom and
// removed from the top.
type Table struct {
	model table.Model
	rows  []table.Row
}

func NewTable(visibleRows int) *Table {
	if visibleRows < 1 {
		visibleRows = 1
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#6272A4")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F8F8F2")).
		Bold(false)

	// Header line plus its bottom border.
	m := table.New(
		table.WithColumns(fixColumns),
		table.WithStyles(styles),
		table.WithHeight(visibleRows+2),
		table.WithFocused(false),
	)
	return &Table{model: m}
}

func (t *Table) InsertRow(timestamp string, fields []string) {
	row := make(table.Row, 0, len(fields)+1)
	row = append(row, timestamp)
	row = append(row, fields...)
	t.rows = append(t.rows, row)
	t.model.SetRows(t.rows)
	t.model.GotoBottom()
}

func (t *Table) DeleteOldestRow() {
	if len(t.rows) == 0 {
		return
	}
	t.rows = t.rows[1:]
	t.model.SetRows(t.rows)
}

func (t *Table) RowCount() int {
	return len(t.rows)
}

// Rows returns a copy of the current rows, oldest first.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (t *Table) View() string {
	return t.model.View()
}
