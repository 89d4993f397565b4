package gps

import "log"

// DefaultWindowRows keeps only the newest fix on screen.
const DefaultWindowRows = 1

// RowTable is the part of the display the window drives.
type RowTable interface {
	InsertRow(timestamp string, fields []string)
	DeleteOldestRow()
	RowCount() int
}

// FixSink receives every fix pushed into the window, e.g. a hardware panel.
// ShowFix is called on the goroutine that pushes, so it must not block.
type FixSink interface {
	ShowFix(Fix) error
}

// Window is the bounded, append-at-tail list of visible fixes.
//
// It is not safe for concurrent use; the scheduler owns it.
type Window struct {
	table RowTable
	cap   int
	fixes []Fix
	sinks []FixSink
}

func NewWindow(table RowTable, rows int, sinks ...FixSink) *Window {
	if rows < 1 {
		rows = DefaultWindowRows
	}
	return &Window{table: table, cap: rows, sinks: sinks}
}

// Push appends fix and evicts the oldest rows while the table is over
// capacity.
func (w *Window) Push(fix Fix) {
	w.table.InsertRow(fix.Time, fix.Fields())
	w.fixes = append(w.fixes, fix)

	for w.table.RowCount() > w.cap {
		w.table.DeleteOldestRow()
		if len(w.fixes) > 0 {
			w.fixes = w.fixes[1:]
		}
	}

	for _, s := range w.sinks {
		if err := s.ShowFix(fix); err != nil {
			log.Printf("gps: fix sink: %v", err)
		}
	}
}

// Fixes returns the visible fixes, oldest first.
func (w *Window) Fixes() []Fix {
	out := make([]Fix, len(w.fixes))
	copy(out, w.fixes)
	return out
}

// Latest returns the newest visible fix.
func (w *Window) Latest() (Fix, bool) {
	if len(w.fixes) == 0 {
		return Fix{}, false
	}
	return w.fixes[len(w.fixes)-1], true
}

// Len is the number of visible fixes.
func (w *Window) Len() int { return len(w.fixes) }

// Cap is the number of rows the window keeps.
func (w *Window) Cap() int { return w.cap }
