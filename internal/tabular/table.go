package tabular

import (
	"fmt"
	"strings"
)

// Table is the in-memory tabular representation shared by adapters,
// the validator and the anomaly detector. Cells are raw strings; an
// empty string is a missing value. Column lookup is case-sensitive on
// the trimmed header name.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable creates an empty table with the given column set.
// Header names are trimmed; later columns win on duplicate names.
func NewTable(columns []string) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		name := strings.TrimSpace(c)
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	return t
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}

// Cell returns the value at (row, column). ok is false when the column
// does not exist or the row is out of range.
func (t *Table) Cell(row int, column string) (string, bool) {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return "", false
	}
	if i >= len(t.rows[row]) {
		// short row from a ragged CSV
		return "", true
	}
	return t.rows[row][i], true
}

// SetCell overwrites the value at (row, column).
func (t *Table) SetCell(row int, column, value string) error {
	i, ok := t.index[column]
	if !ok {
		return fmt.Errorf("SetCell: no column %q", column)
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("SetCell: row %d out of range", row)
	}
	for len(t.rows[row]) <= i {
		t.rows[row] = append(t.rows[row], "")
	}
	t.rows[row][i] = value
	return nil
}

// AppendRow adds a data row. Missing trailing cells are allowed and read
// back as empty strings; extra cells are an error.
func (t *Table) AppendRow(cells []string) error {
	if len(cells) > len(t.columns) {
		return fmt.Errorf("AppendRow: %d cells for %d columns", len(cells), len(t.columns))
	}
	row := make([]string, len(cells))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// AppendRecord adds a row from a column-name map. Unknown keys are ignored.
func (t *Table) AppendRecord(record map[string]string) {
	row := make([]string, len(t.columns))
	for name, value := range record {
		if i, ok := t.index[name]; ok {
			row[i] = value
		}
	}
	t.rows = append(t.rows, row)
}

// Row returns a copy of the row as a column-name map.
func (t *Table) Row(row int) map[string]string {
	out := make(map[string]string, len(t.columns))
	for i, name := range t.columns {
		if row >= 0 && row < len(t.rows) && i < len(t.rows[row]) {
			out[name] = t.rows[row][i]
		} else {
			out[name] = ""
		}
	}
	return out
}

// Project returns a new table holding the named columns in the given
// order, with cell values copied. Names without a matching column are
// skipped.
func (t *Table) Project(columns []string) *Table {
	present := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.HasColumn(c) {
			present = append(present, c)
		}
	}

	out := NewTable(present)
	for i := range t.rows {
		row := make([]string, len(present))
		for j, name := range present {
			row[j], _ = t.Cell(i, name)
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// MissingIn returns the subset of names not present as columns, in the
// given order.
func (t *Table) MissingIn(names []string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}
