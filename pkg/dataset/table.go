package dataset

import (
	"github.com/go-faster/errors"
)

// Table is a whole dataset held in memory: an ordered header and rows of the
// same width.
type Table struct {
	Columns []string
	Rows    [][]Value
}

func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return errors.Wrapf(ErrRaggedRow, "got %d cells, want %d", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Get returns the cell at row i in column name, or an empty value when the
// column does not exist.
func (t *Table) Get(i int, name string) Value {
	idx := t.Index(name)
	if idx < 0 {
		return Empty()
	}
	return t.Rows[i][idx]
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]Value, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// SetColumn overwrites the named column or appends it at the end.
func (t *Table) SetColumn(name string, values []Value) error {
	if len(values) != len(t.Rows) {
		return errors.Wrapf(ErrRaggedRow, "column %q has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	idx := t.Index(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// IsNumeric reports whether the column holds at least one value and every
// non-empty value is a number.
func (t *Table) IsNumeric(name string) bool {
	idx := t.Index(name)
	if idx < 0 {
		return false
	}
	seen := false
	for _, row := range t.Rows {
		v := row[idx]
		if v.IsEmpty() {
			continue
		}
		if !v.IsNumeric() {
			return false
		}
		seen = true
	}
	return seen
}

// Drop removes the named columns that exist and returns the ones removed.
func (t *Table) Drop(names ...string) []string {
	remove := make(map[string]struct{}, len(names))
	for _, n := range names {
		remove[n] = struct{}{}
	}
	var dropped []string
	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := remove[c]; ok {
			dropped = append(dropped, c)
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}
	if len(dropped) == 0 {
		return nil
	}
	for r, row := range t.Rows {
		next := make([]Value, len(keep))
		for j, idx := range keep {
			next[j] = row[idx]
		}
		t.Rows[r] = next
	}
	t.Columns = cols
	return dropped
}

// Select returns a new table holding exactly the named columns in that order.
func (t *Table) Select(names []string) (*Table, error) {
	idx := make([]int, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if _, dup := seen[n]; dup {
			return nil, errors.Wrapf(ErrDuplicateColumn, "select %q", n)
		}
		seen[n] = struct{}{}
		j := t.Index(n)
		if j < 0 {
			return nil, errors.Wrapf(ErrUnknownColumn, "select %q", n)
		}
		idx[i] = j
	}
	out := New(names)
	out.Rows = make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		next := make([]Value, len(idx))
		for j, k := range idx {
			next[j] = row[k]
		}
		out.Rows[r] = next
	}
	return out, nil
}

func (t *Table) Clone() *Table {
	out := New(t.Columns)
	out.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		next := make([]Value, len(row))
		copy(next, row)
		out.Rows[i] = next
	}
	return out
}
