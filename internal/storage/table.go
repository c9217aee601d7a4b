package storage

import (
	"fmt"
	"strings"
)

// Column holds column schema information in a table.
type Column struct {
	Name string
	Type ColType
}

// Table stores rows column-wise: Data[i] is the value slice of Cols[i], and
// every slice has exactly rowCount entries.
type Table struct {
	Name string
	Cols []Column
	Data [][]any

	colPos   map[string]int
	rowCount int
}

// NewTable creates an empty table with case-insensitive column lookup.
// Column names must be unique ignoring case.
func NewTable(name string, cols []Column) (*Table, error) {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		lc := strings.ToLower(c.Name)
		if _, exists := pos[lc]; exists {
			return nil, fmt.Errorf("%w: column %q on table %q", ErrDuplicate, c.Name, name)
		}
		pos[lc] = i
	}
	data := make([][]any, len(cols))
	for i := range data {
		data[i] = []any{}
	}
	return &Table{Name: name, Cols: append([]Column(nil), cols...), Data: data, colPos: pos}, nil
}

// MustNewTable is NewTable for statically known schemas; it panics on
// duplicate column names.
func MustNewTable(name string, cols []Column) *Table {
	t, err := NewTable(name, cols)
	if err != nil {
		panic(err)
	}
	return t
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int { return t.rowCount }

// ColIndex returns the zero-based index of the named column.
func (t *Table) ColIndex(name string) (int, error) {
	i, ok := t.colPos[strings.ToLower(name)]
	if !ok {
		return -1, fmt.Errorf("%w: column %q on table %q", ErrNotFound, name, t.Name)
	}
	return i, nil
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colPos[strings.ToLower(name)]
	return ok
}

// coerce applies write-time typing for column i: an untyped column adopts
// the type of its first non-null value, a typed column converts or fails.
func (t *Table) coerce(i int, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.Cols[i].Type == AnyType {
		t.Cols[i].Type = InferType(v)
	}
	cv, err := CoerceTo(v, t.Cols[i].Type)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", t.Cols[i].Name, err)
	}
	return cv, nil
}

// AppendRow coerces and appends one row. vals must have one entry per column.
func (t *Table) AppendRow(vals []any) error {
	if len(vals) != len(t.Cols) {
		return fmt.Errorf("table %q expects %d values, got %d", t.Name, len(t.Cols), len(vals))
	}
	coerced := make([]any, len(vals))
	for i, v := range vals {
		cv, err := t.coerce(i, v)
		if err != nil {
			return err
		}
		coerced[i] = cv
	}
	for i, v := range coerced {
		t.Data[i] = append(t.Data[i], v)
	}
	t.rowCount++
	return nil
}

// Row materializes row ri as a value slice in column order.
func (t *Table) Row(ri int) []any {
	out := make([]any, len(t.Cols))
	for i := range t.Cols {
		out[i] = t.Data[i][ri]
	}
	return out
}

// SetRow coerces and overwrites row ri in place.
func (t *Table) SetRow(ri int, vals []any) error {
	if len(vals) != len(t.Cols) {
		return fmt.Errorf("table %q expects %d values, got %d", t.Name, len(t.Cols), len(vals))
	}
	coerced := make([]any, len(vals))
	for i, v := range vals {
		cv, err := t.coerce(i, v)
		if err != nil {
			return err
		}
		coerced[i] = cv
	}
	for i, v := range coerced {
		t.Data[i][ri] = v
	}
	return nil
}

// DeleteRow removes row ri, preserving the order of the remaining rows.
func (t *Table) DeleteRow(ri int) {
	for i := range t.Data {
		t.Data[i] = append(t.Data[i][:ri], t.Data[i][ri+1:]...)
	}
	t.rowCount--
}

// AddColumn appends a column, filling existing rows with def (usually nil).
func (t *Table) AddColumn(col Column, def any) error {
	lc := strings.ToLower(col.Name)
	if _, exists := t.colPos[lc]; exists {
		return fmt.Errorf("%w: column %q on table %q", ErrDuplicate, col.Name, t.Name)
	}
	t.Cols = append(t.Cols, col)
	t.colPos[lc] = len(t.Cols) - 1
	fill := make([]any, t.rowCount)
	if def != nil {
		cv, err := CoerceTo(def, col.Type)
		if err != nil {
			return err
		}
		for i := range fill {
			fill[i] = cv
		}
	}
	t.Data = append(t.Data, fill)
	return nil
}

// DropColumn removes a column, keeping the order of the remaining columns.
func (t *Table) DropColumn(name string) error {
	i, err := t.ColIndex(name)
	if err != nil {
		return err
	}
	t.Cols = append(t.Cols[:i], t.Cols[i+1:]...)
	t.Data = append(t.Data[:i], t.Data[i+1:]...)
	t.colPos = make(map[string]int, len(t.Cols))
	for j, c := range t.Cols {
		t.colPos[strings.ToLower(c.Name)] = j
	}
	return nil
}

// Clone makes a deep copy of the table (schema and rows).
func (t *Table) Clone() *Table {
	nt := MustNewTable(t.Name, t.Cols)
	for i := range t.Data {
		nt.Data[i] = append([]any(nil), t.Data[i]...)
	}
	nt.rowCount = t.rowCount
	return nt
}
