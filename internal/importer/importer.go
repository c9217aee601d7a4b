// Package importer builds slimSQL tables from external data: CSV and JSON
// streams, plus whole SQLite database files.
//
// CSV import reads a header row for column names and infers column types
// from every non-null cell of the data (BOOL, INT, FLOAT, TIMESTAMP, falling back to
// TEXT). JSON import accepts an array of flat objects; column order follows
// the first object's keys sorted for determinism. The importer only builds
// tables; registering them on a DB stays with the caller.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// Options configures the import. All fields are optional.
type Options struct {
	// Delimiter for CSV input; ',' when zero.
	Delimiter rune
	// NullLiterals are treated as SQL NULL (case-insensitive, trimmed).
	// Defaults: "", "null", "na", "n/a".
	NullLiterals []string
	// TypeInference toggles column type sniffing; when false every column
	// is TEXT. Defaults to true.
	TypeInference *bool
}

func (o *Options) nullSet() map[string]bool {
	lits := o.NullLiterals
	if lits == nil {
		lits = []string{"", "null", "na", "n/a"}
	}
	m := make(map[string]bool, len(lits))
	for _, l := range lits {
		m[strings.ToLower(strings.TrimSpace(l))] = true
	}
	return m
}

func (o *Options) infer() bool {
	return o.TypeInference == nil || *o.TypeInference
}

// FromCSV reads delimited data with a header row into a new table.
func FromCSV(r io.Reader, tableName string, opt *Options) (*storage.Table, error) {
	if opt == nil {
		opt = &Options{}
	}
	cr := csv.NewReader(r)
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}

	nulls := opt.nullSet()
	types := make([]storage.ColType, len(header))
	for i := range types {
		types[i] = storage.TextType
		if opt.infer() {
			types[i] = sniffColumnType(records, i, nulls)
		}
	}
	cols := make([]storage.Column, len(header))
	for i, name := range header {
		cols[i] = storage.Column{Name: strings.TrimSpace(name), Type: types[i]}
	}
	t, err := storage.NewTable(tableName, cols)
	if err != nil {
		return nil, err
	}
	for ri, rec := range records {
		vals := make([]any, len(cols))
		for i := range cols {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			vals[i] = parseCell(cell, types[i], nulls)
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, fmt.Errorf("row %d: %w", ri+2, err)
		}
	}
	return t, nil
}

// FromJSON reads an array of flat objects into a new table.
func FromJSON(r io.Reader, tableName string) (*storage.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if len(objs) == 0 {
		return storage.NewTable(tableName, nil)
	}
	names := make([]string, 0, len(objs[0]))
	for k := range objs[0] {
		names = append(names, k)
	}
	sort.Strings(names)
	cols := make([]storage.Column, len(names))
	for i, n := range names {
		cols[i] = storage.Column{Name: n, Type: storage.AnyType}
	}
	t, err := storage.NewTable(tableName, cols)
	if err != nil {
		return nil, err
	}
	for ri, obj := range objs {
		vals := make([]any, len(names))
		for i, n := range names {
			vals[i] = jsonValue(obj[n])
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, fmt.Errorf("object %d: %w", ri, err)
		}
	}
	return t, nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		f, _ := x.Float64()
		return f
	case map[string]any, []any:
		// nested structures flatten to their JSON text
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return v
	}
}

// sniffColumnType inspects every non-null cell of one column and picks the
// narrowest type that fits all of them.
func sniffColumnType(records [][]string, col int, nulls map[string]bool) storage.ColType {
	isInt, isFloat, isBool, isTime := true, true, true, true
	seen := false
	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if nulls[strings.ToLower(cell)] {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			lc := strings.ToLower(cell)
			if lc != "true" && lc != "false" {
				isBool = false
			}
		}
		if isTime {
			if _, err := storage.ParseTime(cell); err != nil {
				isTime = false
			}
		}
	}
	switch {
	case !seen:
		return storage.TextType
	case isBool:
		return storage.BoolType
	case isInt:
		return storage.IntType
	case isFloat:
		return storage.FloatType
	case isTime:
		return storage.TimestampType
	}
	return storage.TextType
}

func parseCell(cell string, typ storage.ColType, nulls map[string]bool) any {
	trimmed := strings.TrimSpace(cell)
	if nulls[strings.ToLower(trimmed)] {
		return nil
	}
	if typ == storage.TextType {
		return cell
	}
	if v, err := storage.CoerceTo(trimmed, typ); err == nil {
		return v
	}
	return cell
}
