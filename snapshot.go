// JSON snapshot format: the textual persistence surface of a database.
//
// A snapshot is a JSON object with a "tables" array (name, columns, row
// grids) and a "triggers" array (name plus the original CREATE TRIGGER
// text, replayed on load). User-defined functions and add-ins are not
// persisted. Column types travel under coarse names (Int64, Double,
// Boolean, DateTime, Guid, String); readers treat unknown names as String.
package slimsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// ErrSerialization marks malformed snapshot text or missing required keys.
var ErrSerialization = errors.New("serialization error")

type snapshotDoc struct {
	Tables   []snapshotTable   `json:"tables"`
	Triggers []snapshotTrigger `json:"triggers"`
}

type snapshotTable struct {
	Name    string           `json:"name"`
	Columns []snapshotColumn `json:"columns"`
	Rows    [][]any          `json:"rows"`
}

type snapshotColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type snapshotTrigger struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

func snapshotTypeName(t storage.ColType) string {
	switch t {
	case storage.IntType:
		return "Int64"
	case storage.FloatType:
		return "Double"
	case storage.BoolType:
		return "Boolean"
	case storage.TimestampType:
		return "DateTime"
	case storage.UuidType:
		return "Guid"
	}
	return "String"
}

func typeFromSnapshotName(name string) storage.ColType {
	switch name {
	case "Int64":
		return storage.IntType
	case "Double":
		return storage.FloatType
	case "Boolean":
		return storage.BoolType
	case "DateTime":
		return storage.TimestampType
	case "Guid":
		return storage.UuidType
	}
	// unknown type names degrade to String
	return storage.TextType
}

// encodeCell renders one stored value as a JSON-friendly scalar. Timestamps
// travel as ISO-8601 with second precision, uuids as their string form.
func encodeCell(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format("2006-01-02T15:04:05Z07:00")
	case uuid.UUID:
		return x.String()
	default:
		return v
	}
}

// decodeCell rebuilds one value from its JSON form using the column type as
// a hint; strings that fail to parse under the hint stay text.
func decodeCell(v any, hint storage.ColType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			n, err := x.Int64()
			if err == nil {
				if hint == storage.BoolType {
					return n != 0
				}
				return n
			}
		}
		f, _ := x.Float64()
		return f
	case string:
		switch hint {
		case storage.TimestampType:
			if t, err := storage.ParseTime(x); err == nil {
				return t
			}
		case storage.UuidType:
			if u, err := uuid.Parse(x); err == nil {
				return u
			}
		case storage.IntType:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n
			}
		case storage.FloatType:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
		case storage.BoolType:
			s := strings.ToLower(strings.TrimSpace(x))
			if s == "1" || s == "true" {
				return true
			}
			if s == "0" || s == "false" {
				return false
			}
		}
		return x
	}
	return v
}

// ToSnapshot serializes the database (tables and trigger sources) to
// snapshot text.
func ToSnapshot(db *DB, pretty bool) (string, error) {
	doc := snapshotDoc{
		Tables:   []snapshotTable{},
		Triggers: []snapshotTrigger{},
	}
	for _, t := range db.Tables().All() {
		st := snapshotTable{Name: t.Name, Rows: make([][]any, 0, t.RowCount())}
		for _, c := range t.Cols {
			st.Columns = append(st.Columns, snapshotColumn{Name: c.Name, Type: snapshotTypeName(c.Type)})
		}
		for ri := 0; ri < t.RowCount(); ri++ {
			vals := t.Row(ri)
			row := make([]any, len(vals))
			for i, v := range vals {
				row[i] = encodeCell(v)
			}
			st.Rows = append(st.Rows, row)
		}
		doc.Tables = append(doc.Tables, st)
	}
	for _, ts := range db.TriggerSources() {
		doc.Triggers = append(doc.Triggers, snapshotTrigger{Name: ts.Name, SQL: ts.SQL})
	}
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(doc, "", "  ")
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(out), nil
}

func parseSnapshot(text string) (*snapshotDoc, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, ok := probe["tables"]; !ok {
		return nil, fmt.Errorf("%w: missing \"tables\" key", ErrSerialization)
	}
	var doc snapshotDoc
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return &doc, nil
}

func tableFromSnapshot(st snapshotTable) (*storage.Table, error) {
	cols := make([]storage.Column, len(st.Columns))
	for i, c := range st.Columns {
		cols[i] = storage.Column{Name: c.Name, Type: typeFromSnapshotName(c.Type)}
	}
	t, err := storage.NewTable(st.Name, cols)
	if err != nil {
		return nil, fmt.Errorf("%w: table %q: %v", ErrSerialization, st.Name, err)
	}
	for _, row := range st.Rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: table %q: row width %d, want %d",
				ErrSerialization, st.Name, len(row), len(cols))
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = decodeCell(v, cols[i].Type)
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, fmt.Errorf("%w: table %q: %v", ErrSerialization, st.Name, err)
		}
	}
	return t, nil
}

// FromSnapshot builds a fresh database from snapshot text. Tables load
// first, then each stored CREATE TRIGGER statement is re-executed so the
// trigger bodies are rebuilt through the regular parser.
func FromSnapshot(text string) (*DB, error) {
	doc, err := parseSnapshot(text)
	if err != nil {
		return nil, err
	}
	db := NewDB()
	for _, st := range doc.Tables {
		t, err := tableFromSnapshot(st)
		if err != nil {
			return nil, err
		}
		if err := db.AddTable(t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
	}
	ctx := context.Background()
	for _, tr := range doc.Triggers {
		if _, err := db.ExecuteNonQuery(ctx, tr.SQL); err != nil {
			return nil, fmt.Errorf("%w: trigger %q: %v", ErrSerialization, tr.Name, err)
		}
	}
	return db, nil
}

// SaveSnapshot writes the snapshot text to a file.
func SaveSnapshot(db *DB, path string, pretty bool) error {
	text, err := ToSnapshot(db, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// LoadSnapshot reads a snapshot file into a fresh database.
func LoadSnapshot(path string) (*DB, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(string(b))
}

// MergeSnapshot folds snapshot text into an existing database: each
// incoming table or trigger lands only when its name is absent, unless
// overwrite is set.
func MergeSnapshot(db *DB, text string, overwrite bool) error {
	doc, err := parseSnapshot(text)
	if err != nil {
		return err
	}
	for _, st := range doc.Tables {
		if db.Tables().Has(st.Name) && !overwrite {
			continue
		}
		t, err := tableFromSnapshot(st)
		if err != nil {
			return err
		}
		db.Tables().Replace(t)
	}
	ctx := context.Background()
	for _, tr := range doc.Triggers {
		if db.HasTrigger(tr.Name) {
			if !overwrite {
				continue
			}
			if _, err := db.ExecuteNonQuery(ctx, fmt.Sprintf("DROP TRIGGER [%s]", tr.Name)); err != nil {
				return fmt.Errorf("%w: trigger %q: %v", ErrSerialization, tr.Name, err)
			}
		}
		if _, err := db.ExecuteNonQuery(ctx, tr.SQL); err != nil {
			return fmt.Errorf("%w: trigger %q: %v", ErrSerialization, tr.Name, err)
		}
	}
	return nil
}
