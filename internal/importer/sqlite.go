package importer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// FromSQLite reads every user table of a SQLite database file into in-memory
// tables. Declared SQLite types map onto the coarse tags; columns without a
// usable declaration come in untyped and adopt the type of their first
// non-null value.
func FromSQLite(ctx context.Context, path string) ([]*storage.Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var out []*storage.Table
	for _, name := range names {
		t, err := readSQLiteTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func readSQLiteTable(ctx context.Context, db *sql.DB, name string) (*storage.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+strings.ReplaceAll(name, `"`, `""`)+`"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]storage.Column, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = storage.Column{
			Name: ct.Name(),
			Type: sqliteDeclToType(ct.DatabaseTypeName()),
		}
	}
	t, err := storage.NewTable(name, cols)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		vals := make([]any, len(cols))
		for i, v := range raw {
			vals[i] = sqliteValue(v)
		}
		if err := t.AppendRow(vals); err != nil {
			return nil, err
		}
	}
	return t, rows.Err()
}

func sqliteDeclToType(decl string) storage.ColType {
	up := strings.ToUpper(decl)
	switch {
	case up == "":
		return storage.AnyType
	case strings.Contains(up, "INT"):
		return storage.IntType
	case strings.Contains(up, "REAL"), strings.Contains(up, "FLOA"),
		strings.Contains(up, "DOUB"), strings.Contains(up, "NUMERIC"),
		strings.Contains(up, "DECIMAL"):
		return storage.FloatType
	case strings.Contains(up, "BOOL"):
		return storage.BoolType
	case strings.Contains(up, "DATE"), strings.Contains(up, "TIME"):
		return storage.TimestampType
	}
	return storage.TextType
}

func sqliteValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x
	default:
		return v
	}
}
