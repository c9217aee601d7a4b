// Package exporter renders result grids to interchange formats: CSV, JSON,
// and YAML. Values serialize through their canonical textual forms where the
// format is text-based (CSV) and as typed scalars where it is structured
// (JSON, YAML).
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/slimSQL/internal/engine"
)

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

func valueToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case uuid.UUID:
		return t.String()
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// scalar converts engine values to plain scalars for structured encoders.
func scalar(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case uuid.UUID:
		return t.String()
	default:
		return v
	}
}

// CSV writes the grid as delimited text, headers first unless disabled.
func CSV(w io.Writer, rs *engine.ResultSet, opt Options) error {
	cw := csv.NewWriter(w)
	if opt.CSVDelimiter != 0 {
		cw.Comma = opt.CSVDelimiter
	}
	if !opt.CSVNoHeader {
		if err := cw.Write(rs.Cols); err != nil {
			return err
		}
	}
	rec := make([]string, len(rs.Cols))
	for _, row := range rs.Rows {
		for i := range rs.Cols {
			var v any
			if i < len(row) {
				v = row[i]
			}
			rec[i] = valueToString(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// rowObjects renders each row as a column-keyed map.
func rowObjects(rs *engine.ResultSet) []map[string]any {
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		obj := make(map[string]any, len(rs.Cols))
		for i, c := range rs.Cols {
			var v any
			if i < len(row) {
				v = row[i]
			}
			obj[c] = scalar(v)
		}
		out = append(out, obj)
	}
	return out
}

// JSON writes the grid as an array of column-keyed objects.
func JSON(w io.Writer, rs *engine.ResultSet, opt Options) error {
	enc := json.NewEncoder(w)
	if opt.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rowObjects(rs))
}

// YAML writes the grid as a sequence of column-keyed mappings.
func YAML(w io.Writer, rs *engine.ResultSet) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(rowObjects(rs))
}
