// Package storage provides the data structures of the slimSQL engine.
//
// What: A dynamically typed value layer (null, bool, int64, float64, string,
// time.Time, uuid.UUID), coarse column typing with write-time coercion, and
// an in-memory catalog of columnar tables.
// How: Values travel as `any`; comparison, truthiness, and coercion rules are
// centralized here so the expression evaluator and the executor agree on
// semantics. Tables keep one value slice per column, all of equal length.
// Why: A small explicit model keeps the engine understandable and sufficient
// for embedded use; there is no pager, no WAL, and no locking because the
// engine is strictly in-memory and single-threaded per instance.
package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ColType is the coarse declared type of a column.
type ColType int

const (
	AnyType ColType = iota
	IntType
	FloatType
	BoolType
	TextType
	TimestampType
	UuidType
)

var colTypeNames = map[ColType]string{
	AnyType:       "ANY",
	IntType:       "INT",
	FloatType:     "FLOAT",
	BoolType:      "BOOL",
	TextType:      "TEXT",
	TimestampType: "TIMESTAMP",
	UuidType:      "UNIQUEIDENTIFIER",
}

func (t ColType) String() string {
	if s, ok := colTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// TypeFromName maps a SQL type name to its coarse tag. Unknown names map to
// TextType, so exotic declarations degrade to text instead of failing DDL.
func TypeFromName(name string) ColType {
	switch strings.ToUpper(name) {
	case "INT", "INT8", "INT16", "INT32", "INT64", "INTEGER", "BIGINT",
		"SMALLINT", "TINYINT", "LONG", "IDENTITY", "SERIAL":
		return IntType
	case "FLOAT", "FLOAT32", "FLOAT64", "DOUBLE", "REAL", "DECIMAL",
		"NUMERIC", "MONEY":
		return FloatType
	case "BIT", "BOOL", "BOOLEAN":
		return BoolType
	case "TEXT", "STRING", "VARCHAR", "NVARCHAR", "CHAR", "NCHAR", "CLOB":
		return TextType
	case "DATE", "TIME", "DATETIME", "DATETIME2", "SMALLDATETIME",
		"TIMESTAMP":
		return TimestampType
	case "UNIQUEIDENTIFIER", "UUID", "GUID":
		return UuidType
	}
	return TextType
}

// timeFormats are tried in order when parsing a textual timestamp.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// ParseTime parses a textual timestamp using the supported layouts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range timeFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as timestamp", s)
}

// IsInteger reports whether v carries an integer-typed value.
func IsInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// AsInt64 narrows any Go integer flavor to int64.
func AsInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

// AsFloat widens a numeric value to float64 without textual fallback.
func AsFloat(v any) (float64, bool) {
	if n, ok := AsInt64(v); ok {
		return float64(n), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ToFloat coerces v to float64, falling back to textual parsing. Booleans
// count as 0/1; this is the numeric coercion used by arithmetic.
func ToFloat(v any) (float64, bool) {
	if f, ok := AsFloat(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ToInt64 coerces v to int64, truncating floats and parsing text.
func ToInt64(v any) (int64, bool) {
	if n, ok := AsInt64(v); ok {
		return n, true
	}
	switch x := v.(type) {
	case float32:
		return int64(x), true
	case float64:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// Truthy collapses a value to a two-valued boolean: null is false, numbers
// are nonzero, text is nonempty, everything else (timestamps, uuids) is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		if f, ok := AsFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// Text renders a value in its canonical textual form. This rendering is what
// group keys, DISTINCT keys, and string concatenation observe.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	case uuid.UUID:
		return x.String()
	default:
		if n, ok := AsInt64(v); ok {
			return strconv.FormatInt(n, 10)
		}
		return fmt.Sprintf("%v", v)
	}
}

// Equal implements SQL-style equality: case-insensitive for text, numeric
// across the int/float split, chronological for timestamps. Null equals
// nothing, including null.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if af, aok := AsFloat(a); aok {
		if bf, bok := AsFloat(b); bok {
			return af == bf
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Equal(bt)
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	if au, aok := a.(uuid.UUID); aok {
		if bu, bok := b.(uuid.UUID); bok {
			return au == bu
		}
	}
	return strings.EqualFold(Text(a), Text(b))
}

// Compare is the total order used by ORDER BY, MIN/MAX, and BETWEEN:
// nulls sort before non-nulls, numbers compare numerically, timestamps
// chronologically, and everything else by case-insensitive text.
func Compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := AsFloat(a); aok {
		if bf, bok := AsFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(Text(a)), strings.ToLower(Text(b)))
}

// InferType guesses the coarse tag for the first non-null value written into
// an untyped column.
func InferType(v any) ColType {
	switch v.(type) {
	case nil:
		return AnyType
	case bool:
		return BoolType
	case float32, float64:
		return FloatType
	case string:
		return TextType
	case time.Time:
		return TimestampType
	case uuid.UUID:
		return UuidType
	}
	if IsInteger(v) {
		return IntType
	}
	return TextType
}

// CoerceTo converts v to the declared column type. Nulls always pass. A
// value that cannot be represented in the target type is a type mismatch.
func CoerceTo(v any, t ColType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case AnyType:
		return v, nil
	case IntType:
		if n, ok := ToInt64(v); ok {
			return n, nil
		}
	case FloatType:
		if f, ok := ToFloat(v); ok {
			return f, nil
		}
	case BoolType:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			s := strings.ToLower(strings.TrimSpace(x))
			if s == "true" || s == "1" || s == "t" || s == "yes" {
				return true, nil
			}
			if s == "false" || s == "0" || s == "f" || s == "no" {
				return false, nil
			}
		default:
			if f, ok := AsFloat(v); ok {
				return f != 0, nil
			}
		}
	case TextType:
		return Text(v), nil
	case TimestampType:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			if ts, err := ParseTime(x); err == nil {
				return ts, nil
			}
		}
	case UuidType:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			if u, err := uuid.Parse(strings.TrimSpace(x)); err == nil {
				return u, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot convert %v (%T) to %s", ErrTypeMismatch, v, v, t)
}
