package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCompareTotalOrder(t *testing.T) {
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		a, b any
		want int
	}{
		{nil, nil, 0},
		{nil, int64(0), -1},
		{int64(1), nil, 1},
		{int64(1), int64(2), -1},
		{int64(2), float64(2), 0},
		{float64(2.5), int64(2), 1},
		{early, late, -1},
		{"apple", "Banana", -1},
		{"ABC", "abc", 0},
	}
	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.want {
			t.Fatalf("Compare(%v, %v): expected %d, got %d", c.a, c.b, c.want, got)
		}
	}
}

func TestEqualSemantics(t *testing.T) {
	if !Equal(int64(1), float64(1)) {
		t.Fatalf("numeric equality should ignore the int/float split")
	}
	if !Equal("Hello", "hello") {
		t.Fatalf("text equality should ignore case")
	}
	if Equal(nil, nil) {
		t.Fatalf("null equals nothing, including null")
	}
	u := uuid.New()
	if !Equal(u, u) {
		t.Fatalf("uuid should equal itself")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{int64(0), false},
		{int64(3), true},
		{float64(0), false},
		{"", false},
		{"x", true},
		{true, true},
		{false, false},
		{time.Now(), true},
		{uuid.New(), true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Fatalf("Truthy(%v): expected %v, got %v", c.v, c.want, got)
		}
	}
}

func TestCoerceTo(t *testing.T) {
	if v, err := CoerceTo("42", IntType); err != nil || v != int64(42) {
		t.Fatalf("string to int: %v / %v", v, err)
	}
	if v, err := CoerceTo(int64(1), BoolType); err != nil || v != true {
		t.Fatalf("int to bool: %v / %v", v, err)
	}
	if v, err := CoerceTo(nil, IntType); err != nil || v != nil {
		t.Fatalf("null always passes: %v / %v", v, err)
	}
	if _, err := CoerceTo("nope", IntType); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	v, err := CoerceTo("2024-06-01 12:00:00", TimestampType)
	if err != nil {
		t.Fatalf("string to timestamp: %v", err)
	}
	if ts := v.(time.Time); ts.Year() != 2024 || ts.Hour() != 12 {
		t.Fatalf("unexpected timestamp: %v", ts)
	}
	u := uuid.New()
	if v, err := CoerceTo(u.String(), UuidType); err != nil || v != u {
		t.Fatalf("string to uuid: %v / %v", v, err)
	}
}

func TestTypeFromName(t *testing.T) {
	cases := map[string]ColType{
		"INT":              IntType,
		"bigint":           IntType,
		"VARCHAR":          TextType,
		"nvarchar":         TextType,
		"FLOAT":            FloatType,
		"DECIMAL":          FloatType,
		"BIT":              BoolType,
		"DATETIME":         TimestampType,
		"UNIQUEIDENTIFIER": UuidType,
		"GEOMETRY":         TextType, // unknown types degrade to text
	}
	for name, want := range cases {
		if got := TypeFromName(name); got != want {
			t.Fatalf("TypeFromName(%q): expected %v, got %v", name, want, got)
		}
	}
}
