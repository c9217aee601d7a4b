package engine

import (
	"testing"

	"github.com/google/uuid"
)

func TestStringFunctions(t *testing.T) {
	db := NewDB()
	cases := []struct {
		sql  string
		want any
	}{
		{`SELECT UPPER('abc')`, "ABC"},
		{`SELECT UCASE('abc')`, "ABC"},
		{`SELECT LOWER('ABC')`, "abc"},
		{`SELECT LEN('hello')`, int64(5)},
		{`SELECT LENGTH('hello')`, int64(5)},
		{`SELECT TRIM('  x  ')`, "x"},
		{`SELECT LTRIM('  x  ')`, "x  "},
		{`SELECT RTRIM('  x  ')`, "  x"},
		{`SELECT REVERSE('abc')`, "cba"},
		{`SELECT CONCAT('a', 1, 'b')`, "a1b"},
		{`SELECT CONCAT_WS('-', 'a', NULL, 'b')`, "a-b"},
		{`SELECT REPLACE('banana', 'an', 'om')`, "bomoma"},
		{`SELECT SUBSTRING('abcdef', 2, 3)`, "bcd"},
		{`SELECT SUBSTR('abcdef', 4)`, "def"},
		{`SELECT MID('abcdef', 1, 2)`, "ab"},
		{`SELECT LEFT('abcdef', 2)`, "ab"},
		{`SELECT RIGHT('abcdef', 2)`, "ef"},
		{`SELECT CHARINDEX('CD', 'abcdef')`, int64(3)},
		{`SELECT LOCATE('zz', 'abcdef')`, int64(0)},
		{`SELECT PATINDEX('%cd%', 'abcdef')`, int64(3)},
		{`SELECT REPLICATE('ab', 3)`, "ababab"},
		{`SELECT REPEAT('x', 2)`, "xx"},
		{`SELECT SPACE(3)`, "   "},
		{`SELECT STR(42)`, "42"},
		{`SELECT TOSTRING(true)`, "true"},
		{`SELECT ASCII('A')`, int64(65)},
		{`SELECT CHAR(66)`, "B"},
	}
	for _, c := range cases {
		if v := mustScalar(t, db, c.sql); v != c.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", c.sql, c.want, c.want, v, v)
		}
	}
}

func TestNumericFunctions(t *testing.T) {
	db := NewDB()
	cases := []struct {
		sql  string
		want any
	}{
		{`SELECT ABS(-5)`, int64(5)},
		{`SELECT ABS(-5.5)`, float64(5.5)},
		{`SELECT ROUND(2.5)`, float64(3)},
		{`SELECT ROUND(-2.5)`, float64(-3)},
		{`SELECT ROUND(2.346, 2)`, float64(2.35)},
		{`SELECT FLOOR(2.9)`, float64(2)},
		{`SELECT CEILING(2.1)`, float64(3)},
		{`SELECT CEIL(2.1)`, float64(3)},
		{`SELECT POWER(2, 10)`, float64(1024)},
		{`SELECT SQRT(81)`, float64(9)},
		{`SELECT SIGN(-3.2)`, int64(-1)},
		{`SELECT SIGN(0)`, int64(0)},
		{`SELECT MOD(7, 3)`, int64(1)},
	}
	for _, c := range cases {
		if v := mustScalar(t, db, c.sql); v != c.want {
			t.Fatalf("%s: expected %v, got %v", c.sql, c.want, v)
		}
	}
	if v := mustScalar(t, db, `SELECT PI()`); v.(float64) < 3.14 || v.(float64) > 3.15 {
		t.Fatalf("PI: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT RAND()`); v.(float64) < 0 || v.(float64) >= 1 {
		t.Fatalf("RAND out of range: %v", v)
	}
	if v := mustScalar(t, db, `SELECT LOG(EXP(1))`); v.(float64) < 0.999 || v.(float64) > 1.001 {
		t.Fatalf("LOG/EXP: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT LOG(8, 2)`); v.(float64) < 2.999 || v.(float64) > 3.001 {
		t.Fatalf("LOG base 2: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT LOG10(1000)`); v.(float64) < 2.999 || v.(float64) > 3.001 {
		t.Fatalf("LOG10: got %v", v)
	}
}

func TestNullFunctions(t *testing.T) {
	db := NewDB()
	if v := mustScalar(t, db, `SELECT COALESCE(NULL, NULL, 5)`); v != int64(5) {
		t.Fatalf("COALESCE: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT NVL(NULL, 'x')`); v != "x" {
		t.Fatalf("NVL: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT IFNULL('a', 'b')`); v != "a" {
		t.Fatalf("IFNULL: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT NULLIF(2, 2)`); v != nil {
		t.Fatalf("NULLIF equal: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT NULLIF(2, 3)`); v != int64(2) {
		t.Fatalf("NULLIF different: got %v", v)
	}
}

func TestDateFunctions(t *testing.T) {
	db := NewDB()
	if v := mustScalar(t, db, `SELECT YEAR('2024-03-15')`); v != int64(2024) {
		t.Fatalf("YEAR: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT MONTH('2024-03-15')`); v != int64(3) {
		t.Fatalf("MONTH: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT DAY('2024-03-15')`); v != int64(15) {
		t.Fatalf("DAY: got %v", v)
	}
	cases := []struct {
		sql  string
		want int64
	}{
		{`SELECT DATEDIFF('DAY', '2024-01-01', '2024-01-31')`, 30},
		{`SELECT DATEDIFF('YEAR', '2020-06-01', '2024-01-01')`, 4},
		{`SELECT DATEDIFF('MONTH', '2024-01-15', '2024-03-01')`, 2},
		{`SELECT DATEDIFF('HOUR', '2024-01-01 00:00:00', '2024-01-01 05:30:00')`, 5},
		{`SELECT DATEDIFF('MINUTE', '2024-01-01 00:00:00', '2024-01-01 01:30:00')`, 90},
		{`SELECT DATEDIFF('SECOND', '2024-01-01 00:00:00', '2024-01-01 00:01:00')`, 60},
	}
	for _, c := range cases {
		if v := mustScalar(t, db, c.sql); v != c.want {
			t.Fatalf("%s: expected %d, got %v", c.sql, c.want, v)
		}
	}
}

func TestFlowFunctions(t *testing.T) {
	db := NewDB()
	if v := mustScalar(t, db, `SELECT IIF(2 > 1, 'yes', 'no')`); v != "yes" {
		t.Fatalf("IIF: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT IF(NULL, 'yes', 'no')`); v != "no" {
		t.Fatalf("IF with NULL condition: got %v", v)
	}
	v := mustScalar(t, db, `SELECT NEWID()`)
	if _, ok := v.(uuid.UUID); !ok {
		t.Fatalf("NEWID should return a uuid, got %T", v)
	}
	a := mustScalar(t, db, `SELECT UUID()`)
	b := mustScalar(t, db, `SELECT NEWGUID()`)
	if a == b {
		t.Fatalf("two generated uuids should differ")
	}
}
