package engine

import (
	"testing"
)

func evalSQL(t *testing.T, db *DB, expr string) any {
	t.Helper()
	return mustScalar(t, db, "SELECT "+expr)
}

func TestOperatorPrecedence(t *testing.T) {
	db := NewDB()
	cases := []struct {
		expr string
		want any
	}{
		{`1 + 2 * 3`, int64(7)},
		{`(1 + 2) * 3`, int64(9)},
		{`10 - 4 - 3`, int64(3)},
		{`7 % 4`, int64(3)},
		{`-3 + 5`, int64(2)},
		{`10 / 4`, float64(2.5)},
		{`2 < 3 AND 3 < 2 OR 1 = 1`, true},
		{`NOT 1 = 2`, true},
		{`NOT TRUE`, false},
	}
	for _, c := range cases {
		if v := evalSQL(t, db, c.expr); v != c.want {
			t.Fatalf("%s: expected %v (%T), got %v (%T)", c.expr, c.want, c.want, v, v)
		}
	}
}

func TestNullCollapsesToFalse(t *testing.T) {
	db := NewDB()
	// two-valued logic on purpose: null is false in boolean contexts
	if v := evalSQL(t, db, `IIF(NULL = NULL, 'eq', 'ne')`); v != "ne" {
		t.Fatalf("null must not equal null, got %v", v)
	}
	if v := evalSQL(t, db, `NULL IS NULL`); v != true {
		t.Fatalf("IS NULL: got %v", v)
	}
	if v := evalSQL(t, db, `1 IS NOT NULL`); v != true {
		t.Fatalf("IS NOT NULL: got %v", v)
	}
	if v := evalSQL(t, db, `1 + NULL`); v != nil {
		t.Fatalf("numeric op with null propagates null, got %v", v)
	}
}

func TestLikeMatching(t *testing.T) {
	cases := []struct {
		s, pat string
		want   bool
	}{
		{"Drill", "Dr__l", true},
		{"Drill", "dr%", true},
		{"Drill", "%ILL", true},
		{"Drill", "ril", false}, // anchored, not a substring search
		{"50%", "50\\%", false}, // no escape syntax: backslash is literal
		{"a.c", "a.c", true},    // regex metacharacters are escaped
		{"abc", "a.c", false},
	}
	for _, c := range cases {
		if got := likeMatch(c.s, c.pat); got != c.want {
			t.Fatalf("likeMatch(%q, %q): expected %v, got %v", c.s, c.pat, c.want, got)
		}
	}
}

func TestCanonicalAggKeyNormalization(t *testing.T) {
	lower := Tokenize("count(*)")
	upper := Tokenize("COUNT( * )")
	a := wholeWindowAggCall(lower[:len(lower)-1])
	b := wholeWindowAggCall(upper[:len(upper)-1])
	if a == nil || b == nil {
		t.Fatalf("both spellings should parse as aggregate calls")
	}
	if a.Key != b.Key || a.Key != "COUNT(*)" {
		t.Fatalf("expected identical canonical keys, got %q vs %q", a.Key, b.Key)
	}

	mixed := Tokenize("sum( DISTINCT price )")
	c := wholeWindowAggCall(mixed[:len(mixed)-1])
	if c == nil || c.Key != "SUM(DISTINCT PRICE)" {
		t.Fatalf("unexpected canonical key: %+v", c)
	}
	if !c.Distinct {
		t.Fatalf("DISTINCT flag not detected")
	}
}

func TestSplitItemAlias(t *testing.T) {
	win := Tokenize("Price AS p")
	expr, alias := splitItemAlias(win[:len(win)-1])
	if alias != "p" || len(expr) != 1 {
		t.Fatalf("AS alias: got %q / %v", alias, expr)
	}
	win = Tokenize("Price p")
	expr, alias = splitItemAlias(win[:len(win)-1])
	if alias != "p" || len(expr) != 1 {
		t.Fatalf("bare alias: got %q / %v", alias, expr)
	}
	win = Tokenize("a.b")
	expr, alias = splitItemAlias(win[:len(win)-1])
	if alias != "" || len(expr) != 3 {
		t.Fatalf("qualified column must keep its tail: got %q / %v", alias, expr)
	}
}

func TestUserFuncParamCoercion(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE FUNCTION Half(@n INT) RETURNS FLOAT AS BEGIN RETURN @n / 2; END`)
	if v := evalSQL(t, db, `Half('10')`); v != float64(5) {
		t.Fatalf("expected 5.0, got %v", v)
	}
}

func TestNestedCase(t *testing.T) {
	db := NewDB()
	v := evalSQL(t, db, `CASE WHEN 1 = 1 THEN CASE WHEN 2 = 3 THEN 'inner-a' ELSE 'inner-b' END ELSE 'outer' END`)
	if v != "inner-b" {
		t.Fatalf("nested CASE: got %v", v)
	}
}

func TestBareTrailingNotNegatesLeft(t *testing.T) {
	db := NewDB()
	if v := evalSQL(t, db, `IIF(0 NOT, 'negated-true', 'negated-false')`); v != "negated-true" {
		t.Fatalf("trailing NOT should negate truthiness, got %v", v)
	}
}
