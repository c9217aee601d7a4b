// Expression evaluation for slimSQL.
//
// What: A precedence-climbing evaluator that runs directly over a token
// slice: OR, AND, NOT, the comparison layer (IS NULL, BETWEEN, IN, LIKE,
// binary comparisons), additive and multiplicative arithmetic, unary minus,
// and primaries (literals, CASE, CAST/CONVERT, function calls, column
// references).
// How: The executor captures sub-expressions (WHERE, ON, assignment right
// sides, trigger conditions) as windows over one shared token buffer; each
// evaluation walks its window with a fresh cursor against the current row
// bindings. CASE branches are split structurally first so only the taken
// branch is evaluated. Aggregate calls probe the row for a precomputed value
// under their canonical key before falling back to per-row contributions.
// Why: Evaluating tokens in place avoids a separate AST layer and keeps the
// canonical aggregate key (the joined inner-token text) trivially identical
// between the SELECT-list precompute and later probes from HAVING or ORDER BY.
package engine

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

type evalContext struct {
	ctx context.Context
	db  *DB
	row Row
}

type exprEval struct {
	toks []token
	pos  int
	ec   *evalContext
}

func getVal(row Row, name string) (any, bool) {
	v, ok := row[strings.ToLower(name)]
	return v, ok
}

func putVal(row Row, key string, val any) { row[strings.ToLower(key)] = val }

func checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// evalTokens evaluates one captured expression window against ec's row.
func evalTokens(ec *evalContext, toks []token) (any, error) {
	if err := checkCtx(ec.ctx); err != nil {
		return nil, err
	}
	e := &exprEval{toks: toks, ec: ec}
	return e.parseOr()
}

func (e *exprEval) cur() token {
	if e.pos >= len(e.toks) {
		return token{Typ: tEOF}
	}
	return e.toks[e.pos]
}

func (e *exprEval) peek() token {
	if e.pos+1 >= len(e.toks) {
		return token{Typ: tEOF}
	}
	return e.toks[e.pos+1]
}

func (e *exprEval) next() { e.pos++ }

func (e *exprEval) isKw(kw string) bool {
	t := e.cur()
	return t.Typ == tKeyword && t.Val == kw
}

func (e *exprEval) isSym(s string) bool {
	t := e.cur()
	return t.Typ == tSymbol && t.Val == s
}

func (e *exprEval) matchKw(kw string) bool {
	if e.isKw(kw) {
		e.next()
		return true
	}
	return false
}

func (e *exprEval) expectSym(s string) error {
	if e.isSym(s) {
		e.next()
		return nil
	}
	return e.errf("expected %q", s)
}

func (e *exprEval) errf(format string, a ...any) error {
	return fmt.Errorf("%w near %q: %s", ErrParse, e.cur().Val, fmt.Sprintf(format, a...))
}

func (e *exprEval) parseOr() (any, error) {
	l, err := e.parseAnd()
	if err != nil {
		return nil, err
	}
	for e.matchKw("OR") {
		r, err := e.parseAnd()
		if err != nil {
			return nil, err
		}
		l = storage.Truthy(l) || storage.Truthy(r)
	}
	return l, nil
}

func (e *exprEval) parseAnd() (any, error) {
	l, err := e.parseNot()
	if err != nil {
		return nil, err
	}
	for e.matchKw("AND") {
		r, err := e.parseNot()
		if err != nil {
			return nil, err
		}
		l = storage.Truthy(l) && storage.Truthy(r)
	}
	return l, nil
}

func (e *exprEval) parseNot() (any, error) {
	if e.matchKw("NOT") {
		v, err := e.parseNot()
		if err != nil {
			return nil, err
		}
		return !storage.Truthy(v), nil
	}
	return e.parseComparison()
}

// parseComparison handles the single-predicate layer: IS [NOT] NULL,
// [NOT] BETWEEN, [NOT] IN, [NOT] LIKE, or one binary comparison operator.
func (e *exprEval) parseComparison() (any, error) {
	l, err := e.parseAddSub()
	if err != nil {
		return nil, err
	}
	if e.matchKw("IS") {
		neg := e.matchKw("NOT")
		if !e.matchKw("NULL") {
			return nil, e.errf("expected NULL after IS")
		}
		return (l == nil) != neg, nil
	}
	neg := e.matchKw("NOT")
	switch {
	case e.matchKw("BETWEEN"):
		lo, err := e.parseAddSub()
		if err != nil {
			return nil, err
		}
		if !e.matchKw("AND") {
			return nil, e.errf("expected AND in BETWEEN")
		}
		hi, err := e.parseAddSub()
		if err != nil {
			return nil, err
		}
		if l == nil {
			return neg, nil
		}
		in := storage.Compare(l, lo) >= 0 && storage.Compare(l, hi) <= 0
		return in != neg, nil
	case e.matchKw("IN"):
		if err := e.expectSym("("); err != nil {
			return nil, err
		}
		found := false
		for {
			v, err := e.parseOr()
			if err != nil {
				return nil, err
			}
			if storage.Equal(l, v) {
				found = true
			}
			if e.isSym(",") {
				e.next()
				continue
			}
			break
		}
		if err := e.expectSym(")"); err != nil {
			return nil, err
		}
		return found != neg, nil
	case e.matchKw("LIKE"):
		pat, err := e.parseAddSub()
		if err != nil {
			return nil, err
		}
		if l == nil || pat == nil {
			return neg, nil
		}
		return likeMatch(storage.Text(l), storage.Text(pat)) != neg, nil
	}
	if neg {
		// a trailing bare NOT negates the left sub-expression
		return !storage.Truthy(l), nil
	}
	if t := e.cur(); t.Typ == tSymbol {
		switch t.Val {
		case "=", "!=", "<>", "<", "<=", ">", ">=":
			op := t.Val
			e.next()
			r, err := e.parseAddSub()
			if err != nil {
				return nil, err
			}
			return compareOp(op, l, r), nil
		}
	}
	return l, nil
}

func compareOp(op string, l, r any) bool {
	if l == nil || r == nil {
		return false
	}
	switch op {
	case "=":
		return storage.Equal(l, r)
	case "!=", "<>":
		return !storage.Equal(l, r)
	}
	c := storage.Compare(l, r)
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func (e *exprEval) parseAddSub() (any, error) {
	l, err := e.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for e.isSym("+") || e.isSym("-") {
		op := e.cur().Val
		e.next()
		r, err := e.parseMulDiv()
		if err != nil {
			return nil, err
		}
		l, err = arith(op, l, r)
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (e *exprEval) parseMulDiv() (any, error) {
	l, err := e.parseUnary()
	if err != nil {
		return nil, err
	}
	for e.isSym("*") || e.isSym("/") || e.isSym("%") {
		op := e.cur().Val
		e.next()
		r, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		l, err = arith(op, l, r)
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (e *exprEval) parseUnary() (any, error) {
	if e.isSym("-") {
		e.next()
		v, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		return negate(v)
	}
	if e.isSym("+") {
		e.next()
		return e.parseUnary()
	}
	return e.parsePrimary()
}

func negate(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if n, ok := storage.AsInt64(v); ok {
		return -n, nil
	}
	if f, ok := storage.ToFloat(v); ok {
		return -f, nil
	}
	return nil, fmt.Errorf("%w: unary - expects a number, got %T", ErrTypeMismatch, v)
}

// arith implements +, -, *, /, %. Plus is polymorphic: if either side is
// text the operation is concatenation. Two integers stay integral except
// under division; division or modulo by zero aborts the statement.
func arith(op string, l, r any) (any, error) {
	if op == "+" {
		if _, ok := l.(string); ok {
			return storage.Text(l) + storage.Text(r), nil
		}
		if _, ok := r.(string); ok {
			return storage.Text(l) + storage.Text(r), nil
		}
	}
	if l == nil || r == nil {
		return nil, nil
	}
	if op != "/" && storage.IsInteger(l) && storage.IsInteger(r) {
		ln, _ := storage.AsInt64(l)
		rn, _ := storage.AsInt64(r)
		switch op {
		case "+":
			return ln + rn, nil
		case "-":
			return ln - rn, nil
		case "*":
			return ln * rn, nil
		case "%":
			if rn == 0 {
				return nil, ErrDivideByZero
			}
			return ln % rn, nil
		}
	}
	lf, lok := storage.ToFloat(l)
	rf, rok := storage.ToFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s expects numeric operands", ErrTypeMismatch, op)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, ErrDivideByZero
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, ErrDivideByZero
		}
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrParse, op)
}

func (e *exprEval) parsePrimary() (any, error) {
	t := e.cur()
	switch t.Typ {
	case tNumber:
		e.next()
		if strings.ContainsAny(t.Val, ".eE") {
			f, err := strconv.ParseFloat(t.Val, 64)
			if err != nil {
				return nil, e.errf("bad number %q", t.Val)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(t.Val, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(t.Val, 64)
			if ferr != nil {
				return nil, e.errf("bad number %q", t.Val)
			}
			return f, nil
		}
		return n, nil
	case tString:
		e.next()
		return t.Val, nil
	case tSymbol:
		if t.Val == "(" {
			e.next()
			v, err := e.parseOr()
			if err != nil {
				return nil, err
			}
			if err := e.expectSym(")"); err != nil {
				return nil, err
			}
			return v, nil
		}
	case tKeyword:
		switch t.Val {
		case "NULL":
			e.next()
			return nil, nil
		case "TRUE":
			e.next()
			return true, nil
		case "FALSE":
			e.next()
			return false, nil
		case "CASE":
			e.next()
			return e.parseCase()
		case "CAST":
			e.next()
			return e.parseCast()
		case "CONVERT":
			e.next()
			return e.parseConvert()
		default:
			// keywords doubling as function names (LEFT, RIGHT, CHAR, IF, ...)
			if e.peek().Typ == tSymbol && e.peek().Val == "(" {
				e.next()
				return e.parseFuncCall(t.Val)
			}
			return nil, e.errf("unexpected keyword %q", t.Val)
		}
	case tIdent:
		if e.peek().Typ == tSymbol && e.peek().Val == "(" {
			e.next()
			return e.parseFuncCall(t.Val)
		}
		e.next()
		name := t.Val
		if e.isSym(".") && e.peek().Typ != tEOF {
			e.next()
			col := e.cur()
			if col.Typ != tIdent && col.Typ != tKeyword {
				return nil, e.errf("expected column after %q.", name)
			}
			e.next()
			qualified := name + "." + col.Val
			if v, ok := getVal(e.ec.row, qualified); ok {
				return v, nil
			}
			if v, ok := getVal(e.ec.row, col.Val); ok {
				return v, nil
			}
			return nil, fmt.Errorf("%w: column %q", ErrNotFound, qualified)
		}
		if v, ok := getVal(e.ec.row, name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: column %q", ErrNotFound, name)
	}
	return nil, e.errf("unexpected token")
}

// parseCase splits the CASE body structurally (tracking nested CASE and
// parens) and then evaluates only the branch that wins; the first matching
// WHEN terminates the whole CASE.
func (e *exprEval) parseCase() (any, error) {
	type branch struct{ cond, result []token }
	var branches []branch
	var elseWin []token

	// capture the base expression of the simple form, if any
	base, err := e.captureUntilKw("WHEN")
	if err != nil {
		return nil, err
	}
	for e.matchKw("WHEN") {
		cond, err := e.captureUntilKw("THEN")
		if err != nil {
			return nil, err
		}
		e.next() // THEN
		result, err := e.captureUntilKw("WHEN", "ELSE", "END")
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch{cond: cond, result: result})
	}
	if e.matchKw("ELSE") {
		var err error
		elseWin, err = e.captureUntilKw("END")
		if err != nil {
			return nil, err
		}
	}
	if !e.matchKw("END") {
		return nil, e.errf("expected END to close CASE")
	}

	var baseVal any
	simple := len(base) > 0
	if simple {
		v, err := evalTokens(e.ec, base)
		if err != nil {
			return nil, err
		}
		baseVal = v
	}
	for _, b := range branches {
		cv, err := evalTokens(e.ec, b.cond)
		if err != nil {
			return nil, err
		}
		hit := false
		if simple {
			hit = storage.Equal(baseVal, cv)
		} else {
			hit = storage.Truthy(cv)
		}
		if hit {
			return evalTokens(e.ec, b.result)
		}
	}
	if elseWin != nil {
		return evalTokens(e.ec, elseWin)
	}
	return nil, nil
}

// captureUntilKw collects tokens up to (not including) one of the stop
// keywords at depth zero, where nested parens and nested CASE...END pairs
// both count as depth.
func (e *exprEval) captureUntilKw(stops ...string) ([]token, error) {
	var out []token
	parens, cases := 0, 0
	for {
		t := e.cur()
		if t.Typ == tEOF {
			return nil, e.errf("unterminated CASE")
		}
		if parens == 0 && cases == 0 && t.Typ == tKeyword {
			for _, s := range stops {
				if t.Val == s {
					return out, nil
				}
			}
		}
		switch {
		case t.Typ == tSymbol && t.Val == "(":
			parens++
		case t.Typ == tSymbol && t.Val == ")":
			parens--
		case t.Typ == tKeyword && t.Val == "CASE":
			cases++
		case t.Typ == tKeyword && t.Val == "END" && cases > 0:
			cases--
		}
		out = append(out, t)
		e.next()
	}
}

// parseCast evaluates CAST(expr AS type[(precision[,scale])]).
func (e *exprEval) parseCast() (any, error) {
	if err := e.expectSym("("); err != nil {
		return nil, err
	}
	v, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	if !e.matchKw("AS") {
		return nil, e.errf("expected AS in CAST")
	}
	typ, err := e.parseTypeName()
	if err != nil {
		return nil, err
	}
	if err := e.expectSym(")"); err != nil {
		return nil, err
	}
	return storage.CoerceTo(v, typ)
}

// parseConvert evaluates the T-SQL flavored CONVERT(type, expr).
func (e *exprEval) parseConvert() (any, error) {
	if err := e.expectSym("("); err != nil {
		return nil, err
	}
	typ, err := e.parseTypeName()
	if err != nil {
		return nil, err
	}
	if err := e.expectSym(","); err != nil {
		return nil, err
	}
	v, err := e.parseOr()
	if err != nil {
		return nil, err
	}
	if err := e.expectSym(")"); err != nil {
		return nil, err
	}
	return storage.CoerceTo(v, typ)
}

// parseTypeName reads a type name and skips an optional (precision[,scale]).
func (e *exprEval) parseTypeName() (storage.ColType, error) {
	t := e.cur()
	if t.Typ != tIdent && t.Typ != tKeyword {
		return storage.AnyType, e.errf("expected type name")
	}
	e.next()
	if e.isSym("(") {
		e.next()
		for !e.isSym(")") && e.cur().Typ != tEOF {
			e.next()
		}
		if err := e.expectSym(")"); err != nil {
			return storage.AnyType, err
		}
	}
	return storage.TypeFromName(t.Val), nil
}

// likeRegexBody translates a SQL LIKE pattern: % becomes .*, _ becomes .,
// everything else is escaped. Matching is case-insensitive.
func likeRegexBody(pattern string) string {
	var b strings.Builder
	b.WriteString("(?is)")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// likePatternRegexp compiles the search form used by PATINDEX: the pattern is
// anchored at each end that has no '%', and leading/trailing '%' are dropped
// so the leftmost match starts where the pattern's first literal part does.
func likePatternRegexp(pattern string) (*regexp.Regexp, error) {
	start, end := "", ""
	if !strings.HasPrefix(pattern, "%") {
		start = "^"
	}
	if !strings.HasSuffix(pattern, "%") {
		end = "$"
	}
	body := strings.TrimRight(strings.TrimLeft(pattern, "%"), "%")
	return regexp.Compile(start + likeRegexBody(body) + end)
}

// likeMatch anchors the pattern over the whole input.
func likeMatch(s, pattern string) bool {
	re, err := regexp.Compile("^" + likeRegexBody(pattern) + "$")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// ---------------------------- function calls ----------------------------

var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

func isAggName(name string) bool { return aggregateNames[strings.ToUpper(name)] }

// captureParenWindow consumes tokens after an already-consumed '(' up to its
// matching ')' and returns the inner window.
func (e *exprEval) captureParenWindow() ([]token, error) {
	var out []token
	depth := 0
	for {
		t := e.cur()
		if t.Typ == tEOF {
			return nil, e.errf("unterminated argument list")
		}
		if t.Typ == tSymbol {
			switch t.Val {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					e.next()
					return out, nil
				}
				depth--
			}
		}
		out = append(out, t)
		e.next()
	}
}

// tokensText renders a token window in its canonical textual form: no
// separators, identifiers and keywords upper-cased, strings re-quoted.
func tokensText(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		switch t.Typ {
		case tString:
			b.WriteString("'")
			b.WriteString(strings.ReplaceAll(t.Val, "'", "''"))
			b.WriteString("'")
		case tIdent, tKeyword:
			b.WriteString(strings.ToUpper(t.Val))
		default:
			b.WriteString(t.Val)
		}
	}
	return b.String()
}

// canonicalAggKey is the stable name an aggregate value is stored under in a
// grouped row: FUNC(argsText), with DISTINCT prefixed when present and *
// preserved.
func canonicalAggKey(name string, distinct bool, inner []token) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(name))
	b.WriteString("(")
	if distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(tokensText(inner))
	b.WriteString(")")
	return b.String()
}

// parseFuncCall evaluates name(args). The cursor sits on the '(' token.
// Aggregates check the row for a precomputed value under their canonical key
// and only fall back to per-row contributions when none is present.
func (e *exprEval) parseFuncCall(name string) (any, error) {
	e.next() // consume '('
	if isAggName(name) {
		inner, err := e.captureParenWindow()
		if err != nil {
			return nil, err
		}
		distinct := false
		if len(inner) > 0 && inner[0].Typ == tKeyword && inner[0].Val == "DISTINCT" {
			distinct = true
			inner = inner[1:]
		}
		key := canonicalAggKey(name, distinct, inner)
		if v, ok := getVal(e.ec.row, key); ok {
			return v, nil
		}
		return rowLevelAggregate(e.ec, name, inner)
	}

	var args []any
	if !e.isSym(")") {
		for {
			v, err := e.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			if e.isSym(",") {
				e.next()
				continue
			}
			break
		}
	}
	if err := e.expectSym(")"); err != nil {
		return nil, err
	}
	return dispatchFunc(e.ec, name, args)
}

// rowLevelAggregate is the placeholder contribution of an aggregate outside
// a grouped row: COUNT yields its 0/1 share, the others yield the bare value.
func rowLevelAggregate(ec *evalContext, name string, inner []token) (any, error) {
	up := strings.ToUpper(name)
	star := len(inner) == 1 && inner[0].Typ == tSymbol && inner[0].Val == "*"
	if up == "COUNT" {
		if star {
			return int64(1), nil
		}
		v, err := evalTokens(ec, inner)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return int64(0), nil
		}
		return int64(1), nil
	}
	if star {
		return nil, fmt.Errorf("%w: %s(*) is not valid", ErrParse, up)
	}
	return evalTokens(ec, inner)
}

// dispatchFunc resolves a function name: user-defined SQL function first,
// then host add-in, then builtin. Unknown names evaluate to NULL.
func dispatchFunc(ec *evalContext, name string, args []any) (any, error) {
	if f, ok := ec.db.userFunc(name); ok {
		return callUserFunc(ec, f, args)
	}
	if a, ok := ec.db.addin(name); ok {
		return a.Call(args)
	}
	if fn, ok := builtins[strings.ToUpper(name)]; ok {
		return fn(ec, args)
	}
	return nil, nil
}

// callUserFunc binds arguments positionally to the declared parameters and
// evaluates the stored RETURN expression in that context.
func callUserFunc(ec *evalContext, f *UserFunc, args []any) (any, error) {
	row := Row{}
	for i, p := range f.Params {
		var v any
		if i < len(args) {
			v = args[i]
		}
		cv, err := storage.CoerceTo(v, p.Type)
		if err != nil {
			return nil, fmt.Errorf("function %q parameter %q: %w", f.Name, p.Name, err)
		}
		putVal(row, p.Name, cv)
	}
	sub := &evalContext{ctx: ec.ctx, db: ec.db, row: row}
	v, err := evalTokens(sub, f.Body)
	if err != nil {
		return nil, err
	}
	return storage.CoerceTo(v, f.ReturnType)
}
