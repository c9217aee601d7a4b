// Statement execution for slimSQL.
//
// What: Parses and runs one SQL statement against a DB: INSERT, UPDATE,
// DELETE (with BEFORE/AFTER trigger orchestration), CREATE TABLE/FUNCTION/
// TRIGGER, ALTER TABLE, DROP, and SELECT.
// How: The executor holds a single token list and advances an index over it;
// sub-expressions (WHERE, ON, assignment right sides, select items) are
// captured as windows over the shared buffer and handed to the evaluator
// per row. DDL constraint clauses are parsed and discarded. The context is
// checked between rows so long statements stay cancellable.
// Why: One cursor over one buffer keeps statement parsing, trigger replay,
// and expression evaluation in a single coherent machine with no AST layer.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

type execEnv struct {
	ctx context.Context
	db  *DB
}

// Execute parses and runs one statement. For SELECT it returns the result
// grid; for DML it returns the affected row count; DDL returns zero.
func Execute(ctx context.Context, db *DB, sql string) (*ResultSet, int, error) {
	toks := Tokenize(sql)
	p := &stmtParser{toks: toks, src: sql}
	return executeParsed(execEnv{ctx: ctx, db: db}, p)
}

// executeParsed dispatches one already-tokenized statement. The trigger
// runtime re-enters here for embedded DML.
func executeParsed(env execEnv, p *stmtParser) (*ResultSet, int, error) {
	if err := checkCtx(env.ctx); err != nil {
		return nil, 0, err
	}
	switch {
	case p.isKw("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, 0, err
		}
		rs, err := runSelect(env, sel)
		return rs, 0, err
	case p.isKw("INSERT"):
		n, err := executeInsert(env, p)
		return nil, n, err
	case p.isKw("UPDATE"):
		n, err := executeUpdate(env, p)
		return nil, n, err
	case p.isKw("DELETE"):
		n, err := executeDelete(env, p)
		return nil, n, err
	case p.isKw("CREATE"):
		return nil, 0, executeCreate(env, p)
	case p.isKw("ALTER"):
		return nil, 0, executeAlter(env, p)
	case p.isKw("DROP"):
		return nil, 0, executeDrop(env, p)
	}
	return nil, 0, p.errf("expected a statement")
}

// ------------------------------ cursor ------------------------------

type stmtParser struct {
	toks []token
	pos  int
	src  string
}

func (p *stmtParser) cur() token {
	if p.pos >= len(p.toks) {
		return token{Typ: tEOF}
	}
	return p.toks[p.pos]
}

func (p *stmtParser) peek() token {
	if p.pos+1 >= len(p.toks) {
		return token{Typ: tEOF}
	}
	return p.toks[p.pos+1]
}

func (p *stmtParser) next() { p.pos++ }

func (p *stmtParser) isKw(kw string) bool {
	t := p.cur()
	return t.Typ == tKeyword && t.Val == kw
}

func (p *stmtParser) isSym(s string) bool {
	t := p.cur()
	return t.Typ == tSymbol && t.Val == s
}

func (p *stmtParser) matchKw(kw string) bool {
	if p.isKw(kw) {
		p.next()
		return true
	}
	return false
}

func (p *stmtParser) expectKw(kw string) error {
	if p.matchKw(kw) {
		return nil
	}
	return p.errf("expected keyword %q", kw)
}

func (p *stmtParser) expectSym(s string) error {
	if p.isSym(s) {
		p.next()
		return nil
	}
	return p.errf("expected %q", s)
}

func (p *stmtParser) errf(format string, a ...any) error {
	return fmt.Errorf("%w near %q: %s", ErrParse, p.cur().Val, fmt.Sprintf(format, a...))
}

// identLike accepts identifiers and keywords as names, so column and table
// names like "date" stay usable.
func (p *stmtParser) identLike() string {
	t := p.cur()
	if t.Typ == tIdent || t.Typ == tKeyword {
		p.next()
		return t.Val
	}
	return ""
}

func (p *stmtParser) atEnd() bool {
	return p.cur().Typ == tEOF || p.isSym(";")
}

// captureExpr collects an expression window up to a stop keyword, a
// depth-zero comma (when stopAtComma), a depth-zero ')', or a ';'.
// Parens and CASE...END pairs both count as depth, so keywords inside a
// CASE expression never terminate the window.
func (p *stmtParser) captureExpr(stopKws map[string]bool, stopAtComma bool) []token {
	var out []token
	depth, caseDepth := 0, 0
	for {
		t := p.cur()
		if t.Typ == tEOF {
			return out
		}
		if t.Typ == tSymbol {
			switch t.Val {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					return out
				}
				depth--
			case ",":
				if depth == 0 && stopAtComma {
					return out
				}
			case ";":
				if depth == 0 {
					return out
				}
			}
		}
		if t.Typ == tKeyword {
			switch t.Val {
			case "CASE":
				caseDepth++
			case "END":
				if caseDepth > 0 {
					caseDepth--
					out = append(out, t)
					p.next()
					continue
				}
			}
			if depth == 0 && caseDepth == 0 && stopKws[t.Val] {
				// LEFT( / RIGHT( is the string function, not a join keyword
				fn := (t.Val == "LEFT" || t.Val == "RIGHT") &&
					p.peek().Typ == tSymbol && p.peek().Val == "("
				if !fn {
					return out
				}
			}
		}
		out = append(out, t)
		p.next()
	}
}

func kwSet(kws ...string) map[string]bool {
	m := make(map[string]bool, len(kws))
	for _, k := range kws {
		m[k] = true
	}
	return m
}

func (p *stmtParser) parseIntLiteral() (int64, bool) {
	t := p.cur()
	if t.Typ == tNumber && !strings.ContainsAny(t.Val, ".eE") {
		n, err := strconv.ParseInt(t.Val, 10, 64)
		if err == nil {
			p.next()
			return n, true
		}
	}
	return 0, false
}

// ------------------------------ helpers ------------------------------

// rowMapFor builds the evaluation row for one table row: qualified keys for
// every column plus bare keys where not already taken.
func rowMapFor(t *storage.Table, alias string, vals []any) Row {
	row := make(Row, len(t.Cols)*2)
	for i, c := range t.Cols {
		putVal(row, alias+"."+c.Name, vals[i])
	}
	for i, c := range t.Cols {
		if _, ok := getVal(row, c.Name); !ok {
			putVal(row, c.Name, vals[i])
		}
	}
	return row
}

func evalWindow(env execEnv, win []token, row Row) (any, error) {
	ec := &evalContext{ctx: env.ctx, db: env.db, row: row}
	return evalTokens(ec, win)
}

func truthyWindow(env execEnv, win []token, row Row) (bool, error) {
	if len(win) == 0 {
		return true, nil
	}
	v, err := evalWindow(env, win, row)
	if err != nil {
		return false, err
	}
	return storage.Truthy(v), nil
}

// ------------------------------ INSERT ------------------------------

var insertValueStops = kwSet()

func executeInsert(env execEnv, p *stmtParser) (int, error) {
	p.next() // INSERT
	if err := p.expectKw("INTO"); err != nil {
		return 0, err
	}
	name := p.identLike()
	if name == "" {
		return 0, p.errf("expected table name")
	}
	t, err := env.db.tables.Get(name)
	if err != nil {
		return 0, err
	}
	var cols []string
	if p.isSym("(") {
		p.next()
		for {
			id := p.identLike()
			if id == "" {
				return 0, p.errf("expected column name")
			}
			cols = append(cols, id)
			if p.isSym(",") {
				p.next()
				continue
			}
			if err := p.expectSym(")"); err != nil {
				return 0, err
			}
			break
		}
	}
	if err := p.expectKw("VALUES"); err != nil {
		return 0, err
	}
	// parse every tuple before touching the table, so a parse error leaves
	// the state unchanged
	var tuples [][][]token
	for {
		if err := p.expectSym("("); err != nil {
			return 0, err
		}
		var wins [][]token
		for {
			win := p.captureExpr(insertValueStops, true)
			if len(win) == 0 {
				return 0, p.errf("expected value expression")
			}
			wins = append(wins, win)
			if p.isSym(",") {
				p.next()
				continue
			}
			break
		}
		if err := p.expectSym(")"); err != nil {
			return 0, err
		}
		tuples = append(tuples, wins)
		if p.isSym(",") {
			p.next()
			continue
		}
		break
	}
	if !p.atEnd() {
		return 0, p.errf("unexpected trailing input")
	}
	n := 0
	for _, wins := range tuples {
		if err := insertOneRow(env, t, cols, wins); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// insertOneRow evaluates one VALUES tuple with an empty row context, fires
// BEFORE INSERT (which may mutate the inbound row), appends, then fires
// AFTER INSERT against the row as written.
func insertOneRow(env execEnv, t *storage.Table, cols []string, wins [][]token) error {
	if err := checkCtx(env.ctx); err != nil {
		return err
	}
	vals := make([]any, len(t.Cols))
	if len(cols) == 0 {
		if len(wins) != len(t.Cols) {
			return fmt.Errorf("%w: INSERT into %q expects %d values, got %d",
				ErrParse, t.Name, len(t.Cols), len(wins))
		}
		for i, win := range wins {
			v, err := evalWindow(env, win, Row{})
			if err != nil {
				return err
			}
			vals[i] = v
		}
	} else {
		if len(wins) != len(cols) {
			return fmt.Errorf("%w: INSERT column/value mismatch", ErrParse)
		}
		for i, cn := range cols {
			idx, err := t.ColIndex(cn)
			if err != nil {
				return err
			}
			v, err := evalWindow(env, wins[i], Row{})
			if err != nil {
				return err
			}
			vals[idx] = v
		}
	}

	trigCtx := buildTriggerRow(t, vals, nil)
	if err := fireTriggers(env, TriggerBefore, TriggerInsert, t, trigCtx); err != nil {
		return err
	}
	applyTriggerNew(t, trigCtx, vals)

	if err := t.AppendRow(vals); err != nil {
		return err
	}
	actual := t.Row(t.RowCount() - 1)
	afterCtx := buildTriggerRow(t, actual, nil)
	return fireTriggers(env, TriggerAfter, TriggerInsert, t, afterCtx)
}

// ------------------------------ UPDATE ------------------------------

func executeUpdate(env execEnv, p *stmtParser) (int, error) {
	p.next() // UPDATE
	name := p.identLike()
	if name == "" {
		return 0, p.errf("expected table name")
	}
	t, err := env.db.tables.Get(name)
	if err != nil {
		return 0, err
	}
	if err := p.expectKw("SET"); err != nil {
		return 0, err
	}
	type assign struct {
		col int
		win []token
	}
	var sets []assign
	setStops := kwSet("WHERE")
	for {
		cn := p.identLike()
		if cn == "" {
			return 0, p.errf("expected column name")
		}
		idx, err := t.ColIndex(cn)
		if err != nil {
			return 0, err
		}
		if err := p.expectSym("="); err != nil {
			return 0, err
		}
		win := p.captureExpr(setStops, true)
		if len(win) == 0 {
			return 0, p.errf("expected assignment expression")
		}
		sets = append(sets, assign{col: idx, win: win})
		if p.isSym(",") {
			p.next()
			continue
		}
		break
	}
	var where []token
	if p.matchKw("WHERE") {
		where = p.captureExpr(kwSet(), false)
	}
	if !p.atEnd() {
		return 0, p.errf("unexpected trailing input")
	}

	n := 0
	for ri := 0; ri < t.RowCount(); ri++ {
		if err := checkCtx(env.ctx); err != nil {
			return n, err
		}
		curVals := t.Row(ri)
		rowCtx := rowMapFor(t, t.Name, curVals)
		ok, err := truthyWindow(env, where, rowCtx)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		oldVals := append([]any(nil), curVals...)
		newVals := append([]any(nil), curVals...)
		// all assignments see the pre-update row
		for _, a := range sets {
			v, err := evalWindow(env, a.win, rowCtx)
			if err != nil {
				return n, err
			}
			newVals[a.col] = v
		}
		trigCtx := buildTriggerRow(t, newVals, oldVals)
		if err := fireTriggers(env, TriggerBefore, TriggerUpdate, t, trigCtx); err != nil {
			return n, err
		}
		applyTriggerNew(t, trigCtx, newVals)
		if err := t.SetRow(ri, newVals); err != nil {
			return n, err
		}
		actual := t.Row(ri)
		afterCtx := buildTriggerRow(t, actual, oldVals)
		if err := fireTriggers(env, TriggerAfter, TriggerUpdate, t, afterCtx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ------------------------------ DELETE ------------------------------

func executeDelete(env execEnv, p *stmtParser) (int, error) {
	p.next() // DELETE
	if err := p.expectKw("FROM"); err != nil {
		return 0, err
	}
	name := p.identLike()
	if name == "" {
		return 0, p.errf("expected table name")
	}
	t, err := env.db.tables.Get(name)
	if err != nil {
		return 0, err
	}
	var where []token
	if p.matchKw("WHERE") {
		where = p.captureExpr(kwSet(), false)
	}
	if !p.atEnd() {
		return 0, p.errf("unexpected trailing input")
	}

	n := 0
	// walk downward so removals do not shift pending indexes
	for ri := t.RowCount() - 1; ri >= 0; ri-- {
		if err := checkCtx(env.ctx); err != nil {
			return n, err
		}
		curVals := t.Row(ri)
		rowCtx := rowMapFor(t, t.Name, curVals)
		ok, err := truthyWindow(env, where, rowCtx)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		trigCtx := buildTriggerRow(t, nil, curVals)
		if err := fireTriggers(env, TriggerBefore, TriggerDelete, t, trigCtx); err != nil {
			return n, err
		}
		t.DeleteRow(ri)
		if err := fireTriggers(env, TriggerAfter, TriggerDelete, t, trigCtx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ------------------------------ CREATE ------------------------------

func executeCreate(env execEnv, p *stmtParser) error {
	p.next() // CREATE
	switch {
	case p.isKw("TABLE"):
		return executeCreateTable(env, p)
	case p.isKw("FUNCTION"):
		return executeCreateFunction(env, p)
	case p.isKw("TRIGGER"):
		return executeCreateTrigger(env, p)
	}
	return p.errf("expected TABLE, FUNCTION, or TRIGGER after CREATE")
}

var columnConstraintKws = kwSet("NOT", "NULL", "DEFAULT", "PRIMARY", "KEY",
	"UNIQUE", "CHECK", "REFERENCES", "IDENTITY", "AUTO_INCREMENT")

var tableConstraintKws = kwSet("PRIMARY", "UNIQUE", "FOREIGN", "CONSTRAINT",
	"INDEX", "KEY", "CHECK")

func executeCreateTable(env execEnv, p *stmtParser) error {
	p.next() // TABLE
	name := p.identLike()
	if name == "" {
		return p.errf("expected table name")
	}
	if err := p.expectSym("("); err != nil {
		return err
	}
	var cols []storage.Column
	for {
		if p.cur().Typ == tKeyword && tableConstraintKws[p.cur().Val] {
			p.skipConstraintDef()
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return err
			}
			cols = append(cols, col)
		}
		if p.isSym(",") {
			p.next()
			continue
		}
		if err := p.expectSym(")"); err != nil {
			return err
		}
		break
	}
	if !p.atEnd() {
		return p.errf("unexpected trailing input")
	}
	t, err := storage.NewTable(name, cols)
	if err != nil {
		return err
	}
	return env.db.tables.Put(t)
}

// parseColumnDef reads one "name type[(...)] [constraints]" definition.
// Constraints are recognized and discarded.
func (p *stmtParser) parseColumnDef() (storage.Column, error) {
	name := p.identLike()
	if name == "" {
		return storage.Column{}, p.errf("expected column name")
	}
	typ := storage.TextType
	if !p.isSym(",") && !p.isSym(")") {
		tn := p.identLike()
		if tn == "" {
			return storage.Column{}, p.errf("expected type for column %q", name)
		}
		typ = storage.TypeFromName(tn)
		p.skipParenGroup()
	}
	p.skipColumnConstraints()
	return storage.Column{Name: name, Type: typ}, nil
}

// skipParenGroup consumes a balanced (...) group when one is present.
func (p *stmtParser) skipParenGroup() {
	if !p.isSym("(") {
		return
	}
	depth := 0
	for {
		t := p.cur()
		if t.Typ == tEOF {
			return
		}
		if t.Typ == tSymbol {
			switch t.Val {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 {
					p.next()
					return
				}
			}
		}
		p.next()
	}
}

// skipColumnConstraints discards NOT NULL, DEFAULT, PRIMARY KEY, UNIQUE,
// CHECK (...), REFERENCES tbl(col), IDENTITY(...), AUTO_INCREMENT.
func (p *stmtParser) skipColumnConstraints() {
	for p.cur().Typ == tKeyword && columnConstraintKws[p.cur().Val] {
		kw := p.cur().Val
		p.next()
		switch kw {
		case "DEFAULT":
			// one literal, signed literal, or parenthesized expression
			if p.isSym("(") {
				p.skipParenGroup()
				continue
			}
			if p.isSym("-") || p.isSym("+") {
				p.next()
			}
			if !p.isSym(",") && !p.isSym(")") && p.cur().Typ != tEOF {
				p.next()
				p.skipParenGroup()
			}
		case "CHECK", "IDENTITY":
			p.skipParenGroup()
		case "REFERENCES":
			p.identLike()
			p.skipParenGroup()
		}
	}
}

// skipConstraintDef discards one inline table constraint definition up to
// the next depth-zero comma or the closing paren.
func (p *stmtParser) skipConstraintDef() {
	depth := 0
	for {
		t := p.cur()
		if t.Typ == tEOF {
			return
		}
		if t.Typ == tSymbol {
			switch t.Val {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					return
				}
				depth--
			case ",":
				if depth == 0 {
					return
				}
			}
		}
		p.next()
	}
}

func executeCreateFunction(env execEnv, p *stmtParser) error {
	p.next() // FUNCTION
	name := p.identLike()
	if name == "" {
		return p.errf("expected function name")
	}
	f := &UserFunc{Name: name, ReturnType: storage.AnyType}
	if err := p.expectSym("("); err != nil {
		return err
	}
	if !p.isSym(")") {
		for {
			pn := p.identLike()
			if pn == "" {
				return p.errf("expected parameter name")
			}
			pt := storage.AnyType
			if !p.isSym(",") && !p.isSym(")") {
				tn := p.identLike()
				if tn == "" {
					return p.errf("expected parameter type")
				}
				pt = storage.TypeFromName(tn)
				p.skipParenGroup()
			}
			f.Params = append(f.Params, Param{Name: pn, Type: pt})
			if p.isSym(",") {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectSym(")"); err != nil {
		return err
	}
	if err := p.expectKw("RETURNS"); err != nil {
		return err
	}
	tn := p.identLike()
	if tn == "" {
		return p.errf("expected return type")
	}
	f.ReturnType = storage.TypeFromName(tn)
	p.skipParenGroup()
	p.matchKw("AS")
	if err := p.expectKw("BEGIN"); err != nil {
		return err
	}
	// only the single RETURN expression is honored; preceding body
	// statements are skipped
	for !p.isKw("RETURN") {
		if p.cur().Typ == tEOF {
			return p.errf("expected RETURN in function body")
		}
		p.next()
	}
	p.next() // RETURN
	f.Body = p.captureExpr(kwSet("END"), false)
	if len(f.Body) == 0 {
		return p.errf("expected RETURN expression")
	}
	return env.db.putFunc(f)
}

func executeCreateTrigger(env execEnv, p *stmtParser) error {
	p.next() // TRIGGER
	name := p.identLike()
	if name == "" {
		return p.errf("expected trigger name")
	}
	var timing TriggerTiming
	switch {
	case p.matchKw("BEFORE"):
		timing = TriggerBefore
	case p.matchKw("AFTER"):
		timing = TriggerAfter
	default:
		return p.errf("expected BEFORE or AFTER")
	}
	var event TriggerEvent
	switch {
	case p.matchKw("INSERT"):
		event = TriggerInsert
	case p.matchKw("UPDATE"):
		event = TriggerUpdate
	case p.matchKw("DELETE"):
		event = TriggerDelete
	default:
		return p.errf("expected INSERT, UPDATE, or DELETE")
	}
	if err := p.expectKw("ON"); err != nil {
		return err
	}
	table := p.identLike()
	if table == "" {
		return p.errf("expected table name")
	}
	if p.matchKw("FOR") {
		if err := p.expectKw("EACH"); err != nil {
			return err
		}
		if err := p.expectKw("ROW"); err != nil {
			return err
		}
	}
	p.matchKw("AS")
	if err := p.expectKw("BEGIN"); err != nil {
		return err
	}
	bodyToks, err := p.captureTriggerBody()
	if err != nil {
		return err
	}
	body, err := parseTriggerBody(bodyToks)
	if err != nil {
		return err
	}
	return env.db.putTrigger(&Trigger{
		Name:   name,
		Table:  table,
		Timing: timing,
		Event:  event,
		Body:   body,
		Source: strings.TrimSpace(p.src),
	})
}

// captureTriggerBody collects tokens between BEGIN and its closing END.
// END IF pairs and CASE...END expressions inside the body are stepped over.
func (p *stmtParser) captureTriggerBody() ([]token, error) {
	var out []token
	caseDepth := 0
	for {
		t := p.cur()
		if t.Typ == tEOF {
			return nil, p.errf("expected END to close trigger body")
		}
		if t.Typ == tKeyword {
			switch t.Val {
			case "CASE":
				caseDepth++
			case "END":
				if caseDepth > 0 {
					caseDepth--
				} else if p.peek().Typ == tKeyword && p.peek().Val == "IF" {
					// END IF belongs to an IF statement in the body
					out = append(out, t, p.peek())
					p.next()
					p.next()
					continue
				} else {
					p.next()
					return out, nil
				}
			}
		}
		out = append(out, t)
		p.next()
	}
}

// ------------------------------ ALTER ------------------------------

func executeAlter(env execEnv, p *stmtParser) error {
	p.next() // ALTER
	if err := p.expectKw("TABLE"); err != nil {
		return err
	}
	name := p.identLike()
	if name == "" {
		return p.errf("expected table name")
	}
	switch {
	case p.matchKw("ADD"):
		p.matchKw("COLUMN")
		cn := p.identLike()
		if cn == "" {
			return p.errf("expected column name")
		}
		typ := storage.TextType
		if !p.atEnd() {
			tn := p.identLike()
			if tn != "" {
				typ = storage.TypeFromName(tn)
			}
			p.skipParenGroup()
			p.skipColumnConstraints()
		}
		t, err := env.db.tables.Get(name)
		if err != nil {
			return err
		}
		return t.AddColumn(storage.Column{Name: cn, Type: typ}, nil)
	case p.matchKw("DROP"):
		p.matchKw("COLUMN")
		cn := p.identLike()
		if cn == "" {
			return p.errf("expected column name")
		}
		t, err := env.db.tables.Get(name)
		if err != nil {
			return err
		}
		return t.DropColumn(cn)
	case p.isKw("RENAME"):
		// recognized but deliberately refused: silently accepting a rename
		// that does nothing would be a latent bug
		return p.errf("ALTER TABLE ... RENAME is not supported")
	}
	// other ALTER variants are parsed and ignored
	for !p.atEnd() {
		p.next()
	}
	return nil
}

// ------------------------------ DROP ------------------------------

func executeDrop(env execEnv, p *stmtParser) error {
	p.next() // DROP
	switch {
	case p.matchKw("TABLE"):
		ifExists := false
		if p.matchKw("IF") {
			if err := p.expectKw("EXISTS"); err != nil {
				return err
			}
			ifExists = true
		}
		name := p.identLike()
		if name == "" {
			return p.errf("expected table name")
		}
		if ifExists && !env.db.tables.Has(name) {
			return nil
		}
		return env.db.tables.Drop(name)
	case p.matchKw("FUNCTION"):
		name := p.identLike()
		if name == "" {
			return p.errf("expected function name")
		}
		return env.db.dropFunc(name)
	case p.matchKw("TRIGGER"):
		ifExists := false
		if p.matchKw("IF") {
			if err := p.expectKw("EXISTS"); err != nil {
				return err
			}
			ifExists = true
		}
		name := p.identLike()
		if name == "" {
			return p.errf("expected trigger name")
		}
		if ifExists && !env.db.HasTrigger(name) {
			return nil
		}
		return env.db.dropTrigger(name)
	}
	return p.errf("expected TABLE, FUNCTION, or TRIGGER after DROP")
}

// ------------------------- facade entry points -------------------------

// ExecuteNonQuery runs one statement and returns the affected row count
// (zero for DDL and SELECT).
func (db *DB) ExecuteNonQuery(ctx context.Context, sql string) (int, error) {
	_, n, err := Execute(ctx, db, sql)
	return n, err
}

// ExecuteReader runs one statement and returns the result grid; DML and DDL
// yield an empty grid.
func (db *DB) ExecuteReader(ctx context.Context, sql string) (*ResultSet, error) {
	rs, _, err := Execute(ctx, db, sql)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		rs = &ResultSet{}
	}
	return rs, nil
}

// ExecuteScalar runs one statement and returns the first column of the
// first row; DML returns the affected count, an empty SELECT returns nil.
func (db *DB) ExecuteScalar(ctx context.Context, sql string) (any, error) {
	rs, n, err := Execute(ctx, db, sql)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return int64(n), nil
	}
	if len(rs.Rows) == 0 || len(rs.Rows[0]) == 0 {
		return nil, nil
	}
	return rs.Rows[0][0], nil
}
