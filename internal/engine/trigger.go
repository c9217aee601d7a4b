// Trigger runtime: body parsing and per-row interpretation.
//
// A trigger body is pre-parsed at CREATE TRIGGER time into a small statement
// tree: SET NEW/OLD assignments, IF/ELSEIF/ELSE blocks, and raw DML token
// runs. Execution builds a short-lived context holding NEW.col, OLD.col, and
// bare-column bindings for the affected row, runs the statements in order,
// and loops embedded DML back into the executor with NEW/OLD references
// rewritten to literal tokens. Errors inside embedded DML are swallowed and
// logged so a misbehaving trigger cannot abort the outer statement; this is
// part of the public contract.
package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// TriggerTiming specifies when a trigger fires relative to its event.
type TriggerTiming int

const (
	TriggerBefore TriggerTiming = iota
	TriggerAfter
)

func (t TriggerTiming) String() string {
	if t == TriggerBefore {
		return "BEFORE"
	}
	return "AFTER"
}

// TriggerEvent specifies the mutating event a trigger reacts to.
type TriggerEvent int

const (
	TriggerInsert TriggerEvent = iota
	TriggerUpdate
	TriggerDelete
)

func (e TriggerEvent) String() string {
	switch e {
	case TriggerInsert:
		return "INSERT"
	case TriggerUpdate:
		return "UPDATE"
	default:
		return "DELETE"
	}
}

// Trigger is one registered trigger. Source preserves the exact CREATE
// TRIGGER text so snapshots can replay it to rebuild the body tree.
type Trigger struct {
	Name   string
	Table  string
	Timing TriggerTiming
	Event  TriggerEvent
	Body   []TriggerStmt
	Source string
}

// TriggerStmt is one statement of a trigger body.
type TriggerStmt interface{ triggerStmt() }

type setStmt struct {
	isNew bool
	col   string
	expr  []token
}

type ifBranch struct {
	cond []token
	body []TriggerStmt
}

type ifStmt struct {
	branches []ifBranch
	elseBody []TriggerStmt
}

type dmlStmt struct {
	toks []token
}

func (setStmt) triggerStmt() {}
func (ifStmt) triggerStmt()  {}
func (dmlStmt) triggerStmt() {}

// ----------------------------- body parsing -----------------------------

// parseTriggerBody turns the captured BEGIN..END token run into statements.
func parseTriggerBody(toks []token) ([]TriggerStmt, error) {
	p := &stmtParser{toks: toks}
	return parseTriggerStmts(p, kwSet())
}

func parseTriggerStmts(p *stmtParser, stops map[string]bool) ([]TriggerStmt, error) {
	var out []TriggerStmt
	for {
		t := p.cur()
		if t.Typ == tEOF {
			return out, nil
		}
		if t.Typ == tSymbol && t.Val == ";" {
			p.next()
			continue
		}
		if t.Typ == tKeyword && stops[t.Val] {
			return out, nil
		}
		switch {
		case t.Typ == tKeyword && t.Val == "SET" && p.peeksNewOldRef():
			st, err := p.parseSetNewOld(stops)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		case t.Typ == tKeyword && t.Val == "IF":
			st, err := p.parseIfStmt()
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		default:
			// anything else is an embedded DML statement, kept as raw tokens
			win := p.captureExpr(stops, false)
			if len(win) == 0 {
				return nil, p.errf("unexpected token in trigger body")
			}
			out = append(out, dmlStmt{toks: win})
		}
	}
}

// peeksNewOldRef reports whether the cursor sits on SET NEW./OLD. .
func (p *stmtParser) peeksNewOldRef() bool {
	n := p.peek()
	if n.Typ != tIdent {
		return false
	}
	up := strings.ToUpper(n.Val)
	if up != "NEW" && up != "OLD" {
		return false
	}
	return p.pos+2 < len(p.toks) &&
		p.toks[p.pos+2].Typ == tSymbol && p.toks[p.pos+2].Val == "."
}

func (p *stmtParser) parseSetNewOld(stops map[string]bool) (TriggerStmt, error) {
	p.next() // SET
	target := strings.ToUpper(p.cur().Val)
	p.next()
	if err := p.expectSym("."); err != nil {
		return nil, err
	}
	col := p.identLike()
	if col == "" {
		return nil, p.errf("expected column after %s.", target)
	}
	if err := p.expectSym("="); err != nil {
		return nil, err
	}
	expr := p.captureExpr(stops, false)
	if len(expr) == 0 {
		return nil, p.errf("expected expression in SET %s.%s", target, col)
	}
	return setStmt{isNew: target == "NEW", col: col, expr: expr}, nil
}

func (p *stmtParser) parseIfStmt() (TriggerStmt, error) {
	p.next() // IF
	var st ifStmt
	cond := p.captureExpr(kwSet("THEN"), false)
	if len(cond) == 0 {
		return nil, p.errf("expected IF condition")
	}
	if err := p.expectKw("THEN"); err != nil {
		return nil, err
	}
	blockStops := kwSet("ELSEIF", "ELSE", "END")
	body, err := parseTriggerStmts(p, blockStops)
	if err != nil {
		return nil, err
	}
	st.branches = append(st.branches, ifBranch{cond: cond, body: body})
	for p.matchKw("ELSEIF") {
		cond := p.captureExpr(kwSet("THEN"), false)
		if len(cond) == 0 {
			return nil, p.errf("expected ELSEIF condition")
		}
		if err := p.expectKw("THEN"); err != nil {
			return nil, err
		}
		body, err := parseTriggerStmts(p, blockStops)
		if err != nil {
			return nil, err
		}
		st.branches = append(st.branches, ifBranch{cond: cond, body: body})
	}
	if p.matchKw("ELSE") {
		body, err := parseTriggerStmts(p, kwSet("END"))
		if err != nil {
			return nil, err
		}
		st.elseBody = body
	}
	if err := p.expectKw("END"); err != nil {
		return nil, err
	}
	if err := p.expectKw("IF"); err != nil {
		return nil, err
	}
	return st, nil
}

// ----------------------------- execution -----------------------------

// buildTriggerRow preseeds the trigger context with NEW.col and OLD.col
// keys for every table column, plus bare-column aliases for NEW.
func buildTriggerRow(t *storage.Table, newVals, oldVals []any) Row {
	row := make(Row, len(t.Cols)*3)
	for i, c := range t.Cols {
		var nv, ov any
		if newVals != nil {
			nv = newVals[i]
		}
		if oldVals != nil {
			ov = oldVals[i]
		}
		putVal(row, "NEW."+c.Name, nv)
		putVal(row, "OLD."+c.Name, ov)
		putVal(row, c.Name, nv)
	}
	return row
}

// applyTriggerNew copies any NEW.col changes a BEFORE trigger made back
// into the row about to be written.
func applyTriggerNew(t *storage.Table, trigCtx Row, vals []any) {
	for i, c := range t.Cols {
		if v, ok := getVal(trigCtx, "NEW."+c.Name); ok {
			vals[i] = v
		}
	}
}

// fireTriggers runs every matching trigger in registration order against
// the shared per-row context.
func fireTriggers(env execEnv, timing TriggerTiming, event TriggerEvent, t *storage.Table, trigCtx Row) error {
	for _, tr := range env.db.triggersFor(t.Name, timing, event) {
		if err := runTriggerBody(env, tr, tr.Body, trigCtx); err != nil {
			return err
		}
	}
	return nil
}

func runTriggerBody(env execEnv, tr *Trigger, stmts []TriggerStmt, trigCtx Row) error {
	for _, s := range stmts {
		if err := checkCtx(env.ctx); err != nil {
			return err
		}
		switch st := s.(type) {
		case setStmt:
			v, err := evalWindow(env, st.expr, trigCtx)
			if err != nil {
				return err
			}
			if st.isNew {
				putVal(trigCtx, "NEW."+st.col, v)
				putVal(trigCtx, st.col, v)
			} else {
				putVal(trigCtx, "OLD."+st.col, v)
			}
		case ifStmt:
			taken := false
			for _, b := range st.branches {
				ok, err := truthyWindow(env, b.cond, trigCtx)
				if err != nil {
					return err
				}
				if ok {
					if err := runTriggerBody(env, tr, b.body, trigCtx); err != nil {
						return err
					}
					taken = true
					break
				}
			}
			if !taken && st.elseBody != nil {
				if err := runTriggerBody(env, tr, st.elseBody, trigCtx); err != nil {
					return err
				}
			}
		case dmlStmt:
			toks := rewriteNewOld(st.toks, trigCtx)
			p := &stmtParser{toks: append(toks, token{Typ: tEOF})}
			if _, _, err := executeParsed(env, p); err != nil {
				// fire-and-forget: embedded DML failures must not abort the
				// outer statement
				env.db.log.Warnw("trigger statement swallowed an error",
					"trigger", tr.Name, "error", err)
			}
		}
	}
	return nil
}

// rewriteNewOld replaces NEW.col / OLD.col token triples with literal tokens
// sourced from the trigger context.
func rewriteNewOld(toks []token, trigCtx Row) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Typ == tIdent && i+2 < len(toks) &&
			toks[i+1].Typ == tSymbol && toks[i+1].Val == "." &&
			(toks[i+2].Typ == tIdent || toks[i+2].Typ == tKeyword) {
			up := strings.ToUpper(t.Val)
			if up == "NEW" || up == "OLD" {
				key := up + "." + toks[i+2].Val
				if v, ok := getVal(trigCtx, key); ok {
					out = append(out, literalToken(v))
					i += 2
					continue
				}
			}
		}
		out = append(out, t)
	}
	return out
}

// literalToken renders a context value as a single token the executor can
// re-parse.
func literalToken(v any) token {
	switch x := v.(type) {
	case nil:
		return token{Typ: tKeyword, Val: "NULL"}
	case bool:
		if x {
			return token{Typ: tKeyword, Val: "TRUE"}
		}
		return token{Typ: tKeyword, Val: "FALSE"}
	case float32, float64:
		f, _ := storage.AsFloat(v)
		return token{Typ: tNumber, Val: strconv.FormatFloat(f, 'f', -1, 64)}
	case string:
		return token{Typ: tString, Val: x}
	case time.Time, uuid.UUID:
		return token{Typ: tString, Val: storage.Text(v)}
	}
	if n, ok := storage.AsInt64(v); ok {
		return token{Typ: tNumber, Val: strconv.FormatInt(n, 10)}
	}
	return token{Typ: tString, Val: storage.Text(v)}
}
