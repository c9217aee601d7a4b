// SELECT pipeline: source rows, joins, WHERE, grouping with aggregation,
// HAVING, ORDER BY, OFFSET/LIMIT/TOP, DISTINCT, and projection.
//
// Working rows are case-insensitive maps carrying both bare and qualified
// column keys; the bare key of the first source wins on collisions. Grouped
// rows additionally carry every precomputed aggregate under its canonical
// FUNC(argsText) key plus any alias, which is how HAVING and ORDER BY
// resolve aggregates by alias or by expression shape.
package engine

import (
	"errors"
	"sort"
	"strings"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

type selectStmt struct {
	distinct bool
	top      *int64
	items    []selectItem
	sources  []fromItem
	joins    []joinClause
	where    []token
	groupBy  [][]token
	having   []token
	orderBy  []orderItem
	limit    *int64
	offset   *int64
}

type selectItem struct {
	star      bool
	starAlias string // alias.* form when non-empty
	toks      []token
	alias     string
	name      string // display header
	agg       *aggCall
}

type aggCall struct {
	Name     string
	Distinct bool
	Star     bool
	Inner    []token
	Key      string
}

type fromItem struct {
	table string
	alias string
}

type joinType int

const (
	joinInner joinType = iota
	joinLeft
	joinRight
	joinFull
	joinCross
)

type joinClause struct {
	kind  joinType
	right fromItem
	on    []token
}

type orderItem struct {
	toks []token
	desc bool
}

func aliasOr(f fromItem) string {
	if f.alias != "" {
		return f.alias
	}
	return f.table
}

// ------------------------------ parsing ------------------------------

var selectItemStops = kwSet("FROM", "WHERE", "GROUP", "HAVING", "ORDER",
	"LIMIT", "OFFSET")
var whereStops = kwSet("GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET")
var groupByStops = kwSet("HAVING", "ORDER", "LIMIT", "OFFSET")
var havingStops = kwSet("ORDER", "LIMIT", "OFFSET")
var orderByStops = kwSet("ASC", "DESC", "LIMIT", "OFFSET")
var joinStops = kwSet("WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET",
	"INNER", "LEFT", "RIGHT", "FULL", "CROSS", "JOIN")

func (p *stmtParser) parseSelect() (*selectStmt, error) {
	p.next() // SELECT
	sel := &selectStmt{}
	if p.matchKw("DISTINCT") {
		sel.distinct = true
	}
	if p.matchKw("TOP") {
		n, ok := p.parseIntLiteral()
		if !ok {
			return nil, p.errf("TOP expects an integer")
		}
		sel.top = &n
	}
	if err := p.parseSelectItems(sel); err != nil {
		return nil, err
	}
	if p.matchKw("FROM") {
		if err := p.parseFromAndJoins(sel); err != nil {
			return nil, err
		}
	}
	if p.matchKw("WHERE") {
		sel.where = p.captureExpr(whereStops, false)
		if len(sel.where) == 0 {
			return nil, p.errf("expected WHERE expression")
		}
	}
	if p.matchKw("GROUP") {
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		for {
			win := p.captureExpr(groupByStops, true)
			if len(win) == 0 {
				return nil, p.errf("GROUP BY expects an expression")
			}
			sel.groupBy = append(sel.groupBy, win)
			if p.isSym(",") {
				p.next()
				continue
			}
			break
		}
	}
	if p.matchKw("HAVING") {
		sel.having = p.captureExpr(havingStops, false)
		if len(sel.having) == 0 {
			return nil, p.errf("expected HAVING expression")
		}
	}
	if p.matchKw("ORDER") {
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		for {
			win := p.captureExpr(orderByStops, true)
			if len(win) == 0 {
				return nil, p.errf("ORDER BY expects an expression")
			}
			oi := orderItem{toks: win}
			if p.matchKw("ASC") {
				oi.desc = false
			} else if p.matchKw("DESC") {
				oi.desc = true
			}
			sel.orderBy = append(sel.orderBy, oi)
			if p.isSym(",") {
				p.next()
				continue
			}
			break
		}
	}
	if p.matchKw("LIMIT") {
		n, ok := p.parseIntLiteral()
		if !ok {
			return nil, p.errf("LIMIT expects an integer")
		}
		sel.limit = &n
	}
	if p.matchKw("OFFSET") {
		n, ok := p.parseIntLiteral()
		if !ok {
			return nil, p.errf("OFFSET expects an integer")
		}
		sel.offset = &n
	}
	if !p.atEnd() {
		return nil, p.errf("unexpected trailing input")
	}
	return sel, nil
}

func (p *stmtParser) parseSelectItems(sel *selectStmt) error {
	for {
		switch {
		case p.isSym("*"):
			p.next()
			sel.items = append(sel.items, selectItem{star: true})
		case p.cur().Typ == tIdent && p.peek().Typ == tSymbol && p.peek().Val == "." &&
			p.pos+2 < len(p.toks) && p.toks[p.pos+2].Typ == tSymbol && p.toks[p.pos+2].Val == "*":
			alias := p.cur().Val
			p.next()
			p.next()
			p.next()
			sel.items = append(sel.items, selectItem{star: true, starAlias: alias})
		default:
			win := p.captureExpr(selectItemStops, true)
			if len(win) == 0 {
				return p.errf("expected select expression")
			}
			win, alias := splitItemAlias(win)
			it := selectItem{toks: win, alias: alias}
			it.agg = wholeWindowAggCall(win)
			it.name = itemDisplayName(it)
			sel.items = append(sel.items, it)
		}
		if p.isSym(",") {
			p.next()
			continue
		}
		return nil
	}
}

func (p *stmtParser) parseFromAndJoins(sel *selectStmt) error {
	for {
		fi, err := p.parseFromItem()
		if err != nil {
			return err
		}
		sel.sources = append(sel.sources, fi)
		if p.isSym(",") {
			p.next()
			continue
		}
		break
	}
	for {
		var kind joinType
		switch {
		case p.matchKw("JOIN"):
			kind = joinInner
		case p.isKw("INNER"):
			p.next()
			if err := p.expectKw("JOIN"); err != nil {
				return err
			}
			kind = joinInner
		case p.isKw("LEFT"), p.isKw("RIGHT"), p.isKw("FULL"):
			switch p.cur().Val {
			case "LEFT":
				kind = joinLeft
			case "RIGHT":
				kind = joinRight
			default:
				kind = joinFull
			}
			p.next()
			p.matchKw("OUTER")
			if err := p.expectKw("JOIN"); err != nil {
				return err
			}
		case p.isKw("CROSS"):
			p.next()
			if err := p.expectKw("JOIN"); err != nil {
				return err
			}
			kind = joinCross
		default:
			return nil
		}
		fi, err := p.parseFromItem()
		if err != nil {
			return err
		}
		jc := joinClause{kind: kind, right: fi}
		if kind != joinCross {
			if err := p.expectKw("ON"); err != nil {
				return err
			}
			jc.on = p.captureExpr(joinStops, false)
			if len(jc.on) == 0 {
				return p.errf("expected join condition")
			}
		}
		sel.joins = append(sel.joins, jc)
	}
}

func (p *stmtParser) parseFromItem() (fromItem, error) {
	name := p.identLike()
	if name == "" {
		return fromItem{}, p.errf("expected table name")
	}
	fi := fromItem{table: name, alias: name}
	if p.matchKw("AS") {
		alias := p.identLike()
		if alias == "" {
			return fromItem{}, p.errf("expected alias")
		}
		fi.alias = alias
	} else if p.cur().Typ == tIdent {
		fi.alias = p.cur().Val
		p.next()
	}
	return fi, nil
}

// splitItemAlias strips a trailing "AS alias" or bare-identifier alias from
// an item window.
func splitItemAlias(win []token) ([]token, string) {
	n := len(win)
	if n < 2 {
		return win, ""
	}
	last := win[n-1]
	if last.Typ != tIdent {
		return win, ""
	}
	prev := win[n-2]
	if prev.Typ == tKeyword && prev.Val == "AS" {
		return win[:n-2], last.Val
	}
	if isExprEnd(prev) {
		return win[:n-1], last.Val
	}
	return win, ""
}

// isExprEnd reports whether a token can terminate an expression, which is
// what makes a following bare identifier an alias.
func isExprEnd(t token) bool {
	switch t.Typ {
	case tIdent, tNumber, tString:
		return true
	case tSymbol:
		return t.Val == ")" || t.Val == "*"
	case tKeyword:
		switch t.Val {
		case "END", "NULL", "TRUE", "FALSE":
			return true
		}
	}
	return false
}

// wholeWindowAggCall recognizes an item that is exactly one aggregate call,
// optionally with a leading DISTINCT.
func wholeWindowAggCall(win []token) *aggCall {
	if len(win) < 3 {
		return nil
	}
	t0 := win[0]
	if (t0.Typ != tIdent && t0.Typ != tKeyword) || !isAggName(t0.Val) {
		return nil
	}
	if win[1].Typ != tSymbol || win[1].Val != "(" {
		return nil
	}
	if win[len(win)-1].Typ != tSymbol || win[len(win)-1].Val != ")" {
		return nil
	}
	depth := 0
	for i := 1; i < len(win); i++ {
		t := win[i]
		if t.Typ != tSymbol {
			continue
		}
		switch t.Val {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 && i != len(win)-1 {
				return nil // the call ends before the window does
			}
		}
	}
	return newAggCall(t0.Val, win[2:len(win)-1])
}

func newAggCall(name string, inner []token) *aggCall {
	c := &aggCall{Name: strings.ToUpper(name)}
	if len(inner) > 0 && inner[0].Typ == tKeyword && inner[0].Val == "DISTINCT" {
		c.Distinct = true
		inner = inner[1:]
	}
	c.Inner = inner
	c.Star = len(inner) == 1 && inner[0].Typ == tSymbol && inner[0].Val == "*"
	c.Key = canonicalAggKey(c.Name, c.Distinct, inner)
	return c
}

// findAggCalls scans a window for embedded aggregate calls so HAVING and
// ORDER BY expressions get their aggregates precomputed per group.
func findAggCalls(win []token) []aggCall {
	var out []aggCall
	for i := 0; i < len(win); i++ {
		t := win[i]
		if (t.Typ != tIdent && t.Typ != tKeyword) || !isAggName(t.Val) {
			continue
		}
		if i+1 >= len(win) || win[i+1].Typ != tSymbol || win[i+1].Val != "(" {
			continue
		}
		depth := 0
		end := -1
		for j := i + 1; j < len(win); j++ {
			if win[j].Typ != tSymbol {
				continue
			}
			switch win[j].Val {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 {
					end = j
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			break
		}
		out = append(out, *newAggCall(t.Val, win[i+2:end]))
		i = end
	}
	return out
}

func itemDisplayName(it selectItem) string {
	if it.alias != "" {
		return it.alias
	}
	if it.agg != nil {
		return it.agg.Key
	}
	if len(it.toks) == 1 && it.toks[0].Typ == tIdent {
		return it.toks[0].Val
	}
	if len(it.toks) == 3 && it.toks[0].Typ == tIdent &&
		it.toks[1].Typ == tSymbol && it.toks[1].Val == "." &&
		(it.toks[2].Typ == tIdent || it.toks[2].Typ == tKeyword) {
		return it.toks[2].Val
	}
	return tokensText(it.toks)
}

// ------------------------------ row sets ------------------------------

type selectSource struct {
	alias string
	table *storage.Table
}

func rowsFromTable(t *storage.Table, alias string) []Row {
	out := make([]Row, 0, t.RowCount())
	for ri := 0; ri < t.RowCount(); ri++ {
		out = append(out, rowMapFor(t, alias, t.Row(ri)))
	}
	return out
}

// mergeRows combines two working rows; qualified keys always transfer but a
// bare key never clobbers one the left side already owns.
func mergeRows(l, r Row) Row {
	m := make(Row, len(l)+len(r))
	for k, v := range l {
		m[k] = v
	}
	for k, v := range r {
		if !strings.Contains(k, ".") {
			if _, exists := m[k]; exists {
				continue
			}
		}
		m[k] = v
	}
	return m
}

func cloneRow(r Row) Row {
	m := make(Row, len(r))
	for k, v := range r {
		m[k] = v
	}
	return m
}

func keysOfRow(r Row) []string {
	ks := make([]string, 0, len(r))
	for k := range r {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// padWithNulls adds every given key as null, without clobbering bare keys
// the row already owns.
func padWithNulls(m Row, keys []string) {
	for _, k := range keys {
		if !strings.Contains(k, ".") {
			if _, exists := m[k]; exists {
				continue
			}
		}
		m[k] = nil
	}
}

func crossMerge(env execEnv, left, right []Row) ([]Row, error) {
	out := make([]Row, 0, len(left)*len(right))
	for _, l := range left {
		if err := checkCtx(env.ctx); err != nil {
			return nil, err
		}
		for _, r := range right {
			out = append(out, mergeRows(l, r))
		}
	}
	return out, nil
}

func joinRows(env execEnv, kind joinType, left, right []Row, on []token) ([]Row, error) {
	if kind == joinCross {
		return crossMerge(env, left, right)
	}
	var rightKeys, leftKeys []string
	if len(right) > 0 {
		rightKeys = keysOfRow(right[0])
	}
	if len(left) > 0 {
		leftKeys = keysOfRow(left[0])
	}
	matchedRight := make([]bool, len(right))
	var out []Row
	for _, l := range left {
		if err := checkCtx(env.ctx); err != nil {
			return nil, err
		}
		matched := false
		for ri, r := range right {
			m := mergeRows(l, r)
			ok, err := truthyWindow(env, on, m)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, m)
				matched = true
				matchedRight[ri] = true
			}
		}
		if !matched && (kind == joinLeft || kind == joinFull) {
			m := cloneRow(l)
			padWithNulls(m, rightKeys)
			out = append(out, m)
		}
	}
	if kind == joinRight || kind == joinFull {
		for ri, r := range right {
			if matchedRight[ri] {
				continue
			}
			m := cloneRow(r)
			padWithNulls(m, leftKeys)
			out = append(out, m)
		}
	}
	return out, nil
}

// ------------------------------ pipeline ------------------------------

func runSelect(env execEnv, sel *selectStmt) (*ResultSet, error) {
	var srcs []selectSource
	var rows []Row
	if len(sel.sources) == 0 {
		// no FROM: evaluate the items once against one empty row
		rows = []Row{Row{}}
	} else {
		for si, fi := range sel.sources {
			t, err := env.db.tables.Get(fi.table)
			if err != nil {
				return nil, err
			}
			srcs = append(srcs, selectSource{alias: aliasOr(fi), table: t})
			r := rowsFromTable(t, aliasOr(fi))
			if si == 0 {
				rows = r
			} else {
				rows, err = crossMerge(env, rows, r)
				if err != nil {
					return nil, err
				}
			}
		}
		for _, j := range sel.joins {
			rt, err := env.db.tables.Get(j.right.table)
			if err != nil {
				return nil, err
			}
			srcs = append(srcs, selectSource{alias: aliasOr(j.right), table: rt})
			rrows := rowsFromTable(rt, aliasOr(j.right))
			rows, err = joinRows(env, j.kind, rows, rrows, j.on)
			if err != nil {
				return nil, err
			}
		}
	}

	// WHERE
	if len(sel.where) > 0 {
		kept := make([]Row, 0, len(rows))
		for _, r := range rows {
			if err := checkCtx(env.ctx); err != nil {
				return nil, err
			}
			ok, err := truthyWindow(env, sel.where, r)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	grouped := len(sel.groupBy) > 0 || anyItemAggregate(sel.items)
	var outRows []Row
	if grouped {
		var err error
		outRows, err = groupRows(env, sel, rows)
		if err != nil {
			return nil, err
		}
	} else {
		// without grouping HAVING degenerates to a second WHERE
		if len(sel.having) > 0 {
			kept := make([]Row, 0, len(rows))
			for _, r := range rows {
				ok, err := truthyWindow(env, sel.having, r)
				if err != nil {
					return nil, err
				}
				if ok {
					kept = append(kept, r)
				}
			}
			rows = kept
		}
		outRows = rows
	}

	// ORDER BY: stable multi-key sort over the total order
	if len(sel.orderBy) > 0 {
		aliasWins := itemAliasWindows(sel)
		keys := make([][]any, len(outRows))
		for i, r := range outRows {
			if err := checkCtx(env.ctx); err != nil {
				return nil, err
			}
			ks := make([]any, len(sel.orderBy))
			for oi, ob := range sel.orderBy {
				v, err := evalOrderKey(env, r, ob.toks, aliasWins)
				if err != nil {
					return nil, err
				}
				ks[oi] = v
			}
			keys[i] = ks
		}
		idx := make([]int, len(outRows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			for oi, ob := range sel.orderBy {
				c := storage.Compare(keys[idx[a]][oi], keys[idx[b]][oi])
				if c == 0 {
					continue
				}
				if ob.desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		sorted := make([]Row, len(outRows))
		for i, j := range idx {
			sorted[i] = outRows[j]
		}
		outRows = sorted
	}

	// OFFSET, then LIMIT; TOP supplies the limit when none was given
	limit := sel.limit
	if limit == nil {
		limit = sel.top
	}
	if sel.offset != nil {
		if int(*sel.offset) >= len(outRows) {
			outRows = nil
		} else if *sel.offset > 0 {
			outRows = outRows[*sel.offset:]
		}
	}
	if limit != nil && int(*limit) < len(outRows) {
		outRows = outRows[:*limit]
	}

	// projection, then DISTINCT over the produced output values
	headers := buildHeaders(sel, srcs)
	tuples := make([][]any, 0, len(outRows))
	seen := map[string]bool{}
	for _, r := range outRows {
		if err := checkCtx(env.ctx); err != nil {
			return nil, err
		}
		tuple, distinctKey, err := projectRow(env, sel, srcs, r, grouped)
		if err != nil {
			return nil, err
		}
		if sel.distinct {
			if seen[distinctKey] {
				continue
			}
			seen[distinctKey] = true
		}
		tuples = append(tuples, tuple)
	}
	return &ResultSet{Cols: headers, Rows: tuples}, nil
}

func anyItemAggregate(items []selectItem) bool {
	for _, it := range items {
		if it.agg != nil {
			return true
		}
	}
	return false
}

func itemAliasWindows(sel *selectStmt) map[string][]token {
	m := map[string][]token{}
	for _, it := range sel.items {
		if it.alias != "" && !it.star {
			m[strings.ToLower(it.alias)] = it.toks
		}
	}
	return m
}

// evalOrderKey resolves one ORDER BY expression: a plain identifier prefers
// a row key (grouped outputs, column names), then a select alias, before the
// window is evaluated as an expression.
func evalOrderKey(env execEnv, row Row, win []token, aliases map[string][]token) (any, error) {
	if len(win) == 1 && win[0].Typ == tIdent {
		if v, ok := getVal(row, win[0].Val); ok {
			return v, nil
		}
		if aw, ok := aliases[strings.ToLower(win[0].Val)]; ok {
			return evalWindow(env, aw, row)
		}
	}
	return evalWindow(env, win, row)
}

// ------------------------------ grouping ------------------------------

// fmtKeyPart renders a value for duplicate detection with a type prefix so
// 1, "1", and true stay distinct.
func fmtKeyPart(v any) string {
	switch v.(type) {
	case nil:
		return "N:"
	case bool:
		return "B:" + storage.Text(v)
	case string:
		return "S:" + v.(string)
	default:
		return "V:" + storage.Text(v)
	}
}

func groupRows(env execEnv, sel *selectStmt, rows []Row) ([]Row, error) {
	// every aggregate mentioned in the item list, HAVING, or ORDER BY gets
	// precomputed under its canonical key
	aggs := map[string]aggCall{}
	addAgg := func(cs []aggCall) {
		for _, c := range cs {
			aggs[c.Key] = c
		}
	}
	for _, it := range sel.items {
		if it.star {
			continue
		}
		if it.agg != nil {
			aggs[it.agg.Key] = *it.agg
		} else {
			addAgg(findAggCalls(it.toks))
		}
	}
	addAgg(findAggCalls(sel.having))
	for _, ob := range sel.orderBy {
		addAgg(findAggCalls(ob.toks))
	}
	aggKeys := make([]string, 0, len(aggs))
	for k := range aggs {
		aggKeys = append(aggKeys, k)
	}
	sort.Strings(aggKeys)

	// partition on the textual values of the group expressions; one group
	// spanning everything when GROUP BY is absent
	groups := map[string][]Row{}
	var order []string
	for _, r := range rows {
		if err := checkCtx(env.ctx); err != nil {
			return nil, err
		}
		var parts []string
		for _, win := range sel.groupBy {
			v, err := evalWindow(env, win, r)
			if err != nil {
				return nil, err
			}
			parts = append(parts, storage.Text(v))
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if len(sel.groupBy) == 0 && len(order) == 0 {
		// aggregates over an empty input still produce one row
		order = append(order, "")
		groups[""] = nil
	}

	var out []Row
	for _, key := range order {
		grp := groups[key]
		g := Row{}
		var first Row
		if len(grp) > 0 {
			first = grp[0]
		} else {
			first = Row{}
		}
		// each group-by expression is reachable under its bare textual key
		for _, win := range sel.groupBy {
			v, err := evalWindow(env, win, first)
			if err != nil {
				return nil, err
			}
			putVal(g, tokensText(win), v)
		}
		for _, k := range aggKeys {
			c := aggs[k]
			v, err := computeAggregate(env, c, grp)
			if err != nil {
				return nil, err
			}
			putVal(g, k, v)
		}
		// non-aggregate items evaluate against the first row of the group
		evalRow := cloneRow(first)
		for k, v := range g {
			evalRow[k] = v
		}
		for _, it := range sel.items {
			switch {
			case it.star:
				for k, v := range first {
					if strings.Contains(k, ".") {
						g[k] = v
					}
				}
			case it.agg != nil:
				v, _ := getVal(g, it.agg.Key)
				if it.alias != "" {
					putVal(g, it.alias, v)
				}
			default:
				v, err := evalWindow(env, it.toks, evalRow)
				if err != nil {
					// aggregating an empty input still emits one row; its
					// non-aggregate items have no bindings and go null
					if len(grp) == 0 && errors.Is(err, ErrNotFound) {
						v = nil
					} else {
						return nil, err
					}
				}
				putVal(g, it.name, v)
			}
		}
		if len(sel.having) > 0 {
			havingRow := cloneRow(evalRow)
			for k, v := range g {
				havingRow[k] = v
			}
			ok, err := truthyWindow(env, sel.having, havingRow)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func computeAggregate(env execEnv, c aggCall, rows []Row) (any, error) {
	switch c.Name {
	case "COUNT":
		if c.Star {
			return int64(len(rows)), nil
		}
		if c.Distinct {
			seen := map[string]bool{}
			for _, r := range rows {
				v, err := evalWindow(env, c.Inner, r)
				if err != nil {
					return nil, err
				}
				if v != nil {
					seen[fmtKeyPart(v)] = true
				}
			}
			return int64(len(seen)), nil
		}
		n := int64(0)
		for _, r := range rows {
			v, err := evalWindow(env, c.Inner, r)
			if err != nil {
				return nil, err
			}
			if v != nil {
				n++
			}
		}
		return n, nil
	case "SUM", "AVG":
		var vals []any
		seen := map[string]bool{}
		for _, r := range rows {
			v, err := evalWindow(env, c.Inner, r)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if c.Distinct {
				k := fmtKeyPart(v)
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			return int64(0), nil
		}
		sum := 0.0
		allInt := true
		for _, v := range vals {
			f, ok := storage.ToFloat(v)
			if !ok {
				continue
			}
			sum += f
			if !storage.IsInteger(v) {
				allInt = false
			}
		}
		if c.Name == "AVG" {
			return sum / float64(len(vals)), nil
		}
		if allInt {
			return int64(sum), nil
		}
		return sum, nil
	case "MIN", "MAX":
		var best any
		have := false
		for _, r := range rows {
			v, err := evalWindow(env, c.Inner, r)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if !have {
				best = v
				have = true
				continue
			}
			cmp := storage.Compare(v, best)
			if (c.Name == "MIN" && cmp < 0) || (c.Name == "MAX" && cmp > 0) {
				best = v
			}
		}
		if !have {
			return nil, nil
		}
		return best, nil
	}
	return nil, nil
}

// ------------------------------ projection ------------------------------

func buildHeaders(sel *selectStmt, srcs []selectSource) []string {
	var out []string
	for _, it := range sel.items {
		if it.star {
			for _, s := range srcs {
				if it.starAlias != "" && !strings.EqualFold(it.starAlias, s.alias) {
					continue
				}
				for _, c := range s.table.Cols {
					out = append(out, c.Name)
				}
			}
			continue
		}
		out = append(out, it.name)
	}
	return out
}

// projectRow produces the output tuple for one row plus the DISTINCT key
// built from the non-star item values.
func projectRow(env execEnv, sel *selectStmt, srcs []selectSource, r Row, grouped bool) ([]any, string, error) {
	var tuple []any
	var keyParts []string
	for _, it := range sel.items {
		switch {
		case it.star:
			for _, s := range srcs {
				if it.starAlias != "" && !strings.EqualFold(it.starAlias, s.alias) {
					continue
				}
				for _, c := range s.table.Cols {
					v, ok := getVal(r, s.alias+"."+c.Name)
					if !ok {
						v, _ = getVal(r, c.Name)
					}
					tuple = append(tuple, v)
				}
			}
		case it.agg != nil:
			v, _ := getVal(r, it.agg.Key)
			tuple = append(tuple, v)
			keyParts = append(keyParts, fmtKeyPart(v))
		default:
			var v any
			var ok bool
			if grouped {
				v, ok = getVal(r, it.name)
			}
			if !ok {
				var err error
				v, err = evalWindow(env, it.toks, r)
				if err != nil {
					return nil, "", err
				}
			}
			tuple = append(tuple, v)
			keyParts = append(keyParts, fmtKeyPart(v))
		}
	}
	key := strings.Join(keyParts, "\x1f")
	if len(keyParts) == 0 {
		// a pure star projection deduplicates on the whole tuple
		parts := make([]string, len(tuple))
		for i, v := range tuple {
			parts[i] = fmtKeyPart(v)
		}
		key = strings.Join(parts, "\x1f")
	}
	return tuple, key, nil
}
