package engine

import (
	"context"
	"testing"
)

func joinDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB()
	mustExec(t, db, `CREATE TABLE users (id INT, name VARCHAR)`)
	mustExec(t, db, `CREATE TABLE orders (id INT, user_id INT, total FLOAT)`)
	mustExec(t, db, `INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob'), (3, 'Cara')`)
	mustExec(t, db, `INSERT INTO orders VALUES (10, 1, 5.0), (11, 1, 7.5), (12, 2, 3.0), (13, 9, 1.0)`)
	return db
}

func TestInnerJoin(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id ORDER BY o.id`)
	if len(rs.Rows) != 3 {
		t.Fatalf("expected 3 joined rows, got %v", rs.Rows)
	}
	if rs.Rows[0][0] != "Alice" || rs.Rows[0][1] != float64(5.0) {
		t.Fatalf("unexpected first row: %v", rs.Rows[0])
	}
}

func TestLeftJoinPadsNulls(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.total IS NULL`)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "Cara" || rs.Rows[0][1] != nil {
		t.Fatalf("expected unmatched Cara with null total, got %v", rs.Rows)
	}
}

func TestRightJoinKeepsUnmatchedRight(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT u.name, o.id FROM users u RIGHT JOIN orders o ON u.id = o.user_id ORDER BY o.id`)
	if len(rs.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %v", rs.Rows)
	}
	last := rs.Rows[3]
	if last[0] != nil || last[1] != int64(13) {
		t.Fatalf("expected unmatched order 13 with null name, got %v", last)
	}
}

func TestFullJoin(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT u.name, o.id FROM users u FULL OUTER JOIN orders o ON u.id = o.user_id`)
	// 3 matches + unmatched Cara + unmatched order 13
	if len(rs.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d: %v", len(rs.Rows), rs.Rows)
	}
}

func TestCrossJoin(t *testing.T) {
	db := joinDB(t)
	if v := mustScalar(t, db, `SELECT COUNT(*) FROM users u CROSS JOIN orders o`); v != int64(12) {
		t.Fatalf("expected 12 pairs, got %v", v)
	}
}

func TestCommaSourcesCrossJoin(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT u.name FROM users u, orders o WHERE u.id = o.user_id AND o.total > 5`)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "Alice" {
		t.Fatalf("expected Alice, got %v", rs.Rows)
	}
}

func TestStarExpansion(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT * FROM users ORDER BY id`)
	if len(rs.Cols) != 2 || rs.Cols[0] != "id" || rs.Cols[1] != "name" {
		t.Fatalf("unexpected headers: %v", rs.Cols)
	}
	if rs.Rows[0][0] != int64(1) || rs.Rows[0][1] != "Alice" {
		t.Fatalf("unexpected first row: %v", rs.Rows[0])
	}
}

func TestQualifiedStar(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT o.* FROM users u JOIN orders o ON u.id = o.user_id ORDER BY o.id`)
	if len(rs.Cols) != 3 {
		t.Fatalf("expected the three order columns, got %v", rs.Cols)
	}
	if rs.Rows[0][0] != int64(10) {
		t.Fatalf("unexpected first row: %v", rs.Rows[0])
	}
}

func TestGroupByExpressionKey(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT user_id, SUM(total) FROM orders GROUP BY user_id ORDER BY user_id`)
	if len(rs.Rows) != 3 {
		t.Fatalf("expected 3 groups, got %v", rs.Rows)
	}
	if rs.Rows[0][0] != int64(1) || rs.Rows[0][1] != float64(12.5) {
		t.Fatalf("unexpected first group: %v", rs.Rows[0])
	}
}

func TestHavingWithoutGroupingIsSecondWhere(t *testing.T) {
	db := joinDB(t)
	rs := mustQuery(t, db, `SELECT name FROM users WHERE id > 0 HAVING name LIKE 'B%'`)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != "Bob" {
		t.Fatalf("expected Bob, got %v", rs.Rows)
	}
}

func TestAggregateOverEmptyInput(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE empty (n INT)`)
	if v := mustScalar(t, db, `SELECT COUNT(*) FROM empty`); v != int64(0) {
		t.Fatalf("COUNT over empty: got %v", v)
	}
	if v := mustScalar(t, db, `SELECT SUM(n) FROM empty`); v != int64(0) {
		t.Fatalf("SUM over empty should yield 0, got %v", v)
	}
	if v := mustScalar(t, db, `SELECT MIN(n) FROM empty`); v != nil {
		t.Fatalf("MIN over empty should be NULL, got %v", v)
	}
}

func TestNullsSortFirstAscending(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (v INT)`)
	mustExec(t, db, `INSERT INTO t VALUES (2), (NULL), (1)`)
	rs := mustQuery(t, db, `SELECT v FROM t ORDER BY v ASC`)
	if rs.Rows[0][0] != nil || rs.Rows[1][0] != int64(1) || rs.Rows[2][0] != int64(2) {
		t.Fatalf("expected nulls first then ascending, got %v", rs.Rows)
	}
}

func TestOrderByMultiKey(t *testing.T) {
	db := productsDB(t)
	rs := mustQuery(t, db, `SELECT Category, Name FROM Products ORDER BY Category ASC, Price DESC`)
	if rs.Rows[0][1] != "Paint" || rs.Rows[1][1] != "Paintbrush" {
		t.Fatalf("unexpected supplies ordering: %v", rs.Rows)
	}
	if rs.Rows[2][1] != "Drill" {
		t.Fatalf("expected Drill first among tools, got %v", rs.Rows[2])
	}
}

func TestCompiledQueryReuse(t *testing.T) {
	db := productsDB(t)
	qc := NewQueryCache(4)
	cq, err := qc.Compile(`SELECT COUNT(*) FROM Products`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	again, err := qc.Compile(`SELECT COUNT(*) FROM Products`)
	if err != nil || again != cq {
		t.Fatalf("expected cache hit, got %v / %v", again, err)
	}
	rs, _, err := cq.Execute(context.Background(), db)
	if err != nil {
		t.Fatalf("execute compiled: %v", err)
	}
	if rs.Rows[0][0] != int64(5) {
		t.Fatalf("expected 5, got %v", rs.Rows[0][0])
	}
	if qc.Size() != 1 {
		t.Fatalf("expected cache size 1, got %d", qc.Size())
	}
}
