package engine

import (
	"context"
	"testing"
)

func TestBeforeInsertTriggerMutatesRow(t *testing.T) {
	db := productsDB(t)
	mustExec(t, db, `CREATE TRIGGER price_floor BEFORE INSERT ON Products FOR EACH ROW BEGIN
		IF NEW.Price < 1.0 THEN SET NEW.Price = 1.0 END IF;
	END`)
	mustExec(t, db, `INSERT INTO Products VALUES (6, 'Freebie', 'Samples', 0.0, 10)`)
	if v := mustScalar(t, db, `SELECT Price FROM Products WHERE Id = 6`); v != float64(1.0) {
		t.Fatalf("expected trigger to raise price to 1.0, got %v", v)
	}
}

func TestLastTriggerWins(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (a INT)`)
	mustExec(t, db, `CREATE TRIGGER first BEFORE INSERT ON t BEGIN SET NEW.a = 10; END`)
	mustExec(t, db, `CREATE TRIGGER second BEFORE INSERT ON t BEGIN SET NEW.a = 20; END`)
	mustExec(t, db, `INSERT INTO t VALUES (1)`)
	if v := mustScalar(t, db, `SELECT a FROM t`); v != int64(20) {
		t.Fatalf("expected the later trigger's value, got %v", v)
	}
}

func TestDropTriggerDisarms(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (a INT)`)
	mustExec(t, db, `CREATE TRIGGER bump BEFORE INSERT ON t BEGIN SET NEW.a = NEW.a + 1; END`)
	mustExec(t, db, `INSERT INTO t VALUES (1)`)
	mustExec(t, db, `DROP TRIGGER bump`)
	mustExec(t, db, `INSERT INTO t VALUES (1)`)
	rs := mustQuery(t, db, `SELECT a FROM t ORDER BY a`)
	if rs.Rows[0][0] != int64(1) || rs.Rows[1][0] != int64(2) {
		t.Fatalf("expected 1 and 2, got %v", rs.Rows)
	}
	if _, err := db.ExecuteNonQuery(context.Background(), `DROP TRIGGER IF EXISTS bump`); err != nil {
		t.Fatalf("DROP TRIGGER IF EXISTS should not fail: %v", err)
	}
}

func TestAfterInsertEmbeddedDML(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE orders (id INT, total FLOAT)`)
	mustExec(t, db, `CREATE TABLE audit (order_id INT, note VARCHAR)`)
	mustExec(t, db, `CREATE TRIGGER log_order AFTER INSERT ON orders BEGIN
		INSERT INTO audit VALUES (NEW.id, 'inserted');
	END`)
	mustExec(t, db, `INSERT INTO orders VALUES (7, 99.5)`)
	rs := mustQuery(t, db, `SELECT order_id, note FROM audit`)
	if len(rs.Rows) != 1 || rs.Rows[0][0] != int64(7) || rs.Rows[0][1] != "inserted" {
		t.Fatalf("expected audit row (7, inserted), got %v", rs.Rows)
	}
}

func TestTriggerDMLErrorsAreSwallowed(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (a INT)`)
	mustExec(t, db, `CREATE TRIGGER broken AFTER INSERT ON t BEGIN
		INSERT INTO no_such_table VALUES (1);
	END`)
	if n := mustExec(t, db, `INSERT INTO t VALUES (1)`); n != 1 {
		t.Fatalf("outer insert should survive a broken trigger, got %d", n)
	}
	if v := mustScalar(t, db, `SELECT COUNT(*) FROM t`); v != int64(1) {
		t.Fatalf("expected the row to be stored, got %v", v)
	}
}

func TestUpdateTriggerSeesOldAndNew(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE accounts (id INT, balance FLOAT)`)
	mustExec(t, db, `CREATE TABLE changes (id INT, old_balance FLOAT, new_balance FLOAT)`)
	mustExec(t, db, `INSERT INTO accounts VALUES (1, 100.0)`)
	mustExec(t, db, `CREATE TRIGGER track AFTER UPDATE ON accounts BEGIN
		INSERT INTO changes VALUES (OLD.id, OLD.balance, NEW.balance);
	END`)
	mustExec(t, db, `UPDATE accounts SET balance = 150.0 WHERE id = 1`)
	rs := mustQuery(t, db, `SELECT old_balance, new_balance FROM changes`)
	if len(rs.Rows) != 1 {
		t.Fatalf("expected one change row, got %v", rs.Rows)
	}
	if rs.Rows[0][0] != float64(100) || rs.Rows[0][1] != float64(150) {
		t.Fatalf("expected (100, 150), got %v", rs.Rows[0])
	}
}

func TestDeleteTriggerFiresPerRow(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (a INT)`)
	mustExec(t, db, `CREATE TABLE graveyard (a INT)`)
	mustExec(t, db, `INSERT INTO t VALUES (1), (2), (3)`)
	mustExec(t, db, `CREATE TRIGGER bury BEFORE DELETE ON t BEGIN
		INSERT INTO graveyard VALUES (OLD.a);
	END`)
	if n := mustExec(t, db, `DELETE FROM t WHERE a > 1`); n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if v := mustScalar(t, db, `SELECT COUNT(*) FROM graveyard`); v != int64(2) {
		t.Fatalf("expected 2 graveyard rows, got %v", v)
	}
}

func TestIfElseifElseBranches(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (n INT, label VARCHAR)`)
	mustExec(t, db, `CREATE TRIGGER classify BEFORE INSERT ON t BEGIN
		IF NEW.n < 0 THEN
			SET NEW.label = 'negative';
		ELSEIF NEW.n = 0 THEN
			SET NEW.label = 'zero';
		ELSE
			SET NEW.label = 'positive';
		END IF;
	END`)
	mustExec(t, db, `INSERT INTO t VALUES (-5, NULL), (0, NULL), (9, NULL)`)
	rs := mustQuery(t, db, `SELECT label FROM t ORDER BY n`)
	want := []string{"negative", "zero", "positive"}
	for i, w := range want {
		if rs.Rows[i][0] != w {
			t.Fatalf("row %d: expected %q, got %v", i, w, rs.Rows[i][0])
		}
	}
}

func TestBeforeAndAfterOrdering(t *testing.T) {
	db := NewDB()
	mustExec(t, db, `CREATE TABLE t (a INT)`)
	mustExec(t, db, `CREATE TABLE log (step VARCHAR)`)
	mustExec(t, db, `CREATE TRIGGER t_after AFTER INSERT ON t BEGIN INSERT INTO log VALUES ('after'); END`)
	mustExec(t, db, `CREATE TRIGGER t_before BEFORE INSERT ON t BEGIN INSERT INTO log VALUES ('before'); END`)
	mustExec(t, db, `INSERT INTO t VALUES (1)`)
	rs := mustQuery(t, db, `SELECT step FROM log`)
	if len(rs.Rows) != 2 || rs.Rows[0][0] != "before" || rs.Rows[1][0] != "after" {
		t.Fatalf("expected before then after, got %v", rs.Rows)
	}
}
