package slimsql

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db := NewDB()
	stmts := []string{
		`CREATE TABLE events (id INT, name VARCHAR, score FLOAT, done BIT, at DATETIME, token UNIQUEIDENTIFIER)`,
		`INSERT INTO events VALUES (1, 'alpha', 1.5, TRUE, '2024-06-01 12:30:00', '6ba7b810-9dad-11d1-80b4-00c04fd430c8')`,
		`INSERT INTO events VALUES (2, 'beta', NULL, FALSE, NULL, NULL)`,
		`CREATE TRIGGER floor_score BEFORE INSERT ON events BEGIN
			IF NEW.score < 0 THEN SET NEW.score = 0 END IF;
		END`,
	}
	for _, s := range stmts {
		if _, err := db.ExecuteNonQuery(ctx, s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
	return db
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := seedDB(t)
	text, err := ToSnapshot(db, true)
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	db2, err := FromSnapshot(text)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	orig, _ := db.Tables().Get("events")
	restored, err := db2.Tables().Get("events")
	if err != nil {
		t.Fatalf("restored table missing: %v", err)
	}
	if len(restored.Cols) != len(orig.Cols) {
		t.Fatalf("column count changed: %d vs %d", len(restored.Cols), len(orig.Cols))
	}
	for i := range orig.Cols {
		if restored.Cols[i].Name != orig.Cols[i].Name {
			t.Fatalf("column order changed at %d: %q vs %q", i, restored.Cols[i].Name, orig.Cols[i].Name)
		}
	}
	if restored.RowCount() != orig.RowCount() {
		t.Fatalf("row count changed: %d vs %d", restored.RowCount(), orig.RowCount())
	}
	row := restored.Row(0)
	if row[0] != int64(1) || row[1] != "alpha" || row[2] != float64(1.5) || row[3] != true {
		t.Fatalf("unexpected restored row: %v", row)
	}
	at := row[4].(time.Time)
	if at.Format("2006-01-02 15:04:05") != "2024-06-01 12:30:00" {
		t.Fatalf("timestamp not preserved to the second: %v", at)
	}
	if u := row[5].(uuid.UUID); u.String() != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Fatalf("uuid not preserved: %v", u)
	}
	row1 := restored.Row(1)
	if row1[2] != nil || row1[4] != nil || row1[5] != nil {
		t.Fatalf("nulls not preserved: %v", row1)
	}

	// the replayed trigger must fire identically
	if _, err := db2.ExecuteNonQuery(ctx, `INSERT INTO events VALUES (3, 'gamma', -4.0, FALSE, NULL, NULL)`); err != nil {
		t.Fatalf("insert on restored db: %v", err)
	}
	v, err := db2.ExecuteScalar(ctx, `SELECT score FROM events WHERE id = 3`)
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}
	if v != float64(0) {
		t.Fatalf("restored trigger should have floored the score, got %v", v)
	}
}

func TestSnapshotMalformed(t *testing.T) {
	if _, err := FromSnapshot(`{not json`); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for bad JSON, got %v", err)
	}
	if _, err := FromSnapshot(`{"triggers": []}`); !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization for missing tables key, got %v", err)
	}
}

func TestSnapshotUnknownColumnTypeReadsAsString(t *testing.T) {
	text := `{"tables":[{"name":"t","columns":[{"name":"v","type":"Blob"}],"rows":[["x"]]}],"triggers":[]}`
	db, err := FromSnapshot(text)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	tbl, _ := db.Tables().Get("t")
	if tbl.Cols[0].Type != TextType {
		t.Fatalf("unknown type should read as String, got %v", tbl.Cols[0].Type)
	}
}

func TestSaveAndLoadSnapshotFile(t *testing.T) {
	db := seedDB(t)
	path := filepath.Join(t.TempDir(), "db.json")
	if err := SaveSnapshot(db, path, false); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	db2, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if db2.Tables().Len() != 1 {
		t.Fatalf("expected 1 table, got %d", db2.Tables().Len())
	}
}

func TestMergeSnapshot(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	if _, err := db.ExecuteNonQuery(ctx, `CREATE TABLE t (a INT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.ExecuteNonQuery(ctx, `INSERT INTO t VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	incoming := `{"tables":[
		{"name":"t","columns":[{"name":"a","type":"Int64"}],"rows":[[99]]},
		{"name":"u","columns":[{"name":"b","type":"String"}],"rows":[["hi"]]}
	],"triggers":[]}`

	if err := MergeSnapshot(db, incoming, false); err != nil {
		t.Fatalf("merge: %v", err)
	}
	v, _ := db.ExecuteScalar(ctx, `SELECT a FROM t`)
	if v != int64(1) {
		t.Fatalf("existing table should survive a non-overwrite merge, got %v", v)
	}
	v, _ = db.ExecuteScalar(ctx, `SELECT b FROM u`)
	if v != "hi" {
		t.Fatalf("new table should arrive, got %v", v)
	}

	if err := MergeSnapshot(db, incoming, true); err != nil {
		t.Fatalf("overwrite merge: %v", err)
	}
	v, _ = db.ExecuteScalar(ctx, `SELECT a FROM t`)
	if v != int64(99) {
		t.Fatalf("overwrite merge should replace the table, got %v", v)
	}
}
