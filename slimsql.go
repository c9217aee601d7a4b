// Package slimsql provides an embeddable, in-memory SQL engine for Go
// applications: SQL text in, result grid out, with no external database,
// server, or native library.
//
// The engine covers DDL, DML, and SELECT (joins, grouping and aggregation,
// ordering, paging, DISTINCT), user-defined SQL functions, host-registered
// add-in functions, and BEFORE/AFTER row triggers with NEW/OLD references.
// State can be captured to a JSON snapshot and reloaded, including triggers.
//
// # Basic Usage
//
//	db := slimsql.NewDB()
//	ctx := context.Background()
//
//	db.ExecuteNonQuery(ctx, "CREATE TABLE users (id INT, name VARCHAR)")
//	db.ExecuteNonQuery(ctx, "INSERT INTO users VALUES (1, 'Alice')")
//
//	rs, _ := db.ExecuteReader(ctx, "SELECT * FROM users WHERE id = 1")
//	for _, row := range rs.Rows {
//	    fmt.Println(row)
//	}
//
// # Add-ins
//
// A host can expose its own functions to SQL; add-ins resolve before
// builtins, so they may shadow them on purpose:
//
//	db.RegisterAddInFunc("Double", func(args []any) (any, error) {
//	    n, _ := args[0].(int64)
//	    return n * 2, nil
//	})
//	v, _ := db.ExecuteScalar(ctx, "SELECT Double(21)") // 42
//
// # Persistence
//
//	text, _ := slimsql.ToSnapshot(db, true)
//	db2, _ := slimsql.FromSnapshot(text)
//
// A database instance is single-threaded: each entry point runs to
// completion on the caller's goroutine. Hosts that share one instance
// across goroutines must serialize externally, or use AsyncDB, which funnels
// all work through one background worker.
package slimsql

import (
	"context"

	"github.com/SimonWaldherr/slimSQL/internal/engine"
	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// DB is one database instance: the table catalog plus the user function,
// trigger, and add-in registries.
type DB = engine.DB

// Table is a named, columnar table with ordered typed columns.
type Table = storage.Table

// Column is one table column: a name and a coarse declared type.
type Column = storage.Column

// ColType enumerates the coarse column types.
type ColType = storage.ColType

// ResultSet is the output of a SELECT: display headers plus value rows.
type ResultSet = engine.ResultSet

// AddIn is a host-registered callable exposed under a SQL function name.
type AddIn = engine.AddIn

// AddInFunc adapts a plain function to the AddIn interface.
type AddInFunc = engine.AddInFunc

// QueryCache caches tokenized statements for repeated execution.
type QueryCache = engine.QueryCache

// CompiledQuery is one cached, pre-tokenized statement.
type CompiledQuery = engine.CompiledQuery

// Column type constants.
const (
	AnyType       ColType = storage.AnyType
	IntType       ColType = storage.IntType
	FloatType     ColType = storage.FloatType
	BoolType      ColType = storage.BoolType
	TextType      ColType = storage.TextType
	TimestampType ColType = storage.TimestampType
	UuidType      ColType = storage.UuidType
)

// Error kinds, classified with errors.Is.
var (
	ErrParse        = engine.ErrParse
	ErrNotFound     = engine.ErrNotFound
	ErrDuplicate    = engine.ErrDuplicate
	ErrTypeMismatch = engine.ErrTypeMismatch
	ErrDivideByZero = engine.ErrDivideByZero
)

// NewDB creates an empty database instance.
func NewDB() *DB {
	return engine.NewDB()
}

// NewTable builds a table for programmatic registration via DB.AddTable.
func NewTable(name string, cols []Column) (*Table, error) {
	return storage.NewTable(name, cols)
}

// NewQueryCache creates a statement cache with the given maximum size.
func NewQueryCache(maxSize int) *QueryCache {
	return engine.NewQueryCache(maxSize)
}

// Execute runs one statement, returning the result grid for SELECT and the
// affected row count for DML. Most callers want the DB methods
// ExecuteNonQuery, ExecuteReader, or ExecuteScalar instead.
func Execute(ctx context.Context, db *DB, sql string) (*ResultSet, int, error) {
	return engine.Execute(ctx, db, sql)
}
