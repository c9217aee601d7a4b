// Asynchronous facade over the synchronous core.
//
// AsyncDB funnels every statement through one background worker goroutine,
// preserving the engine's single-threaded execution model while returning
// control to the caller immediately. The row-producing variant yields
// already-computed rows one at a time; cancellation is observed between row
// evaluations inside the engine and between yields here, so a blocking
// add-in that is already inside a row finishes before the next cancellation
// point is reached.
package slimsql

import (
	"context"
	"sync"
)

// NonQueryResult carries the outcome of an asynchronous non-query.
type NonQueryResult struct {
	Affected int
	Err      error
}

// ScalarResult carries the outcome of an asynchronous scalar query.
type ScalarResult struct {
	Value any
	Err   error
}

// StreamRow is one yielded row of a streamed SELECT. Cols repeats the header
// slice on every row; a row with Err set terminates the stream.
type StreamRow struct {
	Cols   []string
	Values []any
	Err    error
}

// AsyncDB wraps a DB with a single background worker.
type AsyncDB struct {
	db    *DB
	jobs  chan func()
	close sync.Once
}

// NewAsync starts the background worker for db. The caller must not use db
// directly while the AsyncDB is live, or the single-writer model breaks.
func NewAsync(db *DB) *AsyncDB {
	a := &AsyncDB{db: db, jobs: make(chan func())}
	go func() {
		for job := range a.jobs {
			job()
		}
	}()
	return a
}

// Close stops the worker once all queued jobs have drained.
func (a *AsyncDB) Close() {
	a.close.Do(func() { close(a.jobs) })
}

// submit queues one job, honoring cancellation while the queue is full.
func (a *AsyncDB) submit(ctx context.Context, job func()) error {
	select {
	case a.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteNonQueryAsync runs a statement on the worker and delivers the
// affected count on the returned channel.
func (a *AsyncDB) ExecuteNonQueryAsync(ctx context.Context, sql string) <-chan NonQueryResult {
	out := make(chan NonQueryResult, 1)
	err := a.submit(ctx, func() {
		n, err := a.db.ExecuteNonQuery(ctx, sql)
		out <- NonQueryResult{Affected: n, Err: err}
	})
	if err != nil {
		out <- NonQueryResult{Err: err}
	}
	return out
}

// ExecuteScalarAsync runs a statement on the worker and delivers the scalar
// result on the returned channel.
func (a *AsyncDB) ExecuteScalarAsync(ctx context.Context, sql string) <-chan ScalarResult {
	out := make(chan ScalarResult, 1)
	err := a.submit(ctx, func() {
		v, err := a.db.ExecuteScalar(ctx, sql)
		out <- ScalarResult{Value: v, Err: err}
	})
	if err != nil {
		out <- ScalarResult{Err: err}
	}
	return out
}

// ExecuteReaderStream computes the result on the worker and yields the rows
// one at a time. Rows are never reordered; cancellation surfaces as a final
// row with Err set.
func (a *AsyncDB) ExecuteReaderStream(ctx context.Context, sql string) <-chan StreamRow {
	out := make(chan StreamRow)
	err := a.submit(ctx, func() {
		defer close(out)
		rs, err := a.db.ExecuteReader(ctx, sql)
		if err != nil {
			out <- StreamRow{Err: err}
			return
		}
		for _, row := range rs.Rows {
			select {
			case out <- StreamRow{Cols: rs.Cols, Values: row}:
			case <-ctx.Done():
				// a canceled consumer may have walked away; never block
				// the worker on the error row
				select {
				case out <- StreamRow{Err: ctx.Err()}:
				default:
				}
				return
			}
		}
	})
	if err != nil {
		go func() {
			out <- StreamRow{Err: err}
			close(out)
		}()
	}
	return out
}
