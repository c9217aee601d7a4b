// Query compilation cache.
//
//   - What: A lightweight in-memory cache that stores tokenized SQL
//     statements (CompiledQuery) keyed by their exact source text.
//   - How: Compile scans the statement once; Execute re-runs the shared
//     token buffer without re-tokenizing. A simple FIFO eviction based on
//     oldest ParsedAt keeps the cache within a fixed size.
//   - Why: Tokenizing is repeated in hot loops; caching the buffer keeps the
//     execution path predictable while remaining simple and thread-safe.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CompiledQuery is a pre-tokenized SQL statement ready for repeated runs.
type CompiledQuery struct {
	SQL      string
	toks     []token
	ParsedAt time.Time
}

// QueryCache manages compiled queries.
type QueryCache struct {
	mu      sync.RWMutex
	queries map[string]*CompiledQuery
	maxSize int
}

// NewQueryCache creates a cache with the given maximum size (<=0 selects a
// default of 1000 entries).
func NewQueryCache(maxSize int) *QueryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &QueryCache{
		queries: make(map[string]*CompiledQuery),
		maxSize: maxSize,
	}
}

// Compile tokenizes and caches a SQL statement for reuse.
func (qc *QueryCache) Compile(sql string) (*CompiledQuery, error) {
	qc.mu.RLock()
	if cached, exists := qc.queries[sql]; exists {
		qc.mu.RUnlock()
		return cached, nil
	}
	qc.mu.RUnlock()

	toks := Tokenize(sql)
	if len(toks) <= 1 {
		return nil, fmt.Errorf("%w: empty statement", ErrParse)
	}
	compiled := &CompiledQuery{SQL: sql, toks: toks, ParsedAt: time.Now()}

	qc.mu.Lock()
	defer qc.mu.Unlock()
	if len(qc.queries) >= qc.maxSize {
		var oldestSQL string
		var oldestTime time.Time
		first := true
		for s, cq := range qc.queries {
			if first || cq.ParsedAt.Before(oldestTime) {
				oldestSQL = s
				oldestTime = cq.ParsedAt
				first = false
			}
		}
		delete(qc.queries, oldestSQL)
	}
	qc.queries[sql] = compiled
	return compiled, nil
}

// MustCompile is like Compile but panics on error, mirroring
// regexp.MustCompile.
func (qc *QueryCache) MustCompile(sql string) *CompiledQuery {
	cq, err := qc.Compile(sql)
	if err != nil {
		panic(fmt.Sprintf("MustCompile(%q): %v", sql, err))
	}
	return cq
}

// Execute runs the compiled statement against a database.
func (cq *CompiledQuery) Execute(ctx context.Context, db *DB) (*ResultSet, int, error) {
	p := &stmtParser{toks: cq.toks, src: cq.SQL}
	return executeParsed(execEnv{ctx: ctx, db: db}, p)
}

// Clear removes all cached queries.
func (qc *QueryCache) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.queries = make(map[string]*CompiledQuery)
}

// Size returns the number of cached queries.
func (qc *QueryCache) Size() int {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return len(qc.queries)
}
