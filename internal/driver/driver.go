// Package driver implements a database/sql driver over the slimSQL engine.
//
// DSN forms:
//
//	mem://                  fresh in-memory database, shared per DSN string
//	file:/path/db.json      load the snapshot at path (created when absent)
//	file:/path/db.json?autosave=1&pretty=1
//	                        also save a snapshot back on connection close
//
// The driver has no placeholder support and no transactions; statements run
// one at a time against the single-threaded engine. database/sql serializes
// access per connection, and every connection for one DSN shares the same
// underlying database.
package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	slimsql "github.com/SimonWaldherr/slimSQL"
)

func init() {
	sql.Register("slimsql", &Driver{})
}

// Driver opens slimSQL connections; one engine instance per DSN string.
type Driver struct {
	mu  sync.Mutex
	dbs map[string]*slimsql.DB
}

// Open implements driver.Driver.
func (d *Driver) Open(name string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dbs == nil {
		d.dbs = map[string]*slimsql.DB{}
	}

	var savePath string
	var pretty bool
	db, ok := d.dbs[name]
	if !ok {
		switch {
		case strings.HasPrefix(name, "mem://"):
			db = slimsql.NewDB()
		case strings.HasPrefix(name, "file:"):
			u, err := url.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("bad DSN %q: %w", name, err)
			}
			path := u.Opaque
			if path == "" {
				path = u.Path
			}
			db, err = openSnapshotFile(path)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("bad DSN %q: want mem:// or file:", name)
		}
		d.dbs[name] = db
	}
	if strings.HasPrefix(name, "file:") {
		u, _ := url.Parse(name)
		if u != nil {
			q := u.Query()
			if q.Get("autosave") == "1" {
				savePath = u.Opaque
				if savePath == "" {
					savePath = u.Path
				}
				pretty = q.Get("pretty") == "1"
			}
		}
	}
	return &conn{db: db, savePath: savePath, pretty: pretty}, nil
}

func openSnapshotFile(path string) (*slimsql.DB, error) {
	db, err := slimsql.LoadSnapshot(path)
	if err == nil {
		return db, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return slimsql.NewDB(), nil
	}
	return nil, err
}

type conn struct {
	db       *slimsql.DB
	savePath string
	pretty   bool
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	if c.savePath != "" {
		return slimsql.SaveSnapshot(c.db, c.savePath, c.pretty)
	}
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return nil, errors.New("slimsql: transactions are not supported")
}

// ExecContext lets database/sql skip the Prepare round-trip.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if len(args) > 0 {
		return nil, errors.New("slimsql: placeholders are not supported")
	}
	n, err := c.db.ExecuteNonQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return result{affected: int64(n)}, nil
}

// QueryContext lets database/sql skip the Prepare round-trip.
func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) > 0 {
		return nil, errors.New("slimsql: placeholders are not supported")
	}
	rs, err := c.db.ExecuteReader(ctx, query)
	if err != nil {
		return nil, err
	}
	return &rows{rs: rs}, nil
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return 0 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, nil)
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, nil)
}

type result struct {
	affected int64
}

func (r result) LastInsertId() (int64, error) {
	return 0, errors.New("slimsql: LastInsertId is not supported")
}

func (r result) RowsAffected() (int64, error) { return r.affected, nil }

type rows struct {
	rs *slimsql.ResultSet
	i  int
}

func (r *rows) Columns() []string { return r.rs.Cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.i >= len(r.rs.Rows) {
		return io.EOF
	}
	row := r.rs.Rows[r.i]
	r.i++
	for i := range dest {
		var v any
		if i < len(row) {
			v = row[i]
		}
		dest[i] = toDriverValue(v)
	}
	return nil
}

func toDriverValue(v any) driver.Value {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, []byte:
		return x
	case time.Time:
		return x
	case uuid.UUID:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
