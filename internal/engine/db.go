package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// Row is one working row during evaluation, keyed by lower-cased column name.
// Keys include both qualified (alias.column) and unqualified (column) names.
type Row map[string]any

// ResultSet is the output grid of a SELECT: display headers plus rows in
// projection order.
type ResultSet struct {
	Cols []string
	Rows [][]any
}

// AddIn is a host-registered callable exposed under a SQL function name.
// Add-ins resolve after user-defined functions but before builtins, so a
// host may shadow a builtin on purpose.
type AddIn interface {
	Name() string
	Call(args []any) (any, error)
}

// AddInFunc adapts a plain function to the AddIn interface at registration.
type AddInFunc func(args []any) (any, error)

type funcAddIn struct {
	name string
	fn   AddInFunc
}

func (f funcAddIn) Name() string                 { return f.name }
func (f funcAddIn) Call(args []any) (any, error) { return f.fn(args) }

// Param is one declared parameter of a user-defined function.
type Param struct {
	Name string
	Type storage.ColType
}

// UserFunc is a SQL-defined scalar function: a parameter list and the token
// window of its single RETURN expression.
type UserFunc struct {
	Name       string
	Params     []Param
	ReturnType storage.ColType
	Body       []token
}

// DB is one database instance: a table catalog plus the user function,
// trigger, and add-in registries. All registries are case-insensitive and
// refuse duplicate keys (add-ins overwrite instead, last registration wins).
// A DB is not safe for concurrent use; hosts sharing one across goroutines
// must serialize externally.
type DB struct {
	tables    *storage.Catalog
	funcs     map[string]*UserFunc
	triggers  map[string]*Trigger
	trigOrder []string
	addins    map[string]AddIn
	log       *zap.SugaredLogger
}

// NewDB creates an empty database instance with a nop logger.
func NewDB() *DB {
	return &DB{
		tables:   storage.NewCatalog(),
		funcs:    map[string]*UserFunc{},
		triggers: map[string]*Trigger{},
		addins:   map[string]AddIn{},
		log:      zap.NewNop().Sugar(),
	}
}

// Tables exposes the table catalog.
func (db *DB) Tables() *storage.Catalog { return db.tables }

// SetLogger installs a logger used for swallowed trigger errors and other
// warnings. Passing nil restores the nop logger.
func (db *DB) SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	db.log = l
}

// Logger returns the current logger.
func (db *DB) Logger() *zap.SugaredLogger { return db.log }

// AddTable registers a host-built table; the name must be free.
func (db *DB) AddTable(t *storage.Table) error {
	return db.tables.Put(t)
}

// RegisterAddIn registers a named host callable; last registration wins.
func (db *DB) RegisterAddIn(a AddIn) {
	db.addins[strings.ToLower(a.Name())] = a
}

// RegisterAddInFunc registers a plain function under the given name.
func (db *DB) RegisterAddInFunc(name string, fn AddInFunc) {
	db.RegisterAddIn(funcAddIn{name: name, fn: fn})
}

// UnregisterAddIn removes an add-in and reports whether it was present.
func (db *DB) UnregisterAddIn(name string) bool {
	lc := strings.ToLower(name)
	_, ok := db.addins[lc]
	delete(db.addins, lc)
	return ok
}

// AddIns returns the registered add-in names, sorted.
func (db *DB) AddIns() []string {
	out := make([]string, 0, len(db.addins))
	for _, a := range db.addins {
		out = append(out, a.Name())
	}
	sort.Strings(out)
	return out
}

func (db *DB) addin(name string) (AddIn, bool) {
	a, ok := db.addins[strings.ToLower(name)]
	return a, ok
}

func (db *DB) userFunc(name string) (*UserFunc, bool) {
	f, ok := db.funcs[strings.ToLower(name)]
	return f, ok
}

func (db *DB) putFunc(f *UserFunc) error {
	lc := strings.ToLower(f.Name)
	if _, exists := db.funcs[lc]; exists {
		return fmt.Errorf("%w: function %q", ErrDuplicate, f.Name)
	}
	db.funcs[lc] = f
	return nil
}

func (db *DB) dropFunc(name string) error {
	lc := strings.ToLower(name)
	if _, ok := db.funcs[lc]; !ok {
		return fmt.Errorf("%w: function %q", ErrNotFound, name)
	}
	delete(db.funcs, lc)
	return nil
}

func (db *DB) putTrigger(tr *Trigger) error {
	lc := strings.ToLower(tr.Name)
	if _, exists := db.triggers[lc]; exists {
		return fmt.Errorf("%w: trigger %q", ErrDuplicate, tr.Name)
	}
	db.triggers[lc] = tr
	db.trigOrder = append(db.trigOrder, lc)
	return nil
}

func (db *DB) dropTrigger(name string) error {
	lc := strings.ToLower(name)
	if _, ok := db.triggers[lc]; !ok {
		return fmt.Errorf("%w: trigger %q", ErrNotFound, name)
	}
	delete(db.triggers, lc)
	for i, n := range db.trigOrder {
		if n == lc {
			db.trigOrder = append(db.trigOrder[:i], db.trigOrder[i+1:]...)
			break
		}
	}
	return nil
}

// triggersFor returns the matching triggers in registration order.
func (db *DB) triggersFor(table string, timing TriggerTiming, event TriggerEvent) []*Trigger {
	var out []*Trigger
	for _, n := range db.trigOrder {
		tr := db.triggers[n]
		if tr != nil && tr.Timing == timing && tr.Event == event &&
			strings.EqualFold(tr.Table, table) {
			out = append(out, tr)
		}
	}
	return out
}

// TriggerSource is the persisted form of one trigger: its name and the
// original CREATE TRIGGER text, replayed verbatim when a snapshot is loaded.
type TriggerSource struct {
	Name string
	SQL  string
}

// TriggerSources returns every trigger's original source in registration
// order.
func (db *DB) TriggerSources() []TriggerSource {
	out := make([]TriggerSource, 0, len(db.trigOrder))
	for _, n := range db.trigOrder {
		if tr := db.triggers[n]; tr != nil {
			out = append(out, TriggerSource{Name: tr.Name, SQL: tr.Source})
		}
	}
	return out
}

// HasTrigger reports whether the named trigger exists.
func (db *DB) HasTrigger(name string) bool {
	_, ok := db.triggers[strings.ToLower(name)]
	return ok
}
