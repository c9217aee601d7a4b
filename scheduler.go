// Cron-driven snapshot autosave.
//
// The autosaver periodically serializes the database to a snapshot file.
// Saves run through an AsyncDB worker so they serialize with regular
// statements instead of racing the single-threaded engine.
package slimsql

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Autosaver saves snapshots of a database on a cron schedule.
type Autosaver struct {
	async  *AsyncDB
	path   string
	pretty bool
	cron   *cron.Cron
}

// NewAutosaver schedules a snapshot save of the async-wrapped database at
// every firing of the cron spec (standard five-field syntax, UTC).
func NewAutosaver(async *AsyncDB, path, spec string, pretty bool) (*Autosaver, error) {
	a := &Autosaver{
		async:  async,
		path:   path,
		pretty: pretty,
		cron:   cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := a.cron.AddFunc(spec, a.save); err != nil {
		return nil, err
	}
	return a, nil
}

// Start begins the schedule.
func (a *Autosaver) Start() { a.cron.Start() }

// Stop halts the schedule; a save already queued on the worker still runs.
func (a *Autosaver) Stop() { a.cron.Stop() }

// SaveNow queues an immediate save on the worker.
func (a *Autosaver) SaveNow() { a.save() }

func (a *Autosaver) save() {
	db := a.async.db
	done := make(chan struct{})
	a.async.jobs <- func() {
		defer close(done)
		if err := SaveSnapshot(db, a.path, a.pretty); err != nil {
			db.Logger().Warnw("snapshot autosave failed", "path", a.path, "error", err)
			return
		}
		db.Logger().Debugw("snapshot autosaved", "path", a.path)
	}
	<-done
}
