// Package trace stores pipeline events in a SQLite database.
//
// A Recorder can be attached to a core as an akita hook, or handed to a
// pipeline directly as its event recorder. Events are buffered and written
// in batches inside one transaction per batch.
package trace

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/legsim/timing/pipeline"
)

const (
	createEvents = `CREATE TABLE events (
	cycle INTEGER NOT NULL,
	kind  TEXT    NOT NULL,
	pc    INTEGER NOT NULL,
	word  INTEGER NOT NULL
);`
	createSummary = `CREATE TABLE summary (
	name  TEXT PRIMARY KEY,
	value REAL NOT NULL
);`
	insertEvent   = `INSERT INTO events VALUES (?, ?, ?, ?)`
	insertSummary = `INSERT OR REPLACE INTO summary VALUES (?, ?)`
)

// DefaultBatchSize is the number of events buffered before a write.
const DefaultBatchSize = 10000

// Recorder writes pipeline events into a SQLite file.
type Recorder struct {
	db        *sql.DB
	path      string
	batchSize int
	pending   []pipeline.Event
	written   uint64
	closed    bool
	err       error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithBatchSize sets how many events are buffered before they are written.
func WithBatchSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewRecorder creates a new trace database in dir. The file is named
// legsim_trace_<xid>.sqlite3 so that runs never overwrite each other.
// Buffered events are flushed when the program exits through atexit.
func NewRecorder(dir string, opts ...Option) (*Recorder, error) {
	path := filepath.Join(dir, "legsim_trace_"+xid.New().String()+".sqlite3")

	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trace database")
	}

	r := &Recorder{
		db:        db,
		path:      path,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, stmt := range []string{createEvents, createSummary} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to create trace tables")
		}
	}

	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

// Path returns the database file name.
func (r *Recorder) Path() string {
	return r.path
}

// Written returns the number of events already stored in the database.
func (r *Recorder) Written() uint64 {
	return r.written
}

// Func implements sim.Hook. Items that are not pipeline events are ignored.
func (r *Recorder) Func(ctx sim.HookCtx) {
	e, ok := ctx.Item.(pipeline.Event)
	if !ok {
		return
	}

	r.Record(e)
}

// Record buffers one event, writing the batch when it is full. A failed
// write is logged and ends the recording. Err and Close report it.
func (r *Recorder) Record(e pipeline.Event) {
	if r.closed || r.err != nil {
		return
	}

	r.pending = append(r.pending, e)
	if len(r.pending) < r.batchSize {
		return
	}

	if err := r.Flush(); err != nil {
		r.err = errors.Wrapf(err, "trace %s", r.path)
		r.pending = nil
		log.Printf("trace recording stopped at cycle %d: %v", e.Cycle, r.err)
	}
}

// Err returns the write error that stopped the recording, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Flush writes all buffered events.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin trace transaction")
	}

	stmt, err := tx.Prepare(insertEvent)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "failed to prepare event insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range r.pending {
		_, err := stmt.Exec(int64(e.Cycle), e.Kind.String(), int64(e.PC), int64(e.Word))
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "failed to insert %s event at cycle %d",
				e.Kind, e.Cycle)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit trace transaction")
	}

	r.written += uint64(len(r.pending))
	r.pending = r.pending[:0]

	return nil
}

// WriteSummary stores named run statistics next to the events.
func (r *Recorder) WriteSummary(values map[string]float64) error {
	for name, value := range values {
		if _, err := r.db.Exec(insertSummary, name, value); err != nil {
			return errors.Wrapf(err, "failed to write summary %s", name)
		}
	}

	return nil
}

// Close flushes the remaining events and closes the database. It is safe to
// call more than once.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}

	err := r.err
	if err == nil {
		err = r.Flush()
	}
	r.closed = true

	if cerr := r.db.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "failed to close trace database")
	}

	return err
}
