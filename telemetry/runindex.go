package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// RunIndex records simulation runs and their window stats in a sqlite
// database. Writes go through a single writer goroutine so the step loop
// never blocks on disk.
type RunIndex struct {
	db    *sql.DB
	runID int64

	ch   chan WindowStats
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// OpenRunIndex opens (creating if needed) the run index at path and
// registers a new run with the given seed.
func OpenRunIndex(path string, seed int64) (*RunIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS windows (
			run_id INTEGER NOT NULL,
			window_end INTEGER NOT NULL,
			robots INTEGER NOT NULL,
			resources INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			collects INTEGER NOT NULL,
			connects INTEGER NOT NULL,
			faults INTEGER NOT NULL,
			energy_mean REAL NOT NULL,
			energy_p50 REAL NOT NULL,
			edges INTEGER NOT NULL,
			PRIMARY KEY (run_id, window_end)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	res, err := db.Exec(
		`INSERT INTO runs (started_at, seed) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), seed,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ri := &RunIndex{
		db:    db,
		runID: runID,
		ch:    make(chan WindowStats, 1024),
	}
	ri.wg.Add(1)
	go func() {
		defer ri.wg.Done()
		ri.loop()
	}()
	return ri, nil
}

// RecordWindow enqueues a window stats row. Drops the row rather than
// blocking if the writer has fallen behind.
func (ri *RunIndex) RecordWindow(ws WindowStats) {
	if ri == nil || ri.closed.Load() {
		return
	}
	select {
	case ri.ch <- ws:
	default:
	}
}

func (ri *RunIndex) loop() {
	for ws := range ri.ch {
		_, err := ri.db.Exec(
			`INSERT OR REPLACE INTO windows
			 (run_id, window_end, robots, resources, births, deaths,
			  collects, connects, faults, energy_mean, energy_p50, edges)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ri.runID, ws.WindowEnd, ws.Robots, ws.Resources, ws.Births,
			ws.Deaths, ws.Collects, ws.Connects, ws.Faults,
			ws.EnergyMean, ws.EnergyP50, ws.Edges,
		)
		if err != nil {
			// A failed index write must never take down the run.
			fmt.Fprintf(os.Stderr, "runindex: write failed: %v\n", err)
		}
	}
}

// Close drains pending writes and closes the database.
func (ri *RunIndex) Close() error {
	if ri == nil {
		return nil
	}
	var err error
	ri.once.Do(func() {
		ri.closed.Store(true)
		close(ri.ch)
		ri.wg.Wait()
		err = ri.db.Close()
	})
	return err
}
