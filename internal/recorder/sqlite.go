package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"CandleSync/internal/model"
)

// SQLiteRecorder persists closed bars, markers and resync events to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets a dashboard read while the poller writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol      TEXT    NOT NULL,
			start_ts    INTEGER NOT NULL,
			end_ts      INTEGER NOT NULL,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			recorded_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, end_ts)
		)`,

		`CREATE TABLE IF NOT EXISTS signal_markers (
			symbol      TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			side        TEXT    NOT NULL,
			label       TEXT,
			recorded_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts, side)
		)`,

		`CREATE TABLE IF NOT EXISTS resync_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT,
			since       TEXT,
			ref         TEXT,
			closed      INTEGER,
			dropped     INTEGER,
			promoted    INTEGER,
			error       TEXT,
			took_ms     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resync_ts ON resync_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordBars upserts closed bars keyed by end time, so replaying the same
// history after a resync overwrites rather than duplicates.
func (r *SQLiteRecorder) RecordBars(symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO bars
		(symbol, start_ts, end_ts, open, high, low, close, recorded_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, end_ts) DO UPDATE SET
			start_ts=excluded.start_ts, open=excluded.open, high=excluded.high,
			low=excluded.low, close=excluded.close, recorded_at=excluded.recorded_at`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, b := range bars {
		if _, err := stmt.Exec(symbol, b.Start, b.End, b.Open, b.High, b.Low, b.Close, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert bar %d: %w", b.End, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordMarkers(symbol string, markers []model.SignalMarker) error {
	if len(markers) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	now := time.Now().Unix()
	for _, m := range markers {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO signal_markers
			(symbol, ts, side, label, recorded_at) VALUES (?,?,?,?,?)`,
			symbol, m.Time, string(m.Side), m.Label, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert marker %d: %w", m.Time, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordResync(evt *ResyncEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promoted := 0
	if evt.Promoted {
		promoted = 1
	}
	_, err := r.db.Exec(`INSERT INTO resync_events
		(timestamp, symbol, since, ref, closed, dropped, promoted, error, took_ms)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Since, evt.Ref,
		evt.Closed, evt.Dropped, promoted, evt.Err, evt.Took.Milliseconds(),
	)
	return err
}

// Bars returns the recorded bars of symbol ordered by end time.
func (r *SQLiteRecorder) Bars(symbol string) ([]model.Bar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT start_ts, end_ts, open, high, low, close
		FROM bars WHERE symbol = ? ORDER BY end_ts`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Start, &b.End, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ResyncCount returns how many resync events have been recorded.
func (r *SQLiteRecorder) ResyncCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM resync_events`).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
