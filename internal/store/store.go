// Package store provides SQLite persistence for monitoring snapshots.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avelkov/chlens/internal/model"
	_ "modernc.org/sqlite"
)

// OtherBucket is the synthetic series name that aggregates all tables outside
// the top-N set in TableDiskHistory.
const OtherBucket = "__other__"

// Store wraps a SQLite database holding hourly disk and table size snapshots.
// A single mutex serializes every operation, reads included: writes arrive
// hourly and reads are human-paced, so serialized access keeps every query
// free of half-written snapshot sets.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens or creates the snapshot database at the given path, creating the
// parent directory if missing, and applies the schema. Schema creation is
// idempotent.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. No operation is valid afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// InsertServerDisk records one row per disk for the server at the hour bucket
// of capturedAt. If the server already has rows for that hour the call is a
// no-op, which makes retries and overlapping collection runs safe.
func (s *Store) InsertServerDisk(capturedAt time.Time, serverName string, disks []model.Disk) error {
	hourTS := capturedAt.Truncate(time.Hour)
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRow(`
		SELECT 1 FROM server_disk_snapshots
		WHERE server_name = ? AND ts = ? LIMIT 1`,
		serverName, hourTS.Unix(),
	).Scan(&one)
	if err == nil {
		return nil // hour already recorded
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking existing snapshot: %w", err)
	}

	for _, d := range disks {
		if _, err := tx.Exec(`
			INSERT INTO server_disk_snapshots (ts, year, server_name, disk_name, total_bytes, used_bytes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			hourTS.Unix(), hourTS.Year(), serverName, d.Name, d.TotalBytes, d.UsedBytes,
		); err != nil {
			return fmt.Errorf("inserting disk snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing disk snapshot: %w", err)
	}
	return nil
}

// InsertTableSizes records one row per table for the server at the hour
// bucket of capturedAt, with the same no-op idempotence as InsertServerDisk.
func (s *Store) InsertTableSizes(capturedAt time.Time, serverName string, tables []model.TableSize) error {
	hourTS := capturedAt.Truncate(time.Hour)
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRow(`
		SELECT 1 FROM table_disk_snapshots
		WHERE server_name = ? AND ts = ? LIMIT 1`,
		serverName, hourTS.Unix(),
	).Scan(&one)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking existing snapshot: %w", err)
	}

	for _, t := range tables {
		if _, err := tx.Exec(`
			INSERT INTO table_disk_snapshots (ts, year, server_name, database_name, table_name, size_bytes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			hourTS.Unix(), hourTS.Year(), serverName, t.Database, t.Table, t.SizeBytes,
		); err != nil {
			return fmt.Errorf("inserting table snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing table snapshot: %w", err)
	}
	return nil
}

// ServerDiskLatest returns, for each server, its most recent snapshot with
// all disks summed. One row per server, ordered by server name.
func (s *Store) ServerDiskLatest() ([]model.ServerDiskPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT s.server_name, s.ts,
		       SUM(s.total_bytes) AS total_bytes,
		       SUM(s.used_bytes) AS used_bytes
		FROM server_disk_snapshots s
		JOIN (
			SELECT server_name, MAX(ts) AS max_ts
			FROM server_disk_snapshots
			GROUP BY server_name
		) l ON s.server_name = l.server_name AND s.ts = l.max_ts
		GROUP BY s.server_name, s.ts
		ORDER BY s.server_name`)
	if err != nil {
		return nil, fmt.Errorf("querying latest disk snapshots: %w", err)
	}
	defer rows.Close()

	return scanServerDiskPoints(rows)
}

// ServerDiskHistory returns all snapshots within the last N days, disks
// summed per server per timestamp, ordered by server then time.
func (s *Store) ServerDiskHistory(days int) ([]model.ServerDiskPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`
		SELECT server_name, ts,
		       SUM(total_bytes) AS total_bytes,
		       SUM(used_bytes) AS used_bytes
		FROM server_disk_snapshots
		WHERE ts >= ?
		GROUP BY server_name, ts
		ORDER BY server_name, ts`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying disk history: %w", err)
	}
	defer rows.Close()

	return scanServerDiskPoints(rows)
}

func scanServerDiskPoints(rows *sql.Rows) ([]model.ServerDiskPoint, error) {
	var points []model.ServerDiskPoint
	for rows.Next() {
		var p model.ServerDiskPoint
		if err := rows.Scan(&p.ServerName, &p.CapturedAt, &p.TotalBytes, &p.UsedBytes); err != nil {
			return nil, fmt.Errorf("scanning disk point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TableDiskLatest returns one server's table sizes at its single most recent
// snapshot timestamp, ordered by size descending.
func (s *Store) TableDiskLatest(serverName string) ([]model.TableDiskLatest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT database_name, table_name, size_bytes
		FROM table_disk_snapshots
		WHERE server_name = ?
		  AND ts = (SELECT MAX(ts) FROM table_disk_snapshots WHERE server_name = ?)
		ORDER BY size_bytes DESC`, serverName, serverName)
	if err != nil {
		return nil, fmt.Errorf("querying latest table sizes: %w", err)
	}
	defer rows.Close()

	var out []model.TableDiskLatest
	for rows.Next() {
		var t model.TableDiskLatest
		if err := rows.Scan(&t.DatabaseName, &t.TableName, &t.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning table size: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TableDiskHistory returns the table size time series for one server within
// the last N days. Tables in the top-N set (ranked by size at the server's
// latest snapshot) are emitted as individual series keyed by their full
// database.table name; everything else is summed per timestamp into one
// OtherBucket series. This bounds a chart's series count while still showing
// aggregate growth of the long tail.
func (s *Store) TableDiskHistory(serverName string, days, topN int) ([]model.TableDiskPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topRows, err := s.db.Query(`
		SELECT database_name || '.' || table_name AS full_name
		FROM table_disk_snapshots
		WHERE server_name = ?
		  AND ts = (SELECT MAX(ts) FROM table_disk_snapshots WHERE server_name = ?)
		ORDER BY size_bytes DESC
		LIMIT ?`, serverName, serverName, topN)
	if err != nil {
		return nil, fmt.Errorf("querying top tables: %w", err)
	}
	topNames := make(map[string]bool)
	for topRows.Next() {
		var name string
		if err := topRows.Scan(&name); err != nil {
			topRows.Close()
			return nil, fmt.Errorf("scanning top table name: %w", err)
		}
		topNames[name] = true
	}
	if err := topRows.Err(); err != nil {
		topRows.Close()
		return nil, err
	}
	topRows.Close()

	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.Query(`
		SELECT ts, database_name || '.' || table_name AS full_name, size_bytes
		FROM table_disk_snapshots
		WHERE server_name = ? AND ts >= ?
		ORDER BY ts, full_name`, serverName, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying table history: %w", err)
	}
	defer rows.Close()

	var points []model.TableDiskPoint
	otherByTS := make(map[int64]int64)
	var otherOrder []int64
	for rows.Next() {
		var (
			ts       int64
			fullName string
			size     int64
		)
		if err := rows.Scan(&ts, &fullName, &size); err != nil {
			return nil, fmt.Errorf("scanning table point: %w", err)
		}
		if topNames[fullName] {
			points = append(points, model.TableDiskPoint{CapturedAt: ts, TableName: fullName, SizeBytes: size})
		} else {
			if _, seen := otherByTS[ts]; !seen {
				otherOrder = append(otherOrder, ts)
			}
			otherByTS[ts] += size
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ts := range otherOrder {
		points = append(points, model.TableDiskPoint{CapturedAt: ts, TableName: OtherBucket, SizeBytes: otherByTS[ts]})
	}
	return points, nil
}

// CleanupExpired deletes rows from both fact tables older than the retention
// window. Calling it with nothing to delete is a no-op.
func (s *Store) CleanupExpired(retentionDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	for _, table := range []string{"server_disk_snapshots", "table_disk_snapshots"} {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE ts < ?", table), cutoff); err != nil {
			return fmt.Errorf("cleaning up %s: %w", table, err)
		}
	}
	return nil
}
