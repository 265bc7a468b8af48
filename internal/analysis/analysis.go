// Package analysis runs introspection queries against a ClickHouse server's
// system tables.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/avelkov/chlens/internal/model"
)

// excludedDatabases are system-owned databases skipped by size and activity
// queries.
var excludedDatabases = []string{"system", "INFORMATION_SCHEMA", "information_schema"}

// Querier is the query surface the service needs from a connection.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

// Service answers introspection questions for one connected server.
type Service struct {
	client Querier
}

// NewService creates a service over an open connection.
func NewService(client Querier) *Service {
	return &Service{client: client}
}

func excludedList() string {
	quoted := make([]string, len(excludedDatabases))
	for i, db := range excludedDatabases {
		quoted[i] = "'" + db + "'"
	}
	return strings.Join(quoted, ", ")
}

// DiskUsage returns every disk known to the server with total and used bytes.
func (s *Service) DiskUsage(ctx context.Context) ([]model.Disk, error) {
	rows, err := s.client.Query(ctx, `
		SELECT name,
		       total_space,
		       total_space - free_space AS used_space,
		       round((total_space - free_space) * 100.0 / total_space, 1) AS usage_percent
		FROM system.disks`)
	if err != nil {
		return nil, fmt.Errorf("querying system.disks: %w", err)
	}
	defer rows.Close()

	var disks []model.Disk
	for rows.Next() {
		var (
			name        string
			total, used uint64
			pct         float64
		)
		if err := rows.Scan(&name, &total, &used, &pct); err != nil {
			return nil, fmt.Errorf("scanning disk row: %w", err)
		}
		disks = append(disks, model.Disk{
			Name:       name,
			TotalBytes: int64(total),
			UsedBytes:  int64(used),
			UsagePct:   pct,
		})
	}
	return disks, rows.Err()
}

// TableSizes returns the on-disk size of every non-system table, from active
// parts.
func (s *Service) TableSizes(ctx context.Context) ([]model.TableSize, error) {
	rows, err := s.client.Query(ctx, fmt.Sprintf(`
		SELECT database, table, sum(bytes_on_disk) AS size_bytes
		FROM system.parts
		WHERE active AND database NOT IN (%s)
		GROUP BY database, table
		ORDER BY database, table`, excludedList()))
	if err != nil {
		return nil, fmt.Errorf("querying system.parts: %w", err)
	}
	defer rows.Close()

	var tables []model.TableSize
	for rows.Next() {
		var (
			db, table string
			size      uint64
		)
		if err := rows.Scan(&db, &table, &size); err != nil {
			return nil, fmt.Errorf("scanning table size row: %w", err)
		}
		tables = append(tables, model.TableSize{Database: db, Table: table, SizeBytes: int64(size)})
	}
	return tables, rows.Err()
}

// Tables merges table sizes with last-SELECT and last-INSERT times from the
// query log, sorted by size descending. Failures of the individual
// sub-queries degrade to partial data: a server without query_log access
// still gets its size listing.
func (s *Service) Tables(ctx context.Context) ([]model.TableInfo, error) {
	sizes := make(map[string]int64)
	if tableSizes, err := s.TableSizes(ctx); err != nil {
		slog.Warn("failed to get table sizes", "error", err)
	} else {
		for _, t := range tableSizes {
			sizes[t.Database+"."+t.Table] = t.SizeBytes
		}
	}

	lastSelects := s.lastQueryTimes(ctx, "Select")
	lastInserts := s.lastQueryTimes(ctx, "Insert")

	names := make(map[string]bool)
	for name := range sizes {
		names[name] = true
	}
	for name := range lastSelects {
		names[name] = true
	}
	for name := range lastInserts {
		names[name] = true
	}

	var out []model.TableInfo
	for name := range names {
		if isExcluded(name) {
			continue
		}
		info := model.TableInfo{
			Name:       name,
			SizeBytes:  sizes[name],
			LastSelect: "-",
			LastInsert: "-",
		}
		if t, ok := lastSelects[name]; ok {
			info.LastSelect = t.Format(time.DateTime)
		}
		if t, ok := lastInserts[name]; ok {
			info.LastInsert = t.Format(time.DateTime)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SizeBytes > out[j].SizeBytes })
	return out, nil
}

func (s *Service) lastQueryTimes(ctx context.Context, kind string) map[string]time.Time {
	rows, err := s.client.Query(ctx, `
		SELECT arrayJoin(tables) AS table_name, max(event_time) AS last_seen
		FROM system.query_log
		WHERE type = 'QueryFinish' AND query_kind = ?
		GROUP BY table_name`, kind)
	if err != nil {
		slog.Warn("failed to get query_log activity", "kind", kind, "error", err)
		return nil
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			ts   time.Time
		)
		if err := rows.Scan(&name, &ts); err != nil {
			slog.Warn("scanning query_log activity", "kind", kind, "error", err)
			return out
		}
		out[name] = ts
	}
	return out
}

func isExcluded(fullName string) bool {
	for _, db := range excludedDatabases {
		if strings.HasPrefix(fullName, db+".") {
			return true
		}
	}
	return false
}

// Columns returns the columns of one table with their per-column on-disk
// sizes, ordered by size descending. fullName is "database.table"; a bare
// table name defaults to the default database.
func (s *Service) Columns(ctx context.Context, fullName string) ([]model.ColumnInfo, error) {
	db, table := splitTableName(fullName)

	rows, err := s.client.Query(ctx, `
		SELECT c.name AS name,
		       c.type AS type,
		       c.compression_codec AS codec,
		       sum(pc.column_bytes_on_disk) AS size_bytes
		FROM system.columns AS c
		LEFT JOIN (
			SELECT database, table, column,
			       sum(column_bytes_on_disk) AS column_bytes_on_disk
			FROM system.parts_columns
			WHERE active AND database = ? AND table = ?
			GROUP BY database, table, column
		) AS pc
		ON c.name = pc.column AND c.table = pc.table AND c.database = pc.database
		WHERE c.database = ? AND c.table = ?
		GROUP BY c.name, c.type, c.compression_codec
		ORDER BY size_bytes DESC`, db, table, db, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns for %s: %w", fullName, err)
	}
	defer rows.Close()

	var cols []model.ColumnInfo
	for rows.Next() {
		var (
			name, typ, codec string
			size             uint64
		)
		if err := rows.Scan(&name, &typ, &codec, &size); err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}
		cols = append(cols, model.ColumnInfo{Name: name, Type: typ, Codec: codec, SizeBytes: int64(size)})
	}
	return cols, rows.Err()
}

// QueryHistory returns recent finished queries touching the table, newest
// first.
func (s *Service) QueryHistory(ctx context.Context, fullName string, limit int) ([]model.QueryLogEntry, error) {
	rows, err := s.client.Query(ctx, `
		SELECT event_time, user, query_kind, query
		FROM system.query_log
		WHERE type = 'QueryFinish' AND has(tables, ?)
		ORDER BY event_time DESC
		LIMIT ?`, fullName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", fullName, err)
	}
	defer rows.Close()

	var entries []model.QueryLogEntry
	for rows.Next() {
		var (
			ts                time.Time
			user, kind, query string
		)
		if err := rows.Scan(&ts, &user, &kind, &query); err != nil {
			return nil, fmt.Errorf("scanning query_log row: %w", err)
		}
		entries = append(entries, model.QueryLogEntry{
			EventTime: ts.Format(time.DateTime),
			User:      user,
			QueryKind: kind,
			Query:     query,
		})
	}
	return entries, rows.Err()
}

func splitTableName(fullName string) (db, table string) {
	if i := strings.Index(fullName, "."); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "default", fullName
}
