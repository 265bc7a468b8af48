// Package model defines all shared domain types for chlens.
package model

// Disk represents one disk reported by a ClickHouse server's system.disks.
type Disk struct {
	Name       string  `json:"name"`
	TotalBytes int64   `json:"total_bytes"`
	UsedBytes  int64   `json:"used_bytes"`
	UsagePct   float64 `json:"usage_pct"`
}

// TableSize is the on-disk size of one table at capture time.
type TableSize struct {
	Database  string `json:"database"`
	Table     string `json:"table"`
	SizeBytes int64  `json:"size_bytes"`
}

// TableInfo is a table row on the introspection pages: size merged with
// query_log activity.
type TableInfo struct {
	Name       string `json:"name"` // database.table
	SizeBytes  int64  `json:"size_bytes"`
	LastSelect string `json:"last_select"` // "-" when never observed
	LastInsert string `json:"last_insert"`
}

// ColumnInfo describes one column with its on-disk footprint.
type ColumnInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Codec     string `json:"codec"`
	SizeBytes int64  `json:"size_bytes"`
}

// QueryLogEntry is one finished query touching a table.
type QueryLogEntry struct {
	EventTime string `json:"event_time"`
	User      string `json:"user"`
	QueryKind string `json:"query_kind"`
	Query     string `json:"query"`
}

// ServerDiskPoint is a per-server disk usage data point, disks summed.
type ServerDiskPoint struct {
	ServerName string `json:"server_name"`
	CapturedAt int64  `json:"captured_at"` // unix seconds, hour boundary
	TotalBytes int64  `json:"total_bytes"`
	UsedBytes  int64  `json:"used_bytes"`
}

// TableDiskPoint is a per-table size data point for trend charts. TableName
// is the full "database.table" name, or the synthetic other-bucket key.
type TableDiskPoint struct {
	CapturedAt int64  `json:"captured_at"`
	TableName  string `json:"table_name"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TableDiskLatest is one table's size at a server's most recent snapshot.
type TableDiskLatest struct {
	DatabaseName string `json:"database_name"`
	TableName    string `json:"table_name"`
	SizeBytes    int64  `json:"size_bytes"`
}
