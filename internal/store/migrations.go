package store

const schema = `
-- Per-server disk usage facts, one row per server+disk+hour
CREATE TABLE IF NOT EXISTS server_disk_snapshots (
    ts          INTEGER NOT NULL,
    year        INTEGER NOT NULL,
    server_name TEXT    NOT NULL,
    disk_name   TEXT    NOT NULL,
    total_bytes INTEGER NOT NULL,
    used_bytes  INTEGER NOT NULL
);

-- Per-table size facts, one row per server+database+table+hour
CREATE TABLE IF NOT EXISTS table_disk_snapshots (
    ts            INTEGER NOT NULL,
    year          INTEGER NOT NULL,
    server_name   TEXT    NOT NULL,
    database_name TEXT    NOT NULL,
    table_name    TEXT    NOT NULL,
    size_bytes    INTEGER NOT NULL
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_server_disk_ts ON server_disk_snapshots(server_name, ts);
CREATE INDEX IF NOT EXISTS idx_table_disk_ts ON table_disk_snapshots(server_name, ts);
`
