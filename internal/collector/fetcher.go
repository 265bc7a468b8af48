package collector

import (
	"context"

	"github.com/avelkov/chlens/internal/analysis"
	"github.com/avelkov/chlens/internal/clickhouse"
	"github.com/avelkov/chlens/internal/config"
)

// CHFetcher fetches samples over the native ClickHouse protocol. Each Fetch
// opens its own connection and closes it before returning, so collection
// never shares a session with whatever connection a user has open in the
// dashboard.
type CHFetcher struct{}

// NewCHFetcher creates the production fetcher.
func NewCHFetcher() *CHFetcher {
	return &CHFetcher{}
}

// Fetch connects to the server, reads disk usage and table sizes, and
// disconnects. The connection is closed on every exit path.
func (f *CHFetcher) Fetch(ctx context.Context, conn config.Connection) (*Sample, error) {
	client, err := clickhouse.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	svc := analysis.NewService(client)

	disks, err := svc.DiskUsage(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := svc.TableSizes(ctx)
	if err != nil {
		return nil, err
	}

	return &Sample{Disks: disks, Tables: tables}, nil
}
