// Package collector gathers disk and table size snapshots from every
// configured ClickHouse server.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelkov/chlens/internal/config"
	"github.com/avelkov/chlens/internal/model"
	"github.com/avelkov/chlens/internal/store"
)

// Registry lists the servers to collect from. It is re-read on every cycle
// so registry changes take effect without a restart.
type Registry interface {
	List() []config.Connection
}

// Sample is everything fetched from one server in one cycle.
type Sample struct {
	Disks  []model.Disk
	Tables []model.TableSize
}

// Fetcher retrieves a Sample from one server over its own short-lived
// connection.
type Fetcher interface {
	Fetch(ctx context.Context, conn config.Connection) (*Sample, error)
}

// Collector runs one collection pass across all configured servers.
type Collector struct {
	registry Registry
	fetcher  Fetcher
	store    *store.Store
}

// New creates a collector writing into the given store.
func New(registry Registry, fetcher Fetcher, st *store.Store) *Collector {
	return &Collector{registry: registry, fetcher: fetcher, store: st}
}

// CollectAll fetches disk and table sizes from every configured server and
// persists them. Every server in the cycle shares one capture timestamp, so
// cross-server comparisons are temporally aligned. One server's failure is
// recorded in the returned status map ("ok" or "error: ...") and never
// aborts the rest of the cycle.
func (c *Collector) CollectAll(ctx context.Context) map[string]string {
	results := make(map[string]string)
	connections := c.registry.List()
	if len(connections) == 0 {
		slog.Info("no connections configured, skipping collection")
		return results
	}

	capturedAt := time.Now()

	for _, conn := range connections {
		if err := c.collectOne(ctx, conn, capturedAt); err != nil {
			results[conn.Name] = fmt.Sprintf("error: %v", err)
			slog.Warn("failed to collect", "server", conn.Name, "error", err)
			continue
		}
		results[conn.Name] = "ok"
	}
	return results
}

func (c *Collector) collectOne(ctx context.Context, conn config.Connection, capturedAt time.Time) error {
	sample, err := c.fetcher.Fetch(ctx, conn)
	if err != nil {
		return err
	}

	if err := c.store.InsertServerDisk(capturedAt, conn.Name, sample.Disks); err != nil {
		return err
	}
	if err := c.store.InsertTableSizes(capturedAt, conn.Name, sample.Tables); err != nil {
		return err
	}

	slog.Info("collected snapshot",
		"server", conn.Name,
		"disks", len(sample.Disks),
		"tables", len(sample.Tables),
	)
	return nil
}
