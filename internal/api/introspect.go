package api

import (
	"context"

	"github.com/avelkov/chlens/internal/analysis"
	"github.com/avelkov/chlens/internal/clickhouse"
	"github.com/avelkov/chlens/internal/config"
	"github.com/avelkov/chlens/internal/model"
)

// Introspector answers live questions about one server. Each call is served
// over its own short-lived connection so interactive browsing never shares
// session state with the background collector or other requests.
type Introspector interface {
	Disks(ctx context.Context, conn config.Connection) ([]model.Disk, error)
	Tables(ctx context.Context, conn config.Connection) ([]model.TableInfo, error)
	Columns(ctx context.Context, conn config.Connection, fullName string) ([]model.ColumnInfo, error)
	QueryHistory(ctx context.Context, conn config.Connection, fullName string, limit int) ([]model.QueryLogEntry, error)
}

// LiveIntrospector implements Introspector over the native protocol.
type LiveIntrospector struct{}

// NewLiveIntrospector creates the production introspector.
func NewLiveIntrospector() *LiveIntrospector {
	return &LiveIntrospector{}
}

func (LiveIntrospector) Disks(ctx context.Context, conn config.Connection) ([]model.Disk, error) {
	client, err := clickhouse.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return analysis.NewService(client).DiskUsage(ctx)
}

func (LiveIntrospector) Tables(ctx context.Context, conn config.Connection) ([]model.TableInfo, error) {
	client, err := clickhouse.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return analysis.NewService(client).Tables(ctx)
}

func (LiveIntrospector) Columns(ctx context.Context, conn config.Connection, fullName string) ([]model.ColumnInfo, error) {
	client, err := clickhouse.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return analysis.NewService(client).Columns(ctx, fullName)
}

func (LiveIntrospector) QueryHistory(ctx context.Context, conn config.Connection, fullName string, limit int) ([]model.QueryLogEntry, error) {
	client, err := clickhouse.Connect(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return analysis.NewService(client).QueryHistory(ctx, fullName, limit)
}
