// Package clickhouse wraps the native-protocol ClickHouse client.
//
// Clients are short-lived by design: the collector and the interactive API
// each open a fresh connection per unit of work and close it when done, so
// background collection never shares session state with a user's browsing.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/avelkov/chlens/internal/config"
)

// Client is one open connection to a ClickHouse server.
type Client struct {
	conn driver.Conn
	name string
}

// Connect opens a connection for the given registry entry and verifies it
// with a ping.
func Connect(ctx context.Context, cfg config.Connection) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("opening connection to %s: %w", cfg.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging %s: %w", cfg.Name, err)
	}

	slog.Debug("connected", "server", cfg.Name, "host", cfg.Host, "port", cfg.Port)
	return &Client{conn: conn, name: cfg.Name}, nil
}

// Query executes a query and returns its rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
