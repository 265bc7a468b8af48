package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avelkov/chlens/internal/cache"
	"github.com/avelkov/chlens/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	servers := []model.ServerDiskPoint{
		{ServerName: "ch1", CapturedAt: time.Now().Unix(), TotalBytes: 2048, UsedBytes: 1024},
	}
	snap := cache.Snapshot{
		Statuses:  map[string]string{"ch1": "ok", "ch2": "error: timeout"},
		LastCycle: time.Now().Add(-5 * time.Minute),
	}

	var b strings.Builder
	require.NoError(t, Dashboard(servers, snap).Render(context.Background(), &b))
	html := b.String()

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<td>ch1</td>")
	assert.Contains(t, html, "1.0 KB")
	assert.Contains(t, html, "2.0 KB")
	assert.Contains(t, html, "50%")
	assert.Contains(t, html, "5m ago")
	// Statuses sorted by server name.
	assert.Less(t,
		strings.Index(html, "<strong>ch1</strong>"),
		strings.Index(html, "<strong>ch2</strong>"))
	assert.Contains(t, html, "error: timeout")
}

func TestDashboard_EscapesServerNames(t *testing.T) {
	servers := []model.ServerDiskPoint{
		{ServerName: "<script>alert(1)</script>", CapturedAt: time.Now().Unix(), TotalBytes: 1, UsedBytes: 1},
	}

	var b strings.Builder
	require.NoError(t, Dashboard(servers, cache.Snapshot{}).Render(context.Background(), &b))
	html := b.String()

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestTableSizesFragment(t *testing.T) {
	tables := []model.TableDiskLatest{
		{DatabaseName: "app", TableName: "events", SizeBytes: 1048576},
		{DatabaseName: "app", TableName: "users", SizeBytes: 512},
	}

	var b strings.Builder
	require.NoError(t, TableSizesFragment("ch1", tables).Render(context.Background(), &b))
	html := b.String()

	assert.Contains(t, html, "<h2>ch1</h2>")
	assert.Contains(t, html, "<td>app.events</td>")
	assert.Contains(t, html, "1.0 MB")
	assert.Contains(t, html, "<td>app.users</td>")
	// A fragment carries no page chrome.
	assert.NotContains(t, html, "<!DOCTYPE html>")
}
