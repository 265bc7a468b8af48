package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/avelkov/chlens/internal/config"
	"github.com/avelkov/chlens/internal/model"
	"github.com/avelkov/chlens/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	conns []config.Connection
}

func (f *fakeRegistry) List() []config.Connection { return f.conns }

type fakeFetcher struct {
	samples map[string]*Sample
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, conn config.Connection) (*Sample, error) {
	f.fetched = append(f.fetched, conn.Name)
	if err := f.errs[conn.Name]; err != nil {
		return nil, err
	}
	if s, ok := f.samples[conn.Name]; ok {
		return s, nil
	}
	return &Sample{}, nil
}

func newTestStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(total, used int64) *Sample {
	return &Sample{
		Disks: []model.Disk{{Name: "default", TotalBytes: total, UsedBytes: used}},
		Tables: []model.TableSize{
			{Database: "app", Table: "events", SizeBytes: used},
		},
	}
}

func TestCollectAll_AllHealthy(t *testing.T) {
	st := newTestStore(t)
	registry := &fakeRegistry{conns: []config.Connection{
		{Name: "ch1", Host: "ch1.local"},
		{Name: "ch2", Host: "ch2.local"},
	}}
	fetcher := &fakeFetcher{samples: map[string]*Sample{
		"ch1": sample(100, 40),
		"ch2": sample(200, 80),
	}}

	c := New(registry, fetcher, st)
	results := c.CollectAll(context.Background())

	assert.Equal(t, map[string]string{"ch1": "ok", "ch2": "ok"}, results)
	assert.ElementsMatch(t, []string{"ch1", "ch2"}, fetcher.fetched)

	latest, err := st.ServerDiskLatest()
	require.NoError(t, err)
	require.Len(t, latest, 2)
}

func TestCollectAll_OneFailureDoesNotAbortCycle(t *testing.T) {
	st := newTestStore(t)
	registry := &fakeRegistry{conns: []config.Connection{
		{Name: "ch1", Host: "ch1.local"},
		{Name: "bad", Host: "bad.local"},
		{Name: "ch3", Host: "ch3.local"},
	}}
	fetcher := &fakeFetcher{
		samples: map[string]*Sample{
			"ch1": sample(100, 40),
			"ch3": sample(300, 120),
		},
		errs: map[string]error{"bad": errors.New("dial tcp: connection refused")},
	}

	c := New(registry, fetcher, st)
	results := c.CollectAll(context.Background())

	assert.Equal(t, "ok", results["ch1"])
	assert.Equal(t, "ok", results["ch3"])
	assert.Equal(t, "error: dial tcp: connection refused", results["bad"])

	// Healthy servers were still persisted, the failed one was not.
	latest, err := st.ServerDiskLatest()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "ch1", latest[0].ServerName)
	assert.Equal(t, "ch3", latest[1].ServerName)
}

func TestCollectAll_SharedTimestampAcrossServers(t *testing.T) {
	st := newTestStore(t)
	registry := &fakeRegistry{conns: []config.Connection{
		{Name: "ch1", Host: "ch1.local"},
		{Name: "ch2", Host: "ch2.local"},
	}}
	fetcher := &fakeFetcher{samples: map[string]*Sample{
		"ch1": sample(100, 40),
		"ch2": sample(200, 80),
	}}

	c := New(registry, fetcher, st)
	c.CollectAll(context.Background())

	latest, err := st.ServerDiskLatest()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, latest[0].CapturedAt, latest[1].CapturedAt)
	got := time.Unix(latest[0].CapturedAt, 0)
	assert.WithinDuration(t, time.Now(), got, time.Hour)
}

func TestCollectAll_EmptyRegistry(t *testing.T) {
	st := newTestStore(t)
	fetcher := &fakeFetcher{}

	c := New(&fakeRegistry{}, fetcher, st)
	results := c.CollectAll(context.Background())

	assert.Empty(t, results)
	assert.Empty(t, fetcher.fetched)
}

func TestCollectAll_PersistsTableSizes(t *testing.T) {
	st := newTestStore(t)
	registry := &fakeRegistry{conns: []config.Connection{{Name: "ch1", Host: "ch1.local"}}}
	fetcher := &fakeFetcher{samples: map[string]*Sample{
		"ch1": {
			Disks: []model.Disk{{Name: "default", TotalBytes: 100, UsedBytes: 40}},
			Tables: []model.TableSize{
				{Database: "app", Table: "events", SizeBytes: 30},
				{Database: "app", Table: "users", SizeBytes: 10},
			},
		},
	}}

	c := New(registry, fetcher, st)
	results := c.CollectAll(context.Background())
	require.Equal(t, "ok", results["ch1"])

	tables, err := st.TableDiskLatest("ch1")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "events", tables[0].TableName)
	assert.Equal(t, int64(30), tables[0].SizeBytes)
}
