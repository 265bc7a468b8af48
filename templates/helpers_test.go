package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "50%", FormatPct(50, 100))
	assert.Equal(t, "0%", FormatPct(0, 100))
	assert.Equal(t, "0%", FormatPct(10, 0))
	assert.Equal(t, "100%", FormatPct(100, 100))
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 8, 10, 14, 0, 0, 0, time.Local).Unix()
	assert.Equal(t, "2026-08-10 14:00", FormatTime(ts))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "never", FormatAge(time.Time{}))
	assert.Equal(t, "just now", FormatAge(time.Now().Add(-10*time.Second)))
	assert.Equal(t, "5m ago", FormatAge(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", FormatAge(time.Now().Add(-3*time.Hour)))
	assert.Equal(t, "2d ago", FormatAge(time.Now().Add(-49*time.Hour)))
}
