// Package templates renders the dashboard HTML.
package templates

import (
	"fmt"
	"time"
)

// FormatBytes formats bytes into human-readable form.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(b)/float64(div), units[exp])
}

// FormatPct formats a used/total ratio as a percentage.
func FormatPct(used, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(used)/float64(total)*100)
}

// FormatTime formats a unix timestamp.
func FormatTime(unixTS int64) string {
	return time.Unix(unixTS, 0).Format("2006-01-02 15:04")
}

// FormatAge formats a timestamp as a short relative age.
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	age := time.Since(t)
	if age < time.Minute {
		return "just now"
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(age.Hours()/24))
}
