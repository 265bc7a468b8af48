package templates

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
	"github.com/avelkov/chlens/internal/cache"
	"github.com/avelkov/chlens/internal/model"
)

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
				`<meta name="viewport" content="width=device-width, initial-scale=1">`+
				`<title>%s</title><link rel="stylesheet" href="/static/chlens.css"></head>`+
				`<body><header><h1>chlens</h1></header><main>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// Dashboard renders the fleet overview: latest disk usage per server plus
// the last collection cycle's per-server status.
func Dashboard(servers []model.ServerDiskPoint, snap cache.Snapshot) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section><h2>Servers</h2><table><thead><tr>`+
			`<th>Server</th><th>Used</th><th>Total</th><th>Usage</th><th>As of</th>`+
			`</tr></thead><tbody>`); err != nil {
			return err
		}
		for _, s := range servers {
			if _, err := fmt.Fprintf(w,
				`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(s.ServerName),
				FormatBytes(s.UsedBytes),
				FormatBytes(s.TotalBytes),
				FormatPct(s.UsedBytes, s.TotalBytes),
				FormatTime(s.CapturedAt)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `</tbody></table></section>`+
			`<section><h2>Last collection</h2><p>%s</p><ul>`,
			templ.EscapeString(FormatAge(snap.LastCycle))); err != nil {
			return err
		}
		names := make([]string, 0, len(snap.Statuses))
		for name := range snap.Statuses {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := fmt.Fprintf(w, `<li><strong>%s</strong>: %s</li>`,
				templ.EscapeString(name),
				templ.EscapeString(snap.Statuses[name])); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></section>`)
		return err
	})
	return Layout("chlens — servers", body)
}

// TableSizesFragment renders one server's latest table sizes.
func TableSizesFragment(server string, tables []model.TableDiskLatest) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section><h2>%s</h2><table><thead><tr>`+
			`<th>Table</th><th>Size</th></tr></thead><tbody>`,
			templ.EscapeString(server)); err != nil {
			return err
		}
		for _, t := range tables {
			if _, err := fmt.Fprintf(w, `<tr><td>%s.%s</td><td>%s</td></tr>`,
				templ.EscapeString(t.DatabaseName),
				templ.EscapeString(t.TableName),
				FormatBytes(t.SizeBytes)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></section>`)
		return err
	})
}
