package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"MarketPulse/internal/model"
)

// FormatIngestSummary formats the final state of an ingest job.
func FormatIngestSummary(job *model.IngestJob) string {
	var b strings.Builder
	icon := "✅"
	if job.Status != model.IngestFinished || job.Failed > 0 {
		icon = "⚠️"
	}
	fmt.Fprintf(&b, "%s <b>Ingest %s</b> | %s\n\n", icon, job.Status, job.ID)
	fmt.Fprintf(&b, "Symbols: %d\n", job.Total)
	fmt.Fprintf(&b, "Saved: %d | Failed: %d\n", job.Succeeded, job.Failed)
	if !job.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", job.FinishedAt.Sub(job.StartedAt).Round(time.Second))
	}
	return b.String()
}

// FormatHeatmap lists sectors by average change, best first. Sectors without an average go last.
func FormatHeatmap(hm *model.SectorHeatmap) string {
	names := make([]string, 0, len(hm.Sectors))
	for name := range hm.Sectors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := hm.Sectors[names[i]].AvgChangePct, hm.Sectors[names[j]].AvgChangePct
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && a.Float64 != b.Float64 {
			return a.Float64 > b.Float64
		}
		return names[i] < names[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "🗺 <b>Sector heatmap</b> | %s\n\n", hm.Duration)
	for _, name := range names {
		g := hm.Sectors[name]
		avg := "n/a"
		if g.AvgChangePct.Valid {
			avg = fmt.Sprintf("%+.2f%%", g.AvgChangePct.Float64)
		}
		fmt.Fprintf(&b, "%s: %s (%d)\n", html.EscapeString(name), avg, len(g.Symbols))
	}
	return b.String()
}

// FormatJobs formats the most recent ingest jobs.
func FormatJobs(jobs []model.IngestJob) string {
	if len(jobs) == 0 {
		return "No ingest jobs recorded yet."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Recent ingest jobs</b>\n\n")
	for _, j := range jobs {
		fmt.Fprintf(&b, "%s %s %s %d/%d\n",
			j.StartedAt.Format("2006-01-02 15:04"), j.ID[:min(8, len(j.ID))], j.Status, j.Succeeded, j.Total)
	}
	return b.String()
}

// FormatSnapshot formats the indicator snapshot of one symbol.
func FormatSnapshot(symbol string, snap *model.IndicatorSnapshot) string {
	if snap == nil {
		return fmt.Sprintf("Not enough data for %s.", html.EscapeString(symbol))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>%s</b>\n\n", html.EscapeString(symbol))
	fmt.Fprintf(&b, "Close: %.2f\n", snap.LatestClose)
	if snap.RSI.Valid {
		fmt.Fprintf(&b, "RSI(14): %.1f\n", snap.RSI.Float64)
	} else {
		b.WriteString("RSI(14): n/a\n")
	}
	fmt.Fprintf(&b, "MACD: %s\n", snap.MACDCrossover)
	for _, e := range []struct {
		span int
		dist float64
		ok   bool
	}{
		{21, snap.Dist21.Float64, snap.Dist21.Valid},
		{44, snap.Dist44.Float64, snap.Dist44.Valid},
		{200, snap.Dist200.Float64, snap.Dist200.Valid},
	} {
		if e.ok {
			fmt.Fprintf(&b, "EMA%d: %+.2f%%\n", e.span, e.dist)
		}
	}
	return b.String()
}
