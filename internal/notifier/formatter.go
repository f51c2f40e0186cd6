package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"CandleSync/internal/model"
)

// FormatMarkers formats newly seen signal markers into an alert.
func FormatMarkers(symbol string, markers []model.SignalMarker) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s signals</b>\n\n", symbol))
	for _, m := range markers {
		icon := "🔴"
		if m.Side == model.SideBuy {
			icon = "🟢"
		}
		b.WriteString(fmt.Sprintf("%s %s %s at %s\n", icon, m.Side, html.EscapeString(m.Label), formatTime(m.Time)))
	}
	return b.String()
}

// FormatBar formats a single bar, typically the forming one.
func FormatBar(symbol string, bar model.Bar, forming bool) string {
	var b strings.Builder
	state := "closed"
	if forming {
		state = "forming"
	}
	b.WriteString(fmt.Sprintf("🕯 <b>%s</b> %s bar since %s\n\n", symbol, state, formatTime(bar.Start)))
	b.WriteString(fmt.Sprintf("O: %.6f\nH: %.6f\nL: %.6f\nC: %.6f\n", bar.Open, bar.High, bar.Low, bar.Close))
	return b.String()
}

// FormatStatus summarizes the chart state.
func FormatStatus(symbol string, closed int, lastEnd int64, indicators map[string]int, markers int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s status</b>\n\n", symbol))
	b.WriteString(fmt.Sprintf("Closed bars: %d\n", closed))
	if lastEnd > 0 {
		b.WriteString(fmt.Sprintf("Last close at: %s\n", formatTime(lastEnd)))
	}
	names := make([]string, 0, len(indicators))
	for name := range indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(fmt.Sprintf("Indicator %s: %d points\n", name, indicators[name]))
	}
	b.WriteString(fmt.Sprintf("Signal markers: %d\n", markers))
	return b.String()
}

// FormatRange describes where the forming close sits in the recent range.
func FormatRange(lookback int, high, low, pos float64) string {
	return fmt.Sprintf("Range (%d bars): %.6f - %.6f, close at %.0f%%\n", lookback, low, high, pos*100)
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
