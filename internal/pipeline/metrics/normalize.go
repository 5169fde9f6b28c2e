// internal/pipeline/metrics/normalize.go
package metrics

import (
	"fmt"
	"time"

	"finsight/internal/analytics"
	"finsight/internal/models"
)

var dateLayouts = []string{"2006-01-02", "2006-01"}

// normalizeDate converts a provider date value to a plain calendar date.
// Priority: full calendar-date string, then a {year, month} period object
// converted to its end of month, then a coarser string parse. Never
// raises; anything unparseable degrades to the unavailable marker.
func normalizeDate(row analytics.DescribeRow) models.MetricValue {
	if s, ok := row.AsString(); ok {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return models.DateValue(t)
		}
	}

	if p, ok := row.AsPeriod(); ok {
		return models.DateValue(p.EndOfMonth())
	}

	if s, ok := row.AsString(); ok {
		for _, layout := range dateLayouts[1:] {
			if t, err := time.Parse(layout, s); err == nil {
				return models.DateValue(t)
			}
		}
	}

	return models.Unavailable()
}

// parseDateString applies the same layout chain to a bare string, for
// fields like portfolio first dates that arrive outside a DescribeRow.
func parseDateString(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDateMetric(name string) bool {
	return name == models.MetricFirstDate || name == models.MetricLastDate
}

// buildMetricSet converts provider rows to the canonical metric set for
// one requested window. Point metrics prefer the exact window; when it
// is absent the scan falls back to the first populated window for the
// same metric and records the substitution as a note.
func buildMetricSet(rows []analytics.DescribeRow, wantWindow string) *models.MetricSet {
	set := models.NewMetricSet()

	byMetric := make(map[string][]analytics.DescribeRow)
	var order []string
	for _, row := range rows {
		if _, seen := byMetric[row.Metric]; !seen {
			order = append(order, row.Metric)
		}
		byMetric[row.Metric] = append(byMetric[row.Metric], row)
	}

	for _, name := range order {
		group := byMetric[name]

		if isDateMetric(name) {
			set.Set(name, normalizeDate(group[0]))
			continue
		}

		value, substituted := pickWindow(group, wantWindow)
		set.Set(name, value)
		if substituted != "" {
			set.AddNote(fmt.Sprintf("metric %q: window %q unavailable, substituted %q", name, wantWindow, substituted))
		}
	}

	return set
}

// pickWindow selects the numeric row for a point metric. Returns the
// substituted window label when the exact one was missing.
func pickWindow(group []analytics.DescribeRow, wantWindow string) (models.MetricValue, string) {
	// Windowless rows are plain scalars.
	if len(group) == 1 && group[0].Window == "" {
		if f, ok := group[0].AsNumber(); ok {
			return models.Scalar(f), ""
		}
		return models.Unavailable(), ""
	}

	for _, row := range group {
		if row.Window != wantWindow {
			continue
		}
		if f, ok := row.AsNumber(); ok {
			return models.Point(f, row.Window), ""
		}
	}

	// Fallback scan: first populated window wins.
	for _, row := range group {
		if f, ok := row.AsNumber(); ok {
			if row.Window == wantWindow {
				return models.Point(f, row.Window), ""
			}
			return models.Point(f, row.Window), row.Window
		}
	}

	return models.Unavailable(), ""
}
