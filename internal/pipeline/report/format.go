// internal/pipeline/report/format.go
package report

import (
	"fmt"
	"strings"
	"time"

	"finsight/internal/models"
)

// Style holds the rendering conventions for one report. It is an
// immutable value handed to the assembler at construction; nothing in
// this package mutates shared formatting state between requests.
type Style struct {
	PercentDecimals int
	RatioDecimals   int
	WeightDecimals  int
	DateLayout      string
	NotAvailable    string
}

// DefaultStyle is the layout used by the worker service.
func DefaultStyle() Style {
	return Style{
		PercentDecimals: 2,
		RatioDecimals:   3,
		WeightDecimals:  1,
		DateLayout:      "2006-01-02",
		NotAvailable:    "n/a",
	}
}

// percent renders a fractional metric as a percentage. Unavailable
// values keep their row and render as the not-available marker.
func (s Style) percent(v models.MetricValue) string {
	if !v.Available {
		return s.NotAvailable
	}
	return fmt.Sprintf("%.*f%%", s.PercentDecimals, v.Value*100)
}

func (s Style) ratio(v models.MetricValue) string {
	if !v.Available {
		return s.NotAvailable
	}
	return fmt.Sprintf("%.*f", s.RatioDecimals, v.Value)
}

func (s Style) date(v models.MetricValue) string {
	if !v.Available {
		return s.NotAvailable
	}
	return v.Date.Format(s.DateLayout)
}

func (s Style) calendar(t time.Time) string {
	return t.Format(s.DateLayout)
}

func (s Style) weight(w float64) string {
	return fmt.Sprintf("%.*f%%", s.WeightDecimals, w*100)
}

// growth condenses a wealth series into its endpoints, e.g.
// "1000.00 (2014-06-30) to 1890.50 (2024-06-30)".
func (s Style) growth(v models.MetricValue) string {
	if !v.Available || len(v.Series) == 0 {
		return s.NotAvailable
	}
	first := v.Series[0]
	last := v.Series[len(v.Series)-1]
	return fmt.Sprintf("%.2f (%s) to %.2f (%s)",
		first.Value, s.calendar(first.Date),
		last.Value, s.calendar(last.Date))
}

// line renders one "label: value" report row.
func line(label, value string) string {
	return fmt.Sprintf("%s: %s", label, value)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
