// internal/models/metricset.go
package models

import "time"

// MetricKind tags the shape of a canonical metric value.
type MetricKind string

const (
	MetricScalar MetricKind = "scalar"
	MetricPoint  MetricKind = "point"  // scalar bound to a lookback window
	MetricDate   MetricKind = "date"   // plain calendar date
	MetricSeries MetricKind = "series" // time-indexed values
)

// Canonical metric names used across the pipeline. The analytics provider
// may report more; these are the ones the report assembler knows how to lay
// out.
const (
	MetricCAGR         = "cagr"
	MetricRisk         = "risk"
	MetricMaxDrawdown  = "max_drawdown"
	MetricSharpe       = "sharpe"
	MetricCalmar       = "calmar"
	MetricRiskFreeRate = "risk_free_rate"
	MetricFirstDate    = "first_date"
	MetricLastDate     = "last_date"
	MetricInflation    = "inflation"
	MetricWealthSeries = "wealth_series"
)

// SeriesPoint is one observation of a time series, with a plain calendar
// date.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricValue is the canonical in-process representation of one metric.
// Available=false marks a value the provider could not supply; downstream
// code renders it as "n/a" instead of failing.
type MetricValue struct {
	Kind      MetricKind    `json:"kind"`
	Available bool          `json:"available"`
	Value     float64       `json:"value,omitempty"`
	Window    string        `json:"window,omitempty"`
	Date      time.Time     `json:"date,omitempty"`
	Series    []SeriesPoint `json:"series,omitempty"`
}

// Unavailable is the explicit marker for a metric the provider did not
// populate.
func Unavailable() MetricValue {
	return MetricValue{Available: false}
}

// Scalar builds an available plain scalar value.
func Scalar(v float64) MetricValue {
	return MetricValue{Kind: MetricScalar, Available: true, Value: v}
}

// Point builds an available scalar bound to a lookback window.
func Point(v float64, window string) MetricValue {
	return MetricValue{Kind: MetricPoint, Available: true, Value: v, Window: window}
}

// DateValue builds an available calendar-date value.
func DateValue(t time.Time) MetricValue {
	return MetricValue{Kind: MetricDate, Available: true, Date: t}
}

// Series builds an available time-indexed value. An empty slice yields the
// unavailable marker so callers never store a series with nothing in it.
func Series(points []SeriesPoint) MetricValue {
	if len(points) == 0 {
		return Unavailable()
	}
	return MetricValue{Kind: MetricSeries, Available: true, Series: points}
}

// MetricSet maps canonical metric names to values for one entity or one
// portfolio. Dates inside a MetricSet are always plain calendar dates;
// provider period types never cross this boundary.
type MetricSet struct {
	Values map[string]MetricValue `json:"values"`
	Notes  []string               `json:"notes,omitempty"`
}

// NewMetricSet returns an empty, writable metric set.
func NewMetricSet() *MetricSet {
	return &MetricSet{Values: make(map[string]MetricValue)}
}

// Get returns the value for name, or the unavailable marker.
func (m *MetricSet) Get(name string) MetricValue {
	if m == nil {
		return Unavailable()
	}
	if v, ok := m.Values[name]; ok {
		return v
	}
	return Unavailable()
}

// Set stores a value under name.
func (m *MetricSet) Set(name string, v MetricValue) {
	m.Values[name] = v
}

// AddNote attaches an explanatory note, e.g. a window substitution.
func (m *MetricSet) AddNote(note string) {
	m.Notes = append(m.Notes, note)
}

// EntityMetrics couples one resolved entity with its computed metrics.
// Failed entries keep their place so comparison tables stay aligned.
type EntityMetrics struct {
	Entity  ResolvedEntity `json:"entity"`
	Metrics *MetricSet     `json:"metrics,omitempty"`
	Failed  bool           `json:"failed,omitempty"`
	Note    string         `json:"note,omitempty"`
}

// MetricBundle is the joined output of the metrics orchestrator for one
// intent: per-entity sets in intent order plus an optional aggregate for
// Portfolio/Macro intents.
type MetricBundle struct {
	Currency  string          `json:"currency"`
	Period    Period          `json:"period"`
	Entities  []EntityMetrics `json:"entities,omitempty"`
	Aggregate *MetricSet      `json:"aggregate,omitempty"`
	// FirstDates holds the earliest data date per portfolio constituent,
	// keyed by qualified identifier.
	FirstDates map[string]time.Time `json:"firstDates,omitempty"`
	Notes      []string             `json:"notes,omitempty"`
}

// Partial reports whether at least one entity failed while others
// succeeded.
func (b *MetricBundle) Partial() bool {
	failed := 0
	for _, e := range b.Entities {
		if e.Failed {
			failed++
		}
	}
	return failed > 0 && failed < len(b.Entities)
}
