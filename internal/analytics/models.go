// internal/analytics/models.go
package analytics

import (
	"encoding/json"
	"time"
)

// SymbolListing is one directory entry returned by the provider.
type SymbolListing struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// PeriodValue is the provider's period type for dates: a year and month
// without a day component.
type PeriodValue struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// EndOfMonth converts the period to the last calendar day of its month.
func (p PeriodValue) EndOfMonth() time.Time {
	firstOfNext := time.Date(p.Year, time.Month(p.Month)+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// DescribeRow is one metric row from a describe response. Value is
// heterogeneous on the wire: a number, a string, or a period object.
type DescribeRow struct {
	Metric string          `json:"metric"`
	Window string          `json:"window,omitempty"`
	Value  json.RawMessage `json:"value"`
}

// AsNumber decodes the row value as a float64.
func (r DescribeRow) AsNumber() (float64, bool) {
	var f float64
	if err := json.Unmarshal(r.Value, &f); err != nil {
		return 0, false
	}
	return f, true
}

// AsString decodes the row value as a string.
func (r DescribeRow) AsString() (string, bool) {
	var s string
	if err := json.Unmarshal(r.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsPeriod decodes the row value as a {year, month} period object.
func (r DescribeRow) AsPeriod() (PeriodValue, bool) {
	var p PeriodValue
	if err := json.Unmarshal(r.Value, &p); err != nil || p.Year == 0 || p.Month < 1 || p.Month > 12 {
		return PeriodValue{}, false
	}
	return p, true
}

// AssetDescribeResponse is the per-asset describe payload.
type AssetDescribeResponse struct {
	Symbol   string        `json:"symbol"`
	Currency string        `json:"currency"`
	Rows     []DescribeRow `json:"rows"`
}

// PortfolioDescribeRequest is the body for a portfolio describe call.
// Assets and Weights are index-aligned.
type PortfolioDescribeRequest struct {
	Assets      []string  `json:"assets"`
	Weights     []float64 `json:"weights"`
	Currency    string    `json:"currency"`
	Years       int       `json:"years"`
	Rebalancing string    `json:"rebalancing,omitempty"`
}

// PortfolioDescribeResponse carries portfolio-level metric rows plus the
// first data date of every constituent, keyed by qualified symbol.
type PortfolioDescribeResponse struct {
	Currency   string            `json:"currency"`
	Rows       []DescribeRow     `json:"rows"`
	FirstDates map[string]string `json:"first_dates,omitempty"`
}

// SeriesObservation is one point of a wealth or inflation series.
type SeriesObservation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
