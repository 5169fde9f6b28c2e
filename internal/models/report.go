// internal/models/report.go
package models

// Section is one titled block of report text.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ChartKind identifies a visual artifact for the external charting
// collaborator. The pipeline never renders pixels.
type ChartKind string

const (
	ChartCumulativeReturn ChartKind = "cumulative_return"
	ChartDrawdown         ChartKind = "drawdown"
	ChartAllocation       ChartKind = "allocation"
	ChartInflation        ChartKind = "inflation"
)

// ChartRequest is an opaque descriptor handed to the charting collaborator.
type ChartRequest struct {
	Kind     ChartKind `json:"kind"`
	Symbols  []string  `json:"symbols"`
	Weights  []float64 `json:"weights,omitempty"`
	Currency string    `json:"currency"`
	Years    int       `json:"years"`
}

// Report is the assembled analysis for one query: ordered text sections
// plus pending chart requests. Immutable after assembly; the insight
// augmenter only appends a commentary section via WithCommentary.
type Report struct {
	Title    string         `json:"title"`
	Intent   IntentKind     `json:"intent"`
	Sections []Section      `json:"sections"`
	Charts   []ChartRequest `json:"charts,omitempty"`
	// Commentary is the optional AI-generated section title; empty when
	// augmentation was skipped or failed.
	Commentary string `json:"commentary,omitempty"`
}

// WithCommentary returns a copy of the report with a commentary section
// appended. The receiver is left untouched.
func (r *Report) WithCommentary(text string) *Report {
	out := *r
	out.Sections = make([]Section, len(r.Sections), len(r.Sections)+1)
	copy(out.Sections, r.Sections)
	out.Sections = append(out.Sections, Section{Title: "Commentary", Body: text})
	out.Commentary = text
	return &out
}
