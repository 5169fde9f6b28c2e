// internal/models/intent.go
package models

import "fmt"

// IntentKind is the tagged variant of a classified query.
type IntentKind string

const (
	IntentSingleAsset IntentKind = "single_asset"
	IntentComparison  IntentKind = "comparison"
	IntentPortfolio   IntentKind = "portfolio"
	IntentMacro       IntentKind = "macro"
	IntentUnknown     IntentKind = "unknown"
)

// WeightTolerance is the accepted deviation of a normalized weight vector
// from 1.0.
const WeightTolerance = 1e-6

// Allocation pairs a portfolio constituent with its weight.
type Allocation struct {
	Entity ResolvedEntity `json:"entity"`
	Weight float64        `json:"weight"`
}

// Period is the trailing analysis window.
type Period struct {
	Years int `json:"years"`
}

// Window returns the provider-facing lookback window label, e.g. "10 years".
func (p Period) Window() string {
	if p.Years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", p.Years)
}

// Intent is the typed result of query classification. Parameters not
// applicable to a variant are left zero.
type Intent struct {
	Kind        IntentKind       `json:"kind"`
	Entities    []ResolvedEntity `json:"entities,omitempty"`
	Allocations []Allocation     `json:"allocations,omitempty"`
	Currency    string           `json:"currency"`
	Period      Period           `json:"period"`
	Rebalancing string           `json:"rebalancing,omitempty"`
	// MacroCode is the macro series identifier for Macro intents,
	// e.g. "RUB.INFL" or a currency pair like "USDRUB.FX".
	MacroCode string `json:"macroCode,omitempty"`
}

// Weights returns the allocation weight vector in order.
func (i Intent) Weights() []float64 {
	if len(i.Allocations) == 0 {
		return nil
	}
	out := make([]float64, len(i.Allocations))
	for idx, a := range i.Allocations {
		out[idx] = a.Weight
	}
	return out
}
