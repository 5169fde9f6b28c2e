// internal/models/query.go
package models

import "time"

// Query is one incoming user question. It is immutable once received;
// the transport layer fills Text and UserID, the worker assigns RequestID.
type Query struct {
	RequestID string         `json:"requestId"`
	UserID    string         `json:"userId"`
	Text      string         `json:"text"`
	Hints     *SessionHints  `json:"hints,omitempty"`
	Overrides *QueryOverride `json:"overrides,omitempty"`
	Received  time.Time      `json:"received"`
}

// SessionHints carries context from the user's previous queries, loaded
// from the session store. Used to resolve elliptical follow-ups.
type SessionHints struct {
	LastEntities []ResolvedEntity `json:"lastEntities,omitempty"`
	LastCurrency string           `json:"lastCurrency,omitempty"`
	LastWeights  []float64        `json:"lastWeights,omitempty"`
	Resolved     map[string]string `json:"resolved,omitempty"` // mention -> confirmed qualified id
}

// QueryOverride holds the optional intent-level configuration the caller
// may pass alongside the query text.
type QueryOverride struct {
	Currency string    `json:"currency,omitempty"`
	Years    int       `json:"years,omitempty"`
	Weights  []float64 `json:"weights,omitempty"`
}
