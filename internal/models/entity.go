// internal/models/entity.go
package models

import "strings"

// Namespace is a market/category code qualifying a ticker.
type Namespace string

const (
	NamespaceUS    Namespace = "US"
	NamespaceMOEX  Namespace = "MOEX"
	NamespaceLSE   Namespace = "LSE"
	NamespaceXETRA Namespace = "XETRA"
	NamespaceCOMM  Namespace = "COMM"
	NamespaceFX    Namespace = "FX"
	NamespaceINDX  Namespace = "INDX"
	NamespaceINFL  Namespace = "INFL"
)

// KnownNamespaces is the fixed set of market namespaces accepted in
// qualified identifiers, in resolution scan order.
var KnownNamespaces = []Namespace{
	NamespaceUS,
	NamespaceMOEX,
	NamespaceLSE,
	NamespaceXETRA,
	NamespaceCOMM,
	NamespaceFX,
	NamespaceINDX,
	NamespaceINFL,
}

// namespaceCurrency maps each namespace to its default trading currency.
var namespaceCurrency = map[Namespace]string{
	NamespaceUS:    "USD",
	NamespaceMOEX:  "RUB",
	NamespaceLSE:   "GBP",
	NamespaceXETRA: "EUR",
	NamespaceCOMM:  "USD",
	NamespaceFX:    "USD",
	NamespaceINDX:  "USD",
	NamespaceINFL:  "USD",
}

// IsKnownNamespace reports whether s (case-insensitive) is a recognized
// market namespace.
func IsKnownNamespace(s string) bool {
	up := Namespace(strings.ToUpper(s))
	for _, ns := range KnownNamespaces {
		if ns == up {
			return true
		}
	}
	return false
}

// CurrencyFor returns the default trading currency of a namespace.
func CurrencyFor(ns Namespace) string {
	if c, ok := namespaceCurrency[ns]; ok {
		return c
	}
	return "USD"
}

// Confidence classifies how a mention was resolved.
type Confidence string

const (
	ConfidenceExact      Confidence = "exact"
	ConfidenceFuzzy      Confidence = "fuzzy"
	ConfidenceAmbiguous  Confidence = "ambiguous"
	ConfidenceUnresolved Confidence = "unresolved"
)

// Candidate is one ranked match produced by a fuzzy directory lookup.
type Candidate struct {
	Ticker    string    `json:"ticker"`
	Namespace Namespace `json:"namespace"`
	Name      string    `json:"name"`
	Score     float64   `json:"score"`
}

// ID returns the qualified identifier of the candidate.
func (c Candidate) ID() string {
	return c.Ticker + "." + string(c.Namespace)
}

// ResolvedEntity is the outcome of resolving one instrument mention.
// Created once by the resolver and never mutated afterward.
type ResolvedEntity struct {
	Mention    string      `json:"mention"`
	Ticker     string      `json:"ticker"`
	Namespace  Namespace   `json:"namespace"`
	Name       string      `json:"name,omitempty"`
	Currency   string      `json:"currency,omitempty"`
	Confidence Confidence  `json:"confidence"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// ID returns the qualified identifier TICKER.NAMESPACE, or "" when the
// entity is not usable downstream.
func (e ResolvedEntity) ID() string {
	if e.Ticker == "" || e.Namespace == "" {
		return ""
	}
	return e.Ticker + "." + string(e.Namespace)
}

// Usable reports whether the entity may enter metric computation.
// Ambiguous and unresolved entities must short-circuit the pipeline first.
func (e ResolvedEntity) Usable() bool {
	return e.Confidence == ConfidenceExact || e.Confidence == ConfidenceFuzzy
}
