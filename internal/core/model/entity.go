package model

import "time"

// Entity types emitted by extraction.
const (
	TypeMetric          = "metric"
	TypeAsset           = "asset"
	TypeLiability       = "liability"
	TypeStakeholder     = "stakeholder"
	TypeAction          = "action"
	TypeExternal        = "external"
	TypePattern         = "pattern"
	TypeBusinessContext = "business_context"
	TypeNumericMetric   = "numeric_metric"
	TypeAmount          = "amount"
)

// Extraction provenance tags. Diagnostic only, never used for scoring.
const (
	MethodOntology = "ontology_match"
	MethodCurrency = "currency_pattern"
	MethodProfile  = "profile"
	MethodNumeric  = "numeric_pattern"
)

// Entity is a recognized concept instance owned by exactly one user.
// Name is unique per user in the store (upsert semantics).
type Entity struct {
	Name             string    `json:"name"`
	Type             string    `json:"entity_type"`
	Category         string    `json:"category"`
	Context          string    `json:"context"`
	Confidence       float64   `json:"confidence"`
	Tier             int       `json:"tier"`
	ExtractionMethod string    `json:"extraction_method"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessed     time.Time `json:"last_accessed"`
}

// Clamp forces Confidence into [0,1] and Tier into {1,2,3}.
func (e *Entity) Clamp() {
	e.Confidence = clamp01(e.Confidence)
	if e.Tier < 1 {
		e.Tier = 1
	}
	if e.Tier > 3 {
		e.Tier = 3
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
