package model

import "time"

// Relationship type vocabulary. Fixed; the inference rule table only ever
// produces values from this set.
const (
	RelAffects    = "affects"
	RelDependsOn  = "depends_on"
	RelInfluences = "influences"
	RelRequires   = "requires"
	RelReduces    = "reduces"
	RelImprovedBy = "improved_by"
	RelRelatesTo  = "relates_to"
	RelThreatens  = "threatens"
	RelEnables    = "enables"
	RelDetermines = "determines"
)

// Relationship is a directed, typed edge between two entity names.
// Endpoints are weak references: an edge survives its entities being pruned,
// so renderers must tolerate dangling names.
type Relationship struct {
	FromEntity string    `json:"from_entity"`
	ToEntity   string    `json:"to_entity"`
	Type       string    `json:"relationship_type"`
	Strength   float64   `json:"strength"`
	Context    string    `json:"context"`
	CreatedAt  time.Time `json:"created_at"`
}

// Clamp forces Strength into [0,1].
func (r *Relationship) Clamp() {
	r.Strength = clamp01(r.Strength)
}
