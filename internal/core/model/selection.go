package model

// Selection is the budget-constrained subset of stored knowledge chosen for
// one prompt. TokenCount is the estimated cost of the entities and
// relationships only; instruction/profile boilerplate is priced separately.
type Selection struct {
	Entities        []Entity       `json:"entities"`
	Relationships   []Relationship `json:"relationships"`
	RenderedContext string         `json:"rendered_context"`
	TokenCount      int            `json:"token_count"`
}

// Empty reports whether the selection carries no knowledge at all.
func (s *Selection) Empty() bool {
	return s == nil || (len(s.Entities) == 0 && len(s.Relationships) == 0)
}
