package model

// ProfileFacts holds the structured business attributes supplied by the
// profile store. Every field is optional; absence must not fail the pipeline.
type ProfileFacts struct {
	Industry        string  `json:"industry,omitempty"`
	MonthlyRevenue  float64 `json:"monthly_revenue,omitempty"`
	MonthlyExpenses float64 `json:"monthly_expenses,omitempty"`
	Location        string  `json:"location,omitempty"`
}

// Empty reports whether no fact is present at all.
func (p *ProfileFacts) Empty() bool {
	if p == nil {
		return true
	}
	return p.Industry == "" && p.MonthlyRevenue == 0 && p.MonthlyExpenses == 0 && p.Location == ""
}
