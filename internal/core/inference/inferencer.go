// Package inference proposes directed relationships between entities
// extracted in a single pass. The rules live in a lookup table keyed by
// category pair so the ontology can grow without code changes.
package inference

import (
	"fmt"
	"time"

	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/ontology"
)

// profitabilityBoost is added to strength when either endpoint sits in the
// profitability category.
const profitabilityBoost = 0.2

type categoryPair struct {
	from, to string
}

// categoryRules maps a directed category pair to a relationship type. The
// key order fixes edge direction: from-category → to-category.
var categoryRules = map[categoryPair]string{
	{ontology.CategoryIncome, ontology.CategoryProfitability}:     model.RelAffects,
	{ontology.CategoryCost, ontology.CategoryProfitability}:       model.RelReduces,
	{ontology.CategoryLiquidity, ontology.CategoryWorkingCapital}: model.RelDependsOn,
	{ontology.CategoryOperations, ontology.CategoryCost}:          model.RelInfluences,
	{ontology.CategoryMarket, ontology.CategoryIncome}:            model.RelAffects,
	{ontology.CategoryGrowth, ontology.CategoryFinancing}:         model.RelRequires,
	{ontology.CategoryFinancing, ontology.CategoryLiquidity}:      model.RelAffects,
	{ontology.CategoryPerformance, ontology.CategoryGrowth}:       model.RelEnables,
	{ontology.CategoryMarket, ontology.CategoryGrowth}:            model.RelDetermines,
}

type Inferencer struct {
	// Now is injectable for reproducible tests.
	Now func() time.Time
}

func NewInferencer() *Inferencer {
	return &Inferencer{Now: func() time.Time { return time.Now().UTC() }}
}

// Infer consults the rule table for every unordered pair from one extraction
// pass. Pairs with no rule produce no edge. Direction follows the rule key,
// not the order entities appeared in.
func (inf *Inferencer) Infer(entities []model.Entity) []model.Relationship {
	if len(entities) < 2 {
		return nil
	}
	now := inf.Now()
	var out []model.Relationship
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			rel, ok := relate(entities[i], entities[j], now)
			if !ok {
				continue
			}
			out = append(out, rel)
		}
	}
	return out
}

func relate(a, b model.Entity, now time.Time) (model.Relationship, bool) {
	from, to, relType, ok := matchRule(a, b)
	if !ok {
		return model.Relationship{}, false
	}
	strength := (a.Confidence + b.Confidence) / 2
	if a.Category == ontology.CategoryProfitability || b.Category == ontology.CategoryProfitability {
		strength += profitabilityBoost
	}
	rel := model.Relationship{
		FromEntity: from.Name,
		ToEntity:   to.Name,
		Type:       relType,
		Strength:   strength,
		Context:    fmt.Sprintf("%s and %s mentioned together", from.Name, to.Name),
		CreatedAt:  now,
	}
	rel.Clamp()
	return rel, true
}

// matchRule checks the category table in both directions, then the generic
// type-level fallbacks.
func matchRule(a, b model.Entity) (from, to model.Entity, relType string, ok bool) {
	if t, hit := categoryRules[categoryPair{a.Category, b.Category}]; hit {
		return a, b, t, true
	}
	if t, hit := categoryRules[categoryPair{b.Category, a.Category}]; hit {
		return b, a, t, true
	}
	if a.Type == model.TypeMetric && b.Type == model.TypeAction {
		return a, b, model.RelImprovedBy, true
	}
	if b.Type == model.TypeMetric && a.Type == model.TypeAction {
		return b, a, model.RelImprovedBy, true
	}
	if a.Type == model.TypeStakeholder && b.Type == model.TypeMetric {
		return a, b, model.RelInfluences, true
	}
	if b.Type == model.TypeStakeholder && a.Type == model.TypeMetric {
		return b, a, model.RelInfluences, true
	}
	return model.Entity{}, model.Entity{}, "", false
}
