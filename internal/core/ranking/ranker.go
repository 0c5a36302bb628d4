// Package ranking is the algorithmic core: it scores stored knowledge
// against the current query, collapses near-duplicates, and greedily packs
// the winners into a hard token budget.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/tokens"
)

// Defaults for the tuning constants. All are exposed through configuration.
const (
	DefaultDecayHours          = 72.0
	DefaultRelevanceThreshold  = 0.6
	DefaultSimilarityThreshold = 0.8
	DefaultMaxEntities         = 10
	DefaultMaxRelationships    = 8

	DefaultConfidenceWeight = 0.4
	DefaultRecencyWeight    = 0.3
	DefaultSimilarityWeight = 0.3
)

// Config carries the ranking constants. The three weights must sum to 1.
type Config struct {
	ConfidenceWeight    float64
	RecencyWeight       float64
	SimilarityWeight    float64
	RelevanceThreshold  float64
	SimilarityThreshold float64
	DecayHours          float64
	MaxEntities         int
	MaxRelationships    int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceWeight:    DefaultConfidenceWeight,
		RecencyWeight:       DefaultRecencyWeight,
		SimilarityWeight:    DefaultSimilarityWeight,
		RelevanceThreshold:  DefaultRelevanceThreshold,
		SimilarityThreshold: DefaultSimilarityThreshold,
		DecayHours:          DefaultDecayHours,
		MaxEntities:         DefaultMaxEntities,
		MaxRelationships:    DefaultMaxRelationships,
	}
}

type Selector struct {
	cfg Config
	est tokens.Estimator
}

func NewSelector(cfg Config, est tokens.Estimator) *Selector {
	if cfg.DecayHours <= 0 {
		cfg.DecayHours = DefaultDecayHours
	}
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = DefaultMaxEntities
	}
	if cfg.MaxRelationships <= 0 {
		cfg.MaxRelationships = DefaultMaxRelationships
	}
	return &Selector{cfg: cfg, est: est}
}

// Select picks a budget-constrained subset of stored knowledge. Query
// entities from the current turn seed the term set alongside the raw query.
// Given identical inputs and clock, the result is reproducible: ties keep
// the store's input order.
func (s *Selector) Select(
	queryEntities []model.Entity,
	stored []model.Entity,
	storedRels []model.Relationship,
	queryTerms string,
	now time.Time,
	budget int,
) model.Selection {
	sel := model.Selection{}
	if budget < 0 {
		budget = 0
	}

	terms := tokenize(queryTerms)
	for _, qe := range queryEntities {
		for w := range tokenize(qe.Name) {
			terms[w] = struct{}{}
		}
	}

	candidates := s.cluster(stored)

	type scored struct {
		entity    model.Entity
		relevance float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, e := range candidates {
		r := s.relevance(e, terms, now)
		if r < s.cfg.RelevanceThreshold {
			continue
		}
		ranked = append(ranked, scored{entity: e, relevance: r})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].relevance > ranked[j].relevance
	})

	// Greedy pass: a candidate that would overflow is skipped, not a stop
	// signal; a later, cheaper one may still fit.
	used := 0
	selected := make(map[string]bool)
	for _, c := range ranked {
		if len(sel.Entities) >= s.cfg.MaxEntities {
			break
		}
		cost := s.est.EntityCost(c.entity)
		if used+cost > budget {
			continue
		}
		used += cost
		sel.Entities = append(sel.Entities, c.entity)
		selected[c.entity.Name] = true
	}

	rels := make([]model.Relationship, 0, len(storedRels))
	for _, r := range storedRels {
		if selected[r.FromEntity] && selected[r.ToEntity] {
			rels = append(rels, r)
		}
	}
	sort.SliceStable(rels, func(i, j int) bool {
		return rels[i].Strength > rels[j].Strength
	})
	for _, r := range rels {
		if len(sel.Relationships) >= s.cfg.MaxRelationships {
			break
		}
		cost := s.est.RelationshipCost(r)
		if used+cost > budget {
			continue
		}
		used += cost
		sel.Relationships = append(sel.Relationships, r)
	}

	sel.TokenCount = used
	return sel
}

// relevance = confidence·Wc + temporal·Wr + semantic·Ws.
func (s *Selector) relevance(e model.Entity, queryTokens map[string]struct{}, now time.Time) float64 {
	hours := now.Sub(e.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	temporal := math.Exp(-hours / s.cfg.DecayHours)
	semantic := jaccard(queryTokens, tokenize(e.Name+" "+e.Context))
	return s.cfg.ConfidenceWeight*e.Confidence +
		s.cfg.RecencyWeight*temporal +
		s.cfg.SimilarityWeight*semantic
}

// cluster collapses near-duplicate entities (pairwise Jaccard on
// name+context above the similarity threshold) down to the highest-
// confidence representative, preserving input order otherwise.
func (s *Selector) cluster(stored []model.Entity) []model.Entity {
	type group struct {
		rep    model.Entity
		tokens map[string]struct{}
	}
	var groups []group
	for _, e := range stored {
		et := tokenize(e.Name + " " + e.Context)
		placed := false
		for i := range groups {
			if jaccard(et, groups[i].tokens) > s.cfg.SimilarityThreshold {
				if e.Confidence > groups[i].rep.Confidence {
					groups[i].rep = e
					groups[i].tokens = et
				}
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, group{rep: e, tokens: et})
		}
	}
	out := make([]model.Entity, len(groups))
	for i, g := range groups {
		out[i] = g.rep
	}
	return out
}
