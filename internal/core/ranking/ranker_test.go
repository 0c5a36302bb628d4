package ranking

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/tokens"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSelector() *Selector {
	return NewSelector(DefaultConfig(), tokens.NewHeuristicEstimator())
}

func storedEntity(name string, confidence float64, age time.Duration) model.Entity {
	return model.Entity{
		Name:       name,
		Context:    name + " was discussed",
		Confidence: confidence,
		CreatedAt:  testNow.Add(-age),
	}
}

func TestSelectEmptyStore(t *testing.T) {
	s := newTestSelector()

	sel := s.Select(nil, nil, nil, "how is cash flow", testNow, 1000)

	assert.True(t, sel.Empty())
	assert.Zero(t, sel.TokenCount)
}

func TestSelectFiltersBelowRelevanceThreshold(t *testing.T) {
	s := newTestSelector()
	// Old and weak: 0.4*0.4 + 0.3*exp(-1000/72) + 0 ≈ 0.16, well below 0.6.
	weak := storedEntity("seasonality", 0.4, 1000*time.Hour)
	// Fresh and strong: 0.4*0.95 + 0.3*1 = 0.68 even with zero similarity.
	strong := storedEntity("cash_flow", 0.95, 0)

	sel := s.Select(nil, []model.Entity{weak, strong}, nil, "unrelated words entirely", testNow, 1000)

	if assert.Len(t, sel.Entities, 1) {
		assert.Equal(t, "cash_flow", sel.Entities[0].Name)
	}
}

func TestSelectRecencyDecay(t *testing.T) {
	s := newTestSelector()
	fresh := storedEntity("alpha", 0.8, 0)
	stale := storedEntity("beta", 0.8, 720*time.Hour)

	terms := tokenize("no overlap here")
	freshScore := s.relevance(fresh, terms, testNow)
	staleScore := s.relevance(stale, terms, testNow)

	assert.Greater(t, freshScore, staleScore)
	// Future timestamps never score above "created right now".
	future := storedEntity("gamma", 0.8, -time.Hour)
	assert.Equal(t, freshScore, s.relevance(future, terms, testNow))
}

func TestSelectSimilarityLiftsRelevance(t *testing.T) {
	s := newTestSelector()
	onTopic := storedEntity("inventory", 0.5, 500*time.Hour)
	offTopic := storedEntity("payroll", 0.5, 500*time.Hour)

	terms := tokenize("inventory was discussed")
	assert.Greater(t, s.relevance(onTopic, terms, testNow), s.relevance(offTopic, terms, testNow))
}

func TestClusterKeepsHighestConfidence(t *testing.T) {
	s := newTestSelector()
	a := model.Entity{Name: "cash_flow", Context: "cash flow was tight", Confidence: 0.7}
	b := model.Entity{Name: "cash_flow", Context: "cash flow was tight", Confidence: 0.95}
	distinct := model.Entity{Name: "marketing", Context: "spend on advertising campaigns", Confidence: 0.6}

	out := s.cluster([]model.Entity{a, b, distinct})

	if assert.Len(t, out, 2) {
		assert.Equal(t, "cash_flow", out[0].Name)
		assert.Equal(t, 0.95, out[0].Confidence)
		assert.Equal(t, "marketing", out[1].Name)
	}
}

func TestClusterNoPairAboveThresholdSurvivesTogether(t *testing.T) {
	s := newTestSelector()
	in := []model.Entity{
		{Name: "revenue", Context: "monthly revenue from the shop", Confidence: 0.9},
		{Name: "expenses", Context: "rising cost of raw materials", Confidence: 0.85},
		{Name: "loan", Context: "bank loan repayment schedule", Confidence: 0.8},
	}

	out := s.cluster(in)

	assert.Len(t, out, 3)
	for i, e := range out {
		assert.Equal(t, in[i].Name, e.Name, "input order preserved")
	}
}

// Twenty identical-cost candidates against a budget that fits exactly six.
func TestSelectBudgetPacking(t *testing.T) {
	s := newTestSelector()
	s.cfg.MaxEntities = 100 // isolate the budget constraint from the cap

	est := tokens.NewHeuristicEstimator()
	stored := make([]model.Entity, 0, 20)
	for i := 0; i < 20; i++ {
		// 1-word name + 106-word context = 107 words -> 143 tokens, +7
		// overhead = 150 per entity. Unique words defeat clustering.
		e := model.Entity{
			Name:       fmt.Sprintf("entity%d", i),
			Context:    strings.TrimSpace(strings.Repeat(fmt.Sprintf("word%d ", i), 106)),
			Confidence: 1.0,
			CreatedAt:  testNow,
		}
		assert.Equal(t, 150, est.EntityCost(e))
		stored = append(stored, e)
	}

	sel := s.Select(nil, stored, nil, "query", testNow, 1000)

	assert.Len(t, sel.Entities, 6)
	assert.Equal(t, 900, sel.TokenCount)
	assert.LessOrEqual(t, sel.TokenCount, 1000)
	// All ties: stable ranking keeps store order.
	for i, e := range sel.Entities {
		assert.Equal(t, fmt.Sprintf("entity%d", i), e.Name)
	}
}

func TestSelectSkipsOversizedCandidateNotStops(t *testing.T) {
	s := newTestSelector()
	huge := model.Entity{
		Name:       "huge",
		Context:    strings.TrimSpace(strings.Repeat("bulk ", 400)),
		Confidence: 1.0,
		CreatedAt:  testNow,
	}
	small := model.Entity{
		Name:       "small",
		Context:    "tiny note",
		Confidence: 0.9,
		CreatedAt:  testNow,
	}

	// huge ranks first (higher confidence) but cannot fit; small still must.
	sel := s.Select(nil, []model.Entity{huge, small}, nil, "query", testNow, 100)

	if assert.Len(t, sel.Entities, 1) {
		assert.Equal(t, "small", sel.Entities[0].Name)
	}
}

func TestSelectEntityCap(t *testing.T) {
	s := newTestSelector()
	stored := make([]model.Entity, 0, 15)
	for i := 0; i < 15; i++ {
		e := storedEntity(fmt.Sprintf("item%d", i), 0.9, 0)
		e.Context = fmt.Sprintf("unique%d note%d", i, i)
		stored = append(stored, e)
	}

	sel := s.Select(nil, stored, nil, "query", testNow, 100000)

	assert.Len(t, sel.Entities, DefaultMaxEntities)
}

func TestSelectRelationshipsNeedBothEndpoints(t *testing.T) {
	s := newTestSelector()
	a := storedEntity("revenue", 0.95, 0)
	b := storedEntity("profit", 0.95, 0)
	rels := []model.Relationship{
		{FromEntity: "revenue", ToEntity: "profit", Type: model.RelAffects, Strength: 0.9},
		{FromEntity: "revenue", ToEntity: "missing", Type: model.RelAffects, Strength: 0.9},
	}

	sel := s.Select(nil, []model.Entity{a, b}, rels, "query", testNow, 1000)

	if assert.Len(t, sel.Relationships, 1) {
		assert.Equal(t, "profit", sel.Relationships[0].ToEntity)
	}
}

func TestSelectRelationshipsSortedByStrength(t *testing.T) {
	s := newTestSelector()
	stored := []model.Entity{
		storedEntity("revenue", 0.95, 0),
		storedEntity("profit", 0.95, 0),
		storedEntity("expenses", 0.95, 0),
	}
	rels := []model.Relationship{
		{FromEntity: "expenses", ToEntity: "profit", Type: model.RelReduces, Strength: 0.5},
		{FromEntity: "revenue", ToEntity: "profit", Type: model.RelAffects, Strength: 0.9},
	}

	sel := s.Select(nil, stored, rels, "query", testNow, 1000)

	if assert.Len(t, sel.Relationships, 2) {
		assert.Equal(t, 0.9, sel.Relationships[0].Strength)
		assert.Equal(t, 0.5, sel.Relationships[1].Strength)
	}
}

func TestSelectZeroBudget(t *testing.T) {
	s := newTestSelector()
	stored := []model.Entity{storedEntity("revenue", 0.95, 0)}

	sel := s.Select(nil, stored, nil, "query", testNow, 0)
	assert.True(t, sel.Empty())

	sel = s.Select(nil, stored, nil, "query", testNow, -5)
	assert.True(t, sel.Empty())
}

func TestSelectDeterministic(t *testing.T) {
	s := newTestSelector()
	stored := []model.Entity{
		storedEntity("revenue", 0.9, time.Hour),
		storedEntity("expenses", 0.9, time.Hour),
		storedEntity("loan", 0.85, 2*time.Hour),
	}

	first := s.Select(nil, stored, nil, "business health", testNow, 1000)
	second := s.Select(nil, stored, nil, "business health", testNow, 1000)

	assert.Equal(t, first, second)
}

func TestTokenizeAndJaccard(t *testing.T) {
	a := tokenize("Cash_flow improved; cash FLOW is king!")
	assert.Contains(t, a, "cash")
	assert.Contains(t, a, "flow")
	assert.NotContains(t, a, "cash_flow")

	b := tokenize("cash flow")
	assert.Equal(t, 1.0, jaccard(b, b))
	assert.Equal(t, 0.0, jaccard(b, tokenize("unrelated entirely")))
	assert.Equal(t, 0.0, jaccard(nil, b))
}
