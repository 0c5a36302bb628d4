// Package tokens prices text against the prompt budget. The estimator is a
// deterministic heuristic, not a tokenizer: it must stay monotonic in text
// length so budget-constrained selection behaves predictably. It sits behind
// an interface so a real tokenizer can replace it without touching ranking.
package tokens

import (
	"math"
	"strings"

	"github.com/kontexthq/kontext/internal/core/model"
)

// DefaultWordsPerToken is the fixed ratio used by the heuristic estimator.
const DefaultWordsPerToken = 0.75

// Word overheads charged per rendered item to account for formatting
// (bullets, labels, separators).
const (
	entityOverheadWords       = 5
	relationshipOverheadWords = 4
)

type Estimator interface {
	EstimateText(text string) int
	EntityCost(e model.Entity) int
	RelationshipCost(r model.Relationship) int
}

// HeuristicEstimator estimates ceil(words / WordsPerToken).
type HeuristicEstimator struct {
	WordsPerToken float64
}

func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{WordsPerToken: DefaultWordsPerToken}
}

func (h *HeuristicEstimator) ratio() float64 {
	if h.WordsPerToken <= 0 {
		return DefaultWordsPerToken
	}
	return h.WordsPerToken
}

func (h *HeuristicEstimator) EstimateText(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / h.ratio()))
}

func (h *HeuristicEstimator) EntityCost(e model.Entity) int {
	return h.EstimateText(e.Name+" "+e.Context) + h.overhead(entityOverheadWords)
}

func (h *HeuristicEstimator) RelationshipCost(r model.Relationship) int {
	return h.EstimateText(r.FromEntity+" "+r.Type+" "+r.ToEntity) + h.overhead(relationshipOverheadWords)
}

func (h *HeuristicEstimator) overhead(words int) int {
	return int(math.Ceil(float64(words) / h.ratio()))
}
