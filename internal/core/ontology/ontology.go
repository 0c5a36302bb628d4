// Package ontology holds the static table of known business concepts. The
// table drives extraction (what to look for, how much to trust it) and
// relationship inference (category pairs).
package ontology

import (
	"sort"
	"strings"

	"github.com/kontexthq/kontext/internal/core/model"
)

// Categories used across the ontology and the inference rule table.
const (
	CategoryLiquidity      = "liquidity"
	CategoryProfitability  = "profitability"
	CategoryIncome         = "income"
	CategoryCost           = "cost"
	CategoryWorkingCapital = "working_capital"
	CategoryFinancing      = "financing"
	CategoryOperations     = "operations"
	CategoryMarket         = "market"
	CategoryGrowth         = "growth"
	CategoryPerformance    = "performance"
	CategoryStakeholder    = "stakeholder"
)

// Concept is one row of the ontology: a normalized name, its classification,
// an importance tier (1 = critical) and a baseline weight used as extraction
// confidence.
type Concept struct {
	Name     string
	Type     string
	Category string
	Tier     int
	Weight   float64
}

// concepts is ordered informally by importance; Table() re-sorts it
// longest-phrase-first so substring concepts never double-count inside a
// longer match ("profit" inside "profit margin").
var concepts = []Concept{
	// Tier 1: core financial health.
	{Name: "cash_flow", Type: model.TypeMetric, Category: CategoryLiquidity, Tier: 1, Weight: 0.95},
	{Name: "revenue", Type: model.TypeMetric, Category: CategoryIncome, Tier: 1, Weight: 0.95},
	{Name: "profit", Type: model.TypeMetric, Category: CategoryProfitability, Tier: 1, Weight: 0.9},
	{Name: "profit_margin", Type: model.TypeMetric, Category: CategoryProfitability, Tier: 1, Weight: 0.95},
	{Name: "expenses", Type: model.TypeMetric, Category: CategoryCost, Tier: 1, Weight: 0.9},
	{Name: "loss", Type: model.TypeMetric, Category: CategoryProfitability, Tier: 1, Weight: 0.9},
	{Name: "debt", Type: model.TypeLiability, Category: CategoryFinancing, Tier: 1, Weight: 0.9},
	{Name: "working_capital", Type: model.TypeMetric, Category: CategoryWorkingCapital, Tier: 1, Weight: 0.9},

	// Tier 2: levers and obligations.
	{Name: "sales", Type: model.TypeMetric, Category: CategoryIncome, Tier: 2, Weight: 0.85},
	{Name: "inventory", Type: model.TypeAsset, Category: CategoryWorkingCapital, Tier: 2, Weight: 0.8},
	{Name: "loan", Type: model.TypeLiability, Category: CategoryFinancing, Tier: 2, Weight: 0.85},
	{Name: "credit", Type: model.TypeLiability, Category: CategoryFinancing, Tier: 2, Weight: 0.8},
	{Name: "interest", Type: model.TypeMetric, Category: CategoryFinancing, Tier: 2, Weight: 0.75},
	{Name: "suppliers", Type: model.TypeStakeholder, Category: CategoryOperations, Tier: 2, Weight: 0.8},
	{Name: "customers", Type: model.TypeStakeholder, Category: CategoryMarket, Tier: 2, Weight: 0.85},
	{Name: "payroll", Type: model.TypeMetric, Category: CategoryCost, Tier: 2, Weight: 0.8},
	{Name: "rent", Type: model.TypeMetric, Category: CategoryCost, Tier: 2, Weight: 0.8},
	{Name: "taxes", Type: model.TypeLiability, Category: CategoryCost, Tier: 2, Weight: 0.8},
	{Name: "receivables", Type: model.TypeAsset, Category: CategoryLiquidity, Tier: 2, Weight: 0.75},
	{Name: "payables", Type: model.TypeLiability, Category: CategoryLiquidity, Tier: 2, Weight: 0.75},
	{Name: "margin", Type: model.TypeMetric, Category: CategoryProfitability, Tier: 2, Weight: 0.8},
	{Name: "savings", Type: model.TypeAsset, Category: CategoryLiquidity, Tier: 2, Weight: 0.75},

	// Tier 3: supporting context.
	{Name: "marketing", Type: model.TypeAction, Category: CategoryGrowth, Tier: 3, Weight: 0.7},
	{Name: "advertising", Type: model.TypeAction, Category: CategoryGrowth, Tier: 3, Weight: 0.65},
	{Name: "competition", Type: model.TypeExternal, Category: CategoryMarket, Tier: 3, Weight: 0.7},
	{Name: "pricing", Type: model.TypeAction, Category: CategoryIncome, Tier: 3, Weight: 0.7},
	{Name: "discount", Type: model.TypeAction, Category: CategoryIncome, Tier: 3, Weight: 0.65},
	{Name: "investment", Type: model.TypeAction, Category: CategoryGrowth, Tier: 3, Weight: 0.7},
	{Name: "expansion", Type: model.TypeAction, Category: CategoryGrowth, Tier: 3, Weight: 0.7},
	{Name: "budget", Type: model.TypeMetric, Category: CategoryPerformance, Tier: 3, Weight: 0.65},
	{Name: "staff", Type: model.TypeStakeholder, Category: CategoryOperations, Tier: 3, Weight: 0.65},
	{Name: "seasonality", Type: model.TypePattern, Category: CategoryMarket, Tier: 3, Weight: 0.6},
}

var ordered []Concept

func init() {
	ordered = make([]Concept, len(concepts))
	copy(ordered, concepts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Phrase()) > len(ordered[j].Phrase())
	})
}

// Phrase is the human-readable form matched against text: underscores become
// spaces ("cash_flow" matches "cash flow").
func (c Concept) Phrase() string {
	return strings.ReplaceAll(c.Name, "_", " ")
}

// Table returns the ontology ordered longest-phrase-first. The slice is
// shared; callers must not mutate it.
func Table() []Concept {
	return ordered
}

// Lookup returns the concept with the given normalized name.
func Lookup(name string) (Concept, bool) {
	for _, c := range ordered {
		if c.Name == name {
			return c, true
		}
	}
	return Concept{}, false
}
