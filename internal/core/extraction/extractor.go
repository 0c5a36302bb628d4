// Package extraction turns free-form business conversation text into ranked
// entity candidates. Extraction is deterministic: ontology phrase matching,
// a currency pattern, profile facts, and standalone numerics. No call leaves
// the process.
package extraction

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/ontology"
)

const (
	// DefaultMaxEntities caps one extraction pass.
	DefaultMaxEntities = 15
	// DefaultMaxNumerics caps standalone numeric literals per pass.
	DefaultMaxNumerics = 3
	// DefaultContextChars bounds the excerpt stored with each entity.
	DefaultContextChars = 160

	currencyConfidence = 0.9
	numericConfidence  = 0.6
)

var (
	currencyPattern = regexp.MustCompile(`(?i)(?:[$€£₹]|\b(?:rs\.?|inr|usd|eur|gbp)\b)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	numericPattern  = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?%?`)
)

type Extractor struct {
	MaxEntities  int
	MaxNumerics  int
	ContextChars int

	// Now is the clock; injectable so extraction is reproducible in tests.
	Now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{
		MaxEntities:  DefaultMaxEntities,
		MaxNumerics:  DefaultMaxNumerics,
		ContextChars: DefaultContextChars,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Extract scans text (plus optional profile facts) and returns a deduplicated
// list of entity candidates sorted by (tier asc, confidence desc), capped at
// MaxEntities. Malformed or empty input yields an empty list, never an error.
func (x *Extractor) Extract(text string, facts *model.ProfileFacts) []model.Entity {
	now := x.Now()
	var out []model.Entity

	lower := strings.ToLower(text)
	consumed := make([]span, 0, 8)

	// Pass 1: ontology concepts, longest phrase first so "profit" never
	// fires again inside an already-matched "profit margin".
	for _, c := range ontology.Table() {
		idx := strings.Index(lower, c.Phrase())
		if idx < 0 {
			continue
		}
		s := span{start: idx, end: idx + len(c.Phrase())}
		if s.overlapsAny(consumed) {
			continue
		}
		consumed = append(consumed, s)
		out = append(out, model.Entity{
			Name:             c.Name,
			Type:             c.Type,
			Category:         c.Category,
			Context:          x.window(text, s),
			Confidence:       c.Weight,
			Tier:             c.Tier,
			ExtractionMethod: model.MethodOntology,
			CreatedAt:        now,
			LastAccessed:     now,
		})
	}

	// Pass 2: currency mentions. The numeric literal is marked consumed so
	// the numeric pass does not count it again.
	numericConsumed := make([]span, 0, 4)
	for _, m := range currencyPattern.FindAllStringSubmatchIndex(text, -1) {
		s := span{start: m[0], end: m[1]}
		literal := span{start: m[2], end: m[3]}
		numericConsumed = append(numericConsumed, literal)
		value := strings.ReplaceAll(text[literal.start:literal.end], ",", "")
		out = append(out, model.Entity{
			Name:             "amount_" + value,
			Type:             model.TypeAmount,
			Category:         ontology.CategoryPerformance,
			Context:          x.window(text, s),
			Confidence:       currencyConfidence,
			Tier:             1,
			ExtractionMethod: model.MethodCurrency,
			CreatedAt:        now,
			LastAccessed:     now,
		})
	}

	// Pass 3: profile facts are trusted outright.
	out = append(out, x.profileEntities(facts, now)...)

	// Pass 4: up to MaxNumerics standalone numeric literals.
	count := 0
	for _, m := range numericPattern.FindAllStringIndex(text, -1) {
		if count >= x.MaxNumerics {
			break
		}
		s := span{start: m[0], end: m[1]}
		if s.overlapsAny(numericConsumed) {
			continue
		}
		value := strings.ReplaceAll(strings.TrimSuffix(text[s.start:s.end], "%"), ",", "")
		out = append(out, model.Entity{
			Name:             "metric_" + value,
			Type:             model.TypeNumericMetric,
			Category:         ontology.CategoryPerformance,
			Context:          x.window(text, s),
			Confidence:       numericConfidence,
			Tier:             3,
			ExtractionMethod: model.MethodNumeric,
			CreatedAt:        now,
			LastAccessed:     now,
		})
		count++
	}

	out = dedupeByName(out)
	for i := range out {
		out[i].Clamp()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > x.MaxEntities {
		out = out[:x.MaxEntities]
	}
	return out
}

func (x *Extractor) profileEntities(facts *model.ProfileFacts, now time.Time) []model.Entity {
	if facts.Empty() {
		return nil
	}
	var out []model.Entity
	if facts.Industry != "" {
		out = append(out, model.Entity{
			Name:             strings.ToLower(strings.TrimSpace(facts.Industry)),
			Type:             model.TypeBusinessContext,
			Category:         "business_context",
			Context:          "industry: " + facts.Industry,
			Confidence:       1.0,
			Tier:             1,
			ExtractionMethod: model.MethodProfile,
			CreatedAt:        now,
			LastAccessed:     now,
		})
	}
	if facts.Location != "" {
		out = append(out, model.Entity{
			Name:             strings.ToLower(strings.TrimSpace(facts.Location)),
			Type:             model.TypeBusinessContext,
			Category:         "business_context",
			Context:          "location: " + facts.Location,
			Confidence:       1.0,
			Tier:             1,
			ExtractionMethod: model.MethodProfile,
			CreatedAt:        now,
			LastAccessed:     now,
		})
	}
	return out
}

// window returns a bounded excerpt of text centered on the match, trimmed to
// whole words.
func (x *Extractor) window(text string, s span) string {
	half := x.ContextChars / 2
	start := s.start - half
	if start < 0 {
		start = 0
	}
	end := s.end + half
	if end > len(text) {
		end = len(text)
	}
	// Avoid splitting multi-byte runes at the cut points.
	for start > 0 && !isBoundary(text[start]) {
		start++
		if start >= s.start {
			start = s.start
			break
		}
	}
	for end < len(text) && !isBoundary(text[end]) {
		end--
		if end <= s.end {
			end = s.end
			break
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(text[start:end]), " "))
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

func dedupeByName(entities []model.Entity) []model.Entity {
	seen := make(map[string]bool, len(entities))
	out := entities[:0]
	for _, e := range entities {
		if e.Name == "" || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

func (s span) overlapsAny(spans []span) bool {
	for _, o := range spans {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}
