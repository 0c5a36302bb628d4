// Package assemble renders the selected knowledge, the profile summary, and
// the user's question into the final prompt for the generative text service.
package assemble

import (
	"fmt"
	"strings"

	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/tokens"
)

// maxInsightChars truncates the per-entity excerpt shown in the prompt.
const maxInsightChars = 120

// profileFallback is rendered when no profile facts are available. The
// prompt must never claim context it does not have.
const profileFallback = "- Profile incomplete: ask for key business details when useful."

// instructions is appended identically whether or not knowledge was found.
const instructions = `Respond as a practical advisor for a small business owner.
Keep the answer short, concrete, and in plain language.
Give at most three actionable suggestions and mention numbers only when they come from the context above.`

type Assembler struct {
	est tokens.Estimator
}

func NewAssembler(est tokens.Estimator) *Assembler {
	return &Assembler{est: est}
}

// Assemble builds the prompt. The knowledge block is omitted entirely when
// the selection is empty; the profile block and instruction block always
// render.
func (a *Assembler) Assemble(query string, sel model.Selection, facts *model.ProfileFacts) string {
	var b strings.Builder

	b.WriteString("Business profile:\n")
	b.WriteString(a.RenderProfile(facts))
	b.WriteString("\n")

	if !sel.Empty() {
		b.WriteString("\nWhat we already know about this business:\n")
		b.WriteString(a.RenderKnowledge(sel))
		b.WriteString("\n")
	}

	b.WriteString("\nOwner's question: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

// RenderProfile renders the known facts, omitting absent fields.
func (a *Assembler) RenderProfile(facts *model.ProfileFacts) string {
	if facts.Empty() {
		return profileFallback
	}
	var lines []string
	if facts.Industry != "" {
		lines = append(lines, "- Industry: "+facts.Industry)
	}
	if facts.MonthlyRevenue > 0 {
		lines = append(lines, fmt.Sprintf("- Monthly revenue: %.2f", facts.MonthlyRevenue))
	}
	if facts.MonthlyExpenses > 0 {
		lines = append(lines, fmt.Sprintf("- Monthly expenses: %.2f", facts.MonthlyExpenses))
	}
	if facts.Location != "" {
		lines = append(lines, "- Location: "+facts.Location)
	}
	return strings.Join(lines, "\n")
}

// RenderKnowledge renders the selected entities (tier 1 and 2 ahead of tier
// 3) and relationships, closing with summary counts. Dangling relationship
// endpoints render as-is.
func (a *Assembler) RenderKnowledge(sel model.Selection) string {
	var b strings.Builder
	b.WriteString("Key insights:\n")
	for _, e := range sel.Entities {
		if e.Tier <= 2 {
			b.WriteString(entityLine(e))
		}
	}
	for _, e := range sel.Entities {
		if e.Tier > 2 {
			b.WriteString(entityLine(e))
		}
	}
	if len(sel.Relationships) > 0 {
		b.WriteString("Connections:\n")
		for _, r := range sel.Relationships {
			fmt.Fprintf(&b, "- %s %s %s\n", r.FromEntity, r.Type, r.ToEntity)
		}
	}
	fmt.Fprintf(&b, "Knowledge summary: %d entities analyzed, %d relationships found.",
		len(sel.Entities), len(sel.Relationships))
	return b.String()
}

// BoilerplateCost estimates the tokens the fixed scaffolding adds on top of
// the knowledge budget: instruction block, profile block, and the query.
func (a *Assembler) BoilerplateCost(query string, facts *model.ProfileFacts) int {
	return a.est.EstimateText(instructions) +
		a.est.EstimateText(a.RenderProfile(facts)) +
		a.est.EstimateText(query)
}

func entityLine(e model.Entity) string {
	insight := e.Context
	if len(insight) > maxInsightChars {
		insight = insight[:maxInsightChars] + "..."
	}
	if insight == "" {
		return fmt.Sprintf("- %s (%s, confidence %.2f)\n", e.Name, e.Category, e.Confidence)
	}
	return fmt.Sprintf("- %s (%s, confidence %.2f): %s\n", e.Name, e.Category, e.Confidence, insight)
}
