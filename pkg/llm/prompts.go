package llm

import (
	"fmt"
	"strings"

	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/rules"
)

// DefaultTopK is how many recommendations are quoted to the model.
const DefaultTopK = 3

// RefinementRequest carries everything needed to ask for an improved design prompt.
type RefinementRequest struct {
	Prompt          string
	Aspect          rules.Aspect
	Category        string
	Score           float64
	Recommendations []recommend.Recommendation
}

const refinementSystemPrompt = `You are a product design engineer who rewrites design-generation prompts so the resulting design scores better on Design for Excellence (DfX) criteria.

Rules:
- Keep the subject and intent of the original prompt.
- Fold the listed improvements into the prompt as concrete design constraints.
- Do not invent dimensions, materials or requirements that were not implied.
- Reply with the rewritten prompt only: one paragraph, no preamble, no quotes, no markdown.`

// AspectFocus describes what an aspect rewards, for use in prompts.
func AspectFocus(aspect rules.Aspect) (focus string) {
	switch aspect {
	case rules.DFA:
		focus = "Design for Assembly: few parts, standard snap or press fits, single-direction assembly, self-aligning features"
	case rules.DFM:
		focus = "Design for Manufacturing: few materials, simple geometry, relaxed tolerances, uniform walls, no undercuts, adequate draft"
	case rules.DFS:
		focus = "Design for Serviceability: accessible components, modular sub-assemblies, removable fasteners, short disassembly sequences"
	case rules.DFSust:
		focus = "Design for Sustainability: recyclable and few materials, no hazardous substances, easy end-of-life disassembly, efficient energy use"
	default:
		focus = fmt.Sprintf("%s design quality", aspect)
	}
	return focus
}

// BuildRefinementPrompt returns the system and user messages for a refinement
// request. At most topK recommendations are quoted, highest priority first.
func BuildRefinementPrompt(req RefinementRequest, topK int) (system, user string) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	recs := req.Recommendations
	if len(recs) > topK {
		recs = recs[:topK]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ORIGINAL PROMPT:\n%s\n\n", strings.TrimSpace(req.Prompt))
	fmt.Fprintf(&sb, "FOCUS: %s\n", AspectFocus(req.Aspect))
	if req.Category != "" {
		fmt.Fprintf(&sb, "PRODUCT CATEGORY: %s\n", req.Category)
	}
	fmt.Fprintf(&sb, "CURRENT %s SCORE: %.2f\n", req.Aspect, req.Score)

	if len(recs) > 0 {
		sb.WriteString("\nIMPROVEMENTS TO APPLY:\n")
		for i, rec := range recs {
			fmt.Fprintf(&sb, "%d. [%s] %s: %s\n", i+1, rec.Priority, rec.DisplayName, rec.Suggestion)
		}
	}

	sb.WriteString("\nRewrite the original prompt so a design generated from it addresses these improvements.")

	system = refinementSystemPrompt
	user = sb.String()

	return system, user
}
