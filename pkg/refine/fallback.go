package refine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/rules"
)

// ClausePattern maps a rule remedy tag to the design constraint appended to a prompt.
type ClausePattern struct {
	Name   string
	Remedy string
	Clause string
}

// Fallback rewrites prompts without a model by appending canned constraints.
type Fallback struct {
	clauses map[string]string
	generic map[rules.Aspect]string
}

// NewFallback creates a fallback with the built-in clause tables.
func NewFallback() (fallback *Fallback) {
	fallback = &Fallback{
		clauses: make(map[string]string),
		generic: buildGenericClauses(),
	}

	for _, pattern := range buildClausePatterns() {
		fallback.clauses[pattern.Remedy] = pattern.Clause
	}

	return fallback
}

// Clause returns the constraint for a remedy tag.
func (f *Fallback) Clause(remedy string) (clause string, ok bool) {
	clause, ok = f.clauses[strings.ToLower(strings.TrimSpace(remedy))]
	return clause, ok
}

// Apply appends one clause per distinct remedy, in recommendation order. When no
// recommendation carries a known remedy the aspect's generic clause is used.
// Clauses the prompt already contains are skipped.
func (f *Fallback) Apply(prompt string, aspect rules.Aspect, recs []recommend.Recommendation) (refined string, applied []string) {
	lowerBase := strings.ToLower(prompt)
	seen := make(map[string]bool)

	for _, rec := range recs {
		clause, ok := f.Clause(rec.Cause)
		if !ok || seen[clause] {
			continue
		}
		seen[clause] = true
		if strings.Contains(lowerBase, strings.ToLower(clause)) {
			continue
		}
		applied = append(applied, clause)
	}

	if len(applied) == 0 && len(seen) == 0 {
		generic, ok := f.generic[aspect]
		if !ok {
			generic = "designed for manufacturability and ease of use"
		}
		if !strings.Contains(lowerBase, strings.ToLower(generic)) {
			applied = append(applied, generic)
		}
	}

	refined = compose(prompt, applied)

	return refined, applied
}

// compose appends clauses to the prompt without altering it. The separator
// follows the prompt's trailing punctuation.
func compose(prompt string, clauses []string) (text string) {
	if len(clauses) == 0 {
		text = prompt
		return text
	}

	joined := strings.Join(clauses, ", ")
	if strings.TrimSpace(prompt) == "" {
		text = "A product " + joined
		return text
	}

	tail := strings.TrimRightFunc(prompt, unicode.IsSpace)
	space := " "
	if len(tail) < len(prompt) {
		space = ""
	}

	last, _ := utf8.DecodeLastRuneInString(tail)
	switch last {
	case '.', '!', '?':
		text = prompt + space + capitalize(joined) + "."
	case ';', ',', ':':
		text = prompt + space + joined
	default:
		if space == "" {
			text = prompt + joined
		} else {
			text = prompt + ", " + joined
		}
	}

	return text
}

func capitalize(s string) (out string) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		out = s
		return out
	}
	out = string(unicode.ToUpper(r)) + s[size:]
	return out
}

func buildGenericClauses() (generic map[rules.Aspect]string) {
	generic = map[rules.Aspect]string{
		rules.DFA:    "optimized for easy assembly",
		rules.DFM:    "designed for efficient manufacturing",
		rules.DFS:    "designed for easy maintenance and repair",
		rules.DFSust: "designed with sustainable, recyclable materials",
	}
	return generic
}

//nolint:funlen // Flat clause table
func buildClausePatterns() (patterns []ClausePattern) {
	patterns = []ClausePattern{
		// Assembly
		{Name: "Part count", Remedy: "consolidate-parts", Clause: "with minimal part count"},
		{Name: "Fasteners", Remedy: "standardize-fasteners", Clause: "using snap-fit or standard fasteners"},
		{Name: "Assembly direction", Remedy: "single-direction-assembly", Clause: "assembled from a single direction"},
		{Name: "Handling", Remedy: "ease-handling", Clause: "with parts that are easy to grip and orient"},
		{Name: "Symmetry", Remedy: "add-symmetry", Clause: "with symmetric parts"},
		{Name: "Standard components", Remedy: "standardize-components", Clause: "built from off-the-shelf standard components"},
		{Name: "Self-locating", Remedy: "self-locating-features", Clause: "with self-aligning locating features"},

		// Manufacturing
		{Name: "Materials", Remedy: "reduce-materials", Clause: "made from a single material family"},
		{Name: "Geometry", Remedy: "simplify-geometry", Clause: "with simple, manufacturable geometry"},
		{Name: "Tolerances", Remedy: "relax-tolerances", Clause: "with standard tolerances"},
		{Name: "Walls", Remedy: "uniform-walls", Clause: "with uniform wall thickness"},
		{Name: "Undercuts", Remedy: "remove-undercuts", Clause: "without undercuts"},
		{Name: "Draft", Remedy: "add-draft", Clause: "with draft angles on molded faces"},
		{Name: "Process", Remedy: "match-process", Clause: "suited to a standard production process"},

		// Service
		{Name: "Access", Remedy: "improve-access", Clause: "with easily accessible internal components"},
		{Name: "Modularity", Remedy: "modularize", Clause: "with a modular, replaceable-unit layout"},
		{Name: "Removable fasteners", Remedy: "removable-fasteners", Clause: "with tool-free removable fasteners"},
		{Name: "Diagnostics", Remedy: "diagnostic-access", Clause: "with exposed diagnostic points"},
		{Name: "Disassembly steps", Remedy: "shorten-disassembly", Clause: "that opens in a few simple steps"},
		{Name: "Consumables", Remedy: "replaceable-consumables", Clause: "with user-replaceable consumables"},

		// Sustainability
		{Name: "Recyclable", Remedy: "recyclable-materials", Clause: "made from recyclable materials"},
		{Name: "Hazardous", Remedy: "remove-hazardous", Clause: "free of hazardous substances"},
		{Name: "End of life", Remedy: "design-for-disassembly", Clause: "easy to disassemble at end of life"},
		{Name: "Efficiency", Remedy: "improve-efficiency", Clause: "with energy-efficient operation"},
		{Name: "Packaging", Remedy: "minimal-packaging", Clause: "shipped in minimal packaging"},
	}

	return patterns
}
