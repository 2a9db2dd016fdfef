package rules

// Tables are built fresh by each call so no package-level state can be mutated.

//nolint:gochecknoglobals // Read-only label tables, copied into each rule
var easeLabels = map[string]float64{"easy": 1.0, "medium": 0.6, "hard": 0.2}

//nolint:gochecknoglobals // Read-only label tables, copied into each rule
var easeAliases = map[string]string{
	"facile":    "easy",
	"moyen":     "medium",
	"moyenne":   "medium",
	"difficile": "hard",
	"simple":    "easy",
	"difficult": "hard",
}

//nolint:gochecknoglobals // Read-only label tables, copied into each rule
var levelLabels = map[string]float64{"high": 1.0, "medium": 0.6, "low": 0.2}

//nolint:gochecknoglobals // Read-only label tables, copied into each rule
var levelAliases = map[string]string{
	"haute":   "high",
	"elevee":  "high",
	"moyenne": "medium",
	"moyen":   "medium",
	"faible":  "low",
	"basse":   "low",
}

func copyLabels(src map[string]float64) (dst map[string]float64) {
	dst = make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyAliases(src map[string]string) (dst map[string]string) {
	dst = make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func assemblyRules() (set RuleSet) {
	set = RuleSet{
		Aspect: DFA,
		Rules: []Rule{
			{
				Key:         "partCount",
				DisplayName: "Part count",
				Unit:        "parts",
				Weight:      0.25,
				Score:       StepBands(0.1, 3, 1.0, 6, 0.7, 10, 0.4),
				Remedy:      "consolidate-parts",
				Advice:      "Reduce the part count (currently %v) by merging parts that do not move relative to each other.",
				Optimum:     2,
			},
			{
				Key:         "fastenerType",
				DisplayName: "Fastener type",
				Weight:      0.15,
				Score: Labels(
					map[string]float64{"none": 1.0, "snap-fit": 1.0, "standard": 0.8, "mixed": 0.5, "special": 0.2},
					map[string]string{"snap": "snap-fit", "clip": "snap-fit", "aucun": "none", "standardise": "standard", "mixte": "mixed", "specifique": "special"},
				),
				Remedy:  "standardize-fasteners",
				Advice:  "Replace the current fasteners (%v) with snap-fits or a single standard fastener type.",
				Optimum: "snap-fit",
			},
			{
				Key:         "assemblyDirections",
				DisplayName: "Assembly directions",
				Unit:        "axes",
				Weight:      0.15,
				Score:       StepBands(0.1, 1, 1.0, 2, 0.7, 3, 0.4),
				Remedy:      "single-direction-assembly",
				Advice:      "Rework the layout so parts go together along one axis instead of %v.",
				Optimum:     1,
			},
			{
				Key:         "handlingDifficulty",
				DisplayName: "Handling difficulty",
				Weight:      0.15,
				Score:       Labels(copyLabels(easeLabels), copyAliases(easeAliases)),
				Remedy:      "ease-handling",
				Advice:      "Make parts easier to grasp and orient (handling is rated %v); avoid tangling, fragile or very small parts.",
				Optimum:     "easy",
			},
			{
				Key:         "symmetry",
				DisplayName: "Part symmetry",
				Weight:      0.10,
				Score:       Flag(1.0, 0.4),
				Remedy:      "add-symmetry",
				Advice:      "Make parts symmetric, or clearly asymmetric, so they cannot be inserted the wrong way.",
				Optimum:     true,
			},
			{
				Key:         "standardComponentRatio",
				DisplayName: "Standard component ratio",
				Unit:        "ratio",
				Weight:      0.10,
				Score:       Ramp(0, 1, false),
				Remedy:      "standardize-components",
				Advice:      "Raise the share of off-the-shelf components (currently %v).",
				Optimum:     1.0,
			},
			{
				Key:         "selfAligning",
				DisplayName: "Self-aligning features",
				Weight:      0.10,
				Score:       Flag(1.0, 0.3),
				Remedy:      "self-locating-features",
				Advice:      "Add chamfers, guides or locating pins so parts align themselves during assembly.",
				Optimum:     true,
			},
		},
	}
	return set
}

func manufacturingRules() (set RuleSet) {
	set = RuleSet{
		Aspect: DFM,
		Rules: []Rule{
			{
				Key:         "materialCount",
				DisplayName: "Material count",
				Unit:        "materials",
				Weight:      0.15,
				Score:       StepBands(0.2, 1, 1.0, 2, 0.8, 3, 0.5),
				Remedy:      "reduce-materials",
				Advice:      "Cut the number of distinct materials (currently %v) to simplify sourcing and processing.",
				Optimum:     1,
			},
			{
				Key:         "geometryComplexity",
				DisplayName: "Geometry complexity",
				Weight:      0.20,
				Score: Labels(
					map[string]float64{"simple": 1.0, "moderate": 0.6, "complex": 0.2},
					map[string]string{"moyen": "moderate", "moyenne": "moderate", "medium": "moderate", "complexe": "complex", "facile": "simple", "difficile": "complex"},
				),
				Remedy:  "simplify-geometry",
				Advice:  "Simplify the geometry (rated %v): remove decorative features and prefer straight runs and constant radii.",
				Optimum: "simple",
			},
			{
				Key:         "toleranceLevel",
				DisplayName: "Tolerance level",
				Weight:      0.15,
				Score: Labels(
					map[string]float64{"standard": 1.0, "tight": 0.6, "very-tight": 0.2},
					map[string]string{"serree": "tight", "tres-serree": "very-tight", "precise": "tight", "loose": "standard"},
				),
				Remedy:  "relax-tolerances",
				Advice:  "Relax tolerances (currently %v) to standard process capability wherever function allows.",
				Optimum: "standard",
			},
			{
				Key:         "wallThicknessUniformity",
				DisplayName: "Wall thickness uniformity",
				Unit:        "ratio",
				Weight:      0.15,
				Score:       Ramp(0, 1, false),
				Remedy:      "uniform-walls",
				Advice:      "Even out wall thickness (uniformity %v) to avoid sink marks and warping.",
				Optimum:     1.0,
			},
			{
				Key:         "undercutCount",
				DisplayName: "Undercuts",
				Unit:        "features",
				Weight:      0.15,
				Score:       StepBands(0.2, 0, 1.0, 2, 0.6),
				Remedy:      "remove-undercuts",
				Advice:      "Remove undercuts (currently %v) or turn them into features that release along the draw direction.",
				Optimum:     0,
			},
			{
				Key:         "draftAngles",
				DisplayName: "Draft angles",
				Weight:      0.10,
				Score:       Flag(1.0, 0.3),
				Remedy:      "add-draft",
				Advice:      "Add draft angles on faces parallel to the draw direction.",
				Optimum:     true,
			},
			{
				Key:         "processCompatibility",
				DisplayName: "Process compatibility",
				Weight:      0.10,
				Score:       Labels(copyLabels(levelLabels), copyAliases(levelAliases)),
				Remedy:      "match-process",
				Advice:      "Adapt the design to a standard process; compatibility is currently %v.",
				Optimum:     "high",
			},
		},
	}
	return set
}

func serviceRules() (set RuleSet) {
	set = RuleSet{
		Aspect: DFS,
		Rules: []Rule{
			{
				Key:         "accessibility",
				DisplayName: "Component accessibility",
				Weight:      0.25,
				Score:       Labels(copyLabels(easeLabels), copyAliases(easeAliases)),
				Remedy:      "improve-access",
				Advice:      "Improve access to serviceable components (access is rated %v) with removable panels.",
				Optimum:     "easy",
			},
			{
				Key:         "modularity",
				DisplayName: "Modularity",
				Unit:        "ratio",
				Weight:      0.20,
				Score:       Ramp(0, 1, false),
				Remedy:      "modularize",
				Advice:      "Group functions into replaceable modules (modularity %v).",
				Optimum:     1.0,
			},
			{
				Key:         "fastenerRemovability",
				DisplayName: "Fastener removability",
				Weight:      0.15,
				Score: Labels(
					map[string]float64{"tool-free": 1.0, "standard-tool": 0.7, "special-tool": 0.2},
					map[string]string{"sans-outil": "tool-free", "toolless": "tool-free", "outil-standard": "standard-tool", "outil-special": "special-tool", "glued": "special-tool", "colle": "special-tool"},
				),
				Remedy:  "removable-fasteners",
				Advice:  "Use fasteners that come off without special tools (currently %v).",
				Optimum: "tool-free",
			},
			{
				Key:         "diagnosticAccess",
				DisplayName: "Diagnostic access",
				Weight:      0.15,
				Score:       Flag(1.0, 0.3),
				Remedy:      "diagnostic-access",
				Advice:      "Expose test points or indicators so faults can be diagnosed without disassembly.",
				Optimum:     true,
			},
			{
				Key:         "disassemblySteps",
				DisplayName: "Disassembly steps",
				Unit:        "steps",
				Weight:      0.15,
				Score:       StepBands(0.1, 3, 1.0, 6, 0.7, 10, 0.4),
				Remedy:      "shorten-disassembly",
				Advice:      "Shorten the disassembly sequence (currently %v) needed to reach wear parts.",
				Optimum:     2,
			},
			{
				Key:         "consumableReplacement",
				DisplayName: "Consumable replacement",
				Weight:      0.10,
				Score:       Flag(1.0, 0.3),
				Remedy:      "replaceable-consumables",
				Advice:      "Make consumables and wear parts user-replaceable.",
				Optimum:     true,
			},
		},
	}
	return set
}

func sustainabilityRules() (set RuleSet) {
	set = RuleSet{
		Aspect: DFSust,
		Rules: []Rule{
			{
				Key:         "recyclableMaterialRatio",
				DisplayName: "Recyclable material ratio",
				Unit:        "ratio",
				Weight:      0.25,
				Score:       Ramp(0, 1, false),
				Remedy:      "recyclable-materials",
				Advice:      "Increase the share of recyclable materials (currently %v).",
				Optimum:     1.0,
			},
			{
				Key:         "hazardousSubstances",
				DisplayName: "Hazardous substances",
				Weight:      0.20,
				Score:       Flag(0.0, 1.0),
				Remedy:      "remove-hazardous",
				Advice:      "Eliminate hazardous substances such as lead, PVC or brominated flame retardants.",
				Optimum:     false,
			},
			{
				Key:         "materialDiversity",
				DisplayName: "Material diversity",
				Unit:        "materials",
				Weight:      0.15,
				Score:       StepBands(0.2, 1, 1.0, 2, 0.8, 3, 0.5),
				Remedy:      "reduce-materials",
				Advice:      "Reduce the number of material families (currently %v) to ease recycling.",
				Optimum:     1,
			},
			{
				Key:         "disassemblyEase",
				DisplayName: "Ease of disassembly",
				Weight:      0.15,
				Score:       Labels(copyLabels(easeLabels), copyAliases(easeAliases)),
				Remedy:      "design-for-disassembly",
				Advice:      "Make end-of-life disassembly easier (currently %v): avoid adhesives and over-moulding.",
				Optimum:     "easy",
			},
			{
				Key:         "energyEfficiency",
				DisplayName: "Energy efficiency",
				Weight:      0.15,
				Score:       Labels(copyLabels(levelLabels), copyAliases(levelAliases)),
				Remedy:      "improve-efficiency",
				Advice:      "Improve energy efficiency in use (currently %v).",
				Optimum:     "high",
			},
			{
				Key:         "minimalPackaging",
				DisplayName: "Minimal packaging",
				Weight:      0.10,
				Score:       Flag(1.0, 0.4),
				Remedy:      "minimal-packaging",
				Advice:      "Reduce packaging and use mono-material, recyclable packaging.",
				Optimum:     true,
			},
		},
	}
	return set
}

// BuiltinRuleSets returns the four built-in rule sets in canonical order.
func BuiltinRuleSets() (sets []RuleSet) {
	sets = []RuleSet{
		assemblyRules(),
		manufacturingRules(),
		serviceRules(),
		sustainabilityRules(),
	}
	return sets
}
