// Package rules holds the DfX rule registry: per-aspect tables of weighted,
// scored criteria that the scoring engine evaluates metrics against.
package rules

import (
	"strings"

	"github.com/pkg/errors"
)

// Aspect selects which rule set applies to an evaluation.
type Aspect string

// Built-in aspects.
const (
	DFA    Aspect = "DFA"    // Design for Assembly
	DFM    Aspect = "DFM"    // Design for Manufacturing
	DFS    Aspect = "DFS"    // Design for Service
	DFSust Aspect = "DFSust" // Design for Sustainability
)

var (
	// ErrUnknownAspect is returned when no rule set is registered for an aspect.
	ErrUnknownAspect = errors.New("unknown aspect")
	// ErrInvalidRule is returned when a rule definition is malformed.
	ErrInvalidRule = errors.New("invalid rule")
)

// ParseAspect maps a name onto one of the built-in aspects, ignoring case.
// Use Registry.Resolve for aspects loaded from rule files.
func ParseAspect(name string) (aspect Aspect, err error) {
	trimmed := strings.TrimSpace(name)
	for _, candidate := range []Aspect{DFA, DFM, DFS, DFSust} {
		if strings.EqualFold(string(candidate), trimmed) {
			aspect = candidate
			return aspect, err
		}
	}

	err = errors.Wrapf(ErrUnknownAspect, "%q", name)
	return aspect, err
}

// Metrics maps a rule key to the raw value reported by the image analyzer.
// Values are numbers, booleans or categorical labels.
type Metrics map[string]interface{}

// Rule is a single scored criterion within an aspect.
type Rule struct {
	Key         string      `yaml:"key" json:"key"`
	DisplayName string      `yaml:"displayName" json:"display_name"`
	Unit        string      `yaml:"unit,omitempty" json:"unit,omitempty"`
	Weight      float64     `yaml:"weight" json:"weight"`
	Score       ScoringFunc `yaml:"score" json:"score"`
	Remedy      string      `yaml:"remedy,omitempty" json:"remedy,omitempty"`   // structured cause tag used by prompt refinement
	Advice      string      `yaml:"advice,omitempty" json:"advice,omitempty"`   // suggestion template, %v is the current value
	Optimum     interface{} `yaml:"optimum,omitempty" json:"optimum,omitempty"` // documented best-case value
}

// Clone returns a copy of the rule whose scoring function shares no memory with r.
func (r Rule) Clone() (clone Rule) {
	clone = r
	clone.Score = r.Score.Clone()
	return clone
}

// Validate checks that the rule is usable by the engine.
func (r Rule) Validate() (err error) {
	if strings.TrimSpace(r.Key) == "" {
		err = errors.Wrap(ErrInvalidRule, "rule key is required")
		return err
	}

	if r.Weight <= 0 {
		err = errors.Wrapf(ErrInvalidRule, "rule %s: weight must be positive, got %v", r.Key, r.Weight)
		return err
	}

	err = r.Score.Validate()
	if err != nil {
		err = errors.Wrapf(err, "rule %s", r.Key)
		return err
	}

	return err
}

// Label returns the display name, falling back to the key.
func (r Rule) Label() (label string) {
	label = r.DisplayName
	if label == "" {
		label = r.Key
	}
	return label
}

// RuleSet is the ordered list of rules for one aspect.
type RuleSet struct {
	Aspect Aspect `yaml:"aspect" json:"aspect"`
	Rules  []Rule `yaml:"rules" json:"rules"`
}

// Clone returns a deep copy of the rule set.
func (s RuleSet) Clone() (clone RuleSet) {
	clone = RuleSet{Aspect: s.Aspect, Rules: make([]Rule, 0, len(s.Rules))}
	for _, rule := range s.Rules {
		clone.Rules = append(clone.Rules, rule.Clone())
	}
	return clone
}

// Validate checks the rule set for duplicate keys and malformed rules.
func (s RuleSet) Validate() (err error) {
	if s.Aspect == "" {
		err = errors.Wrap(ErrInvalidRule, "rule set aspect is required")
		return err
	}

	if len(s.Rules) == 0 {
		err = errors.Wrapf(ErrInvalidRule, "aspect %s has no rules", s.Aspect)
		return err
	}

	seen := make(map[string]bool, len(s.Rules))
	for _, rule := range s.Rules {
		if seen[rule.Key] {
			err = errors.Wrapf(ErrInvalidRule, "aspect %s: duplicate rule key %s", s.Aspect, rule.Key)
			return err
		}
		seen[rule.Key] = true

		err = rule.Validate()
		if err != nil {
			err = errors.Wrapf(err, "aspect %s", s.Aspect)
			return err
		}
	}

	return err
}

// Get returns the rule with the given key.
func (s RuleSet) Get(key string) (rule Rule, ok bool) {
	for _, r := range s.Rules {
		if r.Key == key {
			rule = r
			ok = true
			return rule, ok
		}
	}
	return rule, ok
}

// Keys returns rule keys in declaration order.
func (s RuleSet) Keys() (keys []string) {
	keys = make([]string, 0, len(s.Rules))
	for _, r := range s.Rules {
		keys = append(keys, r.Key)
	}
	return keys
}

// TotalWeight sums the weights of all rules.
func (s RuleSet) TotalWeight() (total float64) {
	for _, r := range s.Rules {
		total += r.Weight
	}
	return total
}

// Optimal returns a metrics record with every rule at its documented optimum.
// Rules without an optimum are omitted.
func (s RuleSet) Optimal() (metrics Metrics) {
	metrics = make(Metrics, len(s.Rules))
	for _, r := range s.Rules {
		if r.Optimum != nil {
			metrics[r.Key] = r.Optimum
		}
	}
	return metrics
}
