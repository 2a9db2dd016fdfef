package rules

import (
	"strings"

	"github.com/pkg/errors"
)

// Registry is an immutable set of rule sets keyed by aspect. It is built once
// at startup and is safe for concurrent readers.
type Registry struct {
	sets  map[Aspect]RuleSet
	order []Aspect
}

// NewRegistry validates and indexes the given rule sets. A later set for the
// same aspect replaces an earlier one.
func NewRegistry(sets ...RuleSet) (registry *Registry, err error) {
	registry = &Registry{
		sets:  make(map[Aspect]RuleSet, len(sets)),
		order: make([]Aspect, 0, len(sets)),
	}

	for _, set := range sets {
		err = set.Validate()
		if err != nil {
			registry = nil
			return registry, err
		}

		if _, exists := registry.sets[set.Aspect]; !exists {
			registry.order = append(registry.order, set.Aspect)
		}

		registry.sets[set.Aspect] = set.Clone()
	}

	return registry, err
}

// DefaultRegistry returns a registry holding the built-in DFA, DFM, DFS and DFSust tables.
func DefaultRegistry() (registry *Registry) {
	registry, err := NewRegistry(BuiltinRuleSets()...)
	if err != nil {
		// The built-in tables are covered by tests; failing here is a programming error.
		panic(errors.Wrap(err, "built-in rule tables are invalid"))
	}
	return registry
}

// With returns a new registry with the given sets added or replaced.
func (r *Registry) With(sets ...RuleSet) (registry *Registry, err error) {
	all := make([]RuleSet, 0, len(r.order)+len(sets))
	for _, aspect := range r.order {
		all = append(all, r.sets[aspect])
	}
	all = append(all, sets...)

	registry, err = NewRegistry(all...)
	return registry, err
}

// RuleSet returns the rule set for an aspect.
func (r *Registry) RuleSet(aspect Aspect) (set RuleSet, err error) {
	stored, ok := r.sets[aspect]
	if !ok {
		err = errors.Wrapf(ErrUnknownAspect, "%q", string(aspect))
		return set, err
	}

	set = stored.Clone()

	return set, err
}

// Resolve maps a user-supplied aspect name onto a registered aspect, ignoring case.
func (r *Registry) Resolve(name string) (aspect Aspect, err error) {
	trimmed := strings.TrimSpace(name)
	for _, candidate := range r.order {
		if strings.EqualFold(string(candidate), trimmed) {
			aspect = candidate
			return aspect, err
		}
	}

	err = errors.Wrapf(ErrUnknownAspect, "%q (known: %s)", name, strings.Join(r.names(), ", "))
	return aspect, err
}

// Aspects lists registered aspects in registration order.
func (r *Registry) Aspects() (aspects []Aspect) {
	aspects = make([]Aspect, len(r.order))
	copy(aspects, r.order)
	return aspects
}

func (r *Registry) names() (names []string) {
	names = make([]string, 0, len(r.order))
	for _, aspect := range r.order {
		names = append(names, string(aspect))
	}
	return names
}
