package metrics

import (
	"sort"

	"github.com/nikogura/dfx-scorer/pkg/rules"
)

// Record is one analyzed design as produced by the image analyzer. Files may
// hold either this envelope or a bare key/value map of metrics.
type Record struct {
	Source   string        `json:"source,omitempty" yaml:"source,omitempty"`
	Design   string        `json:"design,omitempty" yaml:"design,omitempty"`
	Category string        `json:"category,omitempty" yaml:"category,omitempty"`
	Prompt   string        `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Metrics  rules.Metrics `json:"metrics" yaml:"metrics"`
}

// Coverage compares a record's keys against a rule set.
type Coverage struct {
	Unknown []string `json:"unknown,omitempty"` // keys no rule reads; ignored by scoring
	Missing []string `json:"missing,omitempty"` // rule keys absent from the record; scored 0
}

// Check reports unknown and missing keys. Neither is an error.
func Check(m rules.Metrics, set rules.RuleSet) (cov Coverage) {
	for key := range m {
		if _, ok := set.Get(key); !ok {
			cov.Unknown = append(cov.Unknown, key)
		}
	}
	sort.Strings(cov.Unknown)

	for _, key := range set.Keys() {
		if _, ok := m[key]; !ok {
			cov.Missing = append(cov.Missing, key)
		}
	}

	return cov
}

// Clean reports whether every rule key is present and no extra keys exist.
func (c Coverage) Clean() (clean bool) {
	clean = len(c.Unknown) == 0 && len(c.Missing) == 0
	return clean
}
