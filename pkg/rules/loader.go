package rules

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a rule file.
type File struct {
	RuleSets []RuleSet `yaml:"ruleSets"`
}

// Parse decodes rule sets from YAML and validates them.
func Parse(data []byte) (sets []RuleSet, err error) {
	var file File
	err = yaml.Unmarshal(data, &file)
	if err != nil {
		err = errors.Wrap(err, "failed to parse rule file")
		return sets, err
	}

	if len(file.RuleSets) == 0 {
		err = errors.Wrap(ErrInvalidRule, "rule file defines no rule sets")
		return sets, err
	}

	for _, set := range file.RuleSets {
		err = set.Validate()
		if err != nil {
			return sets, err
		}
	}

	sets = file.RuleSets
	return sets, err
}

// LoadFile reads rule sets from a YAML file.
func LoadFile(path string) (sets []RuleSet, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read rule file: %s", path)
		return sets, err
	}

	sets, err = Parse(data)
	if err != nil {
		err = errors.Wrapf(err, "rule file %s", path)
		return sets, err
	}

	return sets, err
}

// LoadRegistry returns the default registry extended with the rule sets in path.
// An empty path yields the default registry.
func LoadRegistry(path string) (registry *Registry, err error) {
	registry = DefaultRegistry()
	if path == "" {
		return registry, err
	}

	var sets []RuleSet
	sets, err = LoadFile(path)
	if err != nil {
		registry = nil
		return registry, err
	}

	registry, err = registry.With(sets...)
	return registry, err
}

// Export encodes rule sets in the rule file format, as a starting point for custom rules.
func Export(sets ...RuleSet) (data []byte, err error) {
	data, err = yaml.Marshal(File{RuleSets: sets})
	if err != nil {
		err = errors.Wrap(err, "failed to encode rule sets")
	}
	return data, err
}
