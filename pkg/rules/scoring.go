package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Outcome describes how a raw value was turned into a score.
type Outcome string

const (
	// OutcomeOK means the value was inside the rule's domain.
	OutcomeOK Outcome = "ok"
	// OutcomeClamped means the value was out of domain and mapped to the nearest valid score.
	OutcomeClamped Outcome = "clamped"
	// OutcomeInvalid means the value had the wrong shape and scored zero.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeMissing means the metrics record had no entry for the rule.
	OutcomeMissing Outcome = "missing"
)

// ScoringFunc maps a raw metric value to [0,1]. Exactly one variant is set.
type ScoringFunc struct {
	Bands       *Bands       `yaml:"bands,omitempty" json:"bands,omitempty"`
	Linear      *Linear      `yaml:"linear,omitempty" json:"linear,omitempty"`
	Boolean     *Boolean     `yaml:"boolean,omitempty" json:"boolean,omitempty"`
	Categorical *Categorical `yaml:"categorical,omitempty" json:"categorical,omitempty"`
}

// Band is one step of a step function: values up to and including UpTo score Score.
type Band struct {
	UpTo  float64 `yaml:"upTo" json:"up_to"`
	Score float64 `yaml:"score" json:"score"`
}

// Bands is a step function over ascending ranges.
type Bands struct {
	Steps     []Band  `yaml:"steps" json:"steps"`
	Otherwise float64 `yaml:"otherwise" json:"otherwise"` // score above the last step
	Floor     float64 `yaml:"floor,omitempty" json:"floor,omitempty"`
}

// Linear is a ramp from Min (score 0) to Max (score 1), reversed when Invert is set.
type Linear struct {
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	Invert bool    `yaml:"invert,omitempty" json:"invert,omitempty"`
}

// Boolean maps true/false to fixed scores.
type Boolean struct {
	WhenTrue  float64 `yaml:"whenTrue" json:"when_true"`
	WhenFalse float64 `yaml:"whenFalse" json:"when_false"`
}

// Categorical maps labels to scores. Matching is case-insensitive.
type Categorical struct {
	Scores   map[string]float64 `yaml:"scores" json:"scores"`
	Aliases  map[string]string  `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Fallback *float64           `yaml:"fallback,omitempty" json:"fallback,omitempty"` // defaults to the lowest score
}

// StepBands builds a Bands function. Pairs are (upTo, score).
func StepBands(otherwise float64, pairs ...float64) (fn ScoringFunc) {
	steps := make([]Band, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		steps = append(steps, Band{UpTo: pairs[i], Score: pairs[i+1]})
	}
	fn = ScoringFunc{Bands: &Bands{Steps: steps, Otherwise: otherwise}}
	return fn
}

// Ramp builds a Linear function.
func Ramp(minimum, maximum float64, invert bool) (fn ScoringFunc) {
	fn = ScoringFunc{Linear: &Linear{Min: minimum, Max: maximum, Invert: invert}}
	return fn
}

// Flag builds a Boolean function.
func Flag(whenTrue, whenFalse float64) (fn ScoringFunc) {
	fn = ScoringFunc{Boolean: &Boolean{WhenTrue: whenTrue, WhenFalse: whenFalse}}
	return fn
}

// Labels builds a Categorical function.
func Labels(scores map[string]float64, aliases map[string]string) (fn ScoringFunc) {
	fn = ScoringFunc{Categorical: &Categorical{Scores: scores, Aliases: aliases}}
	return fn
}

// Kind names the variant that is set.
func (f ScoringFunc) Kind() (kind string) {
	switch {
	case f.Bands != nil:
		kind = "bands"
	case f.Linear != nil:
		kind = "linear"
	case f.Boolean != nil:
		kind = "boolean"
	case f.Categorical != nil:
		kind = "categorical"
	default:
		kind = "none"
	}
	return kind
}

// Clone returns a copy that shares no memory with f.
func (f ScoringFunc) Clone() (clone ScoringFunc) {
	if f.Bands != nil {
		bands := *f.Bands
		bands.Steps = append([]Band(nil), f.Bands.Steps...)
		clone.Bands = &bands
	}

	if f.Linear != nil {
		linear := *f.Linear
		clone.Linear = &linear
	}

	if f.Boolean != nil {
		boolean := *f.Boolean
		clone.Boolean = &boolean
	}

	if f.Categorical != nil {
		categorical := Categorical{}
		if f.Categorical.Scores != nil {
			categorical.Scores = make(map[string]float64, len(f.Categorical.Scores))
			for label, score := range f.Categorical.Scores {
				categorical.Scores[label] = score
			}
		}
		if f.Categorical.Aliases != nil {
			categorical.Aliases = make(map[string]string, len(f.Categorical.Aliases))
			for alias, target := range f.Categorical.Aliases {
				categorical.Aliases[alias] = target
			}
		}
		if f.Categorical.Fallback != nil {
			fallback := *f.Categorical.Fallback
			categorical.Fallback = &fallback
		}
		clone.Categorical = &categorical
	}

	return clone
}

// Validate checks that exactly one variant is set and that it is well formed.
func (f ScoringFunc) Validate() (err error) {
	set := 0
	for _, present := range []bool{f.Bands != nil, f.Linear != nil, f.Boolean != nil, f.Categorical != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		err = errors.Wrapf(ErrInvalidRule, "exactly one scoring function required, got %d", set)
		return err
	}

	switch {
	case f.Bands != nil:
		err = f.Bands.validate()
	case f.Linear != nil:
		if !(f.Linear.Max > f.Linear.Min) {
			err = errors.Wrapf(ErrInvalidRule, "linear max %v must exceed min %v", f.Linear.Max, f.Linear.Min)
		}
	case f.Boolean != nil:
		err = checkUnit("whenTrue", f.Boolean.WhenTrue)
		if err == nil {
			err = checkUnit("whenFalse", f.Boolean.WhenFalse)
		}
	case f.Categorical != nil:
		err = f.Categorical.validate()
	}

	return err
}

func (b *Bands) validate() (err error) {
	if len(b.Steps) == 0 {
		err = errors.Wrap(ErrInvalidRule, "bands need at least one step")
		return err
	}

	for i, step := range b.Steps {
		if i > 0 && step.UpTo <= b.Steps[i-1].UpTo {
			err = errors.Wrapf(ErrInvalidRule, "band %d upper bound %v is not ascending", i, step.UpTo)
			return err
		}
		err = checkUnit(fmt.Sprintf("band %d", i), step.Score)
		if err != nil {
			return err
		}
	}

	err = checkUnit("otherwise", b.Otherwise)
	return err
}

func (c *Categorical) validate() (err error) {
	if len(c.Scores) == 0 {
		err = errors.Wrap(ErrInvalidRule, "categorical scores are empty")
		return err
	}

	names := make(map[string]string, len(c.Scores)+len(c.Aliases))
	for label, score := range c.Scores {
		err = checkUnit(label, score)
		if err != nil {
			return err
		}
		err = claimLabel(names, label)
		if err != nil {
			return err
		}
	}

	for alias := range c.Aliases {
		err = claimLabel(names, alias)
		if err != nil {
			return err
		}
	}

	for alias, target := range c.Aliases {
		if _, ok := c.lookup(target); !ok {
			err = errors.Wrapf(ErrInvalidRule, "alias %s points at unknown label %s", alias, target)
			return err
		}
	}

	if c.Fallback != nil {
		err = checkUnit("fallback", *c.Fallback)
	}

	return err
}

// claimLabel records the normalized form of a label or alias and rejects two
// names that normalize to the same key.
func claimLabel(names map[string]string, name string) (err error) {
	key := normalizeLabel(name)
	if other, taken := names[key]; taken {
		err = errors.Wrapf(ErrInvalidRule, "labels %q and %q are indistinguishable", other, name)
		return err
	}
	names[key] = name
	return err
}

func checkUnit(name string, v float64) (err error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		err = errors.Wrapf(ErrInvalidRule, "%s score %v outside [0,1]", name, v)
	}
	return err
}

// Evaluate scores a raw value. It never fails: out-of-domain values are clamped
// and values of the wrong shape score zero with OutcomeInvalid.
func (f ScoringFunc) Evaluate(value interface{}) (score float64, outcome Outcome) {
	if value == nil {
		outcome = OutcomeMissing
		return score, outcome
	}

	switch {
	case f.Bands != nil:
		score, outcome = f.Bands.evaluate(value)
	case f.Linear != nil:
		score, outcome = f.Linear.evaluate(value)
	case f.Boolean != nil:
		score, outcome = f.Boolean.evaluate(value)
	case f.Categorical != nil:
		score, outcome = f.Categorical.evaluate(value)
	default:
		outcome = OutcomeInvalid
	}

	if score < 0 {
		score = 0
		outcome = OutcomeClamped
	}
	if score > 1 {
		score = 1
		outcome = OutcomeClamped
	}

	return score, outcome
}

func (b *Bands) evaluate(value interface{}) (score float64, outcome Outcome) {
	n, ok := toNumber(value)
	if !ok {
		outcome = OutcomeInvalid
		return score, outcome
	}

	outcome = OutcomeOK
	if n < b.Floor {
		n = b.Floor
		outcome = OutcomeClamped
	}

	for _, step := range b.Steps {
		if n <= step.UpTo {
			score = step.Score
			return score, outcome
		}
	}

	score = b.Otherwise
	return score, outcome
}

func (l *Linear) evaluate(value interface{}) (score float64, outcome Outcome) {
	n, ok := toNumber(value)
	if !ok {
		outcome = OutcomeInvalid
		return score, outcome
	}

	outcome = OutcomeOK
	if n < l.Min {
		n = l.Min
		outcome = OutcomeClamped
	}
	if n > l.Max {
		n = l.Max
		outcome = OutcomeClamped
	}

	score = (n - l.Min) / (l.Max - l.Min)
	if l.Invert {
		score = 1 - score
	}

	return score, outcome
}

func (b *Boolean) evaluate(value interface{}) (score float64, outcome Outcome) {
	flag, ok := toBool(value)
	if !ok {
		outcome = OutcomeInvalid
		return score, outcome
	}

	outcome = OutcomeOK
	score = b.WhenFalse
	if flag {
		score = b.WhenTrue
	}

	return score, outcome
}

func (c *Categorical) evaluate(value interface{}) (score float64, outcome Outcome) {
	var label string
	switch v := value.(type) {
	case string:
		label = v
	case bool:
		label = strconv.FormatBool(v)
	default:
		outcome = OutcomeInvalid
		return score, outcome
	}

	if s, ok := c.lookup(label); ok {
		score = s
		outcome = OutcomeOK
		return score, outcome
	}

	score = c.fallback()
	outcome = OutcomeClamped
	return score, outcome
}

func (c *Categorical) lookup(label string) (score float64, ok bool) {
	key := normalizeLabel(label)

	for alias, target := range c.Aliases {
		if normalizeLabel(alias) == key {
			key = normalizeLabel(target)
			break
		}
	}

	for name, s := range c.Scores {
		if normalizeLabel(name) == key {
			score = s
			ok = true
			return score, ok
		}
	}

	return score, ok
}

func (c *Categorical) fallback() (score float64) {
	if c.Fallback != nil {
		score = *c.Fallback
		return score
	}

	values := make([]float64, 0, len(c.Scores))
	for _, s := range c.Scores {
		values = append(values, s)
	}
	sort.Float64s(values)
	if len(values) > 0 {
		score = values[0]
	}

	return score
}

func normalizeLabel(label string) (normalized string) {
	normalized = strings.ToLower(strings.TrimSpace(label))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	return normalized
}

func toNumber(value interface{}) (n float64, ok bool) {
	switch v := value.(type) {
	case float64:
		n, ok = v, true
	case float32:
		n, ok = float64(v), true
	case int:
		n, ok = float64(v), true
	case int32:
		n, ok = float64(v), true
	case int64:
		n, ok = float64(v), true
	case uint:
		n, ok = float64(v), true
	case uint32:
		n, ok = float64(v), true
	case uint64:
		n, ok = float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		n, ok = parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		n, ok = parsed, err == nil
	}

	if ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
		ok = false
	}

	return n, ok
}

func toBool(value interface{}) (flag bool, ok bool) {
	switch v := value.(type) {
	case bool:
		flag, ok = v, true
	case string:
		switch normalizeLabel(v) {
		case "true", "yes", "y", "oui", "1":
			flag, ok = true, true
		case "false", "no", "n", "non", "0":
			flag, ok = false, true
		}
	default:
		n, isNumber := toNumber(value)
		if isNumber && (n == 0 || n == 1) {
			flag, ok = n == 1, true
		}
	}
	return flag, ok
}
