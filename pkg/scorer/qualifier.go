package scorer

// Qualifier is the display label for a score band.
type Qualifier string

// Score bands, best first.
const (
	Exceptional  Qualifier = "Exceptional"
	Excellent    Qualifier = "Excellent"
	VeryGood     Qualifier = "Very good"
	Good         Qualifier = "Good"
	Average      Qualifier = "Average"
	Weak         Qualifier = "Weak"
	Insufficient Qualifier = "Insufficient"
)

// Qualifier thresholds (inclusive lower bounds).
const (
	ExceptionalThreshold = 0.9
	ExcellentThreshold   = 0.8
	VeryGoodThreshold    = 0.7
	GoodThreshold        = 0.6
	AverageThreshold     = 0.5
	WeakThreshold        = 0.4
)

// Qualify maps a score onto the qualifier ladder.
func Qualify(score float64) (q Qualifier) {
	switch {
	case score >= ExceptionalThreshold:
		q = Exceptional
	case score >= ExcellentThreshold:
		q = Excellent
	case score >= VeryGoodThreshold:
		q = VeryGood
	case score >= GoodThreshold:
		q = Good
	case score >= AverageThreshold:
		q = Average
	case score >= WeakThreshold:
		q = Weak
	default:
		q = Insufficient
	}
	return q
}

func (q Qualifier) String() (s string) {
	s = string(q)
	return s
}
