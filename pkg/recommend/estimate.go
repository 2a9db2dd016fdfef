package recommend

import "math"

// Confidence is a coarse label on an improvement estimate.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	// MaxPossibleScore is the ceiling an estimate may reach; a perfect score is never promised.
	MaxPossibleScore = 0.95
	// returnsFactor encodes diminishing returns on the remaining headroom.
	returnsFactor = 0.8

	highPoints   = 0.08
	mediumPoints = 0.05
	lowPoints    = 0.02
)

// Improvement bounds the score gain achievable by applying recommendations.
type Improvement struct {
	PercentagePoints float64    `json:"percentage_points"`
	NewScoreEstimate float64    `json:"new_score_estimate"`
	Confidence       Confidence `json:"confidence"`
	HighCount        int        `json:"high_count"`
	MediumCount      int        `json:"medium_count"`
	LowCount         int        `json:"low_count"`
	TotalCount       int        `json:"total_count"`
}

// EstimateImprovement sums fixed per-priority gains and caps them at 80% of the
// headroom below MaxPossibleScore. The estimate is never below the current score.
func EstimateImprovement(currentScore float64, recs []Recommendation) (imp Improvement) {
	var potential float64
	for _, r := range recs {
		switch r.Priority {
		case High:
			imp.HighCount++
			potential += highPoints
		case Medium:
			imp.MediumCount++
			potential += mediumPoints
		default:
			imp.LowCount++
			potential += lowPoints
		}
	}
	imp.TotalCount = len(recs)

	headroom := math.Max(0, returnsFactor*(MaxPossibleScore-currentScore))
	potential = math.Min(potential, headroom)

	imp.NewScoreEstimate = math.Min(currentScore+potential, MaxPossibleScore)
	if imp.NewScoreEstimate < currentScore {
		imp.NewScoreEstimate = currentScore
	}
	imp.PercentagePoints = math.Round((imp.NewScoreEstimate-currentScore)*1000) / 10

	switch {
	case imp.HighCount >= 2:
		imp.Confidence = ConfidenceHigh
	case imp.TotalCount == 0:
		imp.Confidence = ConfidenceLow
	default:
		imp.Confidence = ConfidenceMedium
	}

	return imp
}
