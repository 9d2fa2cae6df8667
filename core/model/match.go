package model

// Recommendation labels a match score against fixed thresholds.
type Recommendation string

const (
	MatchExcellent Recommendation = "excellent" // >= 80
	MatchGood      Recommendation = "good"      // >= 60
	MatchFair      Recommendation = "fair"      // >= 40, notification floor
	MatchPoor      Recommendation = "poor"
)

// RecommendFor maps a score to its recommendation label.
func RecommendFor(score float64) Recommendation {
	switch {
	case score >= 80:
		return MatchExcellent
	case score >= 60:
		return MatchGood
	case score >= 40:
		return MatchFair
	default:
		return MatchPoor
	}
}

// MatchResult is the transient output of scoring one (cargo, driver)
// pair. It is consumed by the notification fan-out and never persisted.
type MatchResult struct {
	CargoID        string
	DriverID       string
	Score          float64
	ReasonCodes    []string
	Recommendation Recommendation
}

// Notifiable reports whether the match clears the automatic
// notification threshold.
func (m MatchResult) Notifiable() bool {
	return m.Recommendation != MatchPoor
}
