package match

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yoldauz/dispatchd/core/model"
)

// ScoreStats summarises the score distribution of one selection round.
// It is recorded alongside dispatch decisions so operators can see how
// competitive a posting was.
type ScoreStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Best   float64 `json:"best"`
}

// Summarize computes distribution statistics over match results.
func Summarize(results []model.MatchResult) ScoreStats {
	if len(results) == 0 {
		return ScoreStats{}
	}
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	sort.Float64s(scores)
	sd := 0.0
	if len(scores) > 1 {
		sd = stat.StdDev(scores, nil)
	}
	return ScoreStats{
		Count:  len(scores),
		Mean:   stat.Mean(scores, nil),
		StdDev: sd,
		Median: stat.Quantile(0.5, stat.Empirical, scores, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, scores, nil),
		Best:   scores[len(scores)-1],
	}
}
