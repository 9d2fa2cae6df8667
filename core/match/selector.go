package match

import (
	"sort"

	"github.com/yoldauz/dispatchd/core/model"
)

// Selector ranks available drivers for a cargo posting using the Scorer
// and keeps only fair-or-better candidates.
type Selector struct {
	Scorer Scorer
	// MinProfileScore excludes drivers below the profile completion bar
	// from automated matching. They remain reachable via manual search.
	MinProfileScore int
	// TopN bounds the number of returned candidates.
	TopN int
}

// NewSelector returns a selector with the standard eligibility bar and
// candidate cap.
func NewSelector() Selector {
	return Selector{Scorer: NewScorer(), MinProfileScore: 60, TopN: 5}
}

// Eligible reports whether a driver participates in automated matching
// at all. It mirrors the filter applied by Select.
func (s Selector) Eligible(d model.DriverCandidate) bool {
	return d.Status == model.DriverAvailable && d.ProfileScore >= s.MinProfileScore
}

// Select scores the eligible subset of drivers and returns the top
// fair-or-better candidates, best first. Equal scores rank the more
// complete profile first, then the lexically smaller driver ID, so the
// ordering is deterministic for identical inputs. An empty result means
// the caller should proceed straight to fallback.
func (s Selector) Select(cargo model.CargoPosting, drivers []model.DriverCandidate) []model.MatchResult {
	var ranked []model.MatchResult
	profiles := make(map[string]int, len(drivers))
	for _, d := range drivers {
		if !s.Eligible(d) {
			continue
		}
		res := s.Scorer.Score(cargo, d)
		if !res.Notifiable() {
			continue
		}
		profiles[d.ID] = d.ProfileScore
		ranked = append(ranked, res)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := profiles[a.DriverID], profiles[b.DriverID]; pa != pb {
			return pa > pb
		}
		return a.DriverID < b.DriverID
	})
	if s.TopN > 0 && len(ranked) > s.TopN {
		ranked = ranked[:s.TopN]
	}
	return ranked
}
