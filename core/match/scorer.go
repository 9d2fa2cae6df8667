package match

import (
	"github.com/yoldauz/dispatchd/core/model"
)

// Reason codes attached to MatchResults. The messaging layer renders
// them; the selector and tests key on them.
const (
	ReasonCapacityFit      = "capacity_fit"
	ReasonCapacityUnknown  = "capacity_unknown"
	ReasonCapacityMismatch = "capacity_mismatch"
	ReasonRouteFull        = "route_full"
	ReasonRoutePartial     = "route_partial"
	ReasonRouteNone        = "route_none"
	ReasonTrackHigh        = "track_high"
	ReasonTrackMid         = "track_mid"
	ReasonTrackLow         = "track_low"
	ReasonTrackNew         = "track_new"
	ReasonPriceGenerous    = "price_generous"
	ReasonPriceNear        = "price_near"
	ReasonPriceShort       = "price_short"
	ReasonPriceNeutral     = "price_neutral"
	ReasonPenalized        = "penalized"
)

// Scorer computes a 0-100 compatibility score for a (cargo, driver)
// pair. The band ceilings sum to 100. Scoring is deterministic and free
// of side effects; a Scorer value is safe to copy and share.
type Scorer struct {
	CapacityMax float64 // capacity compatibility band ceiling
	RouteMax    float64 // route compatibility band ceiling
	TrackMax    float64 // driver track record band ceiling
	PriceMax    float64 // price compatibility band ceiling

	// PenaltyStep is deducted per reverted assignment, up to PenaltyCap.
	PenaltyStep float64
	PenaltyCap  float64
}

// NewScorer returns a scorer with the standard band ceilings.
func NewScorer() Scorer {
	return Scorer{
		CapacityMax: 30,
		RouteMax:    25,
		TrackMax:    20,
		PriceMax:    15,
		PenaltyStep: 2,
		PenaltyCap:  10,
	}
}

// Score evaluates one driver against one cargo posting.
func (s Scorer) Score(cargo model.CargoPosting, driver model.DriverCandidate) model.MatchResult {
	res := model.MatchResult{CargoID: cargo.ID, DriverID: driver.ID}

	var total float64
	var add = func(pts float64, reason string) {
		total += pts
		res.ReasonCodes = append(res.ReasonCodes, reason)
	}

	// Capacity: full band for usable capacity data, reduced credit for a
	// declared mismatch, partial credit when nothing is declared.
	switch {
	case !driver.HasCapacityData():
		add(s.CapacityMax/2, ReasonCapacityUnknown)
	case cargo.WeightTons > 0 && !driver.FitsWeight(cargo.WeightTons):
		add(s.CapacityMax/3, ReasonCapacityMismatch)
	default:
		add(s.CapacityMax, ReasonCapacityFit)
	}

	// Route: both ends covered or wildcard coverage earns the full band,
	// a one-sided match earns half, anything else a token credit.
	originOK := driver.CoversCity(cargo.Origin)
	destOK := driver.CoversCity(cargo.Destination)
	switch {
	case driver.CoversAnyRoute() || (originOK && destOK):
		add(s.RouteMax, ReasonRouteFull)
	case originOK || destOK:
		add(s.RouteMax/2, ReasonRoutePartial)
	default:
		add(s.RouteMax/5, ReasonRouteNone)
	}

	// Track record tiers on rating x completed orders.
	switch {
	case driver.Rating >= 4.5 && driver.CompletedOrders >= 10:
		add(s.TrackMax, ReasonTrackHigh)
	case driver.Rating >= 4.0 && driver.CompletedOrders >= 5:
		add(s.TrackMax*0.75, ReasonTrackMid)
	case driver.CompletedOrders >= 1:
		add(s.TrackMax/2, ReasonTrackLow)
	default:
		add(s.TrackMax/4, ReasonTrackNew)
	}

	// Price compatibility. A budget well above the driver's expectation
	// earns the full band; clearly below it is an actual deduction, not
	// a zero floor.
	total += s.priceBand(cargo, driver, &res)

	if driver.Penalties > 0 {
		deduct := float64(driver.Penalties) * s.PenaltyStep
		if deduct > s.PenaltyCap {
			deduct = s.PenaltyCap
		}
		total -= deduct
		res.ReasonCodes = append(res.ReasonCodes, ReasonPenalized)
	}

	if total < 0 {
		total = 0
	}
	res.Score = total
	res.Recommendation = model.RecommendFor(total)
	return res
}

func (s Scorer) priceBand(cargo model.CargoPosting, driver model.DriverCandidate, res *model.MatchResult) float64 {
	if cargo.PriceUZS <= 0 || driver.ExpectedPriceUZS <= 0 {
		res.ReasonCodes = append(res.ReasonCodes, ReasonPriceNeutral)
		return s.PriceMax / 2
	}
	budget := float64(cargo.PriceUZS)
	expect := float64(driver.ExpectedPriceUZS)
	switch {
	case budget >= expect*1.2:
		res.ReasonCodes = append(res.ReasonCodes, ReasonPriceGenerous)
		return s.PriceMax
	case budget >= expect*0.9:
		res.ReasonCodes = append(res.ReasonCodes, ReasonPriceNear)
		return s.PriceMax * 0.6
	default:
		res.ReasonCodes = append(res.ReasonCodes, ReasonPriceShort)
		return -s.PriceMax / 3
	}
}
