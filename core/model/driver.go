package model

import "strings"

// DriverStatus reflects a driver's availability for new offers.
type DriverStatus int

const (
	DriverAvailable DriverStatus = iota
	DriverBusy
	DriverOffline
)

// String returns a human-readable representation of the status.
func (s DriverStatus) String() string {
	switch s {
	case DriverAvailable:
		return "available"
	case DriverBusy:
		return "busy"
	case DriverOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// RouteAny marks a driver covering every route.
const RouteAny = "any"

// DriverCandidate represents a registered carrier eligible for matching.
type DriverCandidate struct {
	ID               string       `json:"id"`
	CapacityMinTons  float64      `json:"capacity_min_tons"`
	CapacityMaxTons  float64      `json:"capacity_max_tons"`
	Routes           []string     `json:"routes"` // city labels, or RouteAny
	Rating           float64      `json:"rating"` // 0..5
	CompletedOrders  int          `json:"completed_orders"`
	ProfileScore     int          `json:"profile_score"` // 0..100
	Status           DriverStatus `json:"status"`
	ExpectedPriceUZS int64        `json:"expected_price_uzs"` // 0 means no expectation
	Penalties        int          `json:"penalties"`          // reverted assignments
}

// HasCapacityData reports whether the driver declared any usable capacity.
func (d DriverCandidate) HasCapacityData() bool {
	return d.CapacityMaxTons > 0
}

// FitsWeight reports whether the requested weight falls inside the
// declared capacity range. Zero weight is treated as unspecified.
func (d DriverCandidate) FitsWeight(tons float64) bool {
	if tons <= 0 || !d.HasCapacityData() {
		return false
	}
	return tons >= d.CapacityMinTons && tons <= d.CapacityMaxTons
}

// CoversAnyRoute reports whether the driver accepts every route.
func (d DriverCandidate) CoversAnyRoute() bool {
	for _, r := range d.Routes {
		if strings.EqualFold(r, RouteAny) {
			return true
		}
	}
	return false
}

// CoversCity reports whether the declared coverage includes the city.
func (d DriverCandidate) CoversCity(city string) bool {
	if city == "" {
		return false
	}
	for _, r := range d.Routes {
		if strings.EqualFold(r, city) {
			return true
		}
	}
	return false
}
