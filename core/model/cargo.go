package model

import "time"

// CargoStatus tracks a posting through its lifecycle.
type CargoStatus int

const (
	CargoActive CargoStatus = iota
	CargoDriverAssigned
	CargoInProgress
	CargoCompleted
	CargoCancelled
)

// String returns a human-readable representation of the status.
func (s CargoStatus) String() string {
	switch s {
	case CargoActive:
		return "active"
	case CargoDriverAssigned:
		return "driver_assigned"
	case CargoInProgress:
		return "in_progress"
	case CargoCompleted:
		return "completed"
	case CargoCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s CargoStatus) Terminal() bool {
	return s == CargoCompleted || s == CargoCancelled
}

// AuthorRole identifies who posted a cargo.
type AuthorRole int

const (
	RoleShipper AuthorRole = iota
	RoleDispatcher
)

// String returns a human-readable representation of the role.
func (r AuthorRole) String() string {
	switch r {
	case RoleShipper:
		return "shipper"
	case RoleDispatcher:
		return "dispatcher"
	default:
		return "unknown"
	}
}

// CargoPosting is a freight job advertised for transport.
type CargoPosting struct {
	ID               string      `json:"id"`
	Origin           string      `json:"origin"`
	Destination      string      `json:"destination"`
	CargoType        string      `json:"cargo_type"`
	TruckRequirement string      `json:"truck_requirement"`
	WeightTons       float64     `json:"weight_tons"`
	PriceUZS         int64       `json:"price_uzs"` // 0 means negotiable
	AuthorID         string      `json:"author_id"`
	AuthorRole       AuthorRole  `json:"author_role"`
	Status           CargoStatus `json:"status"`
	AssignedDriverID string      `json:"assigned_driver_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	AcceptedAt       time.Time   `json:"accepted_at,omitempty"`
	ContactedAt      time.Time   `json:"contacted_at,omitempty"`
	CompletedAt      time.Time   `json:"completed_at,omitempty"`
}

// Open reports whether the posting still accepts driver acceptances.
func (c CargoPosting) Open() bool {
	return c.Status == CargoActive
}
