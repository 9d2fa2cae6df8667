package model

import "time"

// AssignmentRecord binds a driver to a cargo posting. A driver holds at
// most one active record at any time; dispatchers are not subject to the
// limit.
type AssignmentRecord struct {
	CargoID    string    `json:"cargo_id"`
	DriverID   string    `json:"driver_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// EscalationPhase describes where an assignment sits in the contact
// escalation sequence.
type EscalationPhase int

const (
	PhaseAwaitingContact EscalationPhase = iota
	PhaseEscalated
)

// String returns a human-readable representation of the phase.
func (p EscalationPhase) String() string {
	switch p {
	case PhaseAwaitingContact:
		return "awaiting_contact"
	case PhaseEscalated:
		return "escalated"
	default:
		return "unknown"
	}
}

// EscalationState exists only while a cargo is assigned and not yet
// contacted or completed.
type EscalationState struct {
	CargoID        string          `json:"cargo_id"`
	DriverID       string          `json:"driver_id"`
	WarningsIssued int             `json:"warnings_issued"` // 0..3
	Phase          EscalationPhase `json:"phase"`
}
