// Package events defines the outbound events the dispatch core emits on
// the event bus. The messaging layer subscribes to render user-facing
// notices; tests subscribe to observe lifecycle transitions.
package events

import "time"

// CargoPostedEvent fires when a new posting enters candidate selection.
type CargoPostedEvent struct {
	CargoID    string
	AuthorID   string
	Candidates int
}

// OfferExtendedEvent fires each time a candidate is offered a cargo.
type OfferExtendedEvent struct {
	CargoID  string
	DriverID string
	OfferID  string
	Score    float64
	Phase    string
}

// CargoTakenEvent tells previously notified candidates the cargo is no
// longer available.
type CargoTakenEvent struct {
	CargoID        string
	WinnerDriverID string
	OtherDriverIDs []string
}

// ContactWarningEvent fires for each unacknowledged contact warning.
type ContactWarningEvent struct {
	CargoID  string
	DriverID string
	Count    int // 1..3
}

// CargoRevertedEvent fires when an assignment is reverted after the
// escalation sequence exhausts its warnings.
type CargoRevertedEvent struct {
	CargoID  string
	DriverID string
	Reason   string
}

// BonusEvent credits a dispatcher for a referred driver's contact.
type BonusEvent struct {
	DispatcherID string
	DriverID     string
	CargoID      string
	AmountUZS    int64
}

// CommissionEvent fires on completion for cashback/commission accrual.
// Settlement happens outside this core.
type CommissionEvent struct {
	CargoID   string
	DriverID  string
	AmountUZS int64
	At        time.Time
}

// PhaseEvent traces fan-out phase transitions.
type PhaseEvent struct {
	CargoID string
	Phase   string
	Action  string // "start", "skip", "degraded", "done"
}

// DeliveryFailureEvent fires when the notification channel rejects a
// send. The fan-out continues past it.
type DeliveryFailureEvent struct {
	CargoID  string
	DriverID string
	Err      error
}
