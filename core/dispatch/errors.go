package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors reported to the messaging layer. Timer-driven
// outcomes (match window expiry, exhausted warnings) are lifecycle
// events, not errors, and never surface here.
var (
	// ErrNotFound reports an unknown cargo or driver id.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyTaken reports that the cargo left Active before this
	// acceptance landed.
	ErrAlreadyTaken = errors.New("cargo already taken")
	// ErrInvalidTransition reports an action against a terminal or
	// wrong-phase state, usually a stale UI.
	ErrInvalidTransition = errors.New("order no longer active")
	// ErrDeliveryFailure reports a rejected notification send.
	ErrDeliveryFailure = errors.New("notification delivery failed")
)

// IneligibleError names the field that makes a driver ineligible.
type IneligibleError struct {
	DriverID string
	Field    string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("driver %s ineligible: %s", e.DriverID, e.Field)
}

// ErrIneligibleDriver matches any IneligibleError via errors.Is.
var ErrIneligibleDriver = errors.New("driver ineligible")

// Is lets errors.Is treat every IneligibleError as ErrIneligibleDriver.
func (e *IneligibleError) Is(target error) bool {
	return target == ErrIneligibleDriver
}
