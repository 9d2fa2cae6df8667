// Package metrics defines the sink interfaces through which dispatch
// decisions are recorded for observability. Concrete Prometheus and
// InfluxDB sinks live in infra/metrics.
package metrics

import (
	"time"

	"github.com/yoldauz/dispatchd/core/model"
)

// OfferResult represents one extended offer and its outcome.
type OfferResult struct {
	CargoID   string
	DriverID  string
	Score     float64
	Phase     string
	Accepted  bool
	Delivered bool
	Time      time.Time
}

// Sink records offer results for observability purposes.
type Sink interface {
	RecordOfferResults(results []OfferResult) error
}

// LifecycleEvent captures a state machine transition.
type LifecycleEvent struct {
	CargoID string
	From    model.CargoStatus
	To      model.CargoStatus
	Cause   string
	Time    time.Time
}

// LifecycleRecorder records cargo state transitions. Sinks may
// optionally implement it.
type LifecycleRecorder interface {
	RecordLifecycle(ev LifecycleEvent) error
}

// FleetSizeRecorder records the size of the candidate pool considered
// for a posting. Sinks may optionally implement it.
type FleetSizeRecorder interface {
	RecordCandidatePool(cargoID string, size int) error
}

// NopSink discards everything.
type NopSink struct{}

// RecordOfferResults implements Sink.
func (NopSink) RecordOfferResults([]OfferResult) error { return nil }
