// Package metrics provides the concrete observability sinks: Prometheus
// counters, InfluxDB line-protocol events, and a fan-out combinator.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/yoldauz/dispatchd/core/metrics"
)

// PromSink records offer activity in Prometheus metrics.
type PromSink struct {
	offers     *prometheus.CounterVec
	candidates *prometheus.HistogramVec
	lifecycle  *prometheus.CounterVec
}

// NewPromSink registers offer metrics on the default Prometheus
// registerer. The Prometheus server should be started separately.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_events_total",
		Help: "Total number of offer events",
	}, []string{"phase", "accepted"})
	candidates := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "candidate_pool_size",
		Help:    "Number of available drivers considered per posting",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{})
	lifecycle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cargo_transitions_total",
		Help: "Cargo state machine transitions",
	}, []string{"from", "to", "cause"})

	if err := reg.Register(offers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offers = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(candidates); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			candidates = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(lifecycle); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			lifecycle = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{offers: offers, candidates: candidates, lifecycle: lifecycle}, nil
}

// RecordOfferResults increments the counter for each offer event.
func (s *PromSink) RecordOfferResults(res []coremetrics.OfferResult) error {
	for _, r := range res {
		s.offers.WithLabelValues(r.Phase, strconv.FormatBool(r.Accepted)).Inc()
	}
	return nil
}

// RecordCandidatePool observes the size of the scored candidate pool.
func (s *PromSink) RecordCandidatePool(_ string, size int) error {
	s.candidates.WithLabelValues().Observe(float64(size))
	return nil
}

// RecordLifecycle counts a cargo state transition.
func (s *PromSink) RecordLifecycle(ev coremetrics.LifecycleEvent) error {
	s.lifecycle.WithLabelValues(ev.From.String(), ev.To.String(), ev.Cause).Inc()
	return nil
}
