package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offersExtended   *prometheus.CounterVec
	acceptances      prometheus.Counter
	acceptRaceLost   prometheus.Counter
	contactWarnings  prometheus.Counter
	assignmentRevert prometheus.Counter
	deliveryFailures prometheus.Counter
	fanoutLatency    *prometheus.HistogramVec
	activePostings   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.HistogramVec, prometheus.Gauge) {
	offers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_offers_extended_total",
			Help: "Number of cargo offers extended to candidates",
		},
		[]string{"phase"},
	)
	accepts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_acceptances_total",
			Help: "Number of successful driver acceptances",
		},
	)
	races := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_acceptance_races_lost_total",
			Help: "Number of acceptance attempts rejected because the cargo was already taken",
		},
	)
	warns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_contact_warnings_total",
			Help: "Number of contact warnings issued to assigned drivers",
		},
	)
	reverts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_assignment_reverts_total",
			Help: "Number of assignments reverted after exhausted warnings",
		},
	)
	fails := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_delivery_failures_total",
			Help: "Number of notification sends rejected by the channel",
		},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_fanout_phase_seconds",
			Help:    "Duration of fan-out phases from start to completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_postings",
			Help: "Number of cargo postings currently in a non-terminal state",
		},
	)
	return offers, accepts, races, warns, reverts, fails, lat, active
}

func init() {
	offersExtended, acceptances, acceptRaceLost, contactWarnings, assignmentRevert, deliveryFailures, fanoutLatency, activePostings = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided
// registry. If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(offersExtended, acceptances, acceptRaceLost, contactWarnings, assignmentRevert, deliveryFailures, fanoutLatency, activePostings)
}

// ResetMetrics reinitializes metrics collectors for testing purposes
// and registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	offersExtended, acceptances, acceptRaceLost, contactWarnings, assignmentRevert, deliveryFailures, fanoutLatency, activePostings = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
