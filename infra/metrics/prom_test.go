package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/yoldauz/dispatchd/core/metrics"
	"github.com/yoldauz/dispatchd/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("NewPromSinkWithRegistry: %v", err)
	}
	err = sink.RecordOfferResults([]coremetrics.OfferResult{
		{CargoID: "c1", DriverID: "d1", Phase: "immediate", Delivered: true, Time: time.Now()},
		{CargoID: "c1", DriverID: "d1", Accepted: true, Time: time.Now()},
	})
	if err != nil {
		t.Fatalf("RecordOfferResults: %v", err)
	}

	ps := sink.(*PromSink)
	if err := ps.RecordCandidatePool("c1", 4); err != nil {
		t.Fatalf("RecordCandidatePool: %v", err)
	}
	if err := ps.RecordLifecycle(coremetrics.LifecycleEvent{
		CargoID: "c1",
		From:    model.CargoActive,
		To:      model.CargoDriverAssigned,
		Cause:   "driver_accept",
		Time:    time.Now(),
	}); err != nil {
		t.Fatalf("RecordLifecycle: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{"offer_events_total", "candidate_pool_size", "cargo_transitions_total"} {
		if !seen[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second registration should reuse collectors, got %v", err)
	}
}
