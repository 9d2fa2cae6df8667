package metrics

import coremetrics "github.com/yoldauz/dispatchd/core/metrics"

// MultiSink fans offer events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOfferResults forwards the records to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordOfferResults(res []coremetrics.OfferResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordOfferResults(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordCandidatePool forwards pool sizes when supported by the sink.
func (m *MultiSink) RecordCandidatePool(cargoID string, size int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(coremetrics.FleetSizeRecorder); ok {
			if err := fr.RecordCandidatePool(cargoID, size); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordLifecycle forwards transitions when supported by the sink.
func (m *MultiSink) RecordLifecycle(ev coremetrics.LifecycleEvent) error {
	for _, s := range m.Sinks {
		if lr, ok := s.(coremetrics.LifecycleRecorder); ok {
			if err := lr.RecordLifecycle(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
