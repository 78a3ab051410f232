package telemetry

import (
	"errors"
	"io"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordStep(ev StepEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRunComplete forwards the summary to sinks that support it.
func (m *MultiSink) RecordRunComplete(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRunComplete(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink implementing io.Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
