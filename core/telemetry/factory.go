package telemetry

import (
	"errors"
	"fmt"

	"github.com/kilianp07/epsim/core/factory"
)

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewSink creates a Sink from the provided configuration. If one sink fails
// to build, the ones already created are closed before returning.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			err = fmt.Errorf("sinks[%d]: %w", i, err)
			return nil, errors.Join(err, NewMultiSink(sinks...).Close())
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
