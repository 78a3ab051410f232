// Package telemetry defines the observer side of a simulation run. Every
// step produces a StepEvent that is handed to a Sink; sinks such as the
// Prometheus and InfluxDB exporters in infra/metrics are built from
// configuration through the factory registry and combined with
// NewMultiSink when more than one is configured. Sinks never mutate the
// model.
package telemetry
