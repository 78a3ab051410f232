// Package infra holds the adapters that connect the EPS runner to the
// outside world: the zerolog logger, the Prometheus and InfluxDB telemetry
// sinks and the paho MQTT bridge. They depend on the interfaces in core and
// never on the engine's internals.
package infra
