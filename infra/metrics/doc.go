// Package metrics implements telemetry sinks backed by Prometheus and
// InfluxDB and registers them with the core telemetry factory under the
// names "prometheus", "influx" and "nop".
package metrics
