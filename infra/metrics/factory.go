package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/epsim/core/factory"
	"github.com/kilianp07/epsim/core/telemetry"
)

// init registers built-in telemetry sinks.
func init() {
	_ = telemetry.RegisterSink("nop", func(map[string]any) (telemetry.Sink, error) {
		return telemetry.NopSink{}, nil
	})

	_ = telemetry.RegisterSink("prometheus", func(map[string]any) (telemetry.Sink, error) {
		// The /metrics listener is started by app.Service from telemetry.prometheus_addr.
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = telemetry.RegisterSink("influx", func(conf map[string]any) (telemetry.Sink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
