// Package factory turns the `telemetry.sinks` entries of an epsim config
// into live sinks. infra/metrics registers "nop", "prometheus" and "influx"
// at init; app.Service then builds whatever the config lists:
//
//	telemetry:
//	  sinks:
//	    - type: influx
//	      conf: {url: http://localhost:8086, org: epsim, bucket: eps}
package factory
