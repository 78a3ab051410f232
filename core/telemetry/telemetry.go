package telemetry

import (
	"time"

	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/core/factory"
)

// StepEvent is the telemetry emitted after one engine step.
type StepEvent struct {
	RunID    string       `json:"run_id"`
	Run      string       `json:"run"`
	Step     int          `json:"step"`
	Elapsed  float64      `json:"elapsed_s"`
	InSun    bool         `json:"in_sun"`
	Snapshot eps.Snapshot `json:"snapshot"`
	Time     time.Time    `json:"time"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Run          string    `json:"run"`
	Steps        int       `json:"steps"`
	Elapsed      float64   `json:"elapsed_s"`
	EclipseSteps int       `json:"eclipse_steps"`
	InitialSOC   float64   `json:"initial_soc"`
	FinalSOC     float64   `json:"final_soc"`
	MinSOC       float64   `json:"min_soc"`
	MaxSOC       float64   `json:"max_soc"`
	FinalVoltage float64   `json:"final_voltage"`
	Time         time.Time `json:"time"`
}

// Sink records step telemetry.
type Sink interface {
	RecordStep(ev StepEvent) error
}

// RunRecorder is implemented by sinks that want the end-of-run summary.
type RunRecorder interface {
	RecordRunComplete(sum RunSummary) error
}

// NopSink implements Sink and RunRecorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error { return nil }

func (NopSink) RecordRunComplete(RunSummary) error { return nil }

// Config defines settings for telemetry sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr"`
}
