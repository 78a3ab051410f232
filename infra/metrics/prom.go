package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/core/telemetry"
)

// PromSink exposes the latest EPS state as Prometheus gauges.
type PromSink struct {
	voltage  *prometheus.GaugeVec
	soc      *prometheus.GaugeVec
	energy   *prometheus.GaugeVec
	powerIn  *prometheus.GaugeVec
	powerOut *prometheus.GaugeVec
	panel    *prometheus.GaugeVec
	switches *prometheus.GaugeVec
	steps    *prometheus.CounterVec
	eclipse  *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewPromSink registers EPS metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, append([]string{"run"}, labels...))
	}
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"run"})
	}
	s := &PromSink{
		voltage:  gauge("eps_battery_voltage_volts", "Battery rail voltage"),
		soc:      gauge("eps_state_of_charge_ratio", "Battery state of charge between 0 and 1"),
		energy:   gauge("eps_stored_energy_wh", "Energy stored in the battery"),
		powerIn:  gauge("eps_power_in_watts", "Solar power delivered on the last step"),
		powerOut: gauge("eps_power_out_watts", "Load drawn on the last step"),
		panel:    gauge("eps_panel_input_watts", "Per facet solar input", "facet"),
		switches: gauge("eps_switch_enabled", "1 when the switch is on", "switch"),
		steps:    counter("eps_steps_total", "Number of simulated steps"),
		eclipse:  counter("eps_eclipse_steps_total", "Number of steps spent in eclipse"),
		runs:     counter("eps_runs_completed_total", "Number of finished runs"),
	}
	var err error
	if s.voltage, err = registerGauge(reg, s.voltage); err != nil {
		return nil, err
	}
	if s.soc, err = registerGauge(reg, s.soc); err != nil {
		return nil, err
	}
	if s.energy, err = registerGauge(reg, s.energy); err != nil {
		return nil, err
	}
	if s.powerIn, err = registerGauge(reg, s.powerIn); err != nil {
		return nil, err
	}
	if s.powerOut, err = registerGauge(reg, s.powerOut); err != nil {
		return nil, err
	}
	if s.panel, err = registerGauge(reg, s.panel); err != nil {
		return nil, err
	}
	if s.switches, err = registerGauge(reg, s.switches); err != nil {
		return nil, err
	}
	if s.steps, err = registerCounter(reg, s.steps); err != nil {
		return nil, err
	}
	if s.eclipse, err = registerCounter(reg, s.eclipse); err != nil {
		return nil, err
	}
	if s.runs, err = registerCounter(reg, s.runs); err != nil {
		return nil, err
	}
	return s, nil
}

func registerGauge(reg prometheus.Registerer, g *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.GaugeVec), nil
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

// RecordStep updates the gauges with the snapshot carried by ev.
func (s *PromSink) RecordStep(ev telemetry.StepEvent) error {
	snap := ev.Snapshot
	s.voltage.WithLabelValues(ev.Run).Set(snap.BatteryVoltage)
	s.soc.WithLabelValues(ev.Run).Set(snap.SOC)
	s.energy.WithLabelValues(ev.Run).Set(snap.StoredEnergyWh)
	s.powerIn.WithLabelValues(ev.Run).Set(snap.PowerInW)
	s.powerOut.WithLabelValues(ev.Run).Set(snap.PowerOutW)
	for i, w := range snap.PanelInputW {
		s.panel.WithLabelValues(ev.Run, eps.Facet(i).String()).Set(w)
	}
	for i, on := range snap.Switches {
		v := 0.0
		if on {
			v = 1
		}
		s.switches.WithLabelValues(ev.Run, strconv.Itoa(i)).Set(v)
	}
	s.steps.WithLabelValues(ev.Run).Inc()
	if !ev.InSun {
		s.eclipse.WithLabelValues(ev.Run).Inc()
	}
	return nil
}

// RecordRunComplete counts finished runs.
func (s *PromSink) RecordRunComplete(sum telemetry.RunSummary) error {
	s.runs.WithLabelValues(sum.Run).Inc()
	return nil
}
