package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/epsim/config"
)

// EPSDef overrides the engine nameplate. An omitted initial_soc starts full.
type EPSDef struct {
	InitialSOC     *float64  `yaml:"initial_soc,omitempty"`
	BatteryVoltage float64   `yaml:"battery_voltage"`
	CapacityWh     float64   `yaml:"capacity_wh"`
	PanelCapacity  []float64 `yaml:"panel_capacity,omitempty"`
}

// VectorsDef names a vector file or a generated profile.
type VectorsDef struct {
	File          string  `yaml:"file,omitempty"`
	Kind          string  `yaml:"kind,omitempty"`
	PeriodSeconds float64 `yaml:"period_seconds,omitempty"`
	DtSeconds     float64 `yaml:"dt_seconds,omitempty"`
}

type PanelEventDef struct {
	AtStep   int       `yaml:"at_step"`
	Capacity []float64 `yaml:"capacity"`
}

// Expected bounds checked after the run. Unset fields are not checked.
type Expected struct {
	FinalSOCMin        *float64 `yaml:"final_soc_min,omitempty"`
	FinalSOCMax        *float64 `yaml:"final_soc_max,omitempty"`
	SOCMonotonic       string   `yaml:"soc_monotonic,omitempty"`
	EclipseSteps       *int     `yaml:"eclipse_steps,omitempty"`
	FullChargeStepMin  *int     `yaml:"full_charge_step_min,omitempty"`
	FullChargeStepMax  *int     `yaml:"full_charge_step_max,omitempty"`
	NeverFullyCharged  bool     `yaml:"never_fully_charged,omitempty"`
	FinalVoltageAtMost *float64 `yaml:"final_voltage_at_most,omitempty"`
}

type Scenario struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description,omitempty"`
	EPS             EPSDef          `yaml:"eps"`
	TimestepSeconds float64         `yaml:"timestep_seconds"`
	Vectors         VectorsDef      `yaml:"vectors"`
	SwitchesOn      []int           `yaml:"switches_on,omitempty"`
	PanelEvents     []PanelEventDef `yaml:"panel_events,omitempty"`
	Expected        Expected        `yaml:"expected"`

	dir string
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sc.dir = filepath.Dir(path)
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: name is required", path)
	}
	switch sc.Expected.SOCMonotonic {
	case "", "up", "down":
	default:
		return nil, fmt.Errorf("%s: soc_monotonic must be up or down", path)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// ToConfig converts the scenario into a full configuration with defaults
// applied. Relative vector files resolve against the scenario's directory.
func (s *Scenario) ToConfig() (*config.Config, error) {
	cfg := &config.Config{}
	cfg.EPS = config.EPSConfig{
		InitialSOC:     s.EPS.InitialSOC,
		BatteryVoltage: s.EPS.BatteryVoltage,
		CapacityWh:     s.EPS.CapacityWh,
		PanelCapacity:  s.EPS.PanelCapacity,
	}
	cfg.Run = config.RunConfig{
		Name:            s.Name,
		TimestepSeconds: s.TimestepSeconds,
		SwitchesOn:      s.SwitchesOn,
		Generator: config.GeneratorConfig{
			Kind:          s.Vectors.Kind,
			PeriodSeconds: s.Vectors.PeriodSeconds,
			DtSeconds:     s.Vectors.DtSeconds,
		},
	}
	if f := s.Vectors.File; f != "" {
		if !filepath.IsAbs(f) && s.dir != "" {
			f = filepath.Join(s.dir, f)
		}
		cfg.Run.SunVectors = f
	}
	for _, ev := range s.PanelEvents {
		cfg.Run.PanelEvents = append(cfg.Run.PanelEvents, config.PanelEvent{AtStep: ev.AtStep, Capacity: ev.Capacity})
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return cfg, nil
}
