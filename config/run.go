package config

import (
	"fmt"
	"math"

	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/pkg/sunvec"
)

// RunConfig controls one simulation run.
type RunConfig struct {
	Name                string          `json:"name"`
	TimestepSeconds     float64         `json:"timestep_seconds"`
	Steps               int             `json:"steps"`
	SunVectors          string          `json:"sun_vectors"`
	Generator           GeneratorConfig `json:"generator"`
	LogPath             string          `json:"log_path"`
	TruncateLog         bool            `json:"truncate_log"`
	SwitchesOn          []int           `json:"switches_on"`
	IgnoreInvalidSwitch bool            `json:"ignore_invalid_switch"`
	PanelEvents         []PanelEvent    `json:"panel_events"`
	StatusEvery         int             `json:"status_every"`
}

// GeneratorConfig selects a synthetic sun-vector profile.
type GeneratorConfig struct {
	Kind          string  `json:"kind"`
	PeriodSeconds float64 `json:"period_seconds"`
	DtSeconds     float64 `json:"dt_seconds"`
}

// PanelEvent replaces the panel capacities before the step with zero-based
// index AtStep.
type PanelEvent struct {
	AtStep   int       `json:"at_step"`
	Capacity []float64 `json:"capacity"`
}

// SetDefaults applies fallback values for optional fields.
func (c *RunConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "eps"
	}
	if c.TimestepSeconds == 0 {
		c.TimestepSeconds = sunvec.DefaultDt
	}
	if c.Generator.Kind != "" {
		if c.Generator.PeriodSeconds == 0 {
			c.Generator.PeriodSeconds = sunvec.DefaultPeriod
		}
		if c.Generator.DtSeconds == 0 {
			c.Generator.DtSeconds = c.TimestepSeconds
		}
	}
}

// Validate checks the run parameters.
func (c RunConfig) Validate() error {
	if math.IsNaN(c.TimestepSeconds) || math.IsInf(c.TimestepSeconds, 0) || c.TimestepSeconds <= 0 {
		return fmt.Errorf("%w: timestep_seconds must be positive, got %v", eps.ErrInvalidTimestep, c.TimestepSeconds)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be >= 0")
	}
	if c.SunVectors == "" && c.Generator.Kind == "" {
		return fmt.Errorf("sun_vectors or generator.kind is required")
	}
	if c.SunVectors != "" && c.Generator.Kind != "" {
		return fmt.Errorf("sun_vectors and generator.kind are exclusive")
	}
	if c.StatusEvery < 0 {
		return fmt.Errorf("status_every must be >= 0")
	}
	if !c.IgnoreInvalidSwitch {
		for _, i := range c.SwitchesOn {
			if i < 0 || i >= eps.NumSwitches {
				return fmt.Errorf("%w: switches_on contains %d", eps.ErrIndexOutOfRange, i)
			}
		}
	}
	for i, ev := range c.PanelEvents {
		if ev.AtStep < 0 {
			return fmt.Errorf("panel_events[%d].at_step must be >= 0", i)
		}
		if _, err := PanelArray(ev.Capacity); err != nil {
			return fmt.Errorf("panel_events[%d]: %w", i, err)
		}
	}
	return nil
}

// SunVectorSource loads or generates the vectors for the run.
func (c RunConfig) SunVectorSource() ([]eps.SunVector, error) {
	if c.SunVectors != "" {
		return sunvec.ReadFile(c.SunVectors)
	}
	return sunvec.Generate(c.Generator.Kind, c.Generator.PeriodSeconds, c.Generator.DtSeconds)
}
