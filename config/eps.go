package config

import (
	"fmt"

	"github.com/kilianp07/epsim/core/eps"
)

// EPSConfig describes the spacecraft power hardware.
type EPSConfig struct {
	InitialSOC     *float64         `json:"initial_soc"`
	BatteryVoltage float64          `json:"battery_voltage"`
	CapacityWh     float64          `json:"capacity_wh"`
	PanelWatts     float64          `json:"panel_watts"`
	PanelCapacity  []float64        `json:"panel_capacity"`
	Switches       []SwitchOverride `json:"switches"`
	Rails          []RailOverride   `json:"rails"`
}

// SwitchOverride replaces the nameplate of one switch.
type SwitchOverride struct {
	Index   int     `json:"index"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
}

// RailOverride replaces the nameplate of one rail.
type RailOverride struct {
	Index       int     `json:"index"`
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Temperature float64 `json:"temperature"`
}

// SetDefaults fills unset fields from eps.DefaultConfig.
func (c *EPSConfig) SetDefaults() {
	def := eps.DefaultConfig()
	if c.InitialSOC == nil {
		soc := def.InitialSOC
		c.InitialSOC = &soc
	}
	if c.BatteryVoltage == 0 {
		c.BatteryVoltage = def.NominalVoltage
	}
	if c.CapacityWh == 0 {
		c.CapacityWh = def.CapacityWh
	}
	if len(c.PanelCapacity) == 0 {
		w := c.PanelWatts
		if w == 0 {
			w = eps.DefaultPanelCapacityW
		}
		p := eps.UniformPanels(w)
		c.PanelCapacity = p[:]
	}
}

// Validate checks the section can build a model.
func (c EPSConfig) Validate() error {
	_, err := c.ModelConfig()
	return err
}

// ModelConfig converts the section into an engine configuration.
func (c EPSConfig) ModelConfig() (eps.Config, error) {
	cfg := eps.DefaultConfig()
	if c.InitialSOC != nil {
		cfg.InitialSOC = *c.InitialSOC
	}
	if c.BatteryVoltage != 0 {
		cfg.NominalVoltage = c.BatteryVoltage
	}
	if c.CapacityWh != 0 {
		cfg.CapacityWh = c.CapacityWh
	}
	if len(c.PanelCapacity) > 0 {
		p, err := PanelArray(c.PanelCapacity)
		if err != nil {
			return cfg, err
		}
		cfg.PanelCapacity = p
	} else if c.PanelWatts != 0 {
		cfg.PanelCapacity = eps.UniformPanels(c.PanelWatts)
	}
	for _, o := range c.Switches {
		if o.Index < 0 || o.Index >= eps.NumSwitches {
			return cfg, fmt.Errorf("%w: switch override %d", eps.ErrIndexOutOfRange, o.Index)
		}
		cfg.Switches[o.Index] = eps.SwitchSpec{Voltage: o.Voltage, Current: o.Current}
	}
	for _, o := range c.Rails {
		if o.Index < 0 || o.Index >= eps.NumRails {
			return cfg, fmt.Errorf("%w: rail override %d", eps.ErrIndexOutOfRange, o.Index)
		}
		cfg.Rails[o.Index] = eps.RailSpec{Voltage: o.Voltage, Current: o.Current, Temperature: o.Temperature}
	}
	return cfg, cfg.Validate()
}

// PanelArray converts a list of facet capacities in +X, -X, +Y, -Y, -Z order.
func PanelArray(vals []float64) ([eps.NumFacets]float64, error) {
	var p [eps.NumFacets]float64
	if len(vals) != eps.NumFacets {
		return p, fmt.Errorf("%w: panel capacity needs %d values, got %d",
			eps.ErrInvalidConfiguration, eps.NumFacets, len(vals))
	}
	copy(p[:], vals)
	return p, nil
}
