package eps

import (
	"fmt"
	"math"
)

// NumRails and NumSwitches are fixed by the hardware layout.
const (
	NumRails    = 5
	NumSwitches = 8
	NumFacets   = 5
)

// Rail indices.
const (
	RailBattery = iota
	Rail3V3
	Rail5V
	Rail12V
	RailSolar
)

// DefaultPanelCapacityW is the nameplate output of a single fully lit facet.
const DefaultPanelCapacityW = 26.91

// RailSpec is the nameplate of a regulated bus.
type RailSpec struct {
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Temperature float64 `json:"temperature"`
}

// SwitchSpec is the nameplate of a commandable load.
type SwitchSpec struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
}

// Config holds everything needed to build a Model. The zero value is not
// usable; start from DefaultConfig and override fields.
type Config struct {
	InitialSOC     float64                 `json:"initial_soc"`
	NominalVoltage float64                 `json:"battery_voltage"`
	CapacityWh     float64                 `json:"capacity_wh"`
	Rails          [NumRails]RailSpec      `json:"rails"`
	Switches       [NumSwitches]SwitchSpec `json:"switches"`
	PanelCapacity  [NumFacets]float64      `json:"panel_capacity"`
}

// DefaultConfig returns the reference flight-software configuration.
// Rail 0 voltage tracks the battery and is filled in by New.
func DefaultConfig() Config {
	return Config{
		InitialSOC:     1.0,
		NominalVoltage: 24.0,
		CapacityWh:     20.0,
		Rails: [NumRails]RailSpec{
			RailBattery: {Temperature: 30.0},
			Rail3V3:     {Voltage: 3.3, Current: 0.15, Temperature: 25.0},
			Rail5V:      {Voltage: 5.0, Current: 0.10, Temperature: 25.0},
			Rail12V:     {Voltage: 12.0, Current: 0.05, Temperature: 25.0},
			RailSolar:   {Voltage: 32.0, Current: 4.0, Temperature: 80.0},
		},
		Switches: [NumSwitches]SwitchSpec{
			{Voltage: 1.23, Current: 4.56},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 3.30, Current: 0.25},
			{Voltage: 12.00, Current: 1.23},
		},
		PanelCapacity: UniformPanels(DefaultPanelCapacityW),
	}
}

// UniformPanels returns a capacity array with w on every facet.
func UniformPanels(w float64) [NumFacets]float64 {
	var p [NumFacets]float64
	for i := range p {
		p[i] = w
	}
	return p
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !finite(c.InitialSOC) || c.InitialSOC < 0 || c.InitialSOC > 1 {
		return fmt.Errorf("%w: initial soc %v outside [0,1]", ErrInvalidConfiguration, c.InitialSOC)
	}
	if !finite(c.NominalVoltage) || c.NominalVoltage <= 0 {
		return fmt.Errorf("%w: battery voltage must be positive, got %v", ErrInvalidConfiguration, c.NominalVoltage)
	}
	if !finite(c.CapacityWh) || c.CapacityWh <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %v Wh", ErrInvalidConfiguration, c.CapacityWh)
	}
	for i, r := range c.Rails {
		if !finite(r.Voltage) || !finite(r.Current) || !finite(r.Temperature) {
			return fmt.Errorf("%w: rail %d has non-finite nameplate", ErrInvalidConfiguration, i)
		}
	}
	for i, s := range c.Switches {
		if !finite(s.Voltage) || !finite(s.Current) {
			return fmt.Errorf("%w: switch %d has non-finite nameplate", ErrInvalidConfiguration, i)
		}
	}
	return validatePanels(c.PanelCapacity)
}

func validatePanels(p [NumFacets]float64) error {
	for i, w := range p {
		if !finite(w) || w < 0 {
			return fmt.Errorf("%w: panel %s capacity %v", ErrInvalidConfiguration, Facet(i), w)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
