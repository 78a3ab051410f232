package eps

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const secondsPerHour = 3600.0

// Switch is a commandable load. Only Enabled changes after construction.
type Switch struct {
	NominalVoltage float64
	NominalCurrent float64
	Enabled        bool
}

// Power returns the nameplate draw in watts.
func (s Switch) Power() float64 { return s.NominalVoltage * s.NominalCurrent }

// Rail is a regulated bus. StoredEnergy is only meaningful on RailBattery.
type Rail struct {
	Voltage      float64
	Current      float64
	Temperature  float64
	StoredEnergy float64
}

// Model is the EPS state-update engine for a single spacecraft.
// It is not safe for concurrent use; callers serialize access.
type Model struct {
	rails      [NumRails]Rail
	switches   [NumSwitches]Switch
	panels     PanelSet
	capacityWh float64
	nominalV   float64
	powerIn    float64
	powerOut   float64
}

// New builds a Model from cfg. All switches start disabled.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		capacityWh: cfg.CapacityWh,
		nominalV:   cfg.NominalVoltage,
	}
	for i, r := range cfg.Rails {
		m.rails[i] = Rail{Voltage: r.Voltage, Current: r.Current, Temperature: r.Temperature}
	}
	for i, s := range cfg.Switches {
		m.switches[i] = Switch{NominalVoltage: s.Voltage, NominalCurrent: s.Current}
	}
	m.panels.Capacity = cfg.PanelCapacity
	m.rails[RailBattery].StoredEnergy = cfg.CapacityWh * cfg.InitialSOC
	m.rails[RailBattery].Voltage = VoltageAt(m.nominalV, m.StateOfCharge())
	m.powerOut = m.PowerOut()
	return m, nil
}

// VoltageAt is the affine discharge curve: 95% of nominal when empty,
// 105% when full.
func VoltageAt(nominal, soc float64) float64 {
	return 0.95*nominal + 0.10*nominal*soc
}

// SetSwitch enables or disables a switch. Out of range indices leave every
// switch untouched and return ErrIndexOutOfRange.
func (m *Model) SetSwitch(index int, enabled bool) error {
	if index < 0 || index >= NumSwitches {
		return fmt.Errorf("%w: switch %d", ErrIndexOutOfRange, index)
	}
	m.switches[index].Enabled = enabled
	return nil
}

// SetPanelCapacity replaces all facet capacities. It takes effect on the next Step.
func (m *Model) SetPanelCapacity(capacity [NumFacets]float64) error {
	if err := validatePanels(capacity); err != nil {
		return err
	}
	m.panels.Capacity = capacity
	return nil
}

// PowerOut returns the current load: the always-on 3.3V, 5V and 12V rails
// plus every enabled switch.
func (m *Model) PowerOut() float64 {
	var out float64
	for i := Rail3V3; i <= Rail12V; i++ {
		out += m.rails[i].Voltage * m.rails[i].Current
	}
	for _, s := range m.switches {
		if s.Enabled {
			out += s.Power()
		}
	}
	return out
}

// EnergyDelta is the unclamped change in stored energy (Wh) over dt seconds.
func EnergyDelta(dt, powerIn, powerOut float64) float64 {
	return dt * (powerIn - powerOut) / secondsPerHour
}

// Step advances the model by dt seconds under the given sun vector.
// On error the state is left unchanged.
func (m *Model) Step(dt float64, sun SunVector) error {
	if !finite(dt) || dt < 0 {
		return fmt.Errorf("%w: %v s", ErrInvalidTimestep, dt)
	}
	if !validSun(sun) {
		return fmt.Errorf("%w: %+v", ErrInvalidSunVector, sun)
	}

	m.panels.LastInput = PanelInputs(sun, m.panels.Capacity)
	m.powerIn = floats.Sum(m.panels.LastInput[:])
	m.powerOut = m.PowerOut()

	batt := &m.rails[RailBattery]
	batt.StoredEnergy += EnergyDelta(dt, m.powerIn, m.powerOut)
	batt.StoredEnergy = math.Min(math.Max(batt.StoredEnergy, 0), m.capacityWh)
	batt.Voltage = VoltageAt(m.nominalV, m.StateOfCharge())
	return nil
}

// BatteryVoltage returns the battery rail voltage in volts.
func (m *Model) BatteryVoltage() float64 { return m.rails[RailBattery].Voltage }

// StateOfCharge is derived from stored energy and clamped to [0,1].
func (m *Model) StateOfCharge() float64 {
	return math.Min(math.Max(m.rails[RailBattery].StoredEnergy/m.capacityWh, 0), 1)
}

// StoredEnergy returns the battery energy in watt-hours.
func (m *Model) StoredEnergy() float64 { return m.rails[RailBattery].StoredEnergy }

// CapacityWh returns the battery capacity in watt-hours.
func (m *Model) CapacityWh() float64 { return m.capacityWh }

// NominalVoltage returns the configured nominal battery voltage.
func (m *Model) NominalVoltage() float64 { return m.nominalV }

// Switch returns a copy of switch i. ok is false when i is out of range.
func (m *Model) Switch(i int) (s Switch, ok bool) {
	if i < 0 || i >= NumSwitches {
		return Switch{}, false
	}
	return m.switches[i], true
}

// Rail returns a copy of rail i. ok is false when i is out of range.
func (m *Model) Rail(i int) (r Rail, ok bool) {
	if i < 0 || i >= NumRails {
		return Rail{}, false
	}
	return m.rails[i], true
}

// Panels returns a copy of the panel state.
func (m *Model) Panels() PanelSet { return m.panels }

// Snapshot captures the telemetry surface after the last step.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		BatteryVoltage: m.BatteryVoltage(),
		SOC:            m.StateOfCharge(),
		StoredEnergyWh: m.StoredEnergy(),
		CapacityWh:     m.capacityWh,
		PowerInW:       m.powerIn,
		PowerOutW:      m.powerOut,
		SolarVoltage:   m.rails[RailSolar].Voltage,
		SolarCurrent:   m.rails[RailSolar].Current,
		PanelInputW:    m.panels.LastInput,
	}
	for i, sw := range m.switches {
		s.Switches[i] = sw.Enabled
	}
	return s
}
