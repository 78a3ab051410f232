package eps

// Snapshot is a read-only copy of the telemetry surface.
type Snapshot struct {
	BatteryVoltage float64            `json:"battery_voltage"`
	SOC            float64            `json:"soc"`
	StoredEnergyWh float64            `json:"stored_energy_wh"`
	CapacityWh     float64            `json:"capacity_wh"`
	PowerInW       float64            `json:"power_in_w"`
	PowerOutW      float64            `json:"power_out_w"`
	SolarVoltage   float64            `json:"solar_voltage"`
	SolarCurrent   float64            `json:"solar_current"`
	PanelInputW    [NumFacets]float64 `json:"panel_input_w"`
	Switches       [NumSwitches]bool  `json:"switches"`
}

// EnabledSwitches returns the indices of switches that are on.
func (s Snapshot) EnabledSwitches() []int {
	var on []int
	for i, e := range s.Switches {
		if e {
			on = append(on, i)
		}
	}
	return on
}
