package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/epsim/core/eps"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `eps:
  initial_soc: 0.2
  battery_voltage: 24
  capacity_wh: 20
  panel_capacity: [0, 0, 26.91, 26.91, 26.91]
  switches:
    - index: 0
      voltage: 5
      current: 1
run:
  name: night
  timestep_seconds: 10
  generator:
    kind: night_pass
  log_path: out.csv
  switches_on: [7]
  panel_events:
    - at_step: 100
      capacity: [1, 1, 1, 1, 1]
telemetry:
  sinks:
    - type: prometheus
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"initial_soc", *cfg.EPS.InitialSOC, 0.2},
		{"capacity", cfg.EPS.CapacityWh, 20.0},
		{"run.name", cfg.Run.Name, "night"},
		{"generator.kind", cfg.Run.Generator.Kind, "night_pass"},
		{"generator.period", cfg.Run.Generator.PeriodSeconds, 6000.0},
		{"generator.dt", cfg.Run.Generator.DtSeconds, 10.0},
		{"switches_on", len(cfg.Run.SwitchesOn) == 1 && cfg.Run.SwitchesOn[0] == 7, true},
		{"panel_events", cfg.Run.PanelEvents[0].AtStep, 100},
		{"sink", cfg.Telemetry.Sinks[0].Type, "prometheus"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}

	mc, err := cfg.EPS.ModelConfig()
	require.NoError(t, err)
	assert.Equal(t, [eps.NumFacets]float64{0, 0, 26.91, 26.91, 26.91}, mc.PanelCapacity)
	assert.Equal(t, eps.SwitchSpec{Voltage: 5, Current: 1}, mc.Switches[0])
	assert.Equal(t, eps.DefaultConfig().Switches[7], mc.Switches[7])
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"run":{"sun_vectors":"inputs/always_sun"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *cfg.EPS.InitialSOC)
	assert.Equal(t, 24.0, cfg.EPS.BatteryVoltage)
	assert.Len(t, cfg.EPS.PanelCapacity, eps.NumFacets)
	assert.Equal(t, 10.0, cfg.Run.TimestepSeconds)
	assert.Equal(t, "eps", cfg.Run.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestZeroInitialSOCIsKept(t *testing.T) {
	path := writeFile(t, "config.yaml", "eps:\n  initial_soc: 0\nrun:\n  generator:\n    kind: always_sun\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *cfg.EPS.InitialSOC)
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "run:\n  generator:\n    kind: always_sun\n")
	t.Setenv("EPS_RUN__TIMESTEP_SECONDS", "5")
	t.Setenv("EPS_EPS__INITIAL_SOC", "0.5")
	t.Setenv("EPS_LOGGING__LEVEL", "warn")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Run.TimestepSeconds)
	assert.Equal(t, 5.0, cfg.Run.Generator.DtSeconds)
	assert.Equal(t, 0.5, *cfg.EPS.InitialSOC)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cases := map[string]string{
		"no vectors":    "run:\n  name: x\n",
		"both sources":  "run:\n  sun_vectors: a\n  generator:\n    kind: always_sun\n",
		"bad soc":       "eps:\n  initial_soc: 1.5\nrun:\n  sun_vectors: a\n",
		"bad panels":    "eps:\n  panel_capacity: [1, 2]\nrun:\n  sun_vectors: a\n",
		"bad switch":    "run:\n  sun_vectors: a\n  switches_on: [8]\n",
		"bad event":     "run:\n  sun_vectors: a\n  panel_events:\n    - at_step: -1\n      capacity: [1,1,1,1,1]\n",
		"bad timestep":  "run:\n  sun_vectors: a\n  timestep_seconds: -1\n",
		"bad level":     "run:\n  sun_vectors: a\nlogging:\n  level: loud\n",
		"mqtt broker":   "run:\n  sun_vectors: a\nmqtt:\n  enabled: true\n",
		"sink type":     "run:\n  sun_vectors: a\ntelemetry:\n  sinks:\n    - conf: {}\n",
		"rail override": "eps:\n  rails:\n    - index: 9\nrun:\n  sun_vectors: a\n",
	}
	for name, data := range cases {
		_, err := Load(writeFile(t, "config.yaml", data))
		assert.Error(t, err, name)
	}
}

func TestIgnoreInvalidSwitchAllowsOutOfRange(t *testing.T) {
	path := writeFile(t, "config.yaml", "run:\n  sun_vectors: a\n  switches_on: [8]\n  ignore_invalid_switch: true\n")
	_, err := Load(path)
	assert.NoError(t, err)
}

func TestInvalidTimestepSentinel(t *testing.T) {
	err := RunConfig{TimestepSeconds: -1, SunVectors: "a"}.Validate()
	assert.True(t, errors.Is(err, eps.ErrInvalidTimestep))
}
