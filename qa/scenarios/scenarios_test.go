package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/pkg/export"
	"github.com/kilianp07/epsim/pkg/sunvec"
)

func TestScenario(t *testing.T) {
	all, err := LoadDir(".")
	require.NoError(t, err)
	require.Len(t, all, 6)
	for _, sc := range all {
		t.Run(sc.Name, func(t *testing.T) {
			res, err := Run(context.Background(), sc, RunOptions{LogDir: t.TempDir(), Logger: logger.NopLogger{}})
			require.NoError(t, err)
			assert.Equal(t, 600, res.Summary.Steps)
			assert.NoError(t, res.Check(sc.Expected))

			f, err := os.Open(res.LogPath)
			require.NoError(t, err)
			defer f.Close()
			recs, err := export.ReadCSV(f)
			require.NoError(t, err)
			assert.Len(t, recs, 600)
		})
	}
}

func TestScenarioFromVectorFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sunvec.WriteFile(filepath.Join(dir, "dark"), make([]eps.SunVector, 10)))
	yaml := `name: dark
eps:
  initial_soc: 0.5
vectors:
  file: dark
expected:
  soc_monotonic: down
  eclipse_steps: 10
  never_fully_charged: true
`
	path := filepath.Join(dir, "dark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	sc, err := Load(path)
	require.NoError(t, err)
	res, err := Run(context.Background(), sc, RunOptions{Logger: logger.NopLogger{}})
	require.NoError(t, err)
	assert.Empty(t, res.LogPath)
	assert.Len(t, res.Records, 10)
	assert.NoError(t, res.Check(sc.Expected))
	assert.Equal(t, -1, res.FullChargeStep())
}

func TestScenarioDefaultsToFullBattery(t *testing.T) {
	sc := &Scenario{Name: "full", Vectors: VectorsDef{Kind: "always_sun"}}
	cfg, err := sc.ToConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.EPS.InitialSOC)
	assert.Equal(t, 1.0, *cfg.EPS.InitialSOC)

	zero := 0.0
	sc.EPS.InitialSOC = &zero
	cfg, err = sc.ToConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.0, *cfg.EPS.InitialSOC)
}

func TestCheckReportsViolations(t *testing.T) {
	lo, hi, ecl := 0.9, 0.95, 3
	res := Result{Records: []export.LogRecord{{SOC: 0.5}, {SOC: 0.4}}}
	res.Summary.FinalSOC = 0.4
	err := res.Check(Expected{FinalSOCMin: &lo, SOCMonotonic: "up", EclipseSteps: &ecl})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below")
	assert.Contains(t, err.Error(), "soc fell")
	assert.Contains(t, err.Error(), "eclipse steps")

	res.Summary.FinalSOC = 0.99
	assert.Error(t, res.Check(Expected{FinalSOCMax: &hi}))
	first := 1
	assert.Error(t, res.Check(Expected{FullChargeStepMin: &first}))
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("eps:\n  initial_soc: 0.5\n"), 0o644))
	_, err = Load(noName)
	assert.Error(t, err)

	mono := filepath.Join(dir, "mono.yaml")
	require.NoError(t, os.WriteFile(mono, []byte("name: x\nexpected:\n  soc_monotonic: sideways\n"), 0o644))
	_, err = Load(mono)
	assert.Error(t, err)
}

func TestMissingVectorFile(t *testing.T) {
	sc := &Scenario{Name: "missing", Vectors: VectorsDef{File: filepath.Join(t.TempDir(), "nope")}}
	_, err := Run(context.Background(), sc, RunOptions{Logger: logger.NopLogger{}})
	assert.ErrorIs(t, err, eps.ErrInputUnavailable)
}
