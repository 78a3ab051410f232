package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kilianp07/epsim/app"
	"github.com/kilianp07/epsim/core/eps"
	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/pkg/export"
)

// RunOptions tunes how a scenario is executed.
type RunOptions struct {
	// LogDir receives <name>.csv when set; the file is truncated first.
	LogDir string
	Sink   telemetry.Sink
	Logger logger.Logger
}

// Result is the outcome of one scenario run.
type Result struct {
	Summary telemetry.RunSummary
	Records []export.LogRecord
	LogPath string
}

type recorder struct {
	recs []export.LogRecord
	csv  *export.CSVLog
}

func (r *recorder) Append(rec export.LogRecord) error {
	r.recs = append(r.recs, rec)
	if r.csv != nil {
		return r.csv.Append(rec)
	}
	return nil
}

// Run executes sc and returns its log and summary. Expectations are not
// checked; see Result.Check.
func Run(ctx context.Context, sc *Scenario, opts RunOptions) (Result, error) {
	cfg, err := sc.ToConfig()
	if err != nil {
		return Result{}, err
	}
	modelCfg, err := cfg.EPS.ModelConfig()
	if err != nil {
		return Result{}, err
	}
	model, err := eps.New(modelCfg)
	if err != nil {
		return Result{}, err
	}
	vectors, err := cfg.Run.SunVectorSource()
	if err != nil {
		return Result{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	runOpts, err := app.OptionsFromConfig(cfg.Run)
	if err != nil {
		return Result{}, err
	}

	var res Result
	rec := &recorder{}
	if opts.LogDir != "" {
		res.LogPath = filepath.Join(opts.LogDir, sc.Name+".csv")
		rec.csv, err = export.OpenCSVLog(res.LogPath, true)
		if err != nil {
			return Result{}, err
		}
		defer func() { _ = rec.csv.Close() }()
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("scenario")
	}
	r, err := app.NewRunner(model, vectors, runOpts, app.Deps{Log: rec, Sink: opts.Sink, Logger: opts.Logger})
	if err != nil {
		return Result{}, err
	}
	res.Summary, err = r.Run(ctx)
	res.Records = rec.recs
	return res, err
}

// Check compares the result with exp and reports every violation.
func (r Result) Check(exp Expected) error {
	var errs []error
	final := r.Summary.FinalSOC
	if exp.FinalSOCMin != nil && final < *exp.FinalSOCMin {
		errs = append(errs, fmt.Errorf("final soc %.4f below %.4f", final, *exp.FinalSOCMin))
	}
	if exp.FinalSOCMax != nil && final > *exp.FinalSOCMax {
		errs = append(errs, fmt.Errorf("final soc %.4f above %.4f", final, *exp.FinalSOCMax))
	}
	if exp.FinalVoltageAtMost != nil && r.Summary.FinalVoltage > *exp.FinalVoltageAtMost {
		errs = append(errs, fmt.Errorf("final voltage %.2f above %.2f", r.Summary.FinalVoltage, *exp.FinalVoltageAtMost))
	}
	if exp.EclipseSteps != nil && r.Summary.EclipseSteps != *exp.EclipseSteps {
		errs = append(errs, fmt.Errorf("eclipse steps %d, want %d", r.Summary.EclipseSteps, *exp.EclipseSteps))
	}
	for i := 1; i < len(r.Records); i++ {
		prev, cur := r.Records[i-1].SOC, r.Records[i].SOC
		if exp.SOCMonotonic == "up" && cur < prev {
			errs = append(errs, fmt.Errorf("soc fell at step %d: %.6f -> %.6f", i, prev, cur))
			break
		}
		if exp.SOCMonotonic == "down" && cur > prev {
			errs = append(errs, fmt.Errorf("soc rose at step %d: %.6f -> %.6f", i, prev, cur))
			break
		}
	}
	full := r.FullChargeStep()
	if exp.NeverFullyCharged && full >= 0 {
		errs = append(errs, fmt.Errorf("battery fully charged at step %d", full))
	}
	if exp.FullChargeStepMin != nil || exp.FullChargeStepMax != nil {
		switch {
		case full < 0:
			errs = append(errs, errors.New("battery never fully charged"))
		case exp.FullChargeStepMin != nil && full < *exp.FullChargeStepMin:
			errs = append(errs, fmt.Errorf("fully charged at step %d, before %d", full, *exp.FullChargeStepMin))
		case exp.FullChargeStepMax != nil && full > *exp.FullChargeStepMax:
			errs = append(errs, fmt.Errorf("fully charged at step %d, after %d", full, *exp.FullChargeStepMax))
		}
	}
	return errors.Join(errs...)
}

// FullChargeStep returns the first step that ended with a full battery, or -1.
func (r Result) FullChargeStep() int {
	for i, rec := range r.Records {
		if rec.SOC >= 1 {
			return i
		}
	}
	return -1
}
