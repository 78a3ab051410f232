package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/epsim/core/command"
	"github.com/kilianp07/epsim/core/eps"
	coremqtt "github.com/kilianp07/epsim/core/mqtt"
	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/internal/eventbus"
	"github.com/kilianp07/epsim/pkg/export"
	"github.com/kilianp07/epsim/pkg/report"
)

// ErrNoSunVectors is returned by Run when there is nothing to simulate.
var ErrNoSunVectors = errors.New("no sun vectors to simulate")

// PanelEvent replaces the panel capacities before the step with index AtStep.
type PanelEvent struct {
	AtStep   int
	Capacity [eps.NumFacets]float64
}

// RecordWriter receives one battery log row per step.
type RecordWriter interface {
	Append(export.LogRecord) error
}

// Options controls a Runner.
type Options struct {
	Name     string
	RunID    string
	Timestep float64
	// Steps limits the run; 0 runs every vector once. Larger values wrap
	// around the vector sequence.
	Steps               int
	SwitchesOn          []int
	IgnoreInvalidSwitch bool
	PanelEvents         []PanelEvent
	// StatusEvery prints the status block every N steps; 0 disables it.
	StatusEvery int
}

// Deps are the optional collaborators of a Runner. Nil fields are skipped.
type Deps struct {
	Log      RecordWriter
	Sink     telemetry.Sink
	MQTT     coremqtt.Client
	Commands <-chan command.Command
	Bus      *eventbus.TypedBus[telemetry.StepEvent]
	Status   io.Writer
	Logger   logger.Logger
	Now      func() time.Time
}

// Runner drives one EPS model through a sequence of sun vectors. It is the
// only goroutine touching the model; external commands are queued and
// applied between steps.
type Runner struct {
	model   *eps.Model
	vectors []eps.SunVector
	opts    Options
	deps    Deps

	step    int
	summary telemetry.RunSummary
}

// NewRunner builds a runner and applies the initial switch commands.
func NewRunner(model *eps.Model, vectors []eps.SunVector, opts Options, deps Deps) (*Runner, error) {
	if model == nil {
		return nil, fmt.Errorf("runner: nil model")
	}
	if math.IsNaN(opts.Timestep) || math.IsInf(opts.Timestep, 0) || opts.Timestep < 0 {
		return nil, fmt.Errorf("runner: %w: %v", eps.ErrInvalidTimestep, opts.Timestep)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Name == "" {
		opts.Name = "eps"
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.NopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.New("runner")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Commands == nil && deps.MQTT != nil {
		deps.Commands = deps.MQTT.Commands()
	}
	r := &Runner{model: model, vectors: vectors, opts: opts, deps: deps}
	soc := model.StateOfCharge()
	r.summary = telemetry.RunSummary{
		RunID:        opts.RunID,
		Run:          opts.Name,
		InitialSOC:   soc,
		FinalSOC:     soc,
		MinSOC:       soc,
		MaxSOC:       soc,
		FinalVoltage: model.BatteryVoltage(),
	}
	for _, i := range opts.SwitchesOn {
		if err := r.Apply(command.SetSwitch(i, true)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Apply executes a command against the model. Out of range switch indices
// are logged and dropped when IgnoreInvalidSwitch is set.
func (r *Runner) Apply(c command.Command) error {
	err := c.Apply(r.model)
	if err == nil {
		r.deps.Logger.Infow("command applied", map[string]any{"run": r.opts.Name, "command": c.String(), "id": c.ID})
		return nil
	}
	if errors.Is(err, eps.ErrIndexOutOfRange) && r.opts.IgnoreInvalidSwitch {
		r.deps.Logger.Warnf("ignoring %s: %v", c, err)
		return nil
	}
	return fmt.Errorf("apply %s: %w", c, err)
}

func (r *Runner) drain() error {
	if r.deps.Commands == nil {
		return nil
	}
	for {
		select {
		case c, ok := <-r.deps.Commands:
			if !ok {
				r.deps.Commands = nil
				return nil
			}
			if err := r.Apply(c); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Step advances the model by one timestep under sun and fans the result out
// to the log, sinks, MQTT and the event bus.
func (r *Runner) Step(sun eps.SunVector) (telemetry.StepEvent, error) {
	if err := r.drain(); err != nil {
		return telemetry.StepEvent{}, err
	}
	for _, ev := range r.opts.PanelEvents {
		if ev.AtStep == r.step {
			if err := r.Apply(command.SetPanels(ev.Capacity)); err != nil {
				return telemetry.StepEvent{}, err
			}
		}
	}

	inSun := eps.InSun(sun)
	if err := r.model.Step(r.opts.Timestep, sun); err != nil {
		return telemetry.StepEvent{}, fmt.Errorf("step %d: %w", r.step, err)
	}
	elapsed := float64(r.step) * r.opts.Timestep
	snap := r.model.Snapshot()
	ev := telemetry.StepEvent{
		RunID:    r.opts.RunID,
		Run:      r.opts.Name,
		Step:     r.step,
		Elapsed:  elapsed,
		InSun:    inSun,
		Snapshot: snap,
		Time:     r.deps.Now(),
	}
	// The model has advanced; count the step even if the fan-out fails.
	r.step++
	r.account(ev)

	if r.deps.Log != nil {
		rec := export.LogRecord{Elapsed: elapsed, SOC: snap.SOC, Voltage: snap.BatteryVoltage, InSun: inSun}
		if err := r.deps.Log.Append(rec); err != nil {
			return ev, fmt.Errorf("write log: %w", err)
		}
	}
	if err := r.deps.Sink.RecordStep(ev); err != nil {
		r.deps.Logger.Warnf("telemetry sink: %v", err)
	}
	if r.deps.MQTT != nil {
		if err := r.deps.MQTT.PublishStep(ev); err != nil {
			r.deps.Logger.Warnf("mqtt publish: %v", err)
		}
	}
	if r.deps.Bus != nil {
		r.deps.Bus.Publish(ev)
	}

	if r.deps.Status != nil && r.opts.StatusEvery > 0 && r.step%r.opts.StatusEvery == 0 {
		if err := report.WriteStatus(r.deps.Status, snap); err != nil {
			r.deps.Logger.Warnf("status: %v", err)
		}
	}
	return ev, nil
}

func (r *Runner) account(ev telemetry.StepEvent) {
	s := &r.summary
	s.Steps = r.step
	s.Elapsed = float64(r.step) * r.opts.Timestep
	if !ev.InSun {
		s.EclipseSteps++
	}
	soc := ev.Snapshot.SOC
	s.FinalSOC = soc
	s.MinSOC = math.Min(s.MinSOC, soc)
	s.MaxSOC = math.Max(s.MaxSOC, soc)
	s.FinalVoltage = ev.Snapshot.BatteryVoltage
	s.Time = ev.Time
}

// Run steps through the configured vectors until they are exhausted, the
// step limit is reached or ctx is canceled. Cancellation is checked between
// steps and returns the partial summary with ctx.Err().
func (r *Runner) Run(ctx context.Context) (telemetry.RunSummary, error) {
	if len(r.vectors) == 0 {
		return r.summary, ErrNoSunVectors
	}
	total := r.opts.Steps
	if total == 0 {
		total = len(r.vectors)
	}
	r.deps.Logger.Infow("run started", map[string]any{
		"run": r.opts.Name, "run_id": r.opts.RunID, "steps": total, "timestep_s": r.opts.Timestep,
	})
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return r.summary, ctx.Err()
		default:
		}
		if _, err := r.Step(r.vectors[i%len(r.vectors)]); err != nil {
			return r.summary, err
		}
	}
	r.Finish()
	return r.summary, nil
}

// Finish reports the summary to sinks that record whole runs.
func (r *Runner) Finish() telemetry.RunSummary {
	if rr, ok := r.deps.Sink.(telemetry.RunRecorder); ok {
		if err := rr.RecordRunComplete(r.summary); err != nil {
			r.deps.Logger.Warnf("telemetry sink: %v", err)
		}
	}
	r.deps.Logger.Infow("run complete", map[string]any{
		"run":           r.summary.Run,
		"steps":         r.summary.Steps,
		"final_soc":     r.summary.FinalSOC,
		"final_voltage": r.summary.FinalVoltage,
		"eclipse_steps": r.summary.EclipseSteps,
	})
	return r.summary
}

// Summary returns the statistics accumulated so far.
func (r *Runner) Summary() telemetry.RunSummary { return r.summary }

// Snapshot returns the current model state.
func (r *Runner) Snapshot() eps.Snapshot { return r.model.Snapshot() }

// Steps returns how many steps were executed.
func (r *Runner) Steps() int { return r.step }

// Vectors returns the sun vector sequence the runner was built with.
func (r *Runner) Vectors() []eps.SunVector { return r.vectors }
