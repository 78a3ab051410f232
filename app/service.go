package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/kilianp07/epsim/config"
	"github.com/kilianp07/epsim/core/eps"
	coremqtt "github.com/kilianp07/epsim/core/mqtt"
	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/logger"
	"github.com/kilianp07/epsim/infra/metrics"
	"github.com/kilianp07/epsim/infra/mqtt"
	"github.com/kilianp07/epsim/internal/eventbus"
	"github.com/kilianp07/epsim/pkg/export"
)

// Service wires a Runner to the collaborators named in the configuration.
type Service struct {
	Runner *Runner
	Bus    *eventbus.TypedBus[telemetry.StepEvent]

	cfg    *config.Config
	csv    *export.CSVLog
	sink   telemetry.Sink
	client coremqtt.Client
	log    logger.Logger
}

// connectMQTT is replaced in tests.
var connectMQTT = func(cfg mqtt.Config, run string) (coremqtt.Client, error) {
	return mqtt.NewPahoClient(cfg, run)
}

// New creates a Service from the configuration. status receives the
// periodic status block and may be nil.
func New(cfg *config.Config, status io.Writer) (*Service, error) {
	logg := logger.New("service")

	modelCfg, err := cfg.EPS.ModelConfig()
	if err != nil {
		return nil, err
	}
	model, err := eps.New(modelCfg)
	if err != nil {
		return nil, err
	}
	vectors, err := cfg.Run.SunVectorSource()
	if err != nil {
		return nil, fmt.Errorf("sun vectors: %w", err)
	}

	svc := &Service{cfg: cfg, log: logg, Bus: eventbus.NewTyped[telemetry.StepEvent]()}
	ok := false
	defer func() {
		if !ok {
			_ = svc.Close()
		}
	}()

	svc.sink, err = telemetry.NewSink(cfg.Telemetry.Sinks)
	if err != nil {
		return nil, fmt.Errorf("telemetry sink: %w", err)
	}
	if cfg.Run.LogPath != "" {
		svc.csv, err = export.OpenCSVLog(cfg.Run.LogPath, cfg.Run.TruncateLog)
		if err != nil {
			return nil, err
		}
	}
	if cfg.MQTT.Enabled {
		svc.client, err = connectMQTT(cfg.MQTT, cfg.Run.Name)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}

	opts, err := OptionsFromConfig(cfg.Run)
	if err != nil {
		return nil, err
	}
	deps := Deps{Sink: svc.sink, MQTT: svc.client, Bus: svc.Bus, Status: status, Logger: logger.New("runner")}
	if svc.csv != nil {
		deps.Log = svc.csv
	}
	svc.Runner, err = NewRunner(model, vectors, opts, deps)
	if err != nil {
		return nil, err
	}
	ok = true
	return svc, nil
}

// OptionsFromConfig converts the run section into runner options.
func OptionsFromConfig(rc config.RunConfig) (Options, error) {
	opts := Options{
		Name:                rc.Name,
		RunID:               uuid.NewString(),
		Timestep:            rc.TimestepSeconds,
		Steps:               rc.Steps,
		SwitchesOn:          rc.SwitchesOn,
		IgnoreInvalidSwitch: rc.IgnoreInvalidSwitch,
		StatusEvery:         rc.StatusEvery,
	}
	for _, ev := range rc.PanelEvents {
		caps, err := config.PanelArray(ev.Capacity)
		if err != nil {
			return opts, err
		}
		opts.PanelEvents = append(opts.PanelEvents, PanelEvent{AtStep: ev.AtStep, Capacity: caps})
	}
	return opts, nil
}

// Run starts the metrics endpoint if configured and runs the simulation to
// completion.
func (s *Service) Run(ctx context.Context) (telemetry.RunSummary, error) {
	if addr := s.cfg.Telemetry.PrometheusAddr; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartPromServer(srvCtx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s.Runner.Run(ctx)
}

// Close releases the log file, the broker connection and closable sinks.
func (s *Service) Close() error {
	var errs []error
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.csv != nil {
		errs = append(errs, s.csv.Close())
	}
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.Bus != nil {
		s.Bus.Close()
	}
	return errors.Join(errs...)
}
