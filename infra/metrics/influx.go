package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/epsim/core/telemetry"
	"github.com/kilianp07/epsim/infra/logger"
)

// InfluxSink writes step telemetry to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) telemetry.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return telemetry.NopSink{}
	}
	return sink
}

// StepPoint converts a step event to its line protocol point.
func StepPoint(ev telemetry.StepEvent) *write.Point {
	snap := ev.Snapshot
	return write.NewPointWithMeasurement("eps_step").
		AddTag("run", ev.Run).
		AddTag("run_id", ev.RunID).
		AddTag("in_sun", strconv.FormatBool(ev.InSun)).
		AddField("step", ev.Step).
		AddField("elapsed_s", round3(ev.Elapsed)).
		AddField("battery_voltage", round3(snap.BatteryVoltage)).
		AddField("soc", round4(snap.SOC)).
		AddField("energy_wh", round4(snap.StoredEnergyWh)).
		AddField("power_in_w", round3(snap.PowerInW)).
		AddField("power_out_w", round3(snap.PowerOutW)).
		SetTime(ev.Time)
}

// RecordStep writes one eps_step point.
func (s *InfluxSink) RecordStep(ev telemetry.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, StepPoint(ev))
}

// RecordRunComplete writes the run summary as an eps_run point.
func (s *InfluxSink) RecordRunComplete(sum telemetry.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("eps_run").
		AddTag("run", sum.Run).
		AddTag("run_id", sum.RunID).
		AddField("steps", sum.Steps).
		AddField("eclipse_steps", sum.EclipseSteps).
		AddField("final_soc", round4(sum.FinalSOC)).
		AddField("min_soc", round4(sum.MinSOC)).
		AddField("max_soc", round4(sum.MaxSOC)).
		AddField("final_voltage", round3(sum.FinalVoltage)).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
