package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/tazlauanubianca/Crowdsensing/internal/history"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/influxdb"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/mqtt"
)

// LogObserver logs a one-line summary of every round.
type LogObserver struct {
	Logger Logger
}

// RoundCompleted logs the round.
func (o LogObserver) RoundCompleted(_ context.Context, snap RoundSnapshot) error {
	o.Logger.Info("round completed",
		"run_id", snap.RunID,
		"round", snap.Round,
		"scripts", snap.Scripts,
		"readings", snap.ReadingCount(),
		"duration", snap.Duration.String(),
	)
	return nil
}

// HistoryObserver records runs and rounds in a history.Repository.
type HistoryObserver struct {
	Repo history.Repository
}

// RunStarted creates the run row.
func (o HistoryObserver) RunStarted(ctx context.Context, info RunInfo) error {
	return o.Repo.CreateRun(ctx, history.Run{
		ID:        info.RunID,
		Scenario:  info.Scenario,
		Devices:   info.Devices,
		StartedAt: info.StartedAt,
	})
}

// RunFinished has nothing to record; the round count is derived.
func (o HistoryObserver) RunFinished(context.Context, RunSummary) error {
	return nil
}

// RoundCompleted stores every reading of the round.
func (o HistoryObserver) RoundCompleted(ctx context.Context, snap RoundSnapshot) error {
	round := history.Round{
		RunID:       snap.RunID,
		Round:       snap.Round,
		Scripts:     snap.Scripts,
		CompletedAt: snap.CompletedAt,
		Readings:    make([]history.Reading, 0, snap.ReadingCount()),
	}
	for _, d := range snap.Devices {
		for _, r := range d.Readings {
			round.Readings = append(round.Readings, history.Reading{
				DeviceID: d.ID,
				Location: r.Location,
				Value:    r.Value,
			})
		}
	}
	if err := o.Repo.RecordRound(ctx, round); err != nil {
		return fmt.Errorf("recording round %d: %w", snap.Round, err)
	}
	return nil
}

// Publisher is the subset of *mqtt.Client the MQTT observer needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTObserver publishes run status and round snapshots.
type MQTTObserver struct {
	Client Publisher

	// PerDevice additionally publishes one message per device per round.
	PerDevice bool
}

type runStatusMessage struct {
	RunID      string     `json:"run_id"`
	Status     Status     `json:"status"`
	Scenario   string     `json:"scenario,omitempty"`
	Devices    int        `json:"devices,omitempty"`
	Rounds     int        `json:"rounds"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Err        string     `json:"error,omitempty"`
}

// RunStarted publishes a retained "running" status.
func (o MQTTObserver) RunStarted(_ context.Context, info RunInfo) error {
	msg := runStatusMessage{
		RunID:     info.RunID,
		Status:    StatusRunning,
		Scenario:  info.Scenario,
		Devices:   info.Devices,
		Rounds:    info.Rounds,
		StartedAt: &info.StartedAt,
	}
	return o.Client.PublishJSON(mqtt.Topics{}.RunStatus(info.RunID), msg, true)
}

// RunFinished publishes a retained "finished" or "failed" status.
func (o MQTTObserver) RunFinished(_ context.Context, summary RunSummary) error {
	status := StatusFinished
	if summary.Err != "" {
		status = StatusFailed
	}
	msg := runStatusMessage{
		RunID:      summary.RunID,
		Status:     status,
		Rounds:     summary.Rounds,
		FinishedAt: &summary.FinishedAt,
		Err:        summary.Err,
	}
	return o.Client.PublishJSON(mqtt.Topics{}.RunStatus(summary.RunID), msg, true)
}

// RoundCompleted publishes the snapshot, and per-device readings if enabled.
func (o MQTTObserver) RoundCompleted(_ context.Context, snap RoundSnapshot) error {
	topics := mqtt.Topics{}
	if err := o.Client.PublishJSON(topics.RoundCompleted(snap.RunID, snap.Round), snap, false); err != nil {
		return err
	}
	if !o.PerDevice {
		return nil
	}
	for _, d := range snap.Devices {
		msg := struct {
			Round int `json:"round"`
			DeviceSnapshot
		}{Round: snap.Round, DeviceSnapshot: d}
		if err := o.Client.PublishJSON(topics.DeviceReadings(snap.RunID, d.ID), msg, false); err != nil {
			return err
		}
	}
	return nil
}

// MetricsWriter is the subset of *influxdb.Client the metrics observer needs.
type MetricsWriter interface {
	WriteRound(m influxdb.RoundMetric)
	WriteReading(m influxdb.ReadingMetric)
}

// MetricsObserver writes a round point and one point per reading.
type MetricsObserver struct {
	Writer MetricsWriter
}

// RoundCompleted queues the points; writes are asynchronous.
func (o MetricsObserver) RoundCompleted(_ context.Context, snap RoundSnapshot) error {
	o.Writer.WriteRound(influxdb.RoundMetric{
		RunID:    snap.RunID,
		Round:    snap.Round,
		Devices:  len(snap.Devices),
		Scripts:  snap.Scripts,
		Readings: snap.ReadingCount(),
		Duration: snap.Duration,
		At:       snap.CompletedAt,
	})
	for _, d := range snap.Devices {
		for _, r := range d.Readings {
			o.Writer.WriteReading(influxdb.ReadingMetric{
				RunID:    snap.RunID,
				Round:    snap.Round,
				DeviceID: d.ID,
				Location: r.Location,
				Value:    r.Value,
				At:       snap.CompletedAt,
			})
		}
	}
	return nil
}
