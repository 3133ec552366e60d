package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRound   = "round"
	MeasurementReading = "reading"
)

// RoundMetric summarises one completed round.
type RoundMetric struct {
	RunID    string
	Round    int
	Devices  int
	Scripts  int
	Readings int
	Duration time.Duration
	At       time.Time
}

// ReadingMetric is one device's value for one location after a round.
type ReadingMetric struct {
	RunID    string
	Round    int
	DeviceID int
	Location int
	Value    float64
	At       time.Time
}

// WriteRound queues a round summary point. Non-blocking.
func (c *Client) WriteRound(m RoundMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(roundPoint(m))
}

// WriteReading queues a reading point. Non-blocking.
func (c *Client) WriteReading(m ReadingMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(m))
}

// roundPoint tags by run only; the round number is a field so that
// series cardinality stays flat over long runs.
func roundPoint(m RoundMetric) *write.Point {
	return write.NewPoint(
		MeasurementRound,
		map[string]string{
			"run_id": m.RunID,
		},
		map[string]interface{}{
			"round":       int64(m.Round),
			"devices":     int64(m.Devices),
			"scripts":     int64(m.Scripts),
			"readings":    int64(m.Readings),
			"duration_ms": float64(m.Duration) / float64(time.Millisecond),
		},
		timestampOrNow(m.At),
	)
}

func readingPoint(m ReadingMetric) *write.Point {
	return write.NewPoint(
		MeasurementReading,
		map[string]string{
			"run_id":    m.RunID,
			"device_id": strconv.Itoa(m.DeviceID),
			"location":  strconv.Itoa(m.Location),
		},
		map[string]interface{}{
			"round": int64(m.Round),
			"value": m.Value,
		},
		timestampOrNow(m.At),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
