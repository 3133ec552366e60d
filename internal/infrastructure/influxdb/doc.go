// Package influxdb writes simulation round metrics to InfluxDB v2.
//
// Two measurements are written:
//
//	round    tags: run_id                       fields: round, devices, scripts, readings, duration_ms
//	reading  tags: run_id, device_id, location  fields: round, value
//
// Writes go through the client's non-blocking batched WriteAPI; failures
// arrive asynchronously on the SetOnError callback.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without metrics
//	}
//	defer client.Close()
//
//	client.WriteRound(influxdb.RoundMetric{RunID: id, Round: 3, Devices: 4})
package influxdb
