// Package mqtt publishes simulation events to an MQTT broker.
//
// The simulator only publishes: a retained system status (with a Last Will for
// crashes), a retained status per run, one message per completed round and
// one per device per round. Topic names come from the Topics builders:
//
//	crowdsensing/system/status
//	crowdsensing/runs/{run_id}/status
//	crowdsensing/runs/{run_id}/rounds/{round}
//	crowdsensing/runs/{run_id}/devices/{device_id}/readings
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.RunStatus(runID), status, true)
//
// Connection loss is handled by paho's auto-reconnect; publishes while
// disconnected fail fast with ErrNotConnected.
package mqtt
