package mqtt

import "fmt"

// TopicPrefix is the root of every topic the simulator publishes.
const TopicPrefix = "crowdsensing"

// Topics provides builders for the simulator's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topic := topics.RoundCompleted("run-1a2b3c4d", 3)
//	// Returns: "crowdsensing/runs/run-1a2b3c4d/rounds/3"
type Topics struct{}

// SystemStatus carries the retained online/offline status of the simulator.
//
// Example: crowdsensing/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// RunStatus carries the retained status of one simulation run.
//
// Example: crowdsensing/runs/run-1a2b3c4d/status
func (Topics) RunStatus(runID string) string {
	return fmt.Sprintf("%s/runs/%s/status", TopicPrefix, runID)
}

// RoundCompleted carries the snapshot taken after a round.
//
// Example: crowdsensing/runs/run-1a2b3c4d/rounds/3
func (Topics) RoundCompleted(runID string, round int) string {
	return fmt.Sprintf("%s/runs/%s/rounds/%d", TopicPrefix, runID, round)
}

// DeviceReadings carries one device's readings after a round.
//
// Example: crowdsensing/runs/run-1a2b3c4d/devices/7/readings
func (Topics) DeviceReadings(runID string, deviceID int) string {
	return fmt.Sprintf("%s/runs/%s/devices/%d/readings", TopicPrefix, runID, deviceID)
}

// AllRuns matches every run event, for subscribers.
//
// Example: crowdsensing/runs/#
func (Topics) AllRuns() string {
	return TopicPrefix + "/runs/#"
}
