// Package simulation drives a set of devices through a scripted scenario.
//
// A Scenario (YAML) lists the devices with their initial readings and the
// rounds to play. For each round it names every device's neighbours and the
// scripts each device must run on which location.
//
// The Supervisor implements device.Supervisor. Every call to Neighbours is a
// gate: all devices block until the last one arrives. Because every device is
// then parked between rounds, the last arrival can snapshot the previous
// round, notify observers, and deliver the next round's assignments before
// releasing the others.
//
//	devices ──Neighbours(k)──▶ gate k ──last arrival──▶ snapshot k-1
//	                                                   ▶ observers
//	                                                   ▶ AssignScript for round k
//	                                                   ▶ release (or ErrSimulationOver)
//
// Observers receive each completed round. Built-ins record history to SQLite,
// publish to MQTT, write InfluxDB points or just log; the inspection API's
// websocket hub is one as well. Observer errors are logged and never stop a
// run.
package simulation
