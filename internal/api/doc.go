// Package api implements the read-only HTTP inspection API and WebSocket
// stream for a running simulation.
//
// This package provides:
//   - REST endpoints for the current run, its devices and completed rounds
//   - History endpoints over the SQLite round history, when enabled
//   - A WebSocket hub that streams run and round events as they happen
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API never drives the simulation. Handlers read from a RunView (normally
// *simulation.Simulation) and a history.Repository. The Hub is registered as a
// simulation observer, so every completed round is pushed to subscribed
// WebSocket clients on the "round.completed" channel.
//
// # Graceful Degradation
//
// History endpoints answer 503 when no repository is configured. The server
// can also run without a simulation attached; run and device endpoints then
// answer 404.
package api
