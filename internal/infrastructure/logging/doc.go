// Package logging provides structured logging for the crowdsensing simulator.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler and default fields.
//
// # Features
//
//   - JSON output by default (machine-parsable)
//   - Text output for interactive runs
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("simulation started", "devices", 3)
//	logger.Error("observer failed", "error", err)
//
// *Logger satisfies the small Logger interfaces declared by the device,
// workerpool and simulation packages.
package logging
