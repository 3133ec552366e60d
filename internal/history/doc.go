// Package history stores the readings every device held after each round of
// a simulation run, so finished runs can be inspected later.
//
// Rows are written once per round by simulation.HistoryObserver and read by
// the inspection API. The schema lives in the top-level migrations package.
package history
