package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteRepository implements Repository on the runs, rounds and readings tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun inserts a run row.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRun)
	}
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO runs (id, scenario, devices, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Scenario, run.Devices, formatTimestamp(startedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
		}
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// RecordRound inserts the round and one row per reading in a transaction.
func (r *SQLiteRepository) RecordRound(ctx context.Context, round Round) error {
	if round.RunID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRun)
	}
	completedAt := round.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx,
		"INSERT INTO rounds (run_id, round, scripts, completed_at) VALUES (?, ?, ?, ?)",
		round.RunID, round.Round, round.Scripts, formatTimestamp(completedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, round.RunID)
		}
		return fmt.Errorf("inserting round: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO readings (run_id, round, device_id, location, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing reading insert: %w", err)
	}
	defer stmt.Close()

	for _, reading := range round.Readings {
		if _, err := stmt.ExecContext(ctx,
			round.RunID, round.Round, reading.DeviceID, reading.Location, reading.Value,
		); err != nil {
			return fmt.Errorf("inserting reading (device %d, location %d): %w",
				reading.DeviceID, reading.Location, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing round: %w", err)
	}
	return nil
}

// ListRuns returns runs ordered by start time, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.scenario, r.devices, r.started_at, COUNT(rd.round)
		FROM runs r
		LEFT JOIN rounds rd ON rd.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Devices, &startedAt, &run.Rounds); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// GetRound returns a round and its readings.
func (r *SQLiteRepository) GetRound(ctx context.Context, runID string, round int) (*Round, error) {
	out := Round{RunID: runID, Round: round}
	var completedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT scripts, completed_at FROM rounds WHERE run_id = ? AND round = ?",
		runID, round,
	).Scan(&out.Scripts, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if exists, existsErr := r.runExists(ctx, runID); existsErr == nil && !exists {
			return nil, ErrRunNotFound
		}
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying round: %w", err)
	}
	if out.CompletedAt, err = parseTimestamp(completedAt); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT device_id, location, value
		FROM readings
		WHERE run_id = ? AND round = ?
		ORDER BY device_id, location`,
		runID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	out.Readings = []Reading{}
	for rows.Next() {
		var reading Reading
		if err := rows.Scan(&reading.DeviceID, &reading.Location, &reading.Value); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		out.Readings = append(out.Readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return &out, nil
}

// LocationSeries returns the readings for loc grouped by round.
func (r *SQLiteRepository) LocationSeries(ctx context.Context, runID string, loc int) ([]Round, error) {
	exists, err := r.runExists(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRunNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT rd.round, rd.scripts, rd.completed_at, rg.device_id, rg.value
		FROM rounds rd
		JOIN readings rg ON rg.run_id = rd.run_id AND rg.round = rd.round
		WHERE rd.run_id = ? AND rg.location = ?
		ORDER BY rd.round, rg.device_id`,
		runID, loc,
	)
	if err != nil {
		return nil, fmt.Errorf("querying location series: %w", err)
	}
	defer rows.Close()

	var series []Round
	for rows.Next() {
		var (
			round, scripts, deviceID int
			completedAt              string
			value                    float64
		)
		if err := rows.Scan(&round, &scripts, &completedAt, &deviceID, &value); err != nil {
			return nil, fmt.Errorf("scanning location series: %w", err)
		}
		if len(series) == 0 || series[len(series)-1].Round != round {
			ts, err := parseTimestamp(completedAt)
			if err != nil {
				return nil, err
			}
			series = append(series, Round{RunID: runID, Round: round, Scripts: scripts, CompletedAt: ts})
		}
		last := &series[len(series)-1]
		last.Readings = append(last.Readings, Reading{DeviceID: deviceID, Location: loc, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating location series: %w", err)
	}
	return series, nil
}

func (r *SQLiteRepository) runExists(ctx context.Context, runID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking run: %w", err)
	}
	return n > 0, nil
}

// timestampLayout has fixed width so stored values sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts what formatTimestamp writes and the column default.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("parsing timestamp: empty")
	}
	ts, err := time.Parse(timestampLayout, value)
	if err == nil {
		return ts, nil
	}
	ts, fallbackErr := time.Parse(time.RFC3339, value)
	if fallbackErr == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
