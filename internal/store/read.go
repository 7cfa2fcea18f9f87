package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("store: run not found")

// TraceEvent is the read-side view of one invocation in a run.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Method      string `json:"method"`
	Args        string `json:"args"` // canonical JSON as stored
	Verified    bool   `json:"verified"`
	Matched     bool   `json:"matched"`
	SetupID     int    `json:"setup_id,omitempty"`
	Version     int64  `json:"version,omitempty"`
	Expectation string `json:"expectation,omitempty"`
}

// ReadRun returns the run header, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, trace_version, created_at
		FROM runs WHERE id = ?
	`, runID)

	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &run.EngineVersion, &run.TraceVersion, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return Run{}, fmt.Errorf("read run: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("read run: bad created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = ts
	return run, nil
}

// ListRuns returns all run ids, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplayRun returns the run's timeline in log order.
func (s *Store) ReplayRun(ctx context.Context, runID string) ([]TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.seq, i.method, i.args, i.verified, i.setup_id,
		       m.version, m.expectation
		FROM invocations i
		LEFT JOIN matches m ON m.run_id = i.run_id AND m.invocation_seq = i.seq
		WHERE i.run_id = ?
		ORDER BY i.seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}
	defer rows.Close()

	var events []TraceEvent
	for rows.Next() {
		var ev TraceEvent
		var setupID sql.NullInt64
		var version sql.NullInt64
		var expectation sql.NullString
		if err := rows.Scan(&ev.Seq, &ev.Method, &ev.Args, &ev.Verified, &setupID, &version, &expectation); err != nil {
			return nil, fmt.Errorf("replay run: %w", err)
		}
		if setupID.Valid {
			ev.Matched = true
			ev.SetupID = int(setupID.Int64)
			ev.Version = version.Int64
			ev.Expectation = expectation.String
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LatestMatchAtOrBefore is the SQL analogue of the in-memory verification
// probe: the newest recorded match for a setup at or before the version.
// Returns the invocation seq of that match.
func (s *Store) LatestMatchAtOrBefore(ctx context.Context, runID string, setupID int, version int64) (int64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT invocation_seq FROM matches
		WHERE run_id = ? AND setup_id = ? AND version <= ?
		ORDER BY version DESC
		LIMIT 1
	`, runID, setupID, version)

	var seq int64
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("latest match: %w", err)
	}
	return seq, true, nil
}

// LastVersion returns the highest match version recorded for a run, or 0
// when the run has no matches.
func (s *Store) LastVersion(ctx context.Context, runID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM matches WHERE run_id = ?
	`, runID)

	var v int64
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("last version: %w", err)
	}
	return v, nil
}
