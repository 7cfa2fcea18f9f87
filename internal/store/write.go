package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/understudy/internal/core"
)

// Run describes one exported dispatch session.
type Run struct {
	ID            string
	EngineVersion string
	TraceVersion  string
	CreatedAt     time.Time
}

// RunEvent is one logged invocation within a run, plus its match record
// when a setup governed the call.
type RunEvent struct {
	Seq         int64  // 1-based log position
	Method      string // "Type.Name/Arity"
	Args        core.Value
	Verified    bool
	Matched     bool
	SetupID     int    // meaningful only when Matched
	Version     int64  // meaningful only when Matched
	Expectation string // expectation digest; meaningful only when Matched
}

// NewRun allocates a run with a fresh uuid and the current engine versions.
func NewRun() Run {
	return Run{
		ID:            uuid.NewString(),
		EngineVersion: core.EngineVersion,
		TraceVersion:  core.TraceVersion,
		CreatedAt:     time.Now().UTC(),
	}
}

// WriteRun persists a run and its events in one transaction. If any write
// fails, none persist.
func (s *Store) WriteRun(ctx context.Context, run Run, events []RunEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, engine_version, trace_version, created_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.EngineVersion, run.TraceVersion, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, ev := range events {
		argsJSON, err := core.MarshalCanonical(ev.Args)
		if err != nil {
			return fmt.Errorf("write run: event %d: %w", ev.Seq, err)
		}

		setupID := sql.NullInt64{}
		if ev.Matched {
			setupID = sql.NullInt64{Int64: int64(ev.SetupID), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO invocations (run_id, seq, method, args, setup_id, verified)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, ev.Seq, ev.Method, string(argsJSON), setupID, ev.Verified)
		if err != nil {
			return fmt.Errorf("write run: event %d: %w", ev.Seq, err)
		}

		if ev.Matched {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO matches (run_id, version, setup_id, invocation_seq, expectation)
				VALUES (?, ?, ?, ?, ?)
			`, run.ID, ev.Version, ev.SetupID, ev.Seq, ev.Expectation)
			if err != nil {
				return fmt.Errorf("write run: event %d match: %w", ev.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}
