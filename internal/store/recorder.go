package store

import (
	"context"
	"fmt"

	"github.com/roach88/understudy/internal/core"
	"github.com/roach88/understudy/internal/dispatch"
)

// Export flattens a dispatcher session into a run and its events: every
// logged invocation in order, joined with its match record when a setup
// governed it. The log and index are read through their snapshot paths, so
// a concurrent Clear cannot tear the export.
func Export(d *dispatch.Dispatcher) (Run, []RunEvent, error) {
	run := NewRun()

	snap := d.Log().Snapshot()
	records := d.Log().MatchRecords()

	// Invocation identity -> 1-based log position. core.Invocation
	// implementations are pointer-shaped and appear in the log once per
	// observed call, so identity keys are safe here and the join is
	// unambiguous.
	seqOf := make(map[core.Invocation]int64, snap.Len())
	events := make([]RunEvent, 0, snap.Len())
	seq := int64(0)
	for inv := range snap.All() {
		seq++
		seqOf[inv] = seq

		args, err := core.FromGo(inv.Args())
		if err != nil {
			return Run{}, nil, fmt.Errorf("export: invocation %d: %w", seq, err)
		}
		events = append(events, RunEvent{
			Seq:      seq,
			Method:   inv.Method().String(),
			Args:     args,
			Verified: inv.Verified(),
		})
	}

	for _, rec := range records {
		seq, ok := seqOf[rec.Invocation]
		if !ok {
			// Matches recorded for invocations beyond the snapshot (or from
			// a cleared log) have no row to attach to.
			continue
		}
		ev := &events[seq-1]
		ev.Matched = true
		ev.SetupID = rec.SetupID
		ev.Version = rec.Version
		if s, ok := d.Registry().ByID(rec.SetupID); ok {
			ev.Expectation = s.Expectation().Digest
		}
	}

	return run, events, nil
}

// SaveDispatch exports a dispatcher session and persists it as one run.
// Returns the run id.
func (s *Store) SaveDispatch(ctx context.Context, d *dispatch.Dispatcher) (string, error) {
	run, events, err := Export(d)
	if err != nil {
		return "", err
	}
	if err := s.WriteRun(ctx, run, events); err != nil {
		return "", err
	}
	return run.ID, nil
}
