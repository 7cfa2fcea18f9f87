// Package dispatch ties a setup registry and an invocation log into the
// per-call engine: resolve the governing setup, append the call to the log,
// and record the match under a fresh version.
package dispatch

import (
	"io"
	"log/slog"

	"github.com/roach88/understudy/internal/calllog"
	"github.com/roach88/understudy/internal/core"
	"github.com/roach88/understudy/internal/registry"
)

// Resolution is the outcome of dispatching one observed call.
type Resolution struct {
	// Invocation is the observed call, now owned by the log.
	Invocation core.Invocation

	// Setup is the governing setup; meaningful only when Matched is true.
	Setup registry.RegisteredSetup

	// Matched reports whether any registered setup governed the call.
	Matched bool

	// Version is the matched-invocation record version; 0 when unmatched.
	Version int64
}

// Dispatcher routes observed calls through one registry and one log.
// Safe for concurrent use; the registry and log carry their own locks.
type Dispatcher struct {
	registry *registry.Registry
	log      *calllog.Log
	logger   *slog.Logger
}

// New creates a dispatcher. A nil logger suppresses diagnostics.
func New(reg *registry.Registry, log *calllog.Log, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{registry: reg, log: log, logger: logger}
}

// Registry returns the underlying setup registry.
func (d *Dispatcher) Registry() *registry.Registry { return d.registry }

// Log returns the underlying invocation log.
func (d *Dispatcher) Log() *calllog.Log { return d.log }

// Dispatch resolves the governing setup for a call, appends the call to the
// log, and, when a setup governed it, records the (setup, call) pair under
// a freshly issued version.
func (d *Dispatcher) Dispatch(call core.Invocation) Resolution {
	setup, matched := d.registry.FindMatchFor(call)
	d.log.Add(call)

	res := Resolution{Invocation: call, Setup: setup, Matched: matched}
	if matched {
		res.Version = d.log.RecordMatchedInvocation(setup.ID, call)
		d.logger.Debug("dispatched call",
			"method", call.Method().String(),
			"setup_id", setup.ID,
			"version", res.Version)
	} else {
		d.logger.Debug("dispatched call",
			"method", call.Method().String(),
			"matched", false)
	}
	return res
}

// Unsatisfied opens a verification context over the log and returns, in the
// given order, the setups for which no match was recorded at or before the
// capture. The skip predicate excludes setups from the pass; skipped setups
// count as satisfied.
func (d *Dispatcher) Unsatisfied(setups []registry.RegisteredSetup, skip func(registry.RegisteredSetup) bool) []registry.RegisteredSetup {
	ctx := d.log.AsContext()
	defer ctx.Close()

	var out []registry.RegisteredSetup
	for _, s := range setups {
		if !ctx.IsMatchedBy(s, skip) {
			out = append(out, s)
		}
	}
	return out
}
