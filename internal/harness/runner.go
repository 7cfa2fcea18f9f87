package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/understudy/internal/calllog"
	"github.com/roach88/understudy/internal/dispatch"
	"github.com/roach88/understudy/internal/registry"
)

// TraceEvent is one dispatched call in a scenario trace.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
	Matched bool   `json:"matched"`
	Setup   int    `json:"setup,omitempty"`   // setup index; meaningful when Matched
	Version int64  `json:"version,omitempty"` // match version; meaningful when Matched
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and verify step held.
	Pass bool `json:"pass"`

	// Trace contains one event per dispatched call, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// addError records a failure and marks the result failed.
func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run plays a scenario through a fresh registry, log, and dispatcher.
//
// Setups register in list order, so setup index i receives registry
// identifier i; scenario expectations lean on that equivalence.
func Run(scenario *Scenario) (*Result, error) {
	result, _, err := RunRecorded(scenario)
	return result, err
}

// RunRecorded is Run but also hands back the dispatcher, so callers can
// export the session to a trace store afterward.
func RunRecorded(scenario *Scenario) (*Result, *dispatch.Dispatcher, error) {
	if err := scenario.Validate(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // suppress logs in tests
	d := dispatch.New(registry.New(), calllog.New(), logger)

	setups := make([]registry.RegisteredSetup, 0, len(scenario.Setups))
	for i, spec := range scenario.Setups {
		s, err := newScriptedSetup(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("setup %d: %w", i, err)
		}
		setups = append(setups, d.Registry().Add(s))
	}

	result := &Result{Pass: true}
	for i, step := range scenario.Calls {
		call, err := newScriptedInvocation(step)
		if err != nil {
			return nil, nil, fmt.Errorf("call %d: %w", i, err)
		}

		res := d.Dispatch(call)
		ev := TraceEvent{
			Seq:     int64(i + 1),
			Method:  call.Method().String(),
			Args:    step.Args,
			Matched: res.Matched,
		}
		if res.Matched {
			ev.Setup = res.Setup.ID
			ev.Version = res.Version
		}
		result.Trace = append(result.Trace, ev)

		checkExpect(result, i, step.Expect, res)
	}

	// Verification runs against a context captured after all calls.
	ctx := d.Log().AsContext()
	defer ctx.Close()
	for _, v := range scenario.Verify {
		got := ctx.IsMatchedBy(setups[v.Setup], nil)
		if got != v.Satisfied {
			result.addError("verify setup %d: satisfied=%v, want %v", v.Setup, got, v.Satisfied)
		}
	}

	return result, d, nil
}

// checkExpect validates one call's resolution against its expect clause.
func checkExpect(result *Result, call int, expect *ExpectClause, res dispatch.Resolution) {
	if expect == nil {
		return
	}
	if expect.Unmatched {
		if res.Matched {
			result.addError("call %d: matched setup %d, want unmatched", call, res.Setup.ID)
		}
		return
	}
	if expect.Setup != nil {
		if !res.Matched {
			result.addError("call %d: unmatched, want setup %d", call, *expect.Setup)
		} else if res.Setup.ID != *expect.Setup {
			result.addError("call %d: matched setup %d, want %d", call, res.Setup.ID, *expect.Setup)
		}
	}
}
