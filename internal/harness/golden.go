package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/understudy/internal/core"
)

// Snapshot renders a scenario result as canonical JSON for deterministic
// golden comparison. Omitted keys (setup, version on unmatched events)
// never appear, so the bytes are stable across runs.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make(core.Array, len(result.Trace))
	for i, ev := range result.Trace {
		args, err := core.FromGo(ev.Args)
		if err != nil {
			return nil, fmt.Errorf("snapshot event %d: %w", ev.Seq, err)
		}
		obj := core.Object{
			"seq":     core.Int(ev.Seq),
			"method":  core.String(ev.Method),
			"args":    args,
			"matched": core.Bool(ev.Matched),
		}
		if ev.Matched {
			obj["setup"] = core.Int(ev.Setup)
			obj["version"] = core.Int(ev.Version)
		}
		trace[i] = obj
	}

	return core.MarshalCanonical(core.Object{
		"name":  core.String(scenario.Name),
		"trace": trace,
	})
}

// RunWithGolden executes a scenario and compares the trace snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result
}
