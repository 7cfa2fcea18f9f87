package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/harness"
	"github.com/roach88/understudy/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Scenario string
	Database string // optional - persist the run when set
}

// ReplayResult holds the outcome of a scenario replay.
type ReplayResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	RunID    string               `json:"run_id,omitempty"` // set when persisted
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a scenario and check its expectations",
		Long: `Replay a YAML scenario through a fresh registry and invocation log.

Each call in the scenario is dispatched against the registered setups,
expect clauses are checked against the resulting trace, and verify steps
are evaluated against a point-in-time view of the log. When --db is set,
the dispatched trace is also persisted as a run for later querying.

Exit codes:
  0 - All expectations and verify steps held
  1 - One or more expectations failed
  2 - Command error (scenario not found, database error, etc.)

Examples:
  understudy replay --scenario testdata/scenarios/basic.yaml
  understudy replay --scenario basic.yaml --db ./understudy.db
  understudy replay --scenario basic.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "path to scenario YAML (required)")
	_ = cmd.MarkFlagRequired("scenario")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, dispatcher, err := harness.RunRecorded(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	replay := ReplayResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Errors:   result.Errors,
	}

	// Persist the run if a database was given
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		runID, err := st.SaveDispatch(context.Background(), dispatcher)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to save run", err)
		}
		replay.RunID = runID
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, replay)
	}
	return outputReplayText(cmd, replay, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Pass {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeScenarioFailed,
			Message: "scenario expectations failed",
			Details: result.Errors,
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		// Expectation failure = exit code 1
		return NewExitError(ExitFailure, "scenario expectations failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	status := "✓"
	if !result.Pass {
		status = "✗"
	}
	fmt.Fprintf(w, "%s Scenario: %s\n", status, result.Scenario)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Trace ===")
	if len(result.Trace) == 0 {
		fmt.Fprintln(w, "  (no calls)")
	} else {
		for _, ev := range result.Trace {
			if ev.Matched {
				fmt.Fprintf(w, "  [%d] %s -> setup %d (version %d)\n", ev.Seq, ev.Method, ev.Setup, ev.Version)
			} else {
				fmt.Fprintf(w, "  [%d] %s -> unmatched\n", ev.Seq, ev.Method)
			}
			if verbose && len(ev.Args) > 0 {
				fmt.Fprintf(w, "       Args: %v\n", ev.Args)
			}
		}
	}
	fmt.Fprintln(w)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "=== Failures ===")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		fmt.Fprintln(w)
	}

	if result.RunID != "" {
		fmt.Fprintf(w, "Run saved: %s\n", result.RunID)
	}

	if result.Pass {
		fmt.Fprintln(w, "✓ All expectations held")
		return nil
	}

	fmt.Fprintln(w, "✗ Scenario expectations failed")
	return NewExitError(ExitFailure, "scenario expectations failed")
}
