package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Method   string // optional - filter to specific method
}

// TraceResult holds the complete trace output for a run.
type TraceResult struct {
	RunID    string             `json:"run_id"`
	Timeline []store.TraceEvent `json:"timeline"`
	Stats    TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Matched     int `json:"matched"`
	Unmatched   int `json:"unmatched"`
	Verified    int `json:"verified"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded timeline for a run",
		Long: `Show the recorded invocation timeline for a run.

Each entry is one dispatched call in log order, with the setup that
matched it (if any), the version stamped on the match, and whether a
verification pass consumed the call.

Examples:
  understudy trace --db ./understudy.db --run 6f1c...
  understudy trace --db ./understudy.db --run 6f1c... --method Cart.addItem/2
  understudy trace --db ./understudy.db --run 6f1c... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Method, "method", "", "filter to specific method signature")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// Fail early on unknown runs rather than printing an empty timeline
	if _, err := st.ReadRun(ctx, opts.RunID); err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReplayRun(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay run", err)
	}

	result := TraceResult{
		RunID:    opts.RunID,
		Timeline: make([]store.TraceEvent, 0, len(events)),
	}
	for _, ev := range events {
		if opts.Method != "" && ev.Method != opts.Method {
			continue
		}
		result.Timeline = append(result.Timeline, ev)
		result.Stats.TotalEvents++
		if ev.Matched {
			result.Stats.Matched++
		} else {
			result.Stats.Unmatched++
		}
		if ev.Verified {
			result.Stats.Verified++
		}
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, ev := range result.Timeline {
			if ev.Matched {
				fmt.Fprintf(w, "  [%d] %s -> setup %d (version %d)\n", ev.Seq, ev.Method, ev.SetupID, ev.Version)
			} else {
				fmt.Fprintf(w, "  [%d] %s -> unmatched\n", ev.Seq, ev.Method)
			}
			if verbose {
				fmt.Fprintf(w, "       Args: %s\n", ev.Args)
				if ev.Verified {
					fmt.Fprintln(w, "       Verified: true")
				}
				if ev.Expectation != "" {
					fmt.Fprintf(w, "       Expectation: %s\n", truncateID(ev.Expectation))
				}
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Matched:      %d\n", result.Stats.Matched)
	fmt.Fprintf(w, "  Unmatched:    %d\n", result.Stats.Unmatched)
	fmt.Fprintf(w, "  Verified:     %d\n", result.Stats.Verified)

	return nil
}

// truncateID truncates a long digest or id for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
