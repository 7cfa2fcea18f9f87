package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	RunID    string
	SetupID  int
	At       int64 // version cutoff; end of run when the flag is unset
}

// VerifyResult holds the outcome of a verification probe.
type VerifyResult struct {
	RunID     string `json:"run_id"`
	SetupID   int    `json:"setup_id"`
	At        int64  `json:"at"`
	Satisfied bool   `json:"satisfied"`
	Seq       int64  `json:"seq,omitempty"` // invocation that satisfied the setup
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether a setup was matched in a recorded run",
		Long: `Check whether a setup was matched in a recorded run.

The probe answers the same question a verification pass asks in memory:
did any recorded call match this setup at or before the given version?
When --at is omitted the probe uses the run's final version, so it covers
the whole run.

Exit codes:
  0 - Setup was satisfied
  1 - Setup was not satisfied
  2 - Command error (run not found, database error, etc.)

Examples:
  understudy verify --db ./understudy.db --run 6f1c... --setup 2
  understudy verify --db ./understudy.db --run 6f1c... --setup 2 --at 3
  understudy verify --db ./understudy.db --run 6f1c... --setup 2 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to probe (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.SetupID, "setup", 0, "setup identifier to verify (required)")
	_ = cmd.MarkFlagRequired("setup")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "version cutoff (defaults to end of run)")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if _, err := st.ReadRun(ctx, opts.RunID); err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	at := opts.At
	if !cmd.Flags().Changed("at") {
		at, err = st.LastVersion(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read last version", err)
		}
	}

	seq, ok, err := st.LatestMatchAtOrBefore(ctx, opts.RunID, opts.SetupID, at)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to probe matches", err)
	}

	result := VerifyResult{
		RunID:     opts.RunID,
		SetupID:   opts.SetupID,
		At:        at,
		Satisfied: ok,
		Seq:       seq,
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd, result)
	}
	return outputVerifyText(cmd, result)
}

// outputVerifyJSON outputs the verify result as JSON.
func outputVerifyJSON(cmd *cobra.Command, result VerifyResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Satisfied {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeSetupUnsatisfied,
			Message: fmt.Sprintf("setup %d not satisfied at version %d", result.SetupID, result.At),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Satisfied {
		return NewExitError(ExitFailure, "setup not satisfied")
	}
	return nil
}

// outputVerifyText outputs the verify result as text.
func outputVerifyText(cmd *cobra.Command, result VerifyResult) error {
	w := cmd.OutOrStdout()

	if result.Satisfied {
		fmt.Fprintf(w, "✓ Setup %d satisfied by call %d (at version %d)\n", result.SetupID, result.Seq, result.At)
		return nil
	}

	fmt.Fprintf(w, "✗ Setup %d not satisfied (at version %d)\n", result.SetupID, result.At)
	return NewExitError(ExitFailure, "setup not satisfied")
}
