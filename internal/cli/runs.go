package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunInfo is the listed view of one recorded run.
type RunInfo struct {
	ID            string `json:"id"`
	EngineVersion string `json:"engine_version"`
	TraceVersion  string `json:"trace_version"`
	CreatedAt     string `json:"created_at"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded in a database, oldest first.

Examples:
  understudy runs --db ./understudy.db
  understudy runs --db ./understudy.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ids, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, 0, len(ids))
	for _, id := range ids {
		run, err := st.ReadRun(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", id), err)
		}
		infos = append(infos, RunInfo{
			ID:            run.ID,
			EngineVersion: run.EngineVersion,
			TraceVersion:  run.TraceVersion,
			CreatedAt:     run.CreatedAt.Format(time.RFC3339),
		})
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	formatter.VerboseLog("Found %d run(s)", len(infos))

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  %s  (engine %s, trace %s)\n", info.ID, info.CreatedAt, info.EngineVersion, info.TraceVersion)
	}
	return nil
}
