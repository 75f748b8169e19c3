package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/store"
)

// TracesOptions holds flags for the traces command.
type TracesOptions struct {
	*RootOptions
	Database string
	Program  string // optional - filter by program
	RunID    string // optional - filter by run
	Runs     bool   // list runs instead of traces
}

// TracesOutput is the data payload of the traces command.
type TracesOutput struct {
	Runs   []ir.RunRecord   `json:"runs,omitempty"`
	Traces []ir.TraceRecord `json:"traces"`
}

// NewTracesCommand creates the traces command.
func NewTracesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TracesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "List stored runs and failing traces",
		Long: `List the failing traces recorded by "test --db", or the runs with --runs.
Trace ids can be passed to "replay --db --trace".

Examples:
  psharp traces --db ./psharp.db
  psharp traces --db ./psharp.db --program election
  psharp traces --db ./psharp.db --runs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraces(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only traces of this program")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only traces of this run")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "list runs instead of traces")

	return cmd
}

func runTraces(opts *TracesOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError("failed to open database", err)
	}
	defer st.Close()

	result := TracesOutput{Traces: []ir.TraceRecord{}}
	if opts.Runs {
		result.Runs, err = st.ListRuns(ctx)
		if err != nil {
			return commandError("failed to list runs", err)
		}
	} else {
		result.Traces, err = st.ListTraces(ctx, store.TraceFilter{Program: opts.Program, RunID: opts.RunID})
		if err != nil {
			return commandError("failed to list traces", err)
		}
	}

	if out.Format == "json" {
		return out.Success(result)
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	if opts.Runs {
		if len(result.Runs) == 0 {
			fmt.Fprintln(out.Writer, "No runs found.")
			return nil
		}
		fmt.Fprintln(tw, "RUN\tPROGRAM\tSTRATEGY\tSEED\tITERATIONS\tBUGS\tVERDICT")
		for _, r := range result.Runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.Program, r.Strategy, r.Seed, r.Iterations, r.Bugs, r.Verdict)
		}
		return tw.Flush()
	}
	if len(result.Traces) == 0 {
		fmt.Fprintln(out.Writer, "No traces found.")
		return nil
	}
	fmt.Fprintln(tw, "TRACE\tPROGRAM\tRUN\tITERATION\tSTEPS\tERROR")
	for _, tr := range result.Traces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", tr.ID, tr.Program, tr.RunID, tr.Iteration, tr.Steps, tr.ErrorCode)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if opts.Verbose {
		for _, tr := range result.Traces {
			fmt.Fprintf(out.Writer, "%s: %s\n", tr.ID, tr.Message)
		}
	}
	return nil
}
