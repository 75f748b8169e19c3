package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/samples"
	"github.com/fniksic/PSharp/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Params         []string
	Iterations     int
	Strategy       string
	Seed           int64
	MaxSteps       int
	MaxTemperature int
	DepthBound     int
	Database       string // optional - persist run and failing traces
	TraceOut       string // optional - write first bug's choice log
}

// TestOutput is the data payload of the test command.
type TestOutput struct {
	Report  *engine.Report `json:"report"`
	Verdict ir.Verdict     `json:"verdict"`
	TraceID string         `json:"trace_id,omitempty"`
	Stored  int            `json:"stored_traces,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <program>",
		Short: "Systematically test a program",
		Long: `Run a program repeatedly under the testing scheduler, exploring a
different interleaving each iteration, until a bug is found or the iteration
budget is spent. Flags override the [testing] section of the config file.

Exit codes:
  0 - No bug found
  1 - A safety or liveness violation (or other runtime error) was found
  2 - Command error (unknown program, bad config, etc.)

Examples:
  psharp test election
  psharp test election --param faulty=true --iterations 500
  psharp test ring --strategy dfs --max-steps 200
  psharp test election --param candidates=3 --db ./psharp.db --trace-out bug.log`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "program parameter key=value (repeatable)")
	cmd.Flags().IntVarP(&opts.Iterations, "iterations", "i", 0, "maximum number of iterations")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "exploration strategy (random|dfs|pct)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for random and pct")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "scheduling step bound per iteration (0 = unbounded)")
	cmd.Flags().IntVar(&opts.MaxTemperature, "max-temperature", 0, "hot rounds before a liveness violation (0 = check at quiescence only)")
	cmd.Flags().IntVar(&opts.DepthBound, "depth-bound", 0, "dfs depth bound")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for runs and traces")
	cmd.Flags().StringVar(&opts.TraceOut, "trace-out", "", "write the first bug's choice log to this file")

	return cmd
}

// engineConfig merges the explicitly set flags over the config file.
func (o *TestOptions) engineConfig(cmd *cobra.Command) (engine.Config, error) {
	cfg, err := o.Config()
	if err != nil {
		return engine.Config{}, err
	}
	ec := cfg.Engine()
	flags := cmd.Flags()
	if flags.Changed("iterations") {
		ec.Iterations = o.Iterations
	}
	if flags.Changed("strategy") {
		ec.Strategy = strings.ToLower(o.Strategy)
	}
	if flags.Changed("seed") {
		ec.Seed = o.Seed
	}
	if flags.Changed("max-steps") {
		ec.MaxSteps = o.MaxSteps
	}
	if flags.Changed("max-temperature") {
		ec.MaxTemperature = o.MaxTemperature
	}
	if flags.Changed("depth-bound") {
		ec.DepthBound = o.DepthBound
	}
	if err := ec.Validate(); err != nil {
		return engine.Config{}, commandError("invalid testing options", err)
	}
	return ec, nil
}

// lookupProgram resolves a program name and its --param flags.
func (o *RootOptions) lookupProgram(name string, pairs []string) (engine.Program, error) {
	params, err := samples.ParseParams(pairs)
	if err != nil {
		return nil, commandError("invalid --param", err)
	}
	prog, err := o.registry().Lookup(name, params)
	if err != nil {
		return nil, commandError("cannot build program", err)
	}
	return prog, nil
}

func runTest(opts *TestOptions, name string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	ec, err := opts.engineConfig(cmd)
	if err != nil {
		return err
	}
	prog, err := opts.lookupProgram(name, opts.Params)
	if err != nil {
		return err
	}
	logger, err := opts.Logger(cmd)
	if err != nil {
		return err
	}

	engOpts := []engine.EngineOption{engine.WithLogger(logger)}
	if opts.Verbose {
		engOpts = append(engOpts, engine.WithStepTrace())
	}
	eng, err := engine.New(ec, engOpts...)
	if err != nil {
		return commandError("invalid testing options", err)
	}

	out.VerboseLog("testing %s: strategy=%s iterations=%d seed=%d", prog.Name(), ec.Strategy, ec.Iterations, ec.Seed)
	report, err := eng.Test(ctx, prog)
	if err != nil {
		if ir.IsConfigError(err) {
			return commandError("program setup failed", err)
		}
		return WrapExitError(ExitFailure, "test aborted", err)
	}

	result := TestOutput{Report: report, Verdict: report.Verdict()}
	bug := report.FirstBug()
	if bug != nil {
		result.TraceID, err = ir.TraceID(report.Program, bug.Choices)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot hash choice log", err)
		}
		if opts.TraceOut != "" {
			if err := writeChoiceLog(opts.TraceOut, bug.Choices); err != nil {
				return commandError("failed to write trace", err)
			}
			out.VerboseLog("choice log written to %s", opts.TraceOut)
		}
	}
	if opts.Database != "" {
		result.Stored, err = persistReport(ctx, opts.Database, report)
		if err != nil {
			return err
		}
	}

	if err := outputTest(out, result); err != nil {
		return err
	}
	if bug != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d bug(s) found", report.Program, report.Failed))
	}
	return nil
}

// persistReport stores the run and its failing traces. It returns the
// number of traces that were new to the database.
func persistReport(ctx context.Context, path string, report *engine.Report) (int, error) {
	st, err := store.Open(path)
	if err != nil {
		return 0, commandError("failed to open database", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, report.Record()); err != nil {
		return 0, commandError("failed to store run", err)
	}
	traces, err := report.TraceRecords()
	if err != nil {
		return 0, commandError("failed to hash traces", err)
	}
	stored := 0
	for _, tr := range traces {
		_, inserted, err := st.WriteTrace(ctx, tr)
		if err != nil {
			return stored, commandError("failed to store trace", err)
		}
		if inserted {
			stored++
		}
	}
	return stored, nil
}

func writeChoiceLog(path string, log ir.ChoiceLog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := log.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputTest(out *OutputFormatter, result TestOutput) error {
	report := result.Report
	bug := report.FirstBug()
	if out.Format == "json" {
		if bug != nil {
			return out.Failure(bug.ErrorCode, bug.Error, result, result.TraceID)
		}
		return out.Success(result)
	}

	w := out.Writer
	mark := "✓"
	if result.Verdict == ir.VerdictFail {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: %s (strategy=%s, seed=%d)\n", mark, report.Program, result.Verdict, report.Strategy, report.Seed)
	fmt.Fprintf(w, "  iterations: %d (passed %d, failed %d, inconclusive %d)\n",
		report.Iterations, report.Passed, report.Failed, report.Inconclusive)
	if report.Exhausted {
		fmt.Fprintln(w, "  search space exhausted")
	}
	fmt.Fprintf(w, "  duration: %s\n", report.Duration)
	if bug != nil {
		fmt.Fprintf(w, "  iteration %d: %s\n", bug.Iteration, bug.Error)
		fmt.Fprintf(w, "  choice log: %d decisions, trace %s\n", len(bug.Choices), result.TraceID)
		for _, step := range bug.Trace {
			fmt.Fprintf(w, "    %s\n", step)
		}
	}
	if result.Stored > 0 {
		fmt.Fprintf(w, "  stored %d new trace(s)\n", result.Stored)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
