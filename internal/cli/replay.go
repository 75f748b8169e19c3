package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Params         []string
	TraceFile      string
	Database       string
	TraceID        string
	MaxSteps       int
	MaxTemperature int
}

// ReplayOutput is the data payload of the replay command.
type ReplayOutput struct {
	Program   string         `json:"program"`
	TraceID   string         `json:"trace_id"`
	Decisions int            `json:"decisions"`
	Verdict   ir.Verdict     `json:"verdict"`
	ErrorCode ir.ErrorCode   `json:"error_code,omitempty"`
	Error     string         `json:"error,omitempty"`
	Steps     int            `json:"steps"`
	Trace     []ir.TraceStep `json:"trace,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program>",
		Short: "Replay a recorded choice log",
		Long: `Re-execute a program under a recorded choice log and print the step trace.
The log comes from a file written by "test --trace-out" or from a trace stored
by "test --db". Program parameters and the step and temperature bounds must
match the run that recorded the log.

Exit codes:
  0 - The execution completed without error
  1 - The recorded bug reproduced, or the execution diverged from the log
  2 - Command error (missing trace, unknown program, etc.)

Examples:
  psharp replay election --param faulty=true --trace-file bug.log
  psharp replay election --db ./psharp.db --trace 6f1c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "program parameter key=value (repeatable)")
	cmd.Flags().StringVar(&opts.TraceFile, "trace-file", "", "choice log file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.TraceID, "trace", "", "id of a stored trace (with --db)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "scheduling step bound")
	cmd.Flags().IntVar(&opts.MaxTemperature, "max-temperature", 0, "hot rounds before a liveness violation")
	cmd.MarkFlagsMutuallyExclusive("trace-file", "db")
	cmd.MarkFlagsRequiredTogether("db", "trace")

	return cmd
}

func runReplay(opts *ReplayOptions, name string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	log, err := opts.loadLog(cmd, name)
	if err != nil {
		return err
	}
	traceID, err := ir.TraceID(name, log)
	if err != nil {
		return commandError("cannot hash choice log", err)
	}

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	ec := cfg.Engine()
	if cmd.Flags().Changed("max-steps") {
		ec.MaxSteps = opts.MaxSteps
	}
	if cmd.Flags().Changed("max-temperature") {
		ec.MaxTemperature = opts.MaxTemperature
	}
	prog, err := opts.lookupProgram(name, opts.Params)
	if err != nil {
		return err
	}
	logger, err := opts.Logger(cmd)
	if err != nil {
		return err
	}
	eng, err := engine.New(ec, engine.WithLogger(logger))
	if err != nil {
		return commandError("invalid replay options", err)
	}

	out.VerboseLog("replaying %s: %d decisions, trace %s", name, len(log), traceID)
	result := ReplayOutput{Program: name, TraceID: traceID, Decisions: len(log)}
	res, err := eng.Replay(ctx, prog, log)
	switch {
	case ir.IsReplayDiverged(err):
		result.Verdict = ir.VerdictFail
		result.ErrorCode = ir.ErrCodeReplayDiverged
		result.Error = err.Error()
	case ir.IsConfigError(err):
		return commandError("program setup failed", err)
	case err != nil:
		return WrapExitError(ExitFailure, "replay aborted", err)
	default:
		result.Verdict = res.Verdict
		result.ErrorCode = res.ErrorCode
		result.Error = res.Error
		result.Steps = res.Steps
		result.Trace = res.Trace
	}

	if err := outputReplay(out, result); err != nil {
		return err
	}
	if result.Verdict == ir.VerdictFail {
		if result.ErrorCode == ir.ErrCodeReplayDiverged {
			return NewExitError(ExitFailure, "replay diverged from the recorded log")
		}
		return NewExitError(ExitFailure, fmt.Sprintf("bug reproduced: %s", result.ErrorCode))
	}
	return nil
}

// loadLog reads the choice log from --trace-file or from the database.
func (o *ReplayOptions) loadLog(cmd *cobra.Command, program string) (ir.ChoiceLog, error) {
	switch {
	case o.TraceFile != "":
		f, err := os.Open(o.TraceFile)
		if err != nil {
			return nil, commandError("failed to open trace file", err)
		}
		defer f.Close()
		log, err := ir.ParseChoiceLog(f)
		if err != nil {
			return nil, commandError("invalid trace file", err)
		}
		return log, nil
	case o.Database != "":
		st, err := store.Open(o.Database)
		if err != nil {
			return nil, commandError("failed to open database", err)
		}
		defer st.Close()
		tr, err := st.ReadTrace(commandContext(cmd), o.TraceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("trace %s not found", o.TraceID))
		}
		if err != nil {
			return nil, commandError("failed to read trace", err)
		}
		if tr.Program != program {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("trace %s was recorded for program %s, not %s", o.TraceID, tr.Program, program))
		}
		return tr.Choices, nil
	default:
		return nil, NewExitError(ExitCommandError, "one of --trace-file or --db with --trace is required")
	}
}

func outputReplay(out *OutputFormatter, result ReplayOutput) error {
	if out.Format == "json" {
		if result.Verdict == ir.VerdictFail {
			return out.Failure(result.ErrorCode, result.Error, result, result.TraceID)
		}
		return out.Success(result)
	}

	w := out.Writer
	for _, step := range result.Trace {
		fmt.Fprintf(w, "  %s\n", step)
	}
	mark := "✓"
	if result.Verdict == ir.VerdictFail {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: %s after %d steps (%d decisions)\n", mark, result.Program, result.Verdict, result.Steps, result.Decisions)
	if result.Error != "" {
		fmt.Fprintf(w, "  %s\n", result.Error)
	}
	return nil
}
