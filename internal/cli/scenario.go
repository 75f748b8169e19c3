package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fniksic/PSharp/internal/harness"
	"github.com/fniksic/PSharp/internal/ir"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name glob
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string       `json:"name"`
	Pass    bool         `json:"pass"`
	Verdict ir.Verdict   `json:"verdict,omitempty"`
	Code    ir.ErrorCode `json:"error_code,omitempty"`
	Errors  []string     `json:"errors,omitempty"`
}

// ScenarioSummary holds the overall result.
type ScenarioSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <dir>",
		Short: "Run scenario files",
		Long: `Run every YAML scenario in a directory. A scenario names a program, its
parameters and testing options, the expected verdict and error code, and
assertions over the step trace. When <dir>/golden/<name>.golden exists the
trace snapshot must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, invalid scenario file, etc.)

Examples:
  psharp scenario ./scenarios
  psharp scenario ./scenarios --filter "election-*"
  psharp scenario ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")

	return cmd
}

func runScenarios(opts *ScenarioOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario directory not found: %s", dir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return commandError("invalid filter pattern", err)
		}
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return commandError("failed to load scenarios", err)
	}
	logger, err := opts.Logger(cmd)
	if err != nil {
		return err
	}
	h := harness.New(harness.WithRegistry(opts.registry()), harness.WithLogger(logger))

	summary := ScenarioSummary{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, s.Name); !ok {
				continue
			}
		}
		res := runOneScenario(opts, h, dir, s, cmd)
		summary.Scenarios = append(summary.Scenarios, res)
		summary.Total++
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	return outputScenarios(opts, cmd, summary)
}

func runOneScenario(opts *ScenarioOptions, h *harness.Harness, dir string, s *harness.Scenario, cmd *cobra.Command) ScenarioResult {
	res := ScenarioResult{Name: s.Name}
	result, err := h.Run(commandContext(cmd), s)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	res.Verdict = result.Verdict
	res.Code = result.ErrorCode
	res.Errors = append(res.Errors, result.Errors...)

	path := goldenFilePath(dir, s.Name)
	if opts.Update {
		if err := updateGoldenFile(path, s.Name, result); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
	} else if err := compareWithGolden(path, s.Name, result); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	res.Pass = len(res.Errors) == 0
	return res
}

// goldenFilePath returns <dir>/golden/<name>.golden.
func goldenFilePath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

func updateGoldenFile(path, name string, result *harness.Result) error {
	data, err := harness.Snapshot(name, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// compareWithGolden checks result against path. A missing golden file is
// not an error.
func compareWithGolden(path, name string, result *harness.Result) error {
	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := harness.Snapshot(name, result)
	if err != nil {
		return fmt.Errorf("failed to snapshot trace: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		return fmt.Errorf("trace does not match golden file (run with --update to regenerate)")
	}
	return nil
}

func outputScenarios(opts *ScenarioOptions, cmd *cobra.Command, summary ScenarioSummary) error {
	out := opts.formatter(cmd)
	if out.Format == "json" {
		var err error
		if summary.Failed > 0 {
			err = out.Error("SCENARIO_FAILED", fmt.Sprintf("%d scenario(s) failed", summary.Failed), summary)
		} else {
			err = out.Success(summary)
		}
		if err != nil {
			return err
		}
	} else {
		w := out.Writer
		if summary.Total == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return nil
		}
		for _, r := range summary.Scenarios {
			if r.Pass {
				fmt.Fprintf(w, "✓ %s\n", r.Name)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", r.Name)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}
