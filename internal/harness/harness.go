package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/samples"
)

// Harness executes scenarios against a sample registry.
type Harness struct {
	registry *samples.Registry
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry replaces the built-in sample registry.
func WithRegistry(r *samples.Registry) Option {
	return func(h *Harness) {
		h.registry = r
	}
}

// WithLogger sets the logger handed to the engine. Logs are discarded by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

func New(opts ...Option) *Harness {
	h := &Harness{
		registry: samples.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with the default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Build the program from the registry
//  2. Run the engine with the scenario's settings
//  3. Obtain the trace: replay the first bug, or trace the first iteration
//  4. Compare verdict and error code with the expect clause
//  5. Evaluate trace assertions
//
// The returned error is non-nil only if the scenario could not be executed.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := h.registry.Lookup(scenario.Program, samples.Params(scenario.Params))
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(scenario.EngineConfig(),
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("scenario-"+scenario.Name)),
	)
	if err != nil {
		return nil, err
	}

	report, err := eng.Test(ctx, prog)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Report = report
	result.Verdict = report.Verdict()

	var traced *engine.IterationResult
	if bug := report.FirstBug(); bug != nil {
		result.ErrorCode = bug.ErrorCode
		result.Error = bug.Error
		traced, err = eng.Replay(ctx, prog, bug.Choices)
	} else {
		traced, err = eng.FirstIteration(ctx, prog)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario %s: trace: %w", scenario.Name, err)
	}
	result.AddTrace(traced.Trace)

	if result.Verdict != scenario.Expect.Verdict {
		msg := fmt.Sprintf("expected verdict %s, got %s", scenario.Expect.Verdict, result.Verdict)
		if result.Error != "" {
			msg += ": " + result.Error
		}
		result.AddError(msg)
	}
	if want := scenario.Expect.Error; want != "" && result.ErrorCode != want {
		result.AddError(fmt.Sprintf("expected error %s, got %s", want, describeCode(result.ErrorCode)))
	}

	for _, msg := range EvaluateAssertions(result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func describeCode(code ir.ErrorCode) string {
	if code == "" {
		return "none"
	}
	return string(code)
}
