package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/metrics"
	"github.com/fniksic/PSharp/internal/monitor"
	"github.com/fniksic/PSharp/internal/runtime"
	"github.com/fniksic/PSharp/internal/scheduler"
)

// Engine runs tests and replays.
//
// An Engine is stateless between calls and may be reused; it is not safe to
// call Test concurrently on programs whose Setup shares state.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	runIDs  RunIDGenerator
	metrics bool
	trace   bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger used by the engine and handed to machines.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithMetrics records iteration verdicts in the Prometheus collectors.
func WithMetrics() EngineOption {
	return func(e *Engine) {
		e.metrics = true
	}
}

// WithStepTrace keeps the step trace of failing iterations in the report.
// Replay always records the trace.
func WithStepTrace() EngineOption {
	return func(e *Engine) {
		e.trace = true
	}
}

// New creates an Engine. The configuration is validated eagerly.
func New(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Test explores prog for up to cfg.Iterations iterations.
//
// The returned error is non-nil only when the test could not be carried out
// (configuration error, replay divergence of a systematic strategy,
// cancellation). Bugs are reported in the Report.
func (e *Engine) Test(ctx context.Context, prog Program) (*Report, error) {
	strategy, err := e.cfg.NewStrategy()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	report := &Report{
		RunID:    e.runIDs.Generate(),
		Program:  prog.Name(),
		Strategy: strategy.Description(),
		Seed:     e.cfg.Seed,
	}
	e.logger.Info("test starting",
		"run", report.RunID,
		"program", report.Program,
		"strategy", report.Strategy,
		"iterations", e.cfg.Iterations,
	)

	for i := 0; i < e.cfg.Iterations; i++ {
		if !strategy.PrepareIteration() {
			report.Exhausted = true
			break
		}
		res, err := e.iterate(ctx, prog, strategy, i, e.trace)
		if err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("iteration %d: %w", i, err)
		}
		report.Iterations++
		if e.metrics {
			metrics.RecordIteration(report.Program, string(res.Verdict))
		}

		switch res.Verdict {
		case ir.VerdictPass:
			report.Passed++
		case ir.VerdictInconclusive:
			report.Inconclusive++
		case ir.VerdictFail:
			report.Failed++
			report.Bugs = append(report.Bugs, res)
			e.logger.Error("bug found",
				"run", report.RunID,
				"iteration", i,
				"code", string(res.ErrorCode),
				"error", res.Error,
				"steps", res.Steps,
			)
		}
		e.logger.Debug("iteration finished", "iteration", i, "verdict", string(res.Verdict), "steps", res.Steps)

		if res.Verdict == ir.VerdictFail && e.cfg.StopOnFirstBug {
			break
		}
	}
	if dfs, ok := strategy.(*scheduler.DFS); ok && dfs.Exhausted() {
		report.Exhausted = true
	}

	report.Duration = time.Since(start)
	e.logger.Info("test finished",
		"run", report.RunID,
		"verdict", string(report.Verdict()),
		"iterations", report.Iterations,
		"bugs", report.Failed,
		"inconclusive", report.Inconclusive,
		"duration", report.Duration,
	)
	return report, nil
}

// iterate runs one iteration. The returned error aborts the whole test.
func (e *Engine) iterate(ctx context.Context, prog Program, strategy scheduler.Strategy, iteration int, keepTrace bool) (IterationResult, error) {
	res := IterationResult{Iteration: iteration}

	var trace []ir.TraceStep
	var checker *monitor.LivenessChecker
	sched := scheduler.NewTesting(strategy,
		scheduler.WithMaxSteps(e.cfg.MaxSteps),
		scheduler.WithTestingLogger(e.logger),
		scheduler.WithRoundHook(func(round int) error {
			if checker == nil {
				return nil
			}
			return checker.EndRound(round)
		}),
	)
	rtOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithMonitorOptions(monitor.WithMaxTemperature(e.cfg.MaxTemperature)),
	}
	if keepTrace {
		rtOpts = append(rtOpts, runtime.WithTracer(func(step ir.TraceStep) {
			trace = append(trace, step)
		}))
	}
	rt := runtime.New(sched, rtOpts...)

	runErr := prog.Setup(rt)
	if runErr == nil {
		checker = monitor.NewLivenessChecker(rt.Monitors())
		runErr = sched.Run(ctx)
		if runErr == nil {
			runErr = checker.AtQuiescence()
		}
	}

	res.Steps = sched.Steps()
	res.Rounds = sched.Round()
	res.Trace = trace

	switch {
	case runErr == nil:
		res.Verdict = ir.VerdictPass
	case scheduler.IsStepBound(runErr):
		res.Verdict = ir.VerdictInconclusive
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		return res, runErr
	case ir.IsConfigError(runErr), ir.IsReplayDiverged(runErr):
		return res, runErr
	default:
		res.Verdict = ir.VerdictFail
		res.setErr(runErr)
		res.Choices = sched.Log()
	}
	return res, nil
}
