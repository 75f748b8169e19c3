package engine

import (
	"context"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/scheduler"
)

// Replay re-executes prog under a recorded choice log. The result carries
// the full step trace. Any mismatch between the execution and the log is
// returned as a REPLAY_DIVERGED error.
func (e *Engine) Replay(ctx context.Context, prog Program, log ir.ChoiceLog) (*IterationResult, error) {
	strategy := scheduler.NewReplayStrategy(log)
	strategy.PrepareIteration()

	res, err := e.iterate(ctx, prog, strategy, 0, true)
	if err != nil {
		return nil, err
	}
	if rem := strategy.Remaining(); rem > 0 {
		return nil, ir.Errorf(ir.ErrCodeReplayDiverged,
			"execution ended with %d of %d recorded decisions unused", rem, len(log))
	}
	e.logger.Info("replay finished", "program", prog.Name(), "verdict", string(res.Verdict), "steps", res.Steps)
	return &res, nil
}

// FirstIteration runs the first iteration of a fresh strategy with the
// step trace enabled. For random and pct it matches iteration 0 of Test
// with the same seed.
func (e *Engine) FirstIteration(ctx context.Context, prog Program) (*IterationResult, error) {
	strategy, err := e.cfg.NewStrategy()
	if err != nil {
		return nil, err
	}
	strategy.PrepareIteration()
	res, err := e.iterate(ctx, prog, strategy, 0, true)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
