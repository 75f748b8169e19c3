package engine

import (
	"context"
	"time"

	"github.com/fniksic/PSharp/internal/monitor"
	"github.com/fniksic/PSharp/internal/runtime"
	"github.com/fniksic/PSharp/internal/scheduler"
)

// ProductionConfig controls a production run.
type ProductionConfig struct {
	Workers int
	Timeout time.Duration
	Seed    int64
}

// RunProduction executes prog once on the worker-pool scheduler. Monitors
// still check safety; liveness monitors are checked once at quiescence.
func (e *Engine) RunProduction(ctx context.Context, prog Program, pc ProductionConfig) error {
	if pc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pc.Timeout)
		defer cancel()
	}
	opts := []scheduler.ProductionOption{
		scheduler.WithWorkers(pc.Workers),
		scheduler.WithProductionLogger(e.logger),
	}
	if pc.Seed != 0 {
		opts = append(opts, scheduler.WithSeed(pc.Seed))
	}
	sched := scheduler.NewProduction(opts...)

	rtOpts := []runtime.Option{runtime.WithLogger(e.logger)}
	if e.metrics {
		rtOpts = append(rtOpts, runtime.WithMetrics())
	}
	rt := runtime.New(sched, rtOpts...)
	if err := prog.Setup(rt); err != nil {
		return err
	}

	start := time.Now()
	if err := sched.Run(ctx); err != nil {
		return err
	}
	if err := monitor.NewLivenessChecker(rt.Monitors()).AtQuiescence(); err != nil {
		return err
	}
	e.logger.Info("production run finished",
		"program", prog.Name(),
		"machines", len(rt.Machines()),
		"duration", time.Since(start),
	)
	return nil
}
