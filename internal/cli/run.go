package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Params      []string
	Workers     int
	Timeout     time.Duration
	Seed        int64
	MetricsAddr string // optional - serve Prometheus metrics here
}

// RunOutput is the data payload of the run command.
type RunOutput struct {
	Program  string        `json:"program"`
	Workers  int           `json:"workers"`
	Duration time.Duration `json:"duration_ns"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program on the production scheduler",
		Long: `Run a program once on the worker-pool scheduler until every machine is
idle or halted. Monitors still check safety, and liveness monitors must be
cold when the program quiesces. Flags override the [production] section of
the config file.

Exit codes:
  0 - The program quiesced without error
  1 - A runtime error or property violation occurred, or the timeout expired
  2 - Command error (unknown program, bad config, etc.)

Examples:
  psharp run election
  psharp run ring --param ids=4,9,1 --workers 4
  psharp run election --timeout 5s --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "program parameter key=value (repeatable)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "worker goroutines (0 = GOMAXPROCS)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this duration")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for the program's nondeterministic choices")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func (o *RunOptions) productionConfig(cmd *cobra.Command) (engine.ProductionConfig, error) {
	cfg, err := o.Config()
	if err != nil {
		return engine.ProductionConfig{}, err
	}
	timeout, err := cfg.Production.TimeoutDuration()
	if err != nil {
		return engine.ProductionConfig{}, commandError("invalid production config", err)
	}
	pc := engine.ProductionConfig{Workers: cfg.Production.Workers, Timeout: timeout, Seed: o.Seed}
	if cmd.Flags().Changed("workers") {
		pc.Workers = o.Workers
	}
	if cmd.Flags().Changed("timeout") {
		pc.Timeout = o.Timeout
	}
	if pc.Workers < 0 || pc.Timeout < 0 {
		return engine.ProductionConfig{}, NewExitError(ExitCommandError, "workers and timeout must not be negative")
	}
	return pc, nil
}

func runProgram(opts *RunOptions, name string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	pc, err := opts.productionConfig(cmd)
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
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg.Engine(), engine.WithLogger(logger), engine.WithMetrics())
	if err != nil {
		return commandError("invalid config", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts.MetricsAddr, logger)
		if err != nil {
			return commandError("failed to serve metrics", err)
		}
		defer stop()
	}

	out.VerboseLog("running %s on %d workers", prog.Name(), pc.Workers)
	start := time.Now()
	err = eng.RunProduction(ctx, prog, pc)
	result := RunOutput{Program: prog.Name(), Workers: pc.Workers, Duration: time.Since(start)}
	switch {
	case ir.IsConfigError(err):
		return commandError("program setup failed", err)
	case errors.Is(err, context.DeadlineExceeded):
		return WrapExitError(ExitFailure, "timeout expired before quiescence", err)
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitFailure, "run interrupted", err)
	case err != nil:
		if ferr := out.Failure(ir.CodeOf(err), err.Error(), result, ""); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	if out.Format == "json" {
		return out.Success(result)
	}
	return out.Success(fmt.Sprintf("✓ %s: quiescent after %s", result.Program, result.Duration))
}

// serveMetrics starts an HTTP server exposing /metrics and returns a
// function that shuts it down.
func serveMetrics(addr string, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
