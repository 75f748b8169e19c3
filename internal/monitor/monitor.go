// Package monitor checks global properties against the event stream.
//
// A monitor is a machine in monitor mode: it observes every event the
// dispatcher delivers, synchronously and in delivery order, and may fail an
// assertion (a safety violation). States can be marked Hot or Cold; a
// monitor that stays in hot states for too many scheduling rounds without
// entering a cold state, or that is still hot at quiescence, reports
// suspected non-progress (a liveness violation).
package monitor

import (
	"log/slog"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
)

// Monitor is one running monitor instance.
type Monitor struct {
	typ            *machine.Type
	m              *machine.Machine
	logger         *slog.Logger
	maxTemperature int

	temperature int
	progressed  bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMaxTemperature sets the number of idle hot rounds tolerated before a
// liveness violation (0 disables the per-round check).
func WithMaxTemperature(n int) Option {
	return func(mo *Monitor) {
		mo.maxTemperature = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(mo *Monitor) {
		mo.logger = logger
	}
}

// New creates a monitor of type t and runs its start state's entry action.
func New(t *machine.Type, opts ...Option) (*Monitor, error) {
	mo := &Monitor{typ: t, logger: slog.Default()}
	for _, opt := range opts {
		opt(mo)
	}
	m, err := machine.New(0, t, nil, ir.Event{},
		machine.AsMonitor(),
		machine.WithLogger(mo.logger),
		machine.WithStateChangeCallback(mo.entered),
	)
	if err != nil {
		return nil, err
	}
	mo.m = m
	if err := mo.drain(); err != nil {
		return nil, err
	}
	mo.progressed = false
	return mo, nil
}

// Name returns the monitor's type name.
func (mo *Monitor) Name() string { return mo.typ.Name() }

// CurrentState returns the monitor's current state.
func (mo *Monitor) CurrentState() ir.StateName { return mo.m.CurrentState() }

// Hot reports whether the current state is marked hot.
func (mo *Monitor) Hot() bool {
	return mo.typ.Temperature(mo.m.CurrentState()) == machine.HotState
}

// Temperature returns the number of consecutive idle hot rounds.
func (mo *Monitor) Temperature() int { return mo.temperature }

// Observe handles ev to completion, including any raised events.
func (mo *Monitor) Observe(ev ir.Event) error {
	mo.m.Enqueue(ev)
	return mo.drain()
}

// EndRound updates the temperature at the end of a scheduling round.
func (mo *Monitor) EndRound(round int) error {
	if mo.Hot() && !mo.progressed {
		mo.temperature++
	} else {
		mo.temperature = 0
	}
	mo.progressed = false

	if mo.maxTemperature > 0 && mo.temperature > mo.maxTemperature {
		return &ir.RuntimeError{
			Code:    ir.ErrCodeLivenessViolation,
			Message: "suspected non-progress: hot for more rounds than allowed",
			Monitor: mo.Name(),
			State:   mo.CurrentState(),
			Err:     errTemperature(mo.temperature, mo.maxTemperature, round),
		}
	}
	return nil
}

// AtQuiescence reports a liveness violation if the monitor is still hot
// when no machine can make progress.
func (mo *Monitor) AtQuiescence() error {
	if !mo.Hot() {
		return nil
	}
	return &ir.RuntimeError{
		Code:    ir.ErrCodeLivenessViolation,
		Message: "monitor is still hot at quiescence",
		Monitor: mo.Name(),
		State:   mo.CurrentState(),
	}
}

func (mo *Monitor) drain() error {
	for {
		progressed, err := mo.m.Step()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

func (mo *Monitor) entered(_, to ir.StateName) {
	if mo.typ.Temperature(to) == machine.ColdState {
		mo.progressed = true
		mo.temperature = 0
	}
}
