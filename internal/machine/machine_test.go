package machine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evGo   ir.EventKind = "go"
	evPush ir.EventKind = "push"
	evPop  ir.EventKind = "pop"
	evPing ir.EventKind = "ping"
	evWait ir.EventKind = "wait"
	evNoop ir.EventKind = "noop"
)

// fakeHost records deliveries and sends.
type fakeHost struct {
	rec     *testutil.Recorder
	sent    []ir.Event
	halted  []ir.MachineID
	nextInt int
}

func newFakeHost() *fakeHost { return &fakeHost{rec: testutil.NewRecorder()} }

func (h *fakeHost) Send(from, target ir.MachineID, ev ir.Event) error {
	h.sent = append(h.sent, ev)
	return nil
}

func (h *fakeHost) Create(from ir.MachineID, typeName string, ev ir.Event) (ir.MachineID, error) {
	return 99, nil
}

func (h *fakeHost) Announce(from ir.MachineID, ev ir.Event) error { return nil }

func (h *fakeHost) RandomBool(from ir.MachineID) (bool, error) { return true, nil }

func (h *fakeHost) RandomInt(from ir.MachineID, n int) (int, error) { return h.nextInt % n, nil }

func (h *fakeHost) Deliver(m *Machine, ev ir.Event) error {
	h.rec.Record(fmt.Sprintf("deliver:%s@%s", ev.Kind, m.CurrentState()))
	return nil
}

func (h *fakeHost) Halted(m *Machine) error {
	h.halted = append(h.halted, m.ID())
	return nil
}

// tracer is a behaviour whose actions record into a shared recorder.
type tracer struct {
	rec     *testutil.Recorder
	counter int
}

func (b *tracer) log(s string) Handler {
	return func(*Context) error {
		b.rec.Record(s)
		return nil
	}
}

func (b *tracer) Define(d *Definition) {
	d.Start("A")
	d.State("A",
		OnEntry(func(*Context) error {
			b.counter++
			b.rec.Record("enter:A")
			return nil
		}),
		OnExit(b.log("exit:A")),
		On(evGo, GotoDo("B", b.log("transition"))),
		On(evPush, Push("P")),
		On(evPing, Do(b.log("ping:A"))),
		On(evWait, Defer()),
	)
	d.State("B",
		OnEntry(b.log("enter:B")),
		OnExit(b.log("exit:B")),
		On(evWait, Do(b.log("wait:B"))),
		On(evNoop, Ignore()),
	)
	d.State("P",
		OnEntry(b.log("enter:P")),
		OnExit(b.log("exit:P")),
		On(evPop, Pop()),
		On(evPush, Push("P")),
	)
}

func newTracer(t *testing.T, host Host, opts ...Option) (*Machine, *tracer) {
	t.Helper()
	rec := testutil.NewRecorder()
	var inst *tracer
	typ, err := NewType("Tracer", func() Behavior {
		inst = &tracer{rec: rec}
		return inst
	})
	require.NoError(t, err)
	m, err := New(1, typ, host, ir.Event{}, append([]Option{WithLogger(testutil.Logger(t))}, opts...)...)
	require.NoError(t, err)
	return m, inst
}

func drain(t *testing.T, m *Machine) {
	t.Helper()
	for {
		progressed, err := m.Step()
		require.NoError(t, err)
		if !progressed {
			return
		}
	}
}

func TestMachine_StartRunsEntryOnFirstStep(t *testing.T) {
	m, b := newTracer(t, newFakeHost())

	assert.Equal(t, []ir.StateName{"A"}, m.Stack())
	assert.False(t, m.Started())
	assert.Empty(t, b.rec.Calls())
	assert.True(t, m.Enabled())

	drain(t, m)
	assert.True(t, m.Started())
	assert.Equal(t, []string{"enter:A"}, b.rec.Calls())
	assert.False(t, m.Enabled())
}

func TestMachine_GotoRunsExitTransitionEntry(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)

	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)

	assert.Equal(t, []string{"enter:A", "exit:A", "transition", "enter:B"}, b.rec.Calls())
	assert.Equal(t, []ir.StateName{"B"}, m.Stack())
}

func TestMachine_PopDoesNotReenter(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)
	require.Equal(t, 1, b.counter)

	m.Enqueue(ir.NewEvent(evPush, nil))
	drain(t, m)
	assert.Equal(t, []ir.StateName{"A", "P"}, m.Stack())

	m.Enqueue(ir.NewEvent(evPop, nil))
	drain(t, m)
	assert.Equal(t, []ir.StateName{"A"}, m.Stack())
	assert.Equal(t, 1, b.counter, "entry of A must not re-run on pop")
	assert.Equal(t, []string{"enter:A", "enter:P", "exit:P"}, b.rec.Calls())
}

func TestMachine_InheritedHandlerRunsInPushedState(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)
	m.Enqueue(ir.NewEvent(evPush, nil))
	m.Enqueue(ir.NewEvent(evPing, nil))
	drain(t, m)

	assert.Equal(t, []ir.StateName{"A", "P"}, m.Stack())
	assert.Contains(t, b.rec.Calls(), "ping:A")
}

func TestMachine_TransitionFromEnclosingStateUnwinds(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)
	m.Enqueue(ir.NewEvent(evPush, nil))
	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)

	assert.Equal(t, []ir.StateName{"B"}, m.Stack())
	assert.Equal(t, []string{"enter:A", "enter:P", "exit:P", "exit:A", "transition", "enter:B"}, b.rec.Calls())
}

func TestMachine_DeferKeepsEventUntilHandled(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)

	m.Enqueue(ir.NewEvent(evWait, nil))
	assert.False(t, m.Enabled())
	progressed, err := m.Step()
	require.NoError(t, err)
	assert.False(t, progressed)
	assert.Equal(t, 1, m.Pending())

	m.Enqueue(ir.NewEvent(evGo, nil))
	assert.True(t, m.Enabled())
	drain(t, m)

	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, "wait:B", b.rec.Calls()[len(b.rec.Calls())-1])
}

func TestMachine_IgnoreDropsEvent(t *testing.T) {
	m, b := newTracer(t, newFakeHost())
	drain(t, m)
	m.Enqueue(ir.NewEvent(evGo, nil))
	m.Enqueue(ir.NewEvent(evNoop, nil))
	drain(t, m)

	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, "enter:B", b.rec.Calls()[len(b.rec.Calls())-1])
}

func TestMachine_UnhandledEventNamesMachineStateAndEvent(t *testing.T) {
	m, _ := newTracer(t, newFakeHost())
	drain(t, m)
	m.Enqueue(ir.NewEvent(evPop, nil))

	_, err := m.Step()
	require.Error(t, err)
	re, ok := ir.AsRuntimeError(err)
	require.True(t, ok)
	assert.Equal(t, ir.ErrCodeUnhandledEvent, re.Code)
	assert.Equal(t, ir.MachineID(1), re.Machine)
	assert.Equal(t, "Tracer", re.MachineType)
	assert.Equal(t, ir.StateName("A"), re.State)
	assert.Equal(t, evPop, re.Event)
}

func TestMachine_PopOnSingleElementStack(t *testing.T) {
	typ := MustType("Popper", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("Only")
			d.State("Only", On(evPop, Pop()))
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)
	drain(t, m)

	m.Enqueue(ir.NewEvent(evPop, nil))
	_, err = m.Step()
	assert.Equal(t, ir.ErrCodeInvalidPop, ir.CodeOf(err))
	assert.Equal(t, []ir.StateName{"Only"}, m.Stack())
}

func TestMachine_StackNeverEmptyUnderRandomPushPop(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		m, _ := newTracer(t, newFakeHost())
		drain(t, m)
		for i := 0; i < 40; i++ {
			kind := evPush
			if rng.IntN(2) == 0 {
				kind = evPop
			}
			m.Enqueue(ir.NewEvent(kind, nil))
			_, err := m.Step()
			if err != nil {
				// A pop with only A on the stack is unhandled in A.
				require.True(t, ir.IsUnhandledEvent(err), err.Error())
				break
			}
			require.NotEmpty(t, m.Stack())
			require.Equal(t, ir.StateName("A"), m.Stack()[0])
		}
	}
}

func TestMachine_HaltRunsExitsTopToBottom(t *testing.T) {
	host := newFakeHost()
	m, b := newTracer(t, host)
	drain(t, m)
	m.Enqueue(ir.NewEvent(evPush, nil))
	m.Enqueue(ir.NewEvent(evPush, nil))
	drain(t, m)
	b.rec.Reset()

	m.Enqueue(ir.Halt())
	drain(t, m)

	assert.True(t, m.Halted())
	assert.Equal(t, []string{"exit:P", "exit:P", "exit:A"}, b.rec.Calls())
	assert.Equal(t, []ir.MachineID{1}, host.halted)
	assert.False(t, m.Enqueue(ir.NewEvent(evPing, nil)), "enqueue after halt is a no-op")
	assert.False(t, m.Enabled())
}

func TestMachine_FIFOPerMachine(t *testing.T) {
	var got []any
	typ := MustType("Sink", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("S")
			d.State("S", On(evPing, Do(func(c *Context) error {
				got = append(got, c.Payload())
				return nil
			})))
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		m.Enqueue(ir.NewEvent(evPing, i))
	}
	drain(t, m)
	assert.Equal(t, []any{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestMachine_DeliverIsCalledBeforeHandler(t *testing.T) {
	host := newFakeHost()
	m, _ := newTracer(t, host)
	drain(t, m)
	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)

	assert.Equal(t, []string{"deliver:go@A"}, host.rec.Calls())
}

func TestMachine_ContextIntents(t *testing.T) {
	rec := testutil.NewRecorder()
	typ := MustType("Dyn", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("Init")
			d.State("Init",
				OnEntry(func(c *Context) error {
					c.Raise(ir.NewEvent(evPing, "raised"))
					return nil
				}),
				On(evPing, Do(func(c *Context) error {
					rec.Record(fmt.Sprintf("ping:%v", c.Payload()))
					c.Push("Inner")
					return nil
				})),
			)
			d.State("Inner",
				OnEntry(func(c *Context) error {
					rec.Record("enter:Inner")
					return nil
				}),
				On(evPop, Do(func(c *Context) error {
					c.Pop()
					return nil
				})),
				On(evGo, Do(func(c *Context) error {
					c.Halt()
					return nil
				})),
			)
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)

	m.Enqueue(ir.NewEvent(evPing, "mailbox"))
	drain(t, m)
	assert.Equal(t, []string{"ping:raised", "enter:Inner", "ping:mailbox", "enter:Inner"}, rec.Calls())
	assert.Equal(t, []ir.StateName{"Init", "Inner", "Inner"}, m.Stack())

	m.Enqueue(ir.NewEvent(evPop, nil))
	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)
	assert.True(t, m.Halted())
}

func TestMachine_HandlerErrorsAreAttributed(t *testing.T) {
	boom := errors.New("boom")
	typ := MustType("Failing", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("S")
			d.State("S",
				On(evPing, Do(func(*Context) error { return boom })),
				On(evGo, Do(func(*Context) error { panic("kaboom") })),
				On(evWait, Do(func(c *Context) error { return c.Assert(false, "invariant %d", 1) })),
			)
		})
	})

	cases := []struct {
		kind ir.EventKind
		code ir.ErrorCode
	}{
		{evPing, ir.ErrCodeActionFailed},
		{evGo, ir.ErrCodeActionFailed},
		{evWait, ir.ErrCodeSafetyViolation},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			m, err := New(5, typ, newFakeHost(), ir.Event{})
			require.NoError(t, err)
			drain(t, m)
			m.Enqueue(ir.NewEvent(tc.kind, nil))
			_, err = m.Step()
			re, ok := ir.AsRuntimeError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, re.Code)
			assert.Equal(t, ir.MachineID(5), re.Machine)
			assert.Equal(t, tc.kind, re.Event)
		})
	}

	m, err := New(5, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)
	drain(t, m)
	m.Enqueue(ir.NewEvent(evPing, nil))
	_, err = m.Step()
	assert.ErrorIs(t, err, boom)
}

func TestMachine_MonitorMode(t *testing.T) {
	var entered []ir.StateName
	typ := MustType("Safety", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("Waiting")
			d.State("Waiting", Hot(),
				On(evGo, Goto("Done")),
				On(evPing, Do(func(c *Context) error {
					return c.Send(2, ir.NewEvent(evPing, nil))
				})),
			)
			d.State("Done", Cold())
		})
	})
	m, err := New(1, typ, nil, ir.Event{}, AsMonitor(), WithStateChangeCallback(func(_, to ir.StateName) {
		entered = append(entered, to)
	}))
	require.NoError(t, err)
	drain(t, m)

	// Unhandled events are dropped.
	m.Enqueue(ir.NewEvent(evNoop, nil))
	drain(t, m)

	m.Enqueue(ir.NewEvent(evPing, nil))
	_, err = m.Step()
	re, ok := ir.AsRuntimeError(err)
	require.True(t, ok)
	assert.Equal(t, ir.ErrCodeConfig, re.Code)
	assert.Equal(t, "Safety", re.Monitor)

	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)
	assert.Equal(t, []ir.StateName{"Waiting", "Done"}, entered)
	assert.Equal(t, HotState, typ.Temperature("Waiting"))
	assert.Equal(t, ColdState, typ.Temperature("Done"))
}

func TestMachine_DynamicGotoToUnknownState(t *testing.T) {
	typ := MustType("Typo", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("S")
			d.State("S", On(evGo, Do(func(c *Context) error {
				c.Goto("Nowhere")
				return nil
			})))
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)
	drain(t, m)
	m.Enqueue(ir.NewEvent(evGo, nil))
	_, err = m.Step()
	assert.True(t, ir.IsConfigError(err))
}

func TestMachine_ConstructorEventReachesEntry(t *testing.T) {
	var payload any
	typ := MustType("Ctor", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("S")
			d.State("S", OnEntry(func(c *Context) error {
				payload = c.Payload()
				return nil
			}))
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.NewEvent("config", 5))
	require.NoError(t, err)
	drain(t, m)
	assert.Equal(t, 5, payload)
}

func TestMachine_MonitorIgnoresHaltRequests(t *testing.T) {
	typ := MustType("Watcher", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("Watching")
			d.State("Watching", On(evPing, Do(func(*Context) error { return nil })))
		})
	})
	m, err := New(1, typ, nil, ir.Event{}, AsMonitor())
	require.NoError(t, err)
	drain(t, m)

	m.Enqueue(ir.Halt())
	drain(t, m)
	assert.False(t, m.Halted())

	m.Enqueue(ir.NewEvent(evPing, nil))
	assert.True(t, m.Enabled())
	drain(t, m)
}

func TestMachine_TransitionActionCannotRequestIntents(t *testing.T) {
	tests := []struct {
		name    string
		request func(*Context)
		want    string
	}{
		{"goto", func(c *Context) { c.Goto("A") }, "transition action requested a goto"},
		{"push", func(c *Context) { c.Push("A") }, "transition action requested a push"},
		{"pop", func(c *Context) { c.Pop() }, "transition action requested a pop"},
		{"halt", func(c *Context) { c.Halt() }, "transition action requested a halt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			typ := MustType("Mover", func() Behavior {
				return DefineFunc(func(d *Definition) {
					d.Start("A")
					d.State("A", On(evGo, GotoDo("B", func(c *Context) error {
						tc.request(c)
						return nil
					})))
					d.State("B")
				})
			})
			m, err := New(1, typ, newFakeHost(), ir.Event{})
			require.NoError(t, err)
			drain(t, m)

			m.Enqueue(ir.NewEvent(evGo, nil))
			_, err = m.Step()
			re, ok := ir.AsRuntimeError(err)
			require.True(t, ok)
			assert.Equal(t, ir.ErrCodeActionFailed, re.Code)
			assert.Contains(t, re.Message, tc.want)
			assert.Equal(t, ir.StateName("A"), re.State)
		})
	}
}

func TestMachine_TransitionActionMayRaise(t *testing.T) {
	var pinged bool
	typ := MustType("Raiser", func() Behavior {
		return DefineFunc(func(d *Definition) {
			d.Start("A")
			d.State("A", On(evGo, GotoDo("B", func(c *Context) error {
				c.Raise(ir.NewEvent(evPing, nil))
				return nil
			})))
			d.State("B", On(evPing, Do(func(*Context) error {
				pinged = true
				return nil
			})))
		})
	})
	m, err := New(1, typ, newFakeHost(), ir.Event{})
	require.NoError(t, err)
	drain(t, m)
	m.Enqueue(ir.NewEvent(evGo, nil))
	drain(t, m)
	assert.True(t, pinged)
	assert.Equal(t, []ir.StateName{"B"}, m.Stack())
}
