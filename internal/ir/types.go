package ir

import (
	"fmt"
	"reflect"
)

// MachineID identifies a machine for the lifetime of the process.
// Zero is never allocated and means "no machine".
type MachineID uint64

func (id MachineID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// EventKind is the type tag of an event. Handler tables are keyed by it.
type EventKind string

// StateName names a state within a machine type.
type StateName string

// Reserved event kinds used by the dispatcher.
const (
	// KindHalt asks the receiving machine to halt.
	KindHalt EventKind = "psharp.halt"
	// KindCreated is mirrored to monitors when a machine is created.
	KindCreated EventKind = "psharp.created"
	// KindHalted is mirrored to monitors when a machine halts.
	KindHalted EventKind = "psharp.halted"
)

// Event is an immutable message with a kind tag and an optional payload.
//
// Payloads should be values (or pointers that are never mutated after the
// event is sent). Events are shared between the receiver and every monitor.
type Event struct {
	Kind    EventKind
	Payload any
}

// NewEvent creates an event with the given kind and payload.
func NewEvent(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}

// Halt returns the event that tells a machine to halt.
func Halt() Event {
	return Event{Kind: KindHalt}
}

// Equal reports whether two events have the same kind and payload value.
func (e Event) Equal(other Event) bool {
	return e.Kind == other.Kind && reflect.DeepEqual(e.Payload, other.Payload)
}

// IsZero reports whether the event is the zero Event (no constructor event).
func (e Event) IsZero() bool {
	return e.Kind == "" && e.Payload == nil
}

func (e Event) String() string {
	if e.Payload == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s(%v)", e.Kind, e.Payload)
}

// Lifecycle is the payload of KindCreated and KindHalted notifications.
type Lifecycle struct {
	Machine MachineID
	Type    string
}

// TraceStep records one event delivery in scheduling order.
// Replaying a choice log yields an identical sequence of steps.
type TraceStep struct {
	Seq     int64     `json:"seq"`
	Machine MachineID `json:"machine"`
	Type    string    `json:"type"`
	State   StateName `json:"state"`
	Event   EventKind `json:"event"`
}

func (s TraceStep) String() string {
	return fmt.Sprintf("%d %s(%s) %s <- %s", s.Seq, s.Type, s.Machine, s.State, s.Event)
}
