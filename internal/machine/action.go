package machine

import (
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
)

// Handler is a procedure run as an entry, exit or do action.
type Handler func(*Context) error

// ActionKind selects how a state reacts to an event kind.
type ActionKind int

const (
	ActionDo ActionKind = iota + 1
	ActionGoto
	ActionPush
	ActionPop
	ActionDefer
	ActionIgnore
)

func (k ActionKind) String() string {
	switch k {
	case ActionDo:
		return "do"
	case ActionGoto:
		return "goto"
	case ActionPush:
		return "push"
	case ActionPop:
		return "pop"
	case ActionDefer:
		return "defer"
	case ActionIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is one entry of a state's handler table.
//
// For ActionGoto, Do (if set) runs after the source state's exit action and
// before the target's entry action.
type Action struct {
	Kind   ActionKind
	Target ir.StateName
	Do     Handler
}

// Do runs h in the current state.
func Do(h Handler) Action { return Action{Kind: ActionDo, Do: h} }

// Goto exits the current state and enters target.
func Goto(target ir.StateName) Action { return Action{Kind: ActionGoto, Target: target} }

// GotoDo is Goto with a transition action.
func GotoDo(target ir.StateName, h Handler) Action {
	return Action{Kind: ActionGoto, Target: target, Do: h}
}

// Push enters target on top of the current state without exiting it.
func Push(target ir.StateName) Action { return Action{Kind: ActionPush, Target: target} }

// Pop exits the current state and resumes the one beneath.
func Pop() Action { return Action{Kind: ActionPop} }

// Defer leaves the event in the mailbox until a state handles it.
func Defer() Action { return Action{Kind: ActionDefer} }

// Ignore drops the event.
func Ignore() Action { return Action{Kind: ActionIgnore} }
