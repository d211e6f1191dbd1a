package statemachine

import (
	"errors"
	"fmt"

	"github.com/decred/slog"
	"github.com/looplab/fsm"
)

// ErrInvalidTransition is returned when an event is fired from a state that
// does not accept it.
var ErrInvalidTransition = errors.New("invalid state transition")

// Transition declares that Event moves the machine from any of From to To.
type Transition struct {
	Event string
	From  []string
	To    string
}

// StateMachine is a thin, named wrapper around a looplab FSM. It is used for
// room lifecycle status; the per-action rules live with the room itself.
// Callers serialize access through the room lock, the FSM keeps its own
// locking for readers.
type StateMachine struct {
	name string
	log  slog.Logger
	fsm  *fsm.FSM
}

// NewStateMachine creates a machine in the initial state with the given
// transition table.
func NewStateMachine(name, initial string, log slog.Logger, transitions ...Transition) *StateMachine {
	if log == nil {
		log = slog.Disabled
	}
	sm := &StateMachine{name: name, log: log}

	events := make(fsm.Events, 0, len(transitions))
	for _, t := range transitions {
		events = append(events, fsm.EventDesc{Name: t.Event, Src: t.From, Dst: t.To})
	}
	sm.fsm = fsm.NewFSM(initial, events, fsm.Callbacks{
		"enter_state": func(e *fsm.Event) {
			sm.log.Debugf("%s: %s -> %s (%s)", sm.name, e.Src, e.Dst, e.Event)
		},
	})
	return sm
}

// Fire applies event, returning ErrInvalidTransition when the current state
// does not accept it.
func (sm *StateMachine) Fire(event string) error {
	if err := sm.fsm.Event(event); err != nil {
		return fmt.Errorf("%s: %s from %s: %w", sm.name, event, sm.fsm.Current(), ErrInvalidTransition)
	}
	return nil
}

// Current returns the current state.
func (sm *StateMachine) Current() string {
	return sm.fsm.Current()
}

// Is reports whether the machine is in state.
func (sm *StateMachine) Is(state string) bool {
	return sm.fsm.Is(state)
}
