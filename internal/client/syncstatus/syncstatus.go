// Package syncstatus is the label machine shown next to the editor. It is
// driven by sync events and never feeds back into sync decisions.
package syncstatus

import (
	"errors"
	"fmt"
)

type State string

const (
	Synced State = "synced"
	Typing State = "typing"
	Saving State = "saving"
	Saved  State = "saved"
	Error  State = "error"
)

type Event string

const (
	Edit          Event = "edit"
	SaveStarted   Event = "save_started"
	SaveSucceeded Event = "save_succeeded"
	SaveFailed    Event = "save_failed"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions lists, per event, the states it may fire from and the
// state it leads to.
var validTransitions = map[Event]struct {
	from []State
	to   State
}{
	Edit:          {from: []State{Synced, Typing, Saving, Saved, Error}, to: Typing},
	SaveStarted:   {from: []State{Typing}, to: Saving},
	SaveSucceeded: {from: []State{Saving}, to: Saved},
	SaveFailed:    {from: []State{Saving}, to: Error},
}

var labels = map[State]string{
	Synced: "Synced",
	Typing: "Typing...",
	Saving: "Saving...",
	Saved:  "Saved",
	Error:  "Error saving",
}

// Label is the text displayed for a state.
func (s State) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Transition records one accepted state change.
type Transition struct {
	From  State
	To    State
	Event Event
}

// Machine is not safe for concurrent use; the sync client guards it.
type Machine struct {
	state State
}

func New() *Machine {
	return &Machine{state: Synced}
}

func (m *Machine) State() State { return m.state }

// Fire applies an event. Rejected pairs leave the state unchanged.
func (m *Machine) Fire(ev Event) (Transition, error) {
	rule, ok := validTransitions[ev]
	if !ok {
		return Transition{}, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	for _, from := range rule.from {
		if from == m.state {
			t := Transition{From: m.state, To: rule.to, Event: ev}
			m.state = rule.to
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, m.state)
}
