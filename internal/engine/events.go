package engine

import (
	"fmt"
	"math/rand/v2"
)

// Event is a named stochastic perturbation a world can suffer each step.
type Event struct {
	// Name uniquely identifies the event within its table.
	Name string

	// Probability is the base chance of triggering per step, in [0, 1].
	Probability float64

	// Modifier, when set, scales Probability based on the pre-step state.
	// The effective probability is clamped to [0, 1].
	Modifier func(State) float64

	// Cooldown is the minimum number of steps before the event can
	// trigger again. Zero means no cooldown.
	Cooldown int

	// Apply mutates the state when the event triggers. The rng may be
	// used for effect magnitude; draws are part of the run's sequence.
	Apply func(s *State, rng *rand.Rand)
}

// EventTable holds a world's candidate events in declaration order and
// tracks per-event cooldowns. One table belongs to one world instance.
type EventTable struct {
	events    []Event
	readyAt   map[string]int
	triggered int
}

// NewEventTable validates the events and builds a table. Order is
// preserved: sampling always walks events in the order given here.
func NewEventTable(events ...Event) (*EventTable, error) {
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if e.Name == "" {
			return nil, fmt.Errorf("event with empty name")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate event %q", e.Name)
		}
		seen[e.Name] = true
		if e.Probability < 0 || e.Probability > 1 {
			return nil, fmt.Errorf("event %q: probability %v outside [0,1]", e.Name, e.Probability)
		}
		if e.Apply == nil {
			return nil, fmt.Errorf("event %q: nil effect", e.Name)
		}
	}
	return &EventTable{
		events:  events,
		readyAt: make(map[string]int, len(events)),
	}, nil
}

// Sample draws one probability sample per candidate event, in declaration
// order, and applies the effect of each event that triggers. Probabilities
// are evaluated against the state as it stood when Sample was called, so an
// earlier event's effect never changes a later event's trigger chance within
// the same step. Effects do stack: each applies to the state left by the
// previous one.
func (t *EventTable) Sample(s *State, rng *rand.Rand) []string {
	before := s.Clone()

	var fired []string
	for i := range t.events {
		e := &t.events[i]
		if ready, ok := t.readyAt[e.Name]; ok && before.Timestep < ready {
			continue
		}

		p := e.Probability
		if e.Modifier != nil {
			p *= e.Modifier(before)
		}
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}

		if rng.Float64() < p {
			e.Apply(s, rng)
			fired = append(fired, e.Name)
			t.triggered++
			if e.Cooldown > 0 {
				t.readyAt[e.Name] = before.Timestep + e.Cooldown
			}
		}
	}
	return fired
}

// Triggered returns the total number of event triggers so far in this run.
func (t *EventTable) Triggered() int {
	return t.triggered
}

// Events returns the candidate events in declaration order.
func (t *EventTable) Events() []Event {
	return t.events
}
