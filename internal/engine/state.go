// Package engine provides the deterministic simulation core: world state,
// stochastic events, the policy contract, and the per-run simulation loop.
//
// Every run owns its own seeded random stream. Given the same seed, world,
// and policy, a run reproduces the exact same action and event sequence.
package engine

import (
	"fmt"
	"sort"
	"strings"
)

// TerminalReason describes how a run ended. TerminalNone means the world is
// still live; a world is terminal if and only if its reason is not TerminalNone.
// TerminalError never originates from a world: it marks run-fatal contract
// violations recorded at the outcome level.
type TerminalReason int

const (
	TerminalNone TerminalReason = iota
	TerminalSuccess
	TerminalFailure
	TerminalTimeout
	TerminalError
)

func (r TerminalReason) String() string {
	switch r {
	case TerminalNone:
		return "none"
	case TerminalSuccess:
		return "success"
	case TerminalFailure:
		return "failure"
	case TerminalTimeout:
		return "timeout"
	case TerminalError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler so reasons serialize as
// their names in JSON reports.
func (r TerminalReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *TerminalReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*r = TerminalNone
	case "success":
		*r = TerminalSuccess
	case "failure":
		*r = TerminalFailure
	case "timeout":
		*r = TerminalTimeout
	case "error":
		*r = TerminalError
	default:
		return fmt.Errorf("unknown terminal reason %q", string(text))
	}
	return nil
}

// Action identifies a move a policy can make. Params carries optional
// action-specific numeric parameters; most domains leave it nil.
type Action struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params,omitempty"`
}

// State is a snapshot of a world at a point in time. Worlds hand copies of
// their state to policies; mutating a snapshot never affects the world.
type State struct {
	Timestep int                `json:"timestep"`
	Vars     map[string]float64 `json:"vars"`
	Terminal TerminalReason     `json:"terminal"`
}

// NewState creates a live state at timestep 0 with the given variables.
func NewState(vars map[string]float64) State {
	v := make(map[string]float64, len(vars))
	for k, val := range vars {
		v[k] = val
	}
	return State{Timestep: 0, Vars: v, Terminal: TerminalNone}
}

// IsTerminal reports whether the state has reached a terminal condition.
func (s State) IsTerminal() bool {
	return s.Terminal != TerminalNone
}

// Get returns the named variable, or 0 if it is not set.
func (s State) Get(key string) float64 {
	return s.Vars[key]
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	vars := make(map[string]float64, len(s.Vars))
	for k, v := range s.Vars {
		vars[k] = v
	}
	return State{Timestep: s.Timestep, Vars: vars, Terminal: s.Terminal}
}

// String renders the state with variables in a stable order.
func (s State) String() string {
	keys := make([]string, 0, len(s.Vars))
	for k := range s.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "t=%d", s.Timestep)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%.1f", k, s.Vars[k])
	}
	if s.IsTerminal() {
		fmt.Fprintf(&b, " [%s]", s.Terminal)
	}
	return b.String()
}
