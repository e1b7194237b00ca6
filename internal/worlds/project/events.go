package project

import (
	"math/rand/v2"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Event names for the project world.
const (
	EventTeamMemberQuits  = "team_member_quits"
	EventScopeCreep       = "scope_creep"
	EventCriticalBug      = "critical_bug_discovered"
	EventDependencyBreaks = "dependency_update_breaks"
	EventMoraleBoost      = "morale_boost"
)

// newEventTable builds the project event table. Declaration order is part
// of the world's deterministic contract: sampling walks this list in order
// every step.
func newEventTable() (*engine.EventTable, error) {
	return engine.NewEventTable(
		engine.Event{
			Name:        EventTeamMemberQuits,
			Probability: 0.05,
			Cooldown:    10,
			// Low morale makes quits more likely.
			Modifier: func(s engine.State) float64 {
				switch morale := s.Get(VarMorale); {
				case morale < 30:
					return 2.0
				case morale < 50:
					return 1.5
				default:
					return 1.0
				}
			},
			Apply: func(s *engine.State, _ *rand.Rand) {
				s.Vars[VarMorale] = clamp(s.Get(VarMorale)-20, 0, 100)
				s.Vars[VarProductivity] = s.Get(VarProductivity) * 0.75
			},
		},
		engine.Event{
			Name:        EventScopeCreep,
			Probability: 0.08,
			Apply: func(s *engine.State, _ *rand.Rand) {
				s.Vars[VarProgress] = clamp(s.Get(VarProgress)-5, 0, 100)
				s.Vars[VarMorale] = clamp(s.Get(VarMorale)-5, 0, 100)
			},
		},
		engine.Event{
			Name:        EventCriticalBug,
			Probability: 0.03,
			// High debt surfaces more critical bugs.
			Modifier: func(s engine.State) float64 {
				return 1.0 + s.Get(VarDebt)/100
			},
			Apply: func(s *engine.State, _ *rand.Rand) {
				s.Vars[VarBugs] = s.Get(VarBugs) + 5
				s.Vars[VarMorale] = clamp(s.Get(VarMorale)-10, 0, 100)
			},
		},
		engine.Event{
			Name:        EventDependencyBreaks,
			Probability: 0.04,
			Cooldown:    5,
			Apply: func(s *engine.State, _ *rand.Rand) {
				s.Vars[VarProgress] = clamp(s.Get(VarProgress)-3, 0, 100)
				s.Vars[VarDebt] = clamp(s.Get(VarDebt)+5, 0, 100)
			},
		},
		engine.Event{
			Name:        EventMoraleBoost,
			Probability: 0.05,
			Apply: func(s *engine.State, _ *rand.Rand) {
				s.Vars[VarMorale] = clamp(s.Get(VarMorale)+10, 0, 100)
			},
		},
	)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
