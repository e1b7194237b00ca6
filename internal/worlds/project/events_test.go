package project

import (
	"testing"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

func TestNewEventTable(t *testing.T) {
	table, err := newEventTable()
	if err != nil {
		t.Fatalf("newEventTable() error = %v", err)
	}

	want := []string{
		EventTeamMemberQuits,
		EventScopeCreep,
		EventCriticalBug,
		EventDependencyBreaks,
		EventMoraleBoost,
	}
	events := table.Events()
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, name := range want {
		if events[i].Name != name {
			t.Errorf("event[%d] = %s, want %s (declaration order matters)", i, events[i].Name, name)
		}
	}
}

func TestEventModifiers(t *testing.T) {
	table, err := newEventTable()
	if err != nil {
		t.Fatalf("newEventTable() error = %v", err)
	}

	var quits, critical engine.Event
	for _, e := range table.Events() {
		switch e.Name {
		case EventTeamMemberQuits:
			quits = e
		case EventCriticalBug:
			critical = e
		}
	}

	state := func(vars map[string]float64) engine.State { return engine.NewState(vars) }

	if got := quits.Modifier(state(map[string]float64{VarMorale: 20})); got != 2.0 {
		t.Errorf("quits modifier at morale 20 = %v, want 2.0", got)
	}
	if got := quits.Modifier(state(map[string]float64{VarMorale: 40})); got != 1.5 {
		t.Errorf("quits modifier at morale 40 = %v, want 1.5", got)
	}
	if got := quits.Modifier(state(map[string]float64{VarMorale: 75})); got != 1.0 {
		t.Errorf("quits modifier at morale 75 = %v, want 1.0", got)
	}

	if got := critical.Modifier(state(map[string]float64{VarDebt: 50})); got != 1.5 {
		t.Errorf("critical bug modifier at debt 50 = %v, want 1.5", got)
	}
	if got := critical.Modifier(state(map[string]float64{VarDebt: 0})); got != 1.0 {
		t.Errorf("critical bug modifier at debt 0 = %v, want 1.0", got)
	}
}

func TestEventEffects(t *testing.T) {
	table, err := newEventTable()
	if err != nil {
		t.Fatalf("newEventTable() error = %v", err)
	}
	byName := map[string]engine.Event{}
	for _, e := range table.Events() {
		byName[e.Name] = e
	}

	s := engine.NewState(map[string]float64{
		VarProgress: 50, VarDebt: 30, VarMorale: 60, VarBugs: 2, VarProductivity: 1.0,
	})

	byName[EventTeamMemberQuits].Apply(&s, engine.NewRand(1))
	if s.Get(VarMorale) != 40 || s.Get(VarProductivity) != 0.75 {
		t.Errorf("quits effect: morale=%v productivity=%v", s.Get(VarMorale), s.Get(VarProductivity))
	}

	byName[EventCriticalBug].Apply(&s, engine.NewRand(1))
	if s.Get(VarBugs) != 7 || s.Get(VarMorale) != 30 {
		t.Errorf("critical bug effect: bugs=%v morale=%v", s.Get(VarBugs), s.Get(VarMorale))
	}

	// Effects clamp at the variable bounds.
	s.Vars[VarMorale] = 95
	byName[EventMoraleBoost].Apply(&s, engine.NewRand(1))
	if s.Get(VarMorale) != 100 {
		t.Errorf("morale boost clamped to %v, want 100", s.Get(VarMorale))
	}

	s.Vars[VarProgress] = 2
	byName[EventScopeCreep].Apply(&s, engine.NewRand(1))
	if s.Get(VarProgress) != 0 {
		t.Errorf("scope creep clamped to %v, want 0", s.Get(VarProgress))
	}
}
