package project

import (
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/policy"
)

// AggressivePolicy ships as fast as possible, backing off only when the
// budget is nearly gone or bugs become overwhelming.
func AggressivePolicy() *policy.RuleBased {
	return policy.NewRuleBased("aggressive", []policy.Rule{
		{
			Name: "desperate_cut",
			When: policy.AllOf(
				policy.VarLT(VarBudget, 20),
				policy.VarLT(VarProgress, 80),
			),
			Action:   ActionCutScope,
			Priority: 100,
		},
		{
			Name:     "bug_crisis",
			When:     policy.VarGT(VarBugs, 15),
			Action:   ActionFixBugs,
			Priority: 90,
		},
		{
			Name:     "default_ship",
			When:     policy.Always(),
			Action:   ActionShipNow,
			Priority: 0,
		},
	})
}

// ConservativePolicy keeps the project healthy first and ships only when
// conditions are favorable.
func ConservativePolicy() *policy.RuleBased {
	return policy.NewRuleBased("conservative", []policy.Rule{
		{
			Name:     "manage_debt",
			When:     policy.VarGT(VarDebt, 50),
			Action:   ActionRefactor,
			Priority: 100,
		},
		{
			Name:     "manage_morale",
			When:     policy.VarLT(VarMorale, 50),
			Action:   ActionHire,
			Priority: 90,
		},
		{
			Name:     "manage_bugs",
			When:     policy.VarGT(VarBugs, 5),
			Action:   ActionFixBugs,
			Priority: 80,
		},
		{
			Name: "careful_ship",
			When: policy.AllOf(
				policy.VarLT(VarDebt, 40),
				policy.VarGT(VarMorale, 60),
			),
			Action:   ActionShipNow,
			Priority: 50,
		},
		{
			Name:     "default_delay",
			When:     policy.Always(),
			Action:   ActionDelay,
			Priority: 0,
		},
	})
}

// EmergencyPolicy covers only the crisis conditions and deliberately has
// no catch-all: outside an emergency it matches nothing. Meant as the rule
// half of a hybrid policy, where an external policy decides the nominal
// case.
func EmergencyPolicy() *policy.RuleBased {
	return policy.NewRuleBased("emergency", []policy.Rule{
		{
			Name:     "morale_emergency",
			When:     policy.VarLT(VarMorale, 30),
			Action:   ActionHire,
			Priority: 100,
		},
		{
			Name:     "budget_emergency",
			When:     policy.VarLT(VarBudget, 15),
			Action:   ActionCutScope,
			Priority: 95,
		},
		{
			Name:     "high_debt",
			When:     policy.VarGT(VarDebt, 70),
			Action:   ActionRefactor,
			Priority: 90,
		},
		{
			Name:     "bug_problem",
			When:     policy.VarGT(VarBugs, 10),
			Action:   ActionFixBugs,
			Priority: 85,
		},
	})
}

// BalancedPolicy adapts between shipping speed and project health.
func BalancedPolicy() *policy.RuleBased {
	return policy.NewRuleBased("balanced", []policy.Rule{
		{
			Name:     "morale_emergency",
			When:     policy.VarLT(VarMorale, 30),
			Action:   ActionHire,
			Priority: 100,
		},
		{
			Name:     "budget_emergency",
			When:     policy.VarLT(VarBudget, 15),
			Action:   ActionCutScope,
			Priority: 95,
		},
		{
			Name:     "high_debt",
			When:     policy.VarGT(VarDebt, 70),
			Action:   ActionRefactor,
			Priority: 90,
		},
		{
			Name:     "bug_problem",
			When:     policy.VarGT(VarBugs, 10),
			Action:   ActionFixBugs,
			Priority: 85,
		},
		{
			Name: "behind_schedule",
			When: func(dc engine.DecisionContext) bool {
				return dc.State.Get(VarProgress) < float64(dc.State.Timestep*2) &&
					dc.State.Get(VarDebt) < 60
			},
			Action:   ActionShipNow,
			Priority: 70,
		},
		{
			Name:     "on_track",
			When:     policy.VarGT(VarMorale, 50),
			Action:   ActionShipNow,
			Priority: 50,
		},
		{
			Name:     "default_maintain",
			When:     policy.Always(),
			Action:   ActionFixBugs,
			Priority: 0,
		},
	})
}
