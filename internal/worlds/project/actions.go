package project

import "github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"

// Action names for the project world.
const (
	ActionShipNow  = "SHIP_NOW"
	ActionRefactor = "REFACTOR"
	ActionHire     = "HIRE"
	ActionCutScope = "CUT_SCOPE"
	ActionFixBugs  = "FIX_BUGS"
	ActionDelay    = "DELAY"
)

// ActionDef describes one project action: its budget cost gates legality,
// its risk level is informational.
type ActionDef struct {
	Name        string  `json:"name"`
	Cost        float64 `json:"cost"`
	Risk        float64 `json:"risk"`
	Description string  `json:"description"`
}

// actionDefs is the fixed action set, in presentation order.
var actionDefs = []ActionDef{
	{ActionShipNow, 3, 0.7, "Rush to ship features, accumulating technical debt"},
	{ActionRefactor, 2, 0.2, "Spend time cleaning up code and reducing debt"},
	{ActionHire, 8, 0.4, "Invest in hiring to increase team capacity"},
	{ActionCutScope, 1, 0.5, "Reduce project scope to accelerate delivery"},
	{ActionFixBugs, 2, 0.2, "Focus on fixing bugs and improving quality"},
	{ActionDelay, 1, 0.1, "Wait and plan before taking action"},
}

// Actions returns the full action catalog.
func Actions() []ActionDef {
	defs := make([]ActionDef, len(actionDefs))
	copy(defs, actionDefs)
	return defs
}

func toEngineAction(d ActionDef) engine.Action {
	return engine.Action{Name: d.Name}
}
