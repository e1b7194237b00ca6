package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Tuning holds the project world's adjustable parameters. Zero values are
// not meaningful; start from DefaultTuning.
type Tuning struct {
	InitialProgress  float64 `json:"initial_progress" yaml:"initial_progress"`
	InitialDebt      float64 `json:"initial_debt" yaml:"initial_debt"`
	InitialMorale    float64 `json:"initial_morale" yaml:"initial_morale"`
	InitialBudget    float64 `json:"initial_budget" yaml:"initial_budget"`
	InitialBugs      float64 `json:"initial_bugs" yaml:"initial_bugs"`
	BaseProgressRate float64 `json:"base_progress_rate" yaml:"base_progress_rate"`
	DebtBugThreshold float64 `json:"debt_bug_threshold" yaml:"debt_bug_threshold"`
}

// DefaultTuning returns the reference parameterization.
func DefaultTuning() Tuning {
	return Tuning{
		InitialProgress:  0,
		InitialDebt:      10,
		InitialMorale:    75,
		InitialBudget:    100,
		InitialBugs:      0,
		BaseProgressRate: 5,
		DebtBugThreshold: 40,
	}
}

// tuningSchema validates tuning values at load time, so a typo'd or
// out-of-range parameter fails construction instead of skewing a swarm.
const tuningSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "initial_progress":   {"type": "number", "minimum": 0, "maximum": 100},
    "initial_debt":       {"type": "number", "minimum": 0, "maximum": 100},
    "initial_morale":     {"type": "number", "minimum": 0, "maximum": 100},
    "initial_budget":     {"type": "number", "minimum": 1},
    "initial_bugs":       {"type": "number", "minimum": 0},
    "base_progress_rate": {"type": "number", "exclusiveMinimum": 0},
    "debt_bug_threshold": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "required": [
    "initial_progress", "initial_debt", "initial_morale",
    "initial_budget", "initial_bugs", "base_progress_rate",
    "debt_bug_threshold"
  ],
  "additionalProperties": false
}`

var compiledTuningSchema = jsonschema.MustCompileString("tuning.schema.json", tuningSchema)

// Validate checks the tuning against the schema.
func (t Tuning) Validate() error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tuning: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding tuning: %w", err)
	}
	if err := compiledTuningSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	return nil
}

// LoadTuning reads a YAML tuning file. Omitted fields keep their defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parsing tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}
