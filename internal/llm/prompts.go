package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// DefaultSystemPrompt frames the decision task for chat-style backends.
const DefaultSystemPrompt = `You are a decision-making agent evaluated inside a stochastic simulation.
Your goal is to choose actions that maximize the final outcome while managing risk.

Given the current state and the available actions, respond with ONLY the name of
the action you choose, exactly as shown. No explanation, no extra text.`

// DecisionPrompt serializes a decision context into the prompt sent to the
// model. Variables are listed in sorted order so the same state always
// produces the same prompt.
func DecisionPrompt(state engine.State, legal []engine.Action, rejected *engine.Action) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current state (timestep %d):\n", state.Timestep)
	keys := make([]string, 0, len(state.Vars))
	for k := range state.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  - %s: %.1f\n", k, state.Vars[k])
	}

	b.WriteString("\nAvailable actions:\n")
	for _, a := range legal {
		fmt.Fprintf(&b, "  - %s\n", a.Name)
	}

	if rejected != nil {
		fmt.Fprintf(&b, "\nYour previous choice %q was not legal in this state. Pick a different action.\n", rejected.Name)
	}

	b.WriteString("\nChoose the best action. Respond with ONLY the action name.")
	return b.String()
}

// ParseActionReply maps a raw model reply onto one of the legal action
// names. It tries an exact case-insensitive match first, then a substring
// match in either direction. Returns false when the reply matches nothing;
// the caller decides the fallback.
func ParseActionReply(reply string, legal []string) (string, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(reply))
	cleaned = strings.Trim(cleaned, `"'.`)
	if cleaned == "" {
		return "", false
	}

	for _, name := range legal {
		if strings.ToUpper(name) == cleaned {
			return name, true
		}
	}
	for _, name := range legal {
		upper := strings.ToUpper(name)
		if strings.Contains(cleaned, upper) || strings.Contains(upper, cleaned) {
			return name, true
		}
	}
	return "", false
}
