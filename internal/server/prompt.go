package server

import (
	"encoding/json"
	"strings"

	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// Prompt scaffolding for the assistant relay. The model is steered to answer
// with JSON only, using dot-delimited control paths as update keys.

const promptRole = "You are an in-car assistant for a simulated vehicle."

var promptGoals = []string{
	"Help passengers reach their destination safely.",
	"Keep passengers comfortable by adjusting available controls.",
	"Offer clear, concise guidance with a calm tone.",
}

var promptSafetyRules = []string{
	"Be safety-first: discourage unsafe driving behavior.",
	"Prefer safer settings when making tradeoffs.",
}

var promptInteractionRules = []string{
	"Only use the controls listed below.",
	"If a request is outside the list, explain what is available.",
	"When a request is ambiguous, apply the change that is most likely intended. Please make your best judgement in situations such as turning off seat heating when seat cooling is being turned on",
	"Respond with JSON only using the specified schema.",
}

const promptOutputSchema = `{ "reply": "...", "updates": { ... } }`

var promptOutputNotes = []string{
	"The updates object must use control paths (dot-delimited) as keys.",
	"If no updates are needed, return an empty updates object.",
}

// controlSummary is the machine-readable control description embedded in the
// system prompt. Every field is always present so the model sees the full
// shape of each control.
type controlSummary struct {
	ID          string              `json:"id"`
	Label       string              `json:"label"`
	Group       string              `json:"group"`
	Module      string              `json:"module"`
	Path        string              `json:"path"`
	Type        schema.Kind         `json:"type"`
	ValueType   schema.ValueType    `json:"value_type"`
	Values      []string            `json:"values"`
	Min         *float64            `json:"min"`
	Max         *float64            `json:"max"`
	Step        *float64            `json:"step"`
	Units       string              `json:"units"`
	MapsTo      string              `json:"maps_to"`
	Conversion  schema.Conversion   `json:"conversion"`
	VisibleWhen *schema.VisibleWhen `json:"visible_when"`
	Description string              `json:"description"`
}

// BuildSystemPrompt assembles the relay's system prompt: persona and rules,
// the control summary, and the current state document.
func BuildSystemPrompt(registry *schema.Registry, state statepath.Document) string {
	sections := []string{
		promptRole,
		"Goals:\n" + bulletList(promptGoals),
		"Safety:\n" + bulletList(promptSafetyRules),
		"Rules:\n" + bulletList(promptInteractionRules),
		"Output schema:\n" + promptOutputSchema,
		"Output notes:\n" + bulletList(promptOutputNotes),
		"Controls:\n" + marshalIndent(summarizeControls(registry)),
		"Current state:\n" + marshalIndent(state),
	}
	return strings.Join(sections, "\n\n")
}

func summarizeControls(registry *schema.Registry) []controlSummary {
	summaries := make([]controlSummary, 0, len(registry.Controls))
	for i := range registry.Controls {
		c := &registry.Controls[i]
		summaries = append(summaries, controlSummary{
			ID:          c.ID,
			Label:       c.Label,
			Group:       c.Group,
			Module:      c.Module,
			Path:        c.Path,
			Type:        c.Kind,
			ValueType:   c.ValueType,
			Values:      c.Values,
			Min:         c.Min,
			Max:         c.Max,
			Step:        c.Step,
			Units:       c.Units,
			MapsTo:      c.MapsTo,
			Conversion:  c.Conversion,
			VisibleWhen: c.VisibleWhen,
			Description: c.Description,
		})
	}
	return summaries
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
