package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of raw model output. Models asked for
// JSON still wrap it in markdown fences or prose often enough that the relay
// cannot just unmarshal the text. Fences are stripped first; if the cleaned
// text is valid JSON the object form is returned (nil for arrays and
// scalars); otherwise the widest {...} substring is tried. Returns nil when
// no object can be recovered.
func ExtractJSON(text string) map[string]any {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
		cleaned = strings.TrimSpace(cleaned)
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		doc, _ := parsed.(map[string]any)
		return doc
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
		return nil
	}
	doc, _ := parsed.(map[string]any)
	return doc
}
