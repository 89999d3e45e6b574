package llm

import (
	"reflect"
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	doc := ExtractJSON(`{"reply": "done", "updates": {}}`)
	if doc == nil {
		t.Fatal("expected object, got nil")
	}
	if doc["reply"] != "done" {
		t.Errorf("reply = %v, want done", doc["reply"])
	}
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	text := "```json\n{\"reply\": \"ok\"}\n```"
	doc := ExtractJSON(text)
	if doc == nil {
		t.Fatal("expected object, got nil")
	}
	if doc["reply"] != "ok" {
		t.Errorf("reply = %v, want ok", doc["reply"])
	}
}

func TestExtractJSON_BareFence(t *testing.T) {
	text := "```\n{\"a\": 1}\n```"
	doc := ExtractJSON(text)
	if doc == nil {
		t.Fatal("expected object, got nil")
	}
	if doc["a"] != 1.0 {
		t.Errorf("a = %v, want 1", doc["a"])
	}
}

func TestExtractJSON_ObjectBuriedInProse(t *testing.T) {
	text := `Sure! Here is the result: {"reply": "buried", "updates": {"ac": {"power": true}}} Hope that helps.`
	doc := ExtractJSON(text)
	if doc == nil {
		t.Fatal("expected object, got nil")
	}
	if doc["reply"] != "buried" {
		t.Errorf("reply = %v, want buried", doc["reply"])
	}
	updates, ok := doc["updates"].(map[string]any)
	if !ok {
		t.Fatalf("updates = %T, want object", doc["updates"])
	}
	if !reflect.DeepEqual(updates, map[string]any{"ac": map[string]any{"power": true}}) {
		t.Errorf("updates = %v", updates)
	}
}

func TestExtractJSON_ValidArrayIsNotAnObject(t *testing.T) {
	// A parseable array should not fall through to the substring scan.
	if doc := ExtractJSON(`[{"reply": "nested"}]`); doc != nil {
		t.Errorf("expected nil for array, got %v", doc)
	}
}

func TestExtractJSON_NothingRecoverable(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here", "{broken", "}{"} {
		if doc := ExtractJSON(text); doc != nil {
			t.Errorf("ExtractJSON(%q) = %v, want nil", text, doc)
		}
	}
}
