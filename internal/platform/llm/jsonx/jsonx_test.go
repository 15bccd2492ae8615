package jsonx

import "testing"

func TestParseObjectDirect(t *testing.T) {
	obj, strategy, err := ParseObject(`{"a": 1}`)
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	if strategy != StrategyDirect {
		t.Fatalf("strategy = %s, want direct", strategy)
	}
	if obj["a"].(float64) != 1 {
		t.Fatalf("obj = %v", obj)
	}
}

func TestParseObjectFenced(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"doc_type\": \"policy\"}\n```\nThanks!"
	obj, strategy, err := ParseObject(raw)
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	if strategy != StrategyFenced {
		t.Fatalf("strategy = %s, want fenced", strategy)
	}
	if obj["doc_type"] != "policy" {
		t.Fatalf("obj = %v", obj)
	}
}

func TestParseObjectBraceWindow(t *testing.T) {
	raw := `Sure. The JSON you asked for is {"x": "y"} and nothing else.`
	obj, strategy, err := ParseObject(raw)
	if err != nil {
		t.Fatalf("ParseObject: %v", err)
	}
	if strategy != StrategyBraceWindow {
		t.Fatalf("strategy = %s, want brace_window", strategy)
	}
	if obj["x"] != "y" {
		t.Fatalf("obj = %v", obj)
	}
}

func TestParseObjectGivesUp(t *testing.T) {
	if _, strategy, err := ParseObject("not json at all"); err == nil || strategy != StrategyNone {
		t.Fatalf("expected failure, got strategy=%s err=%v", strategy, err)
	}
	if _, _, err := ParseObject("   "); err == nil {
		t.Fatal("expected failure on empty input")
	}
}

func TestExtractStringField(t *testing.T) {
	raw := `{"document_type": "claim", "confidence": 0.9,` // truncated object
	v, ok := ExtractStringField(raw, "document_type")
	if !ok || v != "claim" {
		t.Fatalf("ExtractStringField = %q ok=%v", v, ok)
	}
	if _, ok := ExtractStringField(raw, "missing"); ok {
		t.Fatal("expected miss for absent field")
	}
}

func TestValidateSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	if err := ValidateSchema(schema, map[string]any{"name": "x"}); err != nil {
		t.Fatalf("valid object rejected: %v", err)
	}
	if err := ValidateSchema(schema, map[string]any{}); err == nil {
		t.Fatal("missing required field accepted")
	}
}
