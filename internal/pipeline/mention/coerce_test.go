package mention

import (
	"testing"

	"github.com/google/uuid"
)

func TestFloatFromAny(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{0.75, 0.75},
		{"0.75", 0.75},
		{"75%", 0.75},
		{"1,200.5", 1200.5},
		{"garbage", 0},
		{nil, 0},
		{true, 0},
	}
	for _, c := range cases {
		if got := FloatFromAny(c.in); got != c.want {
			t.Fatalf("FloatFromAny(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{1.5, 0.015},
		{75, 0.75},
		{150, 1},
	}
	for _, c := range cases {
		if got := Clamp01(c.in); got != c.want {
			t.Fatalf("Clamp01(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFromAnyFiltersInvalid(t *testing.T) {
	raw := []any{
		map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-123", "confidence": "90%"},
		map[string]any{"entity_type": "NOT_A_TYPE", "raw_value": "x"},
		map[string]any{"entity_type": "CARRIER", "raw_value": "   "},
		map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-999", "confidence": 1.5},
		map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-998", "confidence": -0.1},
		"not a map",
	}
	got := FromAny(raw)
	if len(got) != 1 {
		t.Fatalf("expected 1 valid mention, got %d", len(got))
	}
	m := got[0]
	if string(m.Type) != "POLICY_NUMBER" || m.NormalizedValue != "POL-123" || m.Confidence != 0.9 {
		t.Fatalf("mention parsed wrong: %+v", m)
	}

	row := m.Row(uuid.New(), uuid.New())
	if row.EntityType != "POLICY_NUMBER" || row.RawValue != "POL-123" {
		t.Fatalf("row conversion wrong: %+v", row)
	}
}
