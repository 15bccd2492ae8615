package mention

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

// Mention is one entity occurrence as reported by the model, after ontology
// and confidence checks.
type Mention struct {
	Type            domain.EntityType
	RawValue        string
	NormalizedValue string
	Confidence      float64
	SpanStart       int
	SpanEnd         int
}

// FromAny parses a model-reported entities array. Entries with an unknown
// entity_type, an empty raw_value, or a confidence outside [0,1] are
// dropped; partial validity is preferred over failing the batch.
func FromAny(v any) []Mention {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Mention, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		et, ok := domain.ParseEntityType(AsString(m["entity_type"]))
		if !ok {
			continue
		}
		raw := strings.TrimSpace(AsString(m["raw_value"]))
		if raw == "" {
			continue
		}
		normalized := strings.TrimSpace(AsString(m["normalized_value"]))
		if normalized == "" {
			normalized = raw
		}
		conf := FloatFromAny(m["confidence"])
		if conf < 0 || conf > 1 {
			continue
		}
		out = append(out, Mention{
			Type:            et,
			RawValue:        raw,
			NormalizedValue: normalized,
			Confidence:      conf,
			SpanStart:       int(FloatFromAny(m["span_start"])),
			SpanEnd:         int(FloatFromAny(m["span_end"])),
		})
	}
	return out
}

// Row converts a mention into its persisted chunk-scoped form.
func (m Mention) Row(documentID, chunkID uuid.UUID) *domain.Entity {
	return &domain.Entity{
		ID:              uuid.New(),
		DocumentID:      documentID,
		ChunkID:         chunkID,
		EntityType:      string(m.Type),
		RawValue:        m.RawValue,
		NormalizedValue: m.NormalizedValue,
		Confidence:      m.Confidence,
		SpanStart:       m.SpanStart,
		SpanEnd:         m.SpanEnd,
	}
}
