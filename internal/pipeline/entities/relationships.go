package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
)

const maxExcerptChars = 8000

// ExtractRelationships runs the single global relationship pass over the
// document's canonical entities. It is skipped entirely when no canonical
// entities exist or no LLM client is configured; relationships only make
// sense against resolved identities.
func (r *Resolver) ExtractRelationships(ctx context.Context, documentID uuid.UUID) ([]*domain.EntityRelationship, error) {
	log := r.log.With("document_id", documentID.String())

	canonical, err := r.deps.Canonical.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, fmt.Errorf("load canonical entities: %w", err)
	}
	if len(canonical) == 0 {
		log.Info("No canonical entities; skipping relationship pass")
		return nil, nil
	}
	if r.deps.LLM == nil {
		log.Info("No LLM client configured; skipping relationship pass")
		return nil, nil
	}

	byKey := make(map[string]*domain.CanonicalEntity, len(canonical))
	listing := make([]map[string]any, 0, len(canonical))
	for _, ce := range canonical {
		key := ce.EntityType + "|" + ce.NormalizedValue
		byKey[mentionKey(ce.EntityType, ce.NormalizedValue)] = ce
		listing = append(listing, map[string]any{
			"key":           key,
			"display_value": ce.DisplayValue,
			"mention_count": ce.MentionCount,
		})
	}
	entitiesJSON, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("marshal entity listing: %w", err)
	}

	excerpt, err := r.documentExcerpt(ctx, documentID)
	if err != nil {
		return nil, err
	}

	prompt, err := prompts.Build(prompts.PromptRelationshipExtract, prompts.Input{
		RelationTypesCSV: prompts.RelationTypesCSV(),
		EntitiesJSON:     string(entitiesJSON),
		DocumentExcerpt:  excerpt,
	})
	if err != nil {
		return nil, fmt.Errorf("build relationship prompt: %w", err)
	}
	obj, err := r.deps.LLM.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		return nil, fmt.Errorf("relationship extraction: %w", err)
	}

	rows := r.parseRelationships(documentID, byKey, obj)
	if err := r.deps.Relationships.Replace(ctx, nil, documentID, rows); err != nil {
		return nil, fmt.Errorf("persist relationships: %w", err)
	}

	if r.deps.Graph != nil && len(rows) > 0 {
		if err := r.deps.Graph.SyncRelationships(ctx, documentID, rows); err != nil {
			log.Warn("Graph relationship sync failed (continuing)", "error", err)
		}
	}

	log.Info("Relationship extraction complete", "relationships", len(rows), "canonical", len(canonical))
	return rows, nil
}

// parseRelationships validates each raw edge against the relation ontology
// and the canonical entity set. Invalid records are dropped, never fatal.
func (r *Resolver) parseRelationships(documentID uuid.UUID, byKey map[string]*domain.CanonicalEntity, obj map[string]any) []*domain.EntityRelationship {
	raw, _ := obj["relationships"].([]any)
	rows := make([]*domain.EntityRelationship, 0, len(raw))
	seen := map[string]struct{}{}
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rt, ok := domain.ParseRelationType(mention.AsString(m["relation_type"]))
		if !ok {
			r.log.Warn("Dropping relationship with unknown relation_type", "relation_type", m["relation_type"])
			continue
		}
		source := r.lookupCanonical(byKey, mention.AsString(m["source"]))
		target := r.lookupCanonical(byKey, mention.AsString(m["target"]))
		if source == nil || target == nil || source.ID == target.ID {
			continue
		}
		dedupe := string(rt) + "|" + source.ID.String() + "|" + target.ID.String()
		if _, dup := seen[dedupe]; dup {
			continue
		}
		seen[dedupe] = struct{}{}
		rows = append(rows, &domain.EntityRelationship{
			DocumentID:   documentID,
			RelationType: string(rt),
			SourceID:     source.ID,
			TargetID:     target.ID,
			Confidence:   mention.Clamp01(mention.FloatFromAny(m["confidence"])),
		})
	}
	return rows
}

// lookupCanonical resolves an "ENTITY_TYPE|normalized_value" reference back
// to a canonical entity.
func (r *Resolver) lookupCanonical(byKey map[string]*domain.CanonicalEntity, ref string) *domain.CanonicalEntity {
	parts := strings.SplitN(ref, "|", 2)
	if len(parts) != 2 {
		return nil
	}
	return byKey[mentionKey(parts[0], parts[1])]
}

// documentExcerpt joins the document's chunk texts in reading order, capped
// so the relationship prompt stays bounded for large documents.
func (r *Resolver) documentExcerpt(ctx context.Context, documentID uuid.UUID) (string, error) {
	chunks, err := r.deps.Chunks.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return "", fmt.Errorf("load chunks: %w", err)
	}
	var b strings.Builder
	for _, ch := range chunks {
		if b.Len() >= maxExcerptChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ch.Text)
	}
	s := b.String()
	if len(s) > maxExcerptChars {
		s = s[:maxExcerptChars]
	}
	return s, nil
}
