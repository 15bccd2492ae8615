package entities

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// GraphSync mirrors resolved entities and relationships into the knowledge
// graph. Optional; nil disables the mirror.
type GraphSync interface {
	SyncEntities(ctx context.Context, documentID uuid.UUID, rows []*domain.CanonicalEntity) error
	SyncRelationships(ctx context.Context, documentID uuid.UUID, rows []*domain.EntityRelationship) error
}

type Deps struct {
	Log           *logger.Logger
	LLM           llm.Client // optional; nil disables the relationship pass
	Entities      docs.EntityRepo
	Canonical     docs.CanonicalEntityRepo
	Relationships docs.RelationshipRepo
	Chunks        docs.ChunkRepo
	Graph         GraphSync // optional
}

// Resolver owns Pass 2: document-wide entity aggregation, canonical identity
// resolution, and the global relationship extraction pass. It also serves as
// the per-chunk resolver the batch processor calls inline.
type Resolver struct {
	deps Deps
	log  *logger.Logger
}

func NewResolver(deps Deps) (*Resolver, error) {
	if deps.Log == nil || deps.Entities == nil || deps.Canonical == nil ||
		deps.Relationships == nil || deps.Chunks == nil {
		return nil, fmt.Errorf("entities: missing deps")
	}
	prompts.RegisterAll()
	return &Resolver{
		deps: deps,
		log:  deps.Log.With("service", "EntityResolver"),
	}, nil
}

// ResolveChunk resolves one chunk's freshly persisted mention rows against
// the document's canonical entities. Called inline from the batch pass so
// canonical identities exist before the document-wide pass runs.
func (r *Resolver) ResolveChunk(ctx context.Context, documentID uuid.UUID, chunkID uuid.UUID, rows []*domain.Entity) error {
	if len(rows) == 0 {
		return nil
	}
	groups := groupMentions(rows)
	canonical := make([]*domain.CanonicalEntity, 0, len(groups))
	for _, g := range groups {
		canonical = append(canonical, g.canonicalRow(documentID))
	}
	if err := r.deps.Canonical.Upsert(ctx, nil, canonical); err != nil {
		return fmt.Errorf("upsert canonical entities: %w", err)
	}
	for _, g := range groups {
		if err := r.deps.Entities.AssignCanonical(ctx, nil, g.entityIDs(), g.canonicalID(documentID)); err != nil {
			return fmt.Errorf("assign canonical id: %w", err)
		}
	}
	return nil
}

// AggregateResult summarizes the document-wide mention set.
type AggregateResult struct {
	Entities       []*domain.Entity `json:"entities"`
	TotalChunks    int              `json:"total_chunks"`
	TotalEntities  int              `json:"total_entities"`
	UniqueEntities int              `json:"unique_entities"`
}

// Aggregate reads every persisted chunk-level mention for the document and
// counts distinct (entity_type, normalized_value) identities.
func (r *Resolver) Aggregate(ctx context.Context, documentID uuid.UUID) (*AggregateResult, error) {
	rows, err := r.deps.Entities.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	chunks := map[uuid.UUID]struct{}{}
	unique := map[string]struct{}{}
	for _, row := range rows {
		chunks[row.ChunkID] = struct{}{}
		unique[mentionKey(row.EntityType, row.NormalizedValue)] = struct{}{}
	}
	return &AggregateResult{
		Entities:       rows,
		TotalChunks:    len(chunks),
		TotalEntities:  len(rows),
		UniqueEntities: len(unique),
	}, nil
}

// ResolveDocument runs the full Pass 2 resolution: rebuild the canonical set
// from all persisted mentions, assign canonical ids back onto the mention
// rows, and mirror into the graph when configured.
func (r *Resolver) ResolveDocument(ctx context.Context, documentID uuid.UUID) ([]*domain.CanonicalEntity, error) {
	agg, err := r.Aggregate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(agg.Entities) == 0 {
		return nil, nil
	}

	groups := groupMentions(agg.Entities)
	canonical := make([]*domain.CanonicalEntity, 0, len(groups))
	for _, g := range groups {
		canonical = append(canonical, g.canonicalRow(documentID))
	}
	if err := r.deps.Canonical.Upsert(ctx, nil, canonical); err != nil {
		return nil, fmt.Errorf("upsert canonical entities: %w", err)
	}
	for _, g := range groups {
		if err := r.deps.Entities.AssignCanonical(ctx, nil, g.entityIDs(), g.canonicalID(documentID)); err != nil {
			return nil, fmt.Errorf("assign canonical id: %w", err)
		}
	}

	if r.deps.Graph != nil {
		if err := r.deps.Graph.SyncEntities(ctx, documentID, canonical); err != nil {
			r.log.Warn("Graph entity sync failed (continuing)", "document_id", documentID.String(), "error", err)
		}
	}

	r.log.Info("Entity resolution complete",
		"document_id", documentID.String(),
		"mentions", agg.TotalEntities,
		"canonical", len(canonical),
	)
	return canonical, nil
}

// mentionGroup collects every mention sharing one canonical identity.
type mentionGroup struct {
	entityType domain.EntityType
	normalized string
	display    string
	confidence float64
	ids        []uuid.UUID
}

func (g *mentionGroup) canonicalID(documentID uuid.UUID) uuid.UUID {
	return domain.CanonicalEntityID(documentID, g.entityType, g.normalized)
}

func (g *mentionGroup) canonicalRow(documentID uuid.UUID) *domain.CanonicalEntity {
	return &domain.CanonicalEntity{
		ID:              g.canonicalID(documentID),
		DocumentID:      documentID,
		EntityType:      string(g.entityType),
		NormalizedValue: g.normalized,
		DisplayValue:    g.display,
		MentionCount:    len(g.ids),
		Confidence:      g.confidence,
	}
}

func (g *mentionGroup) entityIDs() []uuid.UUID { return g.ids }

func mentionKey(entityType, normalized string) string {
	return strings.ToUpper(strings.TrimSpace(entityType)) + "|" + strings.ToLower(strings.TrimSpace(normalized))
}

// groupMentions buckets mention rows by canonical identity, dropping rows
// whose entity type is off the ontology. Group order is deterministic only
// per input order; callers that need stable output sort afterwards.
func groupMentions(rows []*domain.Entity) []*mentionGroup {
	index := map[string]*mentionGroup{}
	var out []*mentionGroup
	for _, row := range rows {
		et, ok := domain.ParseEntityType(row.EntityType)
		if !ok {
			continue
		}
		normalized := strings.TrimSpace(row.NormalizedValue)
		if normalized == "" {
			normalized = strings.TrimSpace(row.RawValue)
		}
		if normalized == "" {
			continue
		}
		key := mentionKey(string(et), normalized)
		g, exists := index[key]
		if !exists {
			g = &mentionGroup{entityType: et, normalized: normalized, display: strings.TrimSpace(row.RawValue)}
			index[key] = g
			out = append(out, g)
		}
		g.ids = append(g.ids, row.ID)
		if row.Confidence > g.confidence {
			g.confidence = row.Confidence
			if v := strings.TrimSpace(row.RawValue); v != "" {
				g.display = v
			}
		}
	}
	return out
}
