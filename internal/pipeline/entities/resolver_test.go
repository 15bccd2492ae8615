package entities

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/testutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

type stubLLM struct {
	calls    int
	response map[string]any
}

func (s *stubLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *stubLLM) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	s.calls++
	return s.response, nil
}

type fixture struct {
	resolver *Resolver
	entities docs.EntityRepo
	canon    docs.CanonicalEntityRepo
	rels     docs.RelationshipRepo
	chunks   docs.ChunkRepo
}

func newFixture(t *testing.T, llmClient *stubLLM) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		entities: docs.NewEntityRepo(gdb, log),
		canon:    docs.NewCanonicalEntityRepo(gdb, log),
		rels:     docs.NewRelationshipRepo(gdb, log),
		chunks:   docs.NewChunkRepo(gdb, log),
	}
	deps := Deps{
		Log:           log,
		Entities:      f.entities,
		Canonical:     f.canon,
		Relationships: f.rels,
		Chunks:        f.chunks,
	}
	if llmClient != nil {
		deps.LLM = llmClient
	}
	r, err := NewResolver(deps)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	f.resolver = r
	return f
}

func seedMentions(t *testing.T, f *fixture, docID uuid.UUID, rows []*domain.Entity) []*domain.Entity {
	t.Helper()
	created, err := f.entities.Create(context.Background(), nil, rows)
	if err != nil {
		t.Fatalf("seed mentions: %v", err)
	}
	return created
}

func mentionRow(docID, chunkID uuid.UUID, entityType, raw, normalized string, conf float64) *domain.Entity {
	return &domain.Entity{
		DocumentID:      docID,
		ChunkID:         chunkID,
		EntityType:      entityType,
		RawValue:        raw,
		NormalizedValue: normalized,
		Confidence:      conf,
	}
}

func TestResolveDocumentCollapsesMentions(t *testing.T) {
	f := newFixture(t, nil)
	docID := uuid.New()
	chunkA, chunkB := uuid.New(), uuid.New()
	ctx := context.Background()

	seedMentions(t, f, docID, []*domain.Entity{
		mentionRow(docID, chunkA, "POLICY_NUMBER", "pol-123", "POL-123", 0.8),
		mentionRow(docID, chunkB, "POLICY_NUMBER", "POL-123", "POL-123", 0.95),
		mentionRow(docID, chunkB, "INSURED_NAME", "Acme Corp", "Acme Corp", 0.9),
		mentionRow(docID, chunkA, "NOT_A_TYPE", "junk", "junk", 0.9),
	})

	canonical, err := f.resolver.ResolveDocument(ctx, docID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(canonical) != 2 {
		t.Fatalf("expected 2 canonical entities (off-ontology dropped), got %d", len(canonical))
	}

	var policy *domain.CanonicalEntity
	for _, ce := range canonical {
		if ce.EntityType == "POLICY_NUMBER" {
			policy = ce
		}
	}
	if policy == nil {
		t.Fatalf("policy number canonical missing")
	}
	if policy.MentionCount != 2 || policy.Confidence != 0.95 || policy.DisplayValue != "POL-123" {
		t.Fatalf("mention merge wrong: %+v", policy)
	}
	if policy.ID != domain.CanonicalEntityID(docID, domain.EntityPolicyNumber, "POL-123") {
		t.Fatalf("canonical id must be deterministic")
	}

	mentions, err := f.entities.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("load mentions: %v", err)
	}
	for _, m := range mentions {
		if m.EntityType == "NOT_A_TYPE" {
			if m.CanonicalID != nil {
				t.Fatalf("off-ontology mention must stay unresolved")
			}
			continue
		}
		if m.CanonicalID == nil {
			t.Fatalf("mention %s/%s missing canonical id", m.EntityType, m.NormalizedValue)
		}
	}
}

func TestResolveChunkIsIdempotentWithDocumentPass(t *testing.T) {
	f := newFixture(t, nil)
	docID := uuid.New()
	chunkID := uuid.New()
	ctx := context.Background()

	rows := seedMentions(t, f, docID, []*domain.Entity{
		mentionRow(docID, chunkID, "CARRIER", "Zenith Insurance Co", "Zenith Insurance Co", 0.85),
	})
	if err := f.resolver.ResolveChunk(ctx, docID, chunkID, rows); err != nil {
		t.Fatalf("resolve chunk: %v", err)
	}
	if _, err := f.resolver.ResolveDocument(ctx, docID); err != nil {
		t.Fatalf("resolve document: %v", err)
	}

	canonical, err := f.canon.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("load canonical: %v", err)
	}
	if len(canonical) != 1 {
		t.Fatalf("chunk + document passes must converge on one canonical row, got %d", len(canonical))
	}
}

func TestAggregateCounts(t *testing.T) {
	f := newFixture(t, nil)
	docID := uuid.New()
	chunkA, chunkB := uuid.New(), uuid.New()

	seedMentions(t, f, docID, []*domain.Entity{
		mentionRow(docID, chunkA, "POLICY_NUMBER", "POL-9", "POL-9", 0.9),
		mentionRow(docID, chunkB, "POLICY_NUMBER", "POL-9", "POL-9", 0.8),
		mentionRow(docID, chunkB, "PREMIUM", "$1,200", "1200.00 USD", 0.7),
	})

	agg, err := f.resolver.Aggregate(context.Background(), docID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.TotalEntities != 3 || agg.TotalChunks != 2 || agg.UniqueEntities != 2 {
		t.Fatalf("counts wrong: %+v", agg)
	}
}

func TestExtractRelationshipsValidatesEdges(t *testing.T) {
	stub := &stubLLM{response: map[string]any{
		"relationships": []any{
			map[string]any{
				"relation_type": "HAS_INSURED",
				"source":        "POLICY_NUMBER|POL-123",
				"target":        "INSURED_NAME|Acme Corp",
				"confidence":    0.9,
			},
			// duplicate edge, dropped
			map[string]any{
				"relation_type": "HAS_INSURED",
				"source":        "POLICY_NUMBER|POL-123",
				"target":        "INSURED_NAME|Acme Corp",
				"confidence":    0.4,
			},
			// unknown relation type, dropped
			map[string]any{
				"relation_type": "FRIENDS_WITH",
				"source":        "POLICY_NUMBER|POL-123",
				"target":        "INSURED_NAME|Acme Corp",
			},
			// unresolvable target, dropped
			map[string]any{
				"relation_type": "ISSUED_BY",
				"source":        "POLICY_NUMBER|POL-123",
				"target":        "CARRIER|Nobody Mutual",
			},
			// self edge, dropped
			map[string]any{
				"relation_type": "HAS_LIMIT",
				"source":        "POLICY_NUMBER|POL-123",
				"target":        "POLICY_NUMBER|POL-123",
			},
		},
	}}
	f := newFixture(t, stub)
	docID := uuid.New()
	chunkID := uuid.New()
	ctx := context.Background()

	seedMentions(t, f, docID, []*domain.Entity{
		mentionRow(docID, chunkID, "POLICY_NUMBER", "POL-123", "POL-123", 0.95),
		mentionRow(docID, chunkID, "INSURED_NAME", "Acme Corp", "Acme Corp", 0.9),
	})
	if _, err := f.resolver.ResolveDocument(ctx, docID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	rels, err := f.resolver.ExtractRelationships(ctx, docID)
	if err != nil {
		t.Fatalf("extract relationships: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected exactly 1 valid edge, got %d", len(rels))
	}
	if rels[0].RelationType != "HAS_INSURED" || rels[0].Confidence != 0.9 {
		t.Fatalf("edge wrong: %+v", rels[0])
	}
	wantSource := domain.CanonicalEntityID(docID, domain.EntityPolicyNumber, "POL-123")
	if rels[0].SourceID != wantSource {
		t.Fatalf("source must reference the canonical entity id")
	}

	persisted, err := f.rels.GetByDocumentID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("load persisted: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("relationship not persisted, got %d rows", len(persisted))
	}
}

func TestExtractRelationshipsSkipsWithoutCanonicalEntities(t *testing.T) {
	stub := &stubLLM{response: map[string]any{}}
	f := newFixture(t, stub)

	rels, err := f.resolver.ExtractRelationships(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rels != nil || stub.calls != 0 {
		t.Fatalf("pass must be skipped when no canonical entities exist (calls=%d)", stub.calls)
	}
}

func TestExtractRelationshipsSkipsWithoutLLM(t *testing.T) {
	f := newFixture(t, nil)
	docID := uuid.New()
	chunkID := uuid.New()
	ctx := context.Background()

	seedMentions(t, f, docID, []*domain.Entity{
		mentionRow(docID, chunkID, "POLICY_NUMBER", "POL-55", "POL-55", 0.9),
	})
	if _, err := f.resolver.ResolveDocument(ctx, docID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	rels, err := f.resolver.ExtractRelationships(ctx, docID)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rels != nil {
		t.Fatalf("no LLM configured must mean no relationship pass")
	}
}
