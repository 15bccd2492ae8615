package extraction

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/testutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/chunking"
)

type stubLLM struct {
	mu          sync.Mutex
	schemas     []string
	failSchemas map[string]bool
}

func (s *stubLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *stubLLM) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.schemas = append(s.schemas, schemaName)
	s.mu.Unlock()
	if s.failSchemas[schemaName] {
		return nil, fmt.Errorf("model unavailable")
	}
	switch schemaName {
	case "section_declarations":
		return map[string]any{
			"fields": map[string]any{
				"policy_number": "POL-123",
				"insured_name":  "Acme Corp",
			},
			"entities": []any{
				map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-123", "confidence": 0.95},
			},
			"confidence": 0.9,
		}, nil
	case "section_coverages":
		return map[string]any{
			"coverages": []any{
				map[string]any{"coverage_type": "Building", "limit": "1000000", "premium_amount": 1200.5},
			},
			"confidence": 0.8,
		}, nil
	default:
		return map[string]any{"fields": map[string]any{}, "confidence": 0.5}, nil
	}
}

func superChunksFor(docID uuid.UUID, sections ...domain.SectionType) []*chunking.SuperChunk {
	chunks := make([]*domain.Chunk, 0, len(sections))
	for i, st := range sections {
		chunks = append(chunks, &domain.Chunk{
			ID:          domain.StableChunkID(docID, i+1, 0),
			DocumentID:  docID,
			PageNumber:  i + 1,
			ChunkIndex:  0,
			SectionType: string(st),
			Text:        "section body " + string(st),
			TokenCount:  10,
		})
	}
	return chunking.BuildSuperChunks(chunks)
}

func newOrchestrator(t *testing.T, stub *stubLLM, concurrency int) *Orchestrator {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	o, err := NewOrchestrator(Deps{
		Log:     log,
		LLM:     stub,
		Results: docs.NewSectionResultRepo(gdb, log),
	}, config.ExtractionConfig{Concurrency: concurrency})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func TestExtractFiltersTableOnlyAndOrdersByPriority(t *testing.T) {
	stub := &stubLLM{}
	o := newOrchestrator(t, stub, 1)
	docID := uuid.New()

	scs := superChunksFor(docID,
		domain.SectionExclusions,
		domain.SectionScheduleOfValues, // table_only: no LLM call
		domain.SectionCoverages,
		domain.SectionDeclarations,
	)
	res, err := o.ExtractAllSections(context.Background(), docID, scs)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.SectionResults) != 3 {
		t.Fatalf("table-only section must be filtered, got %d results", len(res.SectionResults))
	}
	want := []string{"section_declarations", "section_coverages", "section_exclusions"}
	for i, schema := range want {
		if stub.schemas[i] != schema {
			t.Fatalf("call %d: expected %s got %s (all: %v)", i, schema, stub.schemas[i], stub.schemas)
		}
	}
	if res.SectionResults[0].SectionType != domain.SectionDeclarations {
		t.Fatalf("declarations (priority 1) must come first, got %s", res.SectionResults[0].SectionType)
	}
}

func TestExtractSectionFailureDoesNotAbortOthers(t *testing.T) {
	stub := &stubLLM{failSchemas: map[string]bool{"section_coverages": true}}
	o := newOrchestrator(t, stub, 1)
	docID := uuid.New()

	res, err := o.ExtractAllSections(context.Background(), docID,
		superChunksFor(docID, domain.SectionDeclarations, domain.SectionCoverages))
	if err != nil {
		t.Fatalf("one failed section must not fail the document: %v", err)
	}
	if len(res.SectionResults) != 2 {
		t.Fatalf("failed section keeps its slot, got %d results", len(res.SectionResults))
	}
	var failed *SectionResult
	for i := range res.SectionResults {
		if res.SectionResults[i].SectionType == domain.SectionCoverages {
			failed = &res.SectionResults[i]
		}
	}
	if failed == nil || failed.Confidence != 0 || len(failed.ExtractedData) != 0 {
		t.Fatalf("failed section must record zero confidence and empty data: %+v", failed)
	}
}

func TestExtractPersistsResults(t *testing.T) {
	stub := &stubLLM{}
	o := newOrchestrator(t, stub, 1)
	docID := uuid.New()
	ctx := context.Background()

	res, err := o.ExtractAllSections(ctx, docID, superChunksFor(docID, domain.SectionDeclarations))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.AllEntities) != 1 || res.AllEntities[0].NormalizedValue != "POL-123" {
		t.Fatalf("entities not aggregated: %+v", res.AllEntities)
	}
	if res.TotalTokens == 0 {
		t.Fatalf("token cost must be recorded")
	}

	gdb := testutil.DB(t)
	rows, err := docs.NewSectionResultRepo(gdb, testutil.Logger(t)).GetByDocumentID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 || rows[0].SectionType != string(domain.SectionDeclarations) {
		t.Fatalf("section result not persisted: %+v", rows)
	}
	if rows[0].Confidence != 0.9 {
		t.Fatalf("confidence not persisted: %v", rows[0].Confidence)
	}
}

func TestExtractUnknownSectionUsesGenericExtractor(t *testing.T) {
	stub := &stubLLM{}
	o := newOrchestrator(t, stub, 1)
	docID := uuid.New()

	res, err := o.ExtractAllSections(context.Background(), docID,
		superChunksFor(docID, domain.SectionUnknown))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(stub.schemas) != 1 || stub.schemas[0] != "section_default" {
		t.Fatalf("unknown section must route to the generic extractor, calls: %v", stub.schemas)
	}
	if len(res.SectionResults) != 1 {
		t.Fatalf("unknown section still yields a result")
	}
}

func TestExtractBoundedConcurrency(t *testing.T) {
	stub := &stubLLM{}
	o := newOrchestrator(t, stub, 3)
	docID := uuid.New()

	res, err := o.ExtractAllSections(context.Background(), docID,
		superChunksFor(docID, domain.SectionDeclarations, domain.SectionCoverages, domain.SectionExclusions))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.SectionResults) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.SectionResults))
	}
	// Slot order follows priority regardless of completion order.
	if res.SectionResults[0].SectionType != domain.SectionDeclarations ||
		res.SectionResults[2].SectionType != domain.SectionExclusions {
		t.Fatalf("result order must follow priority: %+v", res.SectionResults)
	}
}
