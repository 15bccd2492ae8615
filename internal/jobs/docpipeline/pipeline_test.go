package docpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/testutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/batch"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/classify"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/entities"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/validation"
	"github.com/Shreekar11/insura-ai-sub003/internal/progress"
)

var chunkIDRe = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// pipelineLLM answers every schema the full pipeline asks for with one
// consistent document: policy POL-123 issued to Acme Corp.
type pipelineLLM struct {
	mu    sync.Mutex
	calls []string
}

func (s *pipelineLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *pipelineLLM) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, schemaName)
	s.mu.Unlock()

	switch schemaName {
	case "batch_normalize":
		ids := chunkIDRe.FindAllString(user, -1)
		chunks := make([]any, 0, len(ids))
		for _, id := range ids {
			chunks = append(chunks, map[string]any{
				"chunk_id":        id,
				"normalized_text": "Policy Number: POL-123. Named Insured: Acme Corp.",
				"entities": []any{
					map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-123", "confidence": 0.95},
					map[string]any{"entity_type": "INSURED_NAME", "raw_value": "Acme Corp", "confidence": 0.9},
				},
				"signals":       map[string]any{"policy": 0.9},
				"quality_score": 0.9,
			})
		}
		return map[string]any{"chunks": chunks}, nil
	case "classify_document":
		return map[string]any{
			"document_type": "policy",
			"confidence":    0.92,
			"section_boundaries": []any{
				map[string]any{"section_type": "declarations", "start_page": 1, "end_page": 1, "confidence": 0.95},
				map[string]any{"section_type": "coverages", "start_page": 2, "end_page": 2, "confidence": 0.9},
				map[string]any{"section_type": "conditions", "start_page": 3, "end_page": 3, "confidence": 0.85},
				map[string]any{"section_type": "exclusions", "start_page": 4, "end_page": 4, "confidence": 0.85},
			},
		}, nil
	case "section_declarations":
		return map[string]any{
			"fields": map[string]any{
				"policy_number":   "POL-123",
				"insured_name":    "Acme Corp",
				"carrier_name":    "Example Mutual",
				"effective_date":  "2024-01-15",
				"expiration_date": "2025-01-15",
				"total_premium":   10000,
			},
			"entities": []any{
				map[string]any{"entity_type": "POLICY_NUMBER", "raw_value": "POL-123", "confidence": 0.95},
			},
			"confidence": 0.9,
		}, nil
	case "section_coverages":
		return map[string]any{
			"coverages": []any{
				map[string]any{"coverage_type": "Building", "limit": "1000000", "premium_amount": 9800},
			},
			"confidence": 0.85,
		}, nil
	case "section_conditions", "section_exclusions":
		return map[string]any{"fields": map[string]any{}, "confidence": 0.7}, nil
	case "relationship_extract":
		return map[string]any{
			"relationships": []any{
				map[string]any{
					"relation_type": "HAS_INSURED",
					"source":        "POLICY_NUMBER|POL-123",
					"target":        "INSURED_NAME|Acme Corp",
					"confidence":    0.9,
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("unexpected schema %s", schemaName)
	}
}

func (s *pipelineLLM) count(schema string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == schema {
			n++
		}
	}
	return n
}

func policyPages() []domain.PageData {
	return []domain.PageData{
		{PageNumber: 1, Text: "DECLARATIONS\nPolicy Number: POL-123\nNamed Insured: Acme Corp\nTotal Premium: $10,000"},
		{PageNumber: 2, Text: "COVERAGES\nBuilding coverage with a limit of $1,000,000"},
		{PageNumber: 3, Text: "CONDITIONS\nDuties after loss and cancellation terms."},
		{PageNumber: 4, Text: "EXCLUSIONS\nFlood and earth movement are excluded."},
	}
}

func newTestActivities(t *testing.T, stub *pipelineLLM, gdb *gorm.DB) *Activities {
	t.Helper()
	log := testutil.Logger(t)
	cfg := config.Default()

	chunkRepo := docs.NewChunkRepo(gdb, log)
	entityRepo := docs.NewEntityRepo(gdb, log)

	resolver, err := entities.NewResolver(entities.Deps{
		Log:           log,
		LLM:           stub,
		Entities:      entityRepo,
		Canonical:     docs.NewCanonicalEntityRepo(gdb, log),
		Relationships: docs.NewRelationshipRepo(gdb, log),
		Chunks:        chunkRepo,
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	processor, err := batch.NewProcessor(batch.Deps{
		Log:        log,
		LLM:        stub,
		ChunkRepo:  chunkRepo,
		Normalized: docs.NewNormalizedChunkRepo(gdb, log),
		Signals:    docs.NewSignalRepo(gdb, log),
		Entities:   entityRepo,
		Resolver:   resolver,
	}, cfg)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	classifier, err := classify.NewService(classify.ServiceDeps{
		Log:            log,
		Signals:        docs.NewSignalRepo(gdb, log),
		Chunks:         chunkRepo,
		Classification: docs.NewClassificationRepo(gdb, log),
		LLM:            stub,
	}, cfg.Classification)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	tier1, err := classify.NewTier1Service(log, stub, cfg.Classification)
	if err != nil {
		t.Fatalf("new tier1: %v", err)
	}
	extractor, err := extraction.NewOrchestrator(extraction.Deps{
		Log:     log,
		LLM:     stub,
		Results: docs.NewSectionResultRepo(gdb, log),
	}, cfg.Extraction)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	validator, err := validation.NewValidator(log, stub, cfg.Validation)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	return &Activities{
		Log:            log,
		Documents:      docs.NewDocumentRepo(gdb, log),
		Chunks:         chunkRepo,
		Results:        docs.NewSectionResultRepo(gdb, log),
		Classification: docs.NewClassificationRepo(gdb, log),
		Processor:      processor,
		Tier1:          tier1,
		Classifier:     classifier,
		Extractor:      extractor,
		Resolver:       resolver,
		Validator:      validator,
		Progress:       progress.NopBus{},
	}
}

// TestDocumentPipelineEndToEnd drives a four-page policy through every
// activity in workflow order and checks the cross-stage contract: chunking
// feeds classification, tier 1 boundaries land on the classification row,
// extraction feeds the resolver, and validation produces a clean report.
func TestDocumentPipelineEndToEnd(t *testing.T) {
	stub := &pipelineLLM{}
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	acts := newTestActivities(t, stub, gdb)
	ctx := context.Background()

	docRepo := docs.NewDocumentRepo(gdb, log)
	doc := &domain.Document{ID: uuid.New(), FileName: "policy.pdf", Status: "pending", PageCount: 4}
	if _, err := docRepo.Create(ctx, nil, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	req := ExtractionRequest{DocumentID: doc.ID, Pages: policyPages()}

	processed, err := acts.ProcessPages(ctx, req)
	if err != nil {
		t.Fatalf("process pages: %v", err)
	}
	if processed.ChunkCount != 4 {
		t.Fatalf("expected one chunk per page, got %d", processed.ChunkCount)
	}
	if processed.NormalizedCount != 4 || len(processed.DroppedChunkIDs) != 0 {
		t.Fatalf("all chunks must normalize: %+v", processed)
	}

	classified, err := acts.ClassifyAggregate(ctx, doc.ID)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if classified.DocumentType != string(domain.DocTypePolicy) {
		t.Fatalf("expected policy, got %q", classified.DocumentType)
	}
	if classified.Method != domain.ClassificationMethodAggregate {
		t.Fatalf("strong signals must classify without the fallback, got %q", classified.Method)
	}

	tier1, err := acts.ClassifyTier1(ctx, req)
	if err != nil {
		t.Fatalf("tier1: %v", err)
	}
	if tier1.BoundaryCount != 4 {
		t.Fatalf("expected 4 section boundaries, got %d", tier1.BoundaryCount)
	}
	row, err := acts.Classification.GetByDocumentID(ctx, nil, doc.ID)
	if err != nil {
		t.Fatalf("get classification: %v", err)
	}
	// Tier 1 must merge its section map without clobbering the aggregate
	// decision.
	if row.Method != domain.ClassificationMethodAggregate {
		t.Fatalf("tier1 clobbered the aggregate classification: %q", row.Method)
	}
	var boundaries []classify.SectionBoundary
	if err := json.Unmarshal(row.SectionMap, &boundaries); err != nil || len(boundaries) != 4 {
		t.Fatalf("section map not persisted: %v (%d)", err, len(boundaries))
	}

	extracted, err := acts.ExtractSections(ctx, doc.ID)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if extracted.Sections != 4 {
		t.Fatalf("expected 4 section results, got %d", extracted.Sections)
	}

	resolved, err := acts.ResolveEntities(ctx, doc.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.CanonicalEntities != 2 {
		t.Fatalf("POL-123 and Acme Corp must collapse to 2 canonical entities, got %d", resolved.CanonicalEntities)
	}
	if resolved.Relationships != 1 {
		t.Fatalf("expected 1 relationship, got %d", resolved.Relationships)
	}

	validated, err := acts.ValidateDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !validated.Result.IsValid {
		t.Fatalf("consistent document must validate cleanly: %+v", validated.Result.Issues)
	}

	final, err := docRepo.GetByID(ctx, nil, doc.ID)
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if final.Status != "completed" {
		t.Fatalf("expected completed status, got %q", final.Status)
	}
	if len(final.ReportJSON) == 0 {
		t.Fatalf("validation report must be persisted")
	}
	if final.MergedText == "" || final.PageCount != 4 {
		t.Fatalf("merged text and page count must be persisted: %q %d", final.MergedText, final.PageCount)
	}

	if n := stub.count("classify_fallback"); n != 0 {
		t.Fatalf("fallback must not run on strong signals, got %d calls", n)
	}
	if n := stub.count("relationship_extract"); n != 1 {
		t.Fatalf("relationship pass must run exactly once, got %d", n)
	}
}

// TestClassifyTier1WithoutService covers the no-LLM deployment shape: the
// boundary pass is skipped and the rest of the pipeline is untouched.
func TestClassifyTier1WithoutService(t *testing.T) {
	stub := &pipelineLLM{}
	acts := newTestActivities(t, stub, testutil.DB(t))
	acts.Tier1 = nil

	out, err := acts.ClassifyTier1(context.Background(), ExtractionRequest{DocumentID: uuid.New(), Pages: policyPages()})
	if err != nil {
		t.Fatalf("tier1 without service must be a no-op: %v", err)
	}
	if out.BoundaryCount != 0 || len(stub.calls) != 0 {
		t.Fatalf("no work expected: %+v calls=%v", out, stub.calls)
	}
}
