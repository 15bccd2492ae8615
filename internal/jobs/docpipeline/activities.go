package docpipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/batch"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/chunking"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/classify"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/entities"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/validation"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
	"github.com/Shreekar11/insura-ai-sub003/internal/progress"
)

// Activities bundles every pipeline stage behind Temporal activity methods.
// Each activity is idempotent: stages persist through delete-then-recreate
// or upserts keyed on stable ids, so a workflow-level retry replays cleanly.
type Activities struct {
	Log *logger.Logger

	Documents      docs.DocumentRepo
	Chunks         docs.ChunkRepo
	Results        docs.SectionResultRepo
	Classification docs.ClassificationRepo

	Processor  *batch.Processor
	Tier1      *classify.Tier1Service // optional
	Classifier *classify.Service
	Extractor  *extraction.Orchestrator
	Resolver   *entities.Resolver
	Validator  *validation.Validator

	Progress progress.Bus
}

// heartbeat reports activity liveness. The activities also run inline from
// the CLI without a Temporal worker, where heartbeating has no home.
func heartbeat(ctx context.Context, details ...interface{}) {
	if activity.IsActivity(ctx) {
		activity.RecordHeartbeat(ctx, details...)
	}
}

func (a *Activities) publish(ctx context.Context, documentID uuid.UUID, stage, status string, detail map[string]any) {
	if a.Progress == nil {
		return
	}
	ev := progress.Event{DocumentID: documentID, Stage: stage, Status: status, Detail: detail}
	if err := a.Progress.Publish(ctx, ev); err != nil {
		a.Log.Warn("Progress publish failed (continuing)", "stage", stage, "error", err)
	}
}

// ProcessPages chunks the OCR pages and runs batched normalization plus
// signal extraction, merging the normalized text back onto the document.
func (a *Activities) ProcessPages(ctx context.Context, req ExtractionRequest) (ProcessPagesOutput, error) {
	out := ProcessPagesOutput{}
	if a.Processor == nil {
		return out, fmt.Errorf("docpipeline: processor not configured")
	}
	a.publish(ctx, req.DocumentID, ActivityProcessPages, "started", nil)
	heartbeat(ctx, "chunking")

	if err := a.Documents.SetStatus(ctx, nil, req.DocumentID, "processing"); err != nil {
		a.Log.Warn("Document status update failed (continuing)", "error", err)
	}

	res, err := a.Processor.ProcessPages(ctx, req.DocumentID, req.Pages)
	if err != nil {
		a.publish(ctx, req.DocumentID, ActivityProcessPages, "failed", map[string]any{"error": err.Error()})
		return out, err
	}

	heartbeat(ctx, "persisting merged text")
	if err := a.Documents.UpdateFields(ctx, nil, req.DocumentID, map[string]interface{}{
		"merged_text": res.MergedText,
		"page_count":  len(req.Pages),
	}); err != nil {
		a.Log.Warn("Merged text persist failed (continuing)", "error", err)
	}

	out.ChunkCount = res.ChunkCount
	out.NormalizedCount = res.NormalizedCount
	out.EntityCount = res.EntityCount
	out.DroppedChunkIDs = res.DroppedChunkIDs
	a.publish(ctx, req.DocumentID, ActivityProcessPages, "completed", map[string]any{
		"chunks":     out.ChunkCount,
		"normalized": out.NormalizedCount,
		"dropped":    len(out.DroppedChunkIDs),
	})
	return out, nil
}

// ClassifyAggregate aggregates the persisted chunk signals into the
// document-level classification, falling back to the LLM under the review
// threshold.
func (a *Activities) ClassifyAggregate(ctx context.Context, documentID uuid.UUID) (ClassifyOutput, error) {
	out := ClassifyOutput{}
	if a.Classifier == nil {
		return out, fmt.Errorf("docpipeline: classifier not configured")
	}
	a.publish(ctx, documentID, ActivityClassifyAggregate, "started", nil)
	heartbeat(ctx)

	res, err := a.Classifier.Classify(ctx, documentID)
	if err != nil {
		a.publish(ctx, documentID, ActivityClassifyAggregate, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.DocumentType = string(res.ClassifiedType)
	out.Confidence = res.Confidence
	out.Method = res.Method
	a.publish(ctx, documentID, ActivityClassifyAggregate, "completed", map[string]any{
		"document_type": out.DocumentType,
		"confidence":    out.Confidence,
		"method":        out.Method,
	})
	return out, nil
}

// ClassifyTier1 runs the whole-document classification pass, merges its
// section boundaries onto the stored classification, and relabels chunks the
// header scan left unknown.
func (a *Activities) ClassifyTier1(ctx context.Context, req ExtractionRequest) (Tier1Output, error) {
	out := Tier1Output{}
	if a.Tier1 == nil {
		// no LLM configured for tier 1; boundary detection is skipped
		return out, nil
	}
	a.publish(ctx, req.DocumentID, ActivityClassifyTier1, "started", nil)
	heartbeat(ctx)

	res, err := a.Tier1.ClassifyDocument(ctx, req.DocumentID, req.Pages)
	if err != nil {
		a.publish(ctx, req.DocumentID, ActivityClassifyTier1, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.DocumentType = string(res.DocumentType)
	out.Confidence = res.Confidence
	out.BoundaryCount = len(res.SectionBoundaries)
	out.SectionatedMap = map[int]string{}
	for page, st := range res.PageSectionMap {
		out.SectionatedMap[page] = string(st)
	}

	if err := a.mergeSectionMap(ctx, req.DocumentID, res); err != nil {
		a.Log.Warn("Section map persist failed (continuing)", "error", err)
	}

	relabeled, err := a.relabelUnknownChunks(ctx, req.DocumentID, res.PageSectionMap)
	if err != nil {
		a.Log.Warn("Chunk relabel failed (continuing)", "error", err)
	}
	out.RelabeledChunks = relabeled

	a.publish(ctx, req.DocumentID, ActivityClassifyTier1, "completed", map[string]any{
		"boundaries": out.BoundaryCount,
		"relabeled":  relabeled,
	})
	return out, nil
}

// mergeSectionMap reads the stored classification row and re-upserts it with
// tier 1's section map so the aggregate decision fields survive.
func (a *Activities) mergeSectionMap(ctx context.Context, documentID uuid.UUID, res *classify.Tier1Result) error {
	row, err := a.Classification.GetByDocumentID(ctx, nil, documentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if row == nil {
		row = &domain.DocumentClassification{
			DocumentID:     documentID,
			ClassifiedType: string(res.DocumentType),
			Confidence:     res.Confidence,
			Method:         "tier1",
		}
	}
	if row.Subtype == "" {
		row.Subtype = res.DocumentSubtype
	}
	sectionMap, err := json.Marshal(res.SectionBoundaries)
	if err != nil {
		return err
	}
	row.SectionMap = datatypes.JSON(sectionMap)
	return a.Classification.Upsert(ctx, nil, row)
}

func (a *Activities) relabelUnknownChunks(ctx context.Context, documentID uuid.UUID, pageMap map[int]domain.SectionType) (int, error) {
	if len(pageMap) == 0 {
		return 0, nil
	}
	chunks, err := a.Chunks.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return 0, err
	}
	relabeled := 0
	for _, ch := range chunks {
		if domain.MapSectionType(ch.SectionType) != domain.SectionUnknown {
			continue
		}
		st, ok := pageMap[ch.PageNumber]
		if !ok || st == domain.SectionUnknown {
			continue
		}
		if err := a.Chunks.UpdateSectionType(ctx, nil, ch.ID, string(st)); err != nil {
			return relabeled, err
		}
		relabeled++
	}
	return relabeled, nil
}

// ExtractSections rebuilds the super-chunks from persisted chunk rows and
// runs the section-scoped extraction pass.
func (a *Activities) ExtractSections(ctx context.Context, documentID uuid.UUID) (ExtractOutput, error) {
	out := ExtractOutput{}
	if a.Extractor == nil {
		return out, fmt.Errorf("docpipeline: extractor not configured")
	}
	a.publish(ctx, documentID, ActivityExtractSections, "started", nil)
	heartbeat(ctx, "loading chunks")

	chunks, err := a.Chunks.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return out, fmt.Errorf("load chunks: %w", err)
	}
	superChunks := chunking.BuildSuperChunks(chunks)

	heartbeat(ctx, "extracting sections")
	res, err := a.Extractor.ExtractAllSections(ctx, documentID, superChunks)
	if err != nil {
		a.publish(ctx, documentID, ActivityExtractSections, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.Sections = len(res.SectionResults)
	out.Entities = len(res.AllEntities)
	out.TotalTokens = res.TotalTokens
	a.publish(ctx, documentID, ActivityExtractSections, "completed", map[string]any{
		"sections": out.Sections,
		"entities": out.Entities,
		"tokens":   out.TotalTokens,
	})
	return out, nil
}

// ResolveEntities runs the document-wide Pass 2: canonical resolution and
// the global relationship extraction.
func (a *Activities) ResolveEntities(ctx context.Context, documentID uuid.UUID) (ResolveOutput, error) {
	out := ResolveOutput{}
	if a.Resolver == nil {
		return out, fmt.Errorf("docpipeline: resolver not configured")
	}
	a.publish(ctx, documentID, ActivityResolveEntities, "started", nil)
	heartbeat(ctx, "resolving")

	canonical, err := a.Resolver.ResolveDocument(ctx, documentID)
	if err != nil {
		a.publish(ctx, documentID, ActivityResolveEntities, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.CanonicalEntities = len(canonical)

	heartbeat(ctx, "relationships")
	rels, err := a.Resolver.ExtractRelationships(ctx, documentID)
	if err != nil {
		a.publish(ctx, documentID, ActivityResolveEntities, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.Relationships = len(rels)

	a.publish(ctx, documentID, ActivityResolveEntities, "completed", map[string]any{
		"canonical":     out.CanonicalEntities,
		"relationships": out.Relationships,
	})
	return out, nil
}

// ValidateDocument reloads the persisted section results, reconciles them,
// and writes the final report onto the document.
func (a *Activities) ValidateDocument(ctx context.Context, documentID uuid.UUID) (ValidateOutput, error) {
	out := ValidateOutput{}
	if a.Validator == nil {
		return out, fmt.Errorf("docpipeline: validator not configured")
	}
	a.publish(ctx, documentID, ActivityValidateDocument, "started", nil)
	heartbeat(ctx)

	rows, err := a.Results.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return out, fmt.Errorf("load section results: %w", err)
	}
	sections := make([]extraction.SectionResult, 0, len(rows))
	for _, row := range rows {
		data := map[string]any{}
		if len(row.ExtractedData) > 0 {
			if err := json.Unmarshal(row.ExtractedData, &data); err != nil {
				a.Log.Warn("Unparseable section data (skipping section)", "section", row.SectionType, "error", err)
				continue
			}
		}
		sections = append(sections, extraction.SectionResult{
			SectionType:   domain.SectionType(row.SectionType),
			ExtractedData: data,
			Confidence:    row.Confidence,
		})
	}

	res, err := a.Validator.Validate(ctx, sections)
	if err != nil {
		a.publish(ctx, documentID, ActivityValidateDocument, "failed", map[string]any{"error": err.Error()})
		return out, err
	}
	out.Result = *res

	report, err := json.Marshal(res)
	if err != nil {
		return out, fmt.Errorf("marshal report: %w", err)
	}
	if err := a.Documents.UpdateFields(ctx, nil, documentID, map[string]interface{}{
		"report_json": datatypes.JSON(report),
		"status":      "completed",
	}); err != nil {
		return out, fmt.Errorf("persist report: %w", err)
	}

	a.publish(ctx, documentID, ActivityValidateDocument, "completed", map[string]any{
		"is_valid": res.IsValid,
		"issues":   len(res.Issues),
	})
	return out, nil
}
