package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/chunking"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/tokens"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// SectionResult is one section's extraction outcome. A failed section keeps
// its slot with zero confidence and empty data.
type SectionResult struct {
	SectionType   domain.SectionType `json:"section_type"`
	ExtractedData map[string]any     `json:"extracted_data"`
	Entities      []mention.Mention  `json:"entities,omitempty"`
	Confidence    float64            `json:"confidence"`
	TokensUsed    int                `json:"tokens_used"`
	ProcessingMS  int64              `json:"processing_ms"`
}

// DocumentExtractionResult is the whole Tier 2 output for one document.
type DocumentExtractionResult struct {
	SectionResults []SectionResult   `json:"section_results"`
	AllEntities    []mention.Mention `json:"all_entities,omitempty"`
	TotalTokens    int               `json:"total_tokens"`
	TotalTimeMS    int64             `json:"total_processing_time_ms"`
}

type Deps struct {
	Log     *logger.Logger
	LLM     llm.Client
	Results docs.SectionResultRepo
}

// Orchestrator runs section-scoped extraction over a document's super-chunks
// in processing-priority order.
type Orchestrator struct {
	deps Deps
	cfg  config.ExtractionConfig
	est  *tokens.Estimator
}

func NewOrchestrator(deps Deps, cfg config.ExtractionConfig) (*Orchestrator, error) {
	if deps.Log == nil || deps.LLM == nil || deps.Results == nil {
		return nil, fmt.Errorf("extraction: missing deps")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	prompts.RegisterAll()
	return &Orchestrator{
		deps: deps,
		cfg:  cfg,
		est:  tokens.NewEstimator(),
	}, nil
}

// ExtractAllSections filters to LLM-requiring super-chunks, sorts them by
// priority, and extracts each one independently. Concurrency 1 keeps the
// calls strictly sequential; higher values fan out through a bounded group.
// A single section's failure never aborts the others.
func (o *Orchestrator) ExtractAllSections(ctx context.Context, documentID uuid.UUID, superChunks []*chunking.SuperChunk) (*DocumentExtractionResult, error) {
	log := o.deps.Log.With("service", "SectionExtraction", "document_id", documentID.String())
	started := time.Now()

	targets := make([]*chunking.SuperChunk, 0, len(superChunks))
	for _, sc := range superChunks {
		if sc.RequiresLLM && len(sc.Chunks) > 0 {
			targets = append(targets, sc)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Priority < targets[j].Priority })

	out := &DocumentExtractionResult{SectionResults: make([]SectionResult, len(targets))}

	if o.cfg.Concurrency <= 1 {
		for i, sc := range targets {
			out.SectionResults[i] = o.extractSection(ctx, log, sc)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Concurrency)
		for i, sc := range targets {
			i, sc := i, sc
			g.Go(func() error {
				out.SectionResults[i] = o.extractSection(gctx, log, sc)
				return nil
			})
		}
		_ = g.Wait()
	}

	rows := make([]*domain.SectionExtractionRow, 0, len(out.SectionResults))
	for _, res := range out.SectionResults {
		out.TotalTokens += res.TokensUsed
		out.AllEntities = append(out.AllEntities, res.Entities...)

		dataJSON, _ := json.Marshal(res.ExtractedData)
		entJSON, _ := json.Marshal(res.Entities)
		rows = append(rows, &domain.SectionExtractionRow{
			DocumentID:    documentID,
			SectionType:   string(res.SectionType),
			ExtractedData: datatypes.JSON(dataJSON),
			Entities:      datatypes.JSON(entJSON),
			Confidence:    res.Confidence,
			TokensUsed:    res.TokensUsed,
			ProcessingMS:  res.ProcessingMS,
		})
	}
	if err := o.deps.Results.Upsert(ctx, nil, rows); err != nil {
		return out, fmt.Errorf("persist section results: %w", err)
	}

	out.TotalTimeMS = time.Since(started).Milliseconds()
	log.Info("Section extraction complete",
		"sections", len(out.SectionResults),
		"entities", len(out.AllEntities),
		"total_tokens", out.TotalTokens,
		"elapsed_ms", out.TotalTimeMS,
	)
	return out, nil
}

// extractSection issues one LLM call for one super-chunk. Errors are folded
// into a zero-confidence result.
func (o *Orchestrator) extractSection(ctx context.Context, log *logger.Logger, sc *chunking.SuperChunk) SectionResult {
	started := time.Now()
	res := SectionResult{
		SectionType:   sc.SectionType,
		ExtractedData: map[string]any{},
	}

	text := sc.Text()
	spec := specFor(sc.SectionType)

	prompt, err := prompts.Build(spec.prompt, prompts.Input{
		SectionType:    string(sc.SectionType),
		SectionText:    text,
		EntityTypesCSV: prompts.EntityTypesCSV(),
	})
	if err != nil {
		log.Error("Section prompt build failed", "section", string(sc.SectionType), "error", err)
		res.ProcessingMS = time.Since(started).Milliseconds()
		return res
	}

	obj, err := o.deps.LLM.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		log.Error("Section extraction failed (continuing with empty result)",
			"section", string(sc.SectionType), "error", err)
		res.ProcessingMS = time.Since(started).Milliseconds()
		return res
	}

	res.ExtractedData = spec.extractData(obj)
	res.Entities = mention.FromAny(obj["entities"])
	res.Confidence = mention.Clamp01(mention.FloatFromAny(obj["confidence"]))
	res.TokensUsed = o.est.CountTokens(prompt.System) + o.est.CountTokens(prompt.User)
	res.ProcessingMS = time.Since(started).Milliseconds()
	return res
}
