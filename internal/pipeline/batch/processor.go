package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/chunking"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/normalize"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// EntityResolver is invoked per chunk after its mentions are persisted.
type EntityResolver interface {
	ResolveChunk(ctx context.Context, documentID uuid.UUID, chunkID uuid.UUID, rows []*domain.Entity) error
}

type Deps struct {
	Log        *logger.Logger
	LLM        llm.Client
	ChunkRepo  docs.ChunkRepo
	Normalized docs.NormalizedChunkRepo
	Signals    docs.SignalRepo
	Entities   docs.EntityRepo
	Resolver   EntityResolver // optional
}

// Processor runs the Tier 2 batch pass: one LLM call per batch of chunks
// that normalizes text, extracts entity mentions, and emits per-chunk
// document-type signals.
type Processor struct {
	deps    Deps
	cfg     config.Config
	chunker *chunking.Chunker
}

func NewProcessor(deps Deps, cfg config.Config) (*Processor, error) {
	if deps.Log == nil || deps.LLM == nil || deps.ChunkRepo == nil ||
		deps.Normalized == nil || deps.Signals == nil || deps.Entities == nil {
		return nil, fmt.Errorf("batch: missing deps")
	}
	if cfg.Batch.BatchSize <= 0 {
		cfg.Batch.BatchSize = 3
	}
	prompts.RegisterAll()
	return &Processor{
		deps: deps,
		cfg:  cfg,
		chunker: chunking.NewChunker(deps.Log, chunking.Config{
			MaxTokensPerChunk: cfg.Chunking.MaxTokensPerChunk,
			OverlapTokens:     cfg.Chunking.OverlapTokens,
		}),
	}, nil
}

type Result struct {
	MergedText      string
	ChunkCount      int
	NormalizedCount int
	EntityCount     int
	DroppedChunkIDs []uuid.UUID
	SectionMap      map[int]domain.SectionType
	Trace           map[string]any
}

// chunkOutcome is the model's answer for one chunk after sanitization.
type chunkOutcome struct {
	NormalizedText string
	SectionType    string
	Mentions       []mention.Mention
	Signals        map[domain.DocumentType]float64
	Quality        float64
}

// ProcessPages chunks the pages, persists the chunks wholesale, then walks
// fixed-size batches sequentially through the model. Missing chunk_ids in a
// batch response get one synchronous per-chunk fallback; chunks that fail
// fallback too are dropped and the rest of the document completes.
func (p *Processor) ProcessPages(ctx context.Context, documentID uuid.UUID, pages []domain.PageData) (*Result, error) {
	log := p.deps.Log.With("service", "BatchProcessor", "document_id", documentID.String())
	out := &Result{Trace: map[string]any{}}

	ck := p.chunker.ChunkDocument(documentID, pages)
	out.ChunkCount = len(ck.Chunks)
	out.SectionMap = ck.SectionMap
	out.Trace["chunking"] = ck.Stats
	if len(ck.Chunks) == 0 {
		return out, nil
	}

	// Full replace: stable IDs land the re-insert on identical keys.
	if err := p.deps.ChunkRepo.DeleteByDocumentID(ctx, nil, documentID); err != nil {
		return out, fmt.Errorf("delete prior chunks: %w", err)
	}
	if _, err := p.deps.ChunkRepo.Create(ctx, nil, ck.Chunks); err != nil {
		return out, fmt.Errorf("persist chunks: %w", err)
	}

	priorHashes, err := p.priorContentHashes(ctx, documentID)
	if err != nil {
		log.Warn("Failed to load prior normalized rows (continuing without delta gate)", "error", err)
		priorHashes = map[uuid.UUID]string{}
	}

	var (
		merged      []string
		fallbacks   int
		deltaSkips  int
		batchCount  int
	)

	for start := 0; start < len(ck.Chunks); start += p.cfg.Batch.BatchSize {
		end := start + p.cfg.Batch.BatchSize
		if end > len(ck.Chunks) {
			end = len(ck.Chunks)
		}
		group := ck.Chunks[start:end]
		batchCount++

		outcomes, batchFallbacks := p.processBatch(ctx, log, group)
		fallbacks += batchFallbacks

		for _, chunk := range group {
			oc, ok := outcomes[chunk.ID]
			if !ok {
				log.Error("Chunk dropped after failed fallback", "chunk_id", chunk.ID.String(), "page", chunk.PageNumber)
				out.DroppedChunkIDs = append(out.DroppedChunkIDs, chunk.ID)
				continue
			}

			skipped, entities, err := p.persistChunkOutcome(ctx, documentID, chunk, oc, priorHashes)
			if err != nil {
				return out, err
			}
			if skipped {
				deltaSkips++
			}
			out.EntityCount += entities
			out.NormalizedCount++
			merged = append(merged, oc.NormalizedText)
		}
	}

	out.MergedText = strings.Join(merged, "\n\n")
	out.Trace["batches"] = batchCount
	out.Trace["fallbacks"] = fallbacks
	out.Trace["delta_skips"] = deltaSkips
	out.Trace["dropped"] = len(out.DroppedChunkIDs)

	log.Info("Batch normalization complete",
		"chunks", out.ChunkCount,
		"normalized", out.NormalizedCount,
		"entities", out.EntityCount,
		"dropped", len(out.DroppedChunkIDs),
		"fallbacks", fallbacks,
	)
	return out, nil
}

func (p *Processor) priorContentHashes(ctx context.Context, documentID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := p.deps.Normalized.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		out[row.ChunkID] = row.ContentHash
	}
	return out, nil
}

// processBatch issues the batch prompt, then reissues per-chunk for any
// chunk_id the response left out.
func (p *Processor) processBatch(ctx context.Context, log *logger.Logger, group []*domain.Chunk) (map[uuid.UUID]*chunkOutcome, int) {
	outcomes := map[uuid.UUID]*chunkOutcome{}

	type batchItem struct {
		ChunkID    string `json:"chunk_id"`
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
	}
	items := make([]batchItem, 0, len(group))
	for _, ch := range group {
		items = append(items, batchItem{ChunkID: ch.ID.String(), PageNumber: ch.PageNumber, Text: ch.Text})
	}
	payload, _ := json.Marshal(items)

	prompt, err := prompts.Build(prompts.PromptBatchNormalize, prompts.Input{
		ChunkBatchJSON:  string(payload),
		DocTypesCSV:     prompts.DocTypesCSV(),
		SectionTypesCSV: prompts.SectionTypesCSV(),
		EntityTypesCSV:  prompts.EntityTypesCSV(),
	})
	if err == nil {
		var obj map[string]any
		obj, err = p.deps.LLM.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
		if err == nil {
			for _, item := range listFromAny(obj["chunks"]) {
				id, oc := parseOutcome(item)
				if oc == nil {
					continue
				}
				if _, requested := findChunk(group, id); requested {
					outcomes[id] = oc
				}
			}
		}
	}
	if err != nil {
		log.Warn("Batch call failed, falling back per chunk", "error", err, "batch_size", len(group))
	}

	fallbacks := 0
	for _, ch := range group {
		if _, ok := outcomes[ch.ID]; ok {
			continue
		}
		fallbacks++
		oc, ferr := p.fallbackChunk(ctx, ch)
		if ferr != nil {
			log.Warn("Per-chunk fallback failed", "chunk_id", ch.ID.String(), "error", ferr)
			continue
		}
		outcomes[ch.ID] = oc
	}
	return outcomes, fallbacks
}

func (p *Processor) fallbackChunk(ctx context.Context, ch *domain.Chunk) (*chunkOutcome, error) {
	prompt, err := prompts.Build(prompts.PromptChunkNormalize, prompts.Input{
		ChunkID:         ch.ID.String(),
		ChunkText:       ch.Text,
		DocTypesCSV:     prompts.DocTypesCSV(),
		SectionTypesCSV: prompts.SectionTypesCSV(),
		EntityTypesCSV:  prompts.EntityTypesCSV(),
	})
	if err != nil {
		return nil, err
	}
	obj, err := p.deps.LLM.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		return nil, err
	}
	_, oc := parseOutcome(obj)
	if oc == nil {
		return nil, fmt.Errorf("fallback response unusable for chunk %s", ch.ID)
	}
	return oc, nil
}

// persistChunkOutcome runs the deterministic semantic pass, writes the
// normalized row and signal row, and refreshes entity mentions unless the
// content hash is unchanged from the prior run.
func (p *Processor) persistChunkOutcome(ctx context.Context, documentID uuid.UUID, chunk *domain.Chunk, oc *chunkOutcome, priorHashes map[uuid.UUID]string) (skipped bool, entityCount int, err error) {
	sem := normalize.NormalizeText(oc.NormalizedText)
	oc.NormalizedText = sem.NormalizedText

	sum := sha256.Sum256([]byte(sem.NormalizedText))
	contentHash := hex.EncodeToString(sum[:])
	unchanged := priorHashes[chunk.ID] == contentHash

	fieldsJSON, _ := json.Marshal(sem.Fields)
	entitiesJSON, _ := json.Marshal(oc.Mentions)
	row := &domain.NormalizedChunk{
		ChunkID:        chunk.ID,
		DocumentID:     documentID,
		NormalizedText: sem.NormalizedText,
		ContentHash:    contentHash,
		Fields:         datatypes.JSON(fieldsJSON),
		Entities:       datatypes.JSON(entitiesJSON),
		ModelVersion:   p.cfg.Batch.ModelVersion,
		PromptVersion:  p.cfg.Batch.PromptVersion,
		QualityScore:   oc.Quality,
	}
	if err := p.deps.Normalized.Upsert(ctx, nil, []*domain.NormalizedChunk{row}); err != nil {
		return false, 0, fmt.Errorf("persist normalized chunk: %w", err)
	}

	scoresJSON, _ := json.Marshal(oc.Signals)
	signal := &domain.ClassificationSignal{
		DocumentID: documentID,
		ChunkID:    chunk.ID,
		PageNumber: chunk.PageNumber,
		Scores:     datatypes.JSON(scoresJSON),
		Confidence: oc.Quality,
	}
	if err := p.deps.Signals.Upsert(ctx, nil, []*domain.ClassificationSignal{signal}); err != nil {
		return false, 0, fmt.Errorf("persist classification signal: %w", err)
	}

	if st := domain.MapSectionType(oc.SectionType); st != domain.SectionUnknown && string(st) != chunk.SectionType {
		if err := p.deps.ChunkRepo.UpdateSectionType(ctx, nil, chunk.ID, string(st)); err != nil {
			return false, 0, fmt.Errorf("update chunk section type: %w", err)
		}
		chunk.SectionType = string(st)
	}

	if unchanged {
		return true, 0, nil
	}

	rows := make([]*domain.Entity, 0, len(oc.Mentions))
	for _, m := range oc.Mentions {
		rows = append(rows, m.Row(documentID, chunk.ID))
	}
	if err := p.deps.Entities.DeleteByChunkIDs(ctx, nil, []uuid.UUID{chunk.ID}); err != nil {
		return false, 0, fmt.Errorf("delete prior chunk entities: %w", err)
	}
	if _, err := p.deps.Entities.Create(ctx, nil, rows); err != nil {
		return false, 0, fmt.Errorf("persist chunk entities: %w", err)
	}

	if p.deps.Resolver != nil && len(rows) > 0 {
		if err := p.deps.Resolver.ResolveChunk(ctx, documentID, chunk.ID, rows); err != nil {
			p.deps.Log.Warn("Entity resolution failed for chunk (continuing)",
				"chunk_id", chunk.ID.String(), "error", err)
		}
	}
	return false, len(rows), nil
}

func parseOutcome(v any) (uuid.UUID, *chunkOutcome) {
	m, ok := v.(map[string]any)
	if !ok {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(mention.AsString(m["chunk_id"]))
	if err != nil {
		return uuid.Nil, nil
	}
	text := strings.TrimSpace(mention.AsString(m["normalized_text"]))
	if text == "" {
		return id, nil
	}
	return id, &chunkOutcome{
		NormalizedText: text,
		SectionType:    mention.AsString(m["section_type"]),
		Mentions:       mention.FromAny(m["entities"]),
		Signals:        sanitizeSignals(m["signals"]),
		Quality:        mention.Clamp01(mention.FloatFromAny(m["quality_score"])),
	}
}

// sanitizeSignals coerces the raw signal map to floats in [0,1] over the
// complete closed type set.
func sanitizeSignals(v any) map[domain.DocumentType]float64 {
	raw, _ := v.(map[string]any)
	scores := map[domain.DocumentType]float64{}
	for key, val := range raw {
		dt, ok := domain.ParseDocumentType(key)
		if !ok {
			continue
		}
		scores[dt] = mention.Clamp01(mention.FloatFromAny(val))
	}
	return domain.CompleteScores(scores)
}

func listFromAny(v any) []any {
	items, _ := v.([]any)
	return items
}

func findChunk(group []*domain.Chunk, id uuid.UUID) (*domain.Chunk, bool) {
	for _, ch := range group {
		if ch.ID == id {
			return ch, true
		}
	}
	return nil, false
}
