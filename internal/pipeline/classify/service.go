package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/docs"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

type ServiceDeps struct {
	Log            *logger.Logger
	Signals        docs.SignalRepo
	Chunks         docs.ChunkRepo
	Classification docs.ClassificationRepo
	LLM            llm.Client // optional; enables the fallback path
}

// Service turns persisted chunk signals into one DocumentClassification row.
type Service struct {
	deps     ServiceDeps
	cfg      config.ClassificationConfig
	fallback *FallbackClassifier
}

func NewService(deps ServiceDeps, cfg config.ClassificationConfig) (*Service, error) {
	if deps.Log == nil || deps.Signals == nil || deps.Chunks == nil || deps.Classification == nil {
		return nil, fmt.Errorf("classify: missing deps")
	}
	s := &Service{deps: deps, cfg: cfg}
	if deps.LLM != nil {
		s.fallback = NewFallbackClassifier(deps.Log, deps.LLM)
	}
	return s, nil
}

// Classify aggregates the document's chunk signals, invokes the fallback
// classifier when the aggregate lands below the review threshold, and
// persists the decision.
func (s *Service) Classify(ctx context.Context, documentID uuid.UUID) (*AggregateResult, error) {
	log := s.deps.Log.With("service", "ClassificationService", "document_id", documentID.String())

	signalRows, err := s.deps.Signals.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	chunks, err := s.deps.Chunks.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	textByChunk := make(map[uuid.UUID]string, len(chunks))
	for _, ch := range chunks {
		textByChunk[ch.ID] = ch.Text
	}

	signals := make([]ChunkSignal, 0, len(signalRows))
	for _, row := range signalRows {
		var raw map[string]float64
		if err := json.Unmarshal(row.Scores, &raw); err != nil {
			log.Warn("Unparseable signal scores (skipping chunk)", "chunk_id", row.ChunkID.String(), "error", err)
			continue
		}
		scores := map[domain.DocumentType]float64{}
		for key, v := range raw {
			if dt, ok := domain.ParseDocumentType(key); ok {
				scores[dt] = v
			}
		}
		signals = append(signals, ChunkSignal{
			PageNumber: row.PageNumber,
			Text:       textByChunk[row.ChunkID],
			Confidence: row.Confidence,
			Scores:     scores,
		})
	}

	result := Aggregate(signals, s.cfg)

	// Below the review threshold the fallback is mandatory. A correspondence
	// verdict is also double-checked defensively, since it is the default
	// bucket — unless the aggregate already clears the accept threshold.
	needsFallback := result.Confidence < s.cfg.ReviewThreshold
	if result.ClassifiedType == domain.DocTypeCorrespondence &&
		result.Confidence < s.cfg.AcceptThreshold {
		needsFallback = true
	}

	if result.Method == domain.ClassificationMethodAggregate &&
		needsFallback &&
		s.fallback != nil {
		keywords, _ := result.Details["keywords"].([]string)
		dt, conf := s.fallback.Classify(ctx, result.AllScores, keywords, s.topChunkTexts(signals, 3))
		result.ClassifiedType = dt
		result.Confidence = conf
		result.Method = domain.ClassificationMethodFallback
	}

	if err := s.persist(ctx, documentID, &result); err != nil {
		return nil, err
	}

	log.Info("Document classified",
		"type", string(result.ClassifiedType),
		"confidence", result.Confidence,
		"method", result.Method,
	)
	return &result, nil
}

// topChunkTexts picks the highest-weight chunk texts for the fallback prompt.
func (s *Service) topChunkTexts(signals []ChunkSignal, n int) []string {
	sorted := make([]ChunkSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return chunkWeight(sorted[i]) > chunkWeight(sorted[j])
	})
	var out []string
	for _, sig := range sorted {
		if len(out) == n {
			break
		}
		if sig.Text != "" {
			out = append(out, sig.Text)
		}
	}
	return out
}

func (s *Service) persist(ctx context.Context, documentID uuid.UUID, result *AggregateResult) error {
	allScores, _ := json.Marshal(result.AllScores)
	details, _ := json.Marshal(result.Details)
	row := &domain.DocumentClassification{
		DocumentID:     documentID,
		ClassifiedType: string(result.ClassifiedType),
		Confidence:     result.Confidence,
		AllScores:      datatypes.JSON(allScores),
		Method:         result.Method,
		Details:        datatypes.JSON(details),
	}
	if err := s.deps.Classification.Upsert(ctx, nil, row); err != nil {
		return fmt.Errorf("persist classification: %w", err)
	}
	return nil
}
