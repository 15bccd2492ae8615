package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm/jsonx"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// FallbackClassifier resolves low-confidence aggregates with one closed-list
// LLM call. Any parse failure or off-list answer lands on correspondence.
type FallbackClassifier struct {
	log *logger.Logger
	llm llm.Client
}

func NewFallbackClassifier(log *logger.Logger, client llm.Client) *FallbackClassifier {
	prompts.RegisterAll()
	return &FallbackClassifier{log: log.With("service", "FallbackClassifier"), llm: client}
}

// Classify asks the model to pick one of the twelve types given the
// aggregated scores, strongest keywords, and representative chunk texts.
func (f *FallbackClassifier) Classify(ctx context.Context, scores map[domain.DocumentType]float64, keywords []string, topChunks []string) (domain.DocumentType, float64) {
	scoresJSON, _ := json.Marshal(scores)

	excerpt := strings.Join(topChunks, "\n---\n")
	if len(excerpt) > 6000 {
		excerpt = excerpt[:6000]
	}

	prompt, err := prompts.Build(prompts.PromptClassifyFallback, prompts.Input{
		DocTypesCSV:   prompts.DocTypesCSV(),
		ScoresJSON:    string(scoresJSON),
		KeywordsCSV:   strings.Join(keywords, ", "),
		TopChunksText: excerpt,
	})
	if err != nil {
		f.log.Warn("Fallback prompt build failed, defaulting to correspondence", "error", err)
		return domain.DocTypeCorrespondence, 0
	}

	obj, err := f.llm.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		if dt, ok := f.rescueType(err); ok {
			return dt, 0
		}
		f.log.Warn("Fallback classification call failed, defaulting to correspondence", "error", err)
		return domain.DocTypeCorrespondence, 0
	}

	dt, ok := domain.ParseDocumentType(mention.AsString(obj["document_type"]))
	if !ok {
		f.log.Warn("Fallback returned off-list type, defaulting to correspondence",
			"raw", mention.AsString(obj["document_type"]))
		return domain.DocTypeCorrespondence, 0
	}
	return dt, mention.Clamp01(mention.FloatFromAny(obj["confidence"]))
}

// rescueType pulls document_type out of a response that never parsed as an
// object. The rescued answer keeps zero confidence so downstream consumers
// see it was salvaged, not trusted.
func (f *FallbackClassifier) rescueType(err error) (domain.DocumentType, bool) {
	var perr *jsonx.ParseError
	if !errors.As(err, &perr) {
		return "", false
	}
	raw, ok := jsonx.ExtractStringField(perr.Raw, "document_type")
	if !ok {
		return "", false
	}
	dt, ok := domain.ParseDocumentType(raw)
	if !ok {
		return "", false
	}
	f.log.Warn("Fallback response unparseable, rescued document_type field", "type", string(dt))
	return dt, true
}

