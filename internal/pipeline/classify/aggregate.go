package classify

import (
	"sort"
	"strings"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

// ChunkSignal is one chunk's contribution to the document-level decision.
type ChunkSignal struct {
	PageNumber int
	Text       string
	Confidence float64
	Scores     map[domain.DocumentType]float64
}

// AggregateResult is the weighted-mean decision over all chunk signals.
type AggregateResult struct {
	ClassifiedType domain.DocumentType
	Confidence     float64
	AllScores      map[domain.DocumentType]float64
	Method         string
	Details        map[string]any
}

// indicatorPhrases boost the weight of chunks carrying strong type evidence;
// they also feed the fallback prompt's keyword list.
var indicatorPhrases = map[string]domain.DocumentType{
	"declarations page":    DocTypeDefaultFor("policy"),
	"insuring agreement":   DocTypeDefaultFor("policy"),
	"schedule of values":   DocTypeDefaultFor("SOV"),
	"statement of values":  DocTypeDefaultFor("SOV"),
	"loss run":             DocTypeDefaultFor("loss_run"),
	"loss history":         DocTypeDefaultFor("loss_run"),
	"claim number":         DocTypeDefaultFor("claim"),
	"date of loss":         DocTypeDefaultFor("claim"),
	"premium audit":        DocTypeDefaultFor("audit"),
	"endorsement":          DocTypeDefaultFor("endorsement"),
	"this endorsement":     DocTypeDefaultFor("endorsement"),
	"quotation":            DocTypeDefaultFor("quote"),
	"premium quote":        DocTypeDefaultFor("quote"),
	"invoice number":       DocTypeDefaultFor("invoice"),
	"amount due":           DocTypeDefaultFor("invoice"),
	"balance sheet":        DocTypeDefaultFor("financials"),
	"income statement":     DocTypeDefaultFor("financials"),
	"submission":           DocTypeDefaultFor("submission"),
	"proposal":             DocTypeDefaultFor("proposal"),
}

func DocTypeDefaultFor(raw string) domain.DocumentType {
	dt, ok := domain.ParseDocumentType(raw)
	if !ok {
		return domain.DocTypeCorrespondence
	}
	return dt
}

// keywordHits returns the matched indicator phrases in text, lowercased and
// sorted so Details output and the fallback prompt are reproducible.
func keywordHits(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for phrase := range indicatorPhrases {
		if strings.Contains(lower, phrase) {
			hits = append(hits, phrase)
		}
	}
	sort.Strings(hits)
	return hits
}

// keywordMultiplier scales chunk weight by indicator hits, capped at 2.0.
func keywordMultiplier(text string) float64 {
	m := 1.0 + 0.5*float64(len(keywordHits(text)))
	if m > 2.0 {
		m = 2.0
	}
	return m
}

func chunkWeight(sig ChunkSignal) float64 {
	w := 1.0
	if sig.PageNumber == 1 {
		w *= 1.5
	}
	w *= keywordMultiplier(sig.Text)
	// A chunk with no stated confidence still counts at full weight.
	if sig.Confidence > 0 {
		w *= sig.Confidence
	}
	return w
}

// Aggregate computes the weighted mean score per document type, normalizes by
// the maximum so the top type lands at 1.0, floors sub-threshold scores to 0,
// and picks the argmax. Confidence is the winner's pre-normalization weighted
// mean, which is what the review threshold compares against.
func Aggregate(signals []ChunkSignal, cfg config.ClassificationConfig) AggregateResult {
	if len(signals) == 0 {
		return AggregateResult{
			ClassifiedType: domain.DocTypeCorrespondence,
			Confidence:     0,
			AllScores:      domain.CompleteScores(nil),
			Method:         domain.ClassificationMethodDefault,
			Details:        map[string]any{"reason": "no signals"},
		}
	}

	sums := map[domain.DocumentType]float64{}
	totalWeight := 0.0
	var allKeywords []string
	for _, sig := range signals {
		w := chunkWeight(sig)
		totalWeight += w
		for dt, score := range sig.Scores {
			sums[dt] += score * w
		}
		allKeywords = append(allKeywords, keywordHits(sig.Text)...)
	}

	means := map[domain.DocumentType]float64{}
	maxMean := 0.0
	for _, dt := range domain.AllDocumentTypes() {
		if totalWeight > 0 {
			means[dt] = sums[dt] / totalWeight
		}
		if means[dt] > maxMean {
			maxMean = means[dt]
		}
	}

	normalized := map[domain.DocumentType]float64{}
	for dt, mean := range means {
		v := 0.0
		if maxMean > 0 {
			v = mean / maxMean
		}
		if v < cfg.MinConfidence {
			v = 0
		}
		normalized[dt] = v
	}

	winner := domain.DocTypeCorrespondence
	best := -1.0
	for _, dt := range domain.AllDocumentTypes() {
		if normalized[dt] > best {
			best = normalized[dt]
			winner = dt
		}
	}

	return AggregateResult{
		ClassifiedType: winner,
		Confidence:     means[winner],
		AllScores:      domain.CompleteScores(normalized),
		Method:         domain.ClassificationMethodAggregate,
		Details: map[string]any{
			"total_weight": totalWeight,
			"max_mean":     maxMean,
			"keywords":     dedupe(allKeywords),
			"chunks":       len(signals),
		},
	}
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
