package classify

import (
	"testing"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

func cfg() config.ClassificationConfig {
	return config.Default().Classification
}

func TestAggregateEmptySignals(t *testing.T) {
	res := Aggregate(nil, cfg())
	if res.ClassifiedType != domain.DocTypeCorrespondence {
		t.Fatalf("no signals must default to correspondence, got %s", res.ClassifiedType)
	}
	if res.Method != domain.ClassificationMethodDefault || res.Confidence != 0 {
		t.Fatalf("unexpected default result: %+v", res)
	}
	if len(res.AllScores) != len(domain.AllDocumentTypes()) {
		t.Fatalf("all scores must carry every type key")
	}
}

func TestAggregateTopTypeNormalizedToOne(t *testing.T) {
	signals := []ChunkSignal{
		{PageNumber: 1, Confidence: 0.9, Scores: map[domain.DocumentType]float64{domain.DocTypePolicy: 0.8, domain.DocTypeQuote: 0.2}},
		{PageNumber: 2, Confidence: 0.9, Scores: map[domain.DocumentType]float64{domain.DocTypePolicy: 0.7}},
	}
	res := Aggregate(signals, cfg())
	if res.ClassifiedType != domain.DocTypePolicy {
		t.Fatalf("expected policy, got %s", res.ClassifiedType)
	}
	if res.AllScores[domain.DocTypePolicy] != 1.0 {
		t.Fatalf("top type must normalize to 1.0, got %v", res.AllScores[domain.DocTypePolicy])
	}
	if res.Method != domain.ClassificationMethodAggregate {
		t.Fatalf("expected aggregate method, got %s", res.Method)
	}
	// Confidence stays the raw weighted mean, not the normalized 1.0.
	if res.Confidence >= 1.0 || res.Confidence <= 0 {
		t.Fatalf("confidence should be the pre-normalization mean, got %v", res.Confidence)
	}
}

func TestAggregateFloorsWeakScores(t *testing.T) {
	signals := []ChunkSignal{
		{PageNumber: 1, Scores: map[domain.DocumentType]float64{
			domain.DocTypePolicy: 0.9,
			domain.DocTypeClaim:  0.05,
		}},
	}
	res := Aggregate(signals, cfg())
	if res.AllScores[domain.DocTypeClaim] != 0 {
		t.Fatalf("scores below the floor must clamp to 0, got %v", res.AllScores[domain.DocTypeClaim])
	}
}

func TestAggregateFirstPageAndKeywordWeighting(t *testing.T) {
	// The page-1 chunk with an indicator phrase says SOV; two later plain
	// chunks say policy. Weighting must let the page-1 evidence win.
	signals := []ChunkSignal{
		{PageNumber: 1, Text: "SCHEDULE OF VALUES for all locations",
			Scores: map[domain.DocumentType]float64{domain.DocTypeSOV: 0.9, domain.DocTypePolicy: 0.2}},
		{PageNumber: 5, Scores: map[domain.DocumentType]float64{domain.DocTypePolicy: 0.5}},
		{PageNumber: 6, Scores: map[domain.DocumentType]float64{domain.DocTypePolicy: 0.5}},
	}
	res := Aggregate(signals, cfg())
	if res.ClassifiedType != domain.DocTypeSOV {
		t.Fatalf("weighted page-1 keyword evidence should win, got %s (scores %v)", res.ClassifiedType, res.AllScores)
	}
	keywords, _ := res.Details["keywords"].([]string)
	if len(keywords) == 0 {
		t.Fatalf("indicator hits must surface in details")
	}
}

func TestKeywordHitsSortedAndStable(t *testing.T) {
	text := "Schedule of Values attached; see declarations page and loss run."
	want := []string{"declarations page", "loss run", "schedule of values"}
	for i := 0; i < 20; i++ {
		hits := keywordHits(text)
		if len(hits) != len(want) {
			t.Fatalf("expected %v, got %v", want, hits)
		}
		for j := range want {
			if hits[j] != want[j] {
				t.Fatalf("hits must come back sorted every run: %v", hits)
			}
		}
	}
}

func TestKeywordMultiplierCap(t *testing.T) {
	text := "declarations page schedule of values loss run claim number"
	if m := keywordMultiplier(text); m != 2.0 {
		t.Fatalf("multiplier must cap at 2.0, got %v", m)
	}
	if m := keywordMultiplier("nothing indicative"); m != 1.0 {
		t.Fatalf("no hits must stay at 1.0, got %v", m)
	}
}
