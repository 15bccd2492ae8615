package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

// SectionBoundary locates one section across a page range.
type SectionBoundary struct {
	SectionType domain.SectionType `json:"section_type"`
	StartPage   int                `json:"start_page"`
	EndPage     int                `json:"end_page"`
	Confidence  float64            `json:"confidence"`
}

// Tier1Result is the whole-document classification: independent of and
// redundant with the per-chunk signals, bought with one extra LLM call.
type Tier1Result struct {
	DocumentType      domain.DocumentType        `json:"document_type"`
	DocumentSubtype   string                     `json:"document_subtype,omitempty"`
	Confidence        float64                    `json:"confidence"`
	SectionBoundaries []SectionBoundary          `json:"section_boundaries"`
	PageSectionMap    map[int]domain.SectionType `json:"page_section_map"`
}

// Tier1Service classifies a document from a capped prefix of its pages in a
// single LLM call.
type Tier1Service struct {
	log *logger.Logger
	llm llm.Client
	cfg config.ClassificationConfig
}

func NewTier1Service(log *logger.Logger, client llm.Client, cfg config.ClassificationConfig) (*Tier1Service, error) {
	if log == nil || client == nil {
		return nil, fmt.Errorf("tier1: missing deps")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.MaxPageChars <= 0 {
		cfg.MaxPageChars = 5000
	}
	prompts.RegisterAll()
	return &Tier1Service{log: log.With("service", "Tier1Classification"), llm: client, cfg: cfg}, nil
}

func (s *Tier1Service) ClassifyDocument(ctx context.Context, documentID uuid.UUID, pages []domain.PageData) (*Tier1Result, error) {
	if len(pages) == 0 {
		return &Tier1Result{
			DocumentType:   domain.DocTypeCorrespondence,
			PageSectionMap: map[int]domain.SectionType{},
		}, nil
	}

	prompt, err := prompts.Build(prompts.PromptClassifyDocument, prompts.Input{
		DocTypesCSV:     prompts.DocTypesCSV(),
		SectionTypesCSV: prompts.SectionTypesCSV(),
		PagesExcerpt:    s.pagesExcerpt(pages),
	})
	if err != nil {
		return nil, fmt.Errorf("build tier1 prompt: %w", err)
	}

	obj, err := s.llm.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		return nil, fmt.Errorf("tier1 classification call: %w", err)
	}

	result := s.parse(obj)
	s.log.Info("Tier 1 classification complete",
		"document_id", documentID.String(),
		"type", string(result.DocumentType),
		"confidence", result.Confidence,
		"sections", len(result.SectionBoundaries),
	)
	return result, nil
}

// pagesExcerpt renders the first MaxPages pages, each truncated to
// MaxPageChars characters.
func (s *Tier1Service) pagesExcerpt(pages []domain.PageData) string {
	var b strings.Builder
	count := 0
	for _, page := range pages {
		if count == s.cfg.MaxPages {
			break
		}
		text := page.Text
		if len(text) > s.cfg.MaxPageChars {
			text = text[:s.cfg.MaxPageChars]
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", page.PageNumber, text)
		count++
	}
	return b.String()
}

// parse tolerates partial boundary lists and off-taxonomy labels; unmapped
// section labels collapse to unknown and off-list document types to
// correspondence.
func (s *Tier1Service) parse(obj map[string]any) *Tier1Result {
	result := &Tier1Result{
		DocumentSubtype: mention.AsString(obj["document_subtype"]),
		Confidence:      mention.Clamp01(mention.FloatFromAny(obj["confidence"])),
		PageSectionMap:  map[int]domain.SectionType{},
	}

	dt, ok := domain.ParseDocumentType(mention.AsString(obj["document_type"]))
	if !ok {
		s.log.Warn("Tier 1 returned off-list document type, defaulting to correspondence",
			"raw", mention.AsString(obj["document_type"]))
		dt = domain.DocTypeCorrespondence
		result.Confidence = 0
	}
	result.DocumentType = dt

	boundaries, _ := obj["section_boundaries"].([]any)
	for _, item := range boundaries {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		start := int(mention.FloatFromAny(m["start_page"]))
		if start < 1 {
			continue
		}
		end := int(mention.FloatFromAny(m["end_page"]))
		if end < start {
			end = start
		}
		b := SectionBoundary{
			SectionType: domain.MapSectionType(mention.AsString(m["section_type"])),
			StartPage:   start,
			EndPage:     end,
			Confidence:  mention.Clamp01(mention.FloatFromAny(m["confidence"])),
		}
		result.SectionBoundaries = append(result.SectionBoundaries, b)
		for p := b.StartPage; p <= b.EndPage; p++ {
			if _, taken := result.PageSectionMap[p]; !taken {
				result.PageSectionMap[p] = b.SectionType
			}
		}
	}
	return result
}
