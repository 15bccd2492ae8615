package chunking

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/tokens"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

type Config struct {
	MaxTokensPerChunk int
	OverlapTokens     int
}

// Result is the full chunking output for one document.
type Result struct {
	Chunks      []*domain.Chunk
	SuperChunks []*SuperChunk
	SectionMap  map[int]domain.SectionType
	Stats       Stats
}

type Stats struct {
	Pages         int `json:"pages"`
	Chunks        int `json:"chunks"`
	SuperChunks   int `json:"super_chunks"`
	TotalTokens   int `json:"total_tokens"`
	SplitChunks   int `json:"split_chunks"`
	EmptySections int `json:"empty_sections"`
}

type Chunker struct {
	log *logger.Logger
	est *tokens.Estimator
	cfg Config
}

func NewChunker(log *logger.Logger, cfg Config) *Chunker {
	if cfg.MaxTokensPerChunk <= 0 {
		cfg.MaxTokensPerChunk = 2000
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	return &Chunker{
		log: log.With("service", "Chunker"),
		est: tokens.NewEstimator(),
		cfg: cfg,
	}
}

// ChunkDocument splits OCR pages into section-aware, token-budgeted chunks and
// groups them into section super-chunks. Empty input yields an empty result.
func (c *Chunker) ChunkDocument(documentID uuid.UUID, pages []domain.PageData) Result {
	res := Result{SectionMap: map[int]domain.SectionType{}}
	if len(pages) == 0 {
		return res
	}

	now := time.Now().UTC()

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		res.Stats.Pages++

		sections := scanSections(page.Text)
		chunkIndex := nextChunkIndex(res.Chunks, page.PageNumber)

		for _, sec := range sections {
			if strings.TrimSpace(sec.Text) == "" {
				res.Stats.EmptySections++
				continue
			}

			pieces := c.est.SplitByTokenLimit(sec.Text, c.cfg.MaxTokensPerChunk, c.cfg.OverlapTokens)
			if len(pieces) > 1 {
				res.Stats.SplitChunks += len(pieces)
			}

			for _, piece := range pieces {
				tokenCount := c.est.CountTokens(piece)
				meta, _ := json.Marshal(map[string]any{
					"section_header": sec.Header,
				})
				ch := &domain.Chunk{
					ID:          domain.StableChunkID(documentID, page.PageNumber, chunkIndex),
					DocumentID:  documentID,
					PageNumber:  page.PageNumber,
					ChunkIndex:  chunkIndex,
					SectionType: string(sec.Type),
					Text:        piece,
					TokenCount:  tokenCount,
					Metadata:    datatypes.JSON(meta),
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				res.Chunks = append(res.Chunks, ch)
				res.Stats.TotalTokens += tokenCount
				chunkIndex++
			}
		}

		if sec := dominantSection(sections); sec != domain.SectionUnknown {
			res.SectionMap[page.PageNumber] = sec
		}
	}

	res.Stats.Chunks = len(res.Chunks)
	res.SuperChunks = BuildSuperChunks(res.Chunks)
	res.Stats.SuperChunks = len(res.SuperChunks)

	c.log.Debug("Chunked document",
		"document_id", documentID.String(),
		"pages", res.Stats.Pages,
		"chunks", res.Stats.Chunks,
		"super_chunks", res.Stats.SuperChunks,
		"total_tokens", res.Stats.TotalTokens,
	)
	return res
}

func nextChunkIndex(chunks []*domain.Chunk, page int) int {
	max := -1
	for _, ch := range chunks {
		if ch.PageNumber == page && ch.ChunkIndex > max {
			max = ch.ChunkIndex
		}
	}
	return max + 1
}

// dominantSection picks the section covering the most text on a page.
func dominantSection(sections []sectionBlock) domain.SectionType {
	best := domain.SectionUnknown
	bestLen := 0
	for _, s := range sections {
		if s.Type == domain.SectionUnknown {
			continue
		}
		if len(s.Text) > bestLen {
			best = s.Type
			bestLen = len(s.Text)
		}
	}
	return best
}
