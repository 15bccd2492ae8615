package chunking

import (
	"sort"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

// SuperChunk groups a document's chunks sharing one canonical section type,
// carrying the static processing policy for that section.
type SuperChunk struct {
	SectionType domain.SectionType
	Chunks      []*domain.Chunk
	TotalTokens int
	PageStart   int
	PageEnd     int
	Priority    int
	RequiresLLM bool
	TableOnly   bool
	MaxTokens   int
}

// Text joins member chunk texts in (page, index) order.
func (s *SuperChunk) Text() string {
	out := ""
	for i, ch := range s.Chunks {
		if i > 0 {
			out += "\n\n"
		}
		out += ch.Text
	}
	return out
}

// BuildSuperChunks groups chunks by section type, ordering members by
// (page_number, chunk_index) and super-chunks by processing priority.
func BuildSuperChunks(chunks []*domain.Chunk) []*SuperChunk {
	byType := map[domain.SectionType]*SuperChunk{}

	for _, ch := range chunks {
		st := domain.MapSectionType(ch.SectionType)
		sc, ok := byType[st]
		if !ok {
			policy := domain.PolicyFor(st)
			sc = &SuperChunk{
				SectionType: st,
				PageStart:   ch.PageNumber,
				PageEnd:     ch.PageNumber,
				Priority:    policy.Priority,
				RequiresLLM: policy.RequiresLLM,
				TableOnly:   policy.TableOnly,
				MaxTokens:   policy.MaxTokens,
			}
			byType[st] = sc
		}
		sc.Chunks = append(sc.Chunks, ch)
		sc.TotalTokens += ch.TokenCount
		if ch.PageNumber < sc.PageStart {
			sc.PageStart = ch.PageNumber
		}
		if ch.PageNumber > sc.PageEnd {
			sc.PageEnd = ch.PageNumber
		}
	}

	out := make([]*SuperChunk, 0, len(byType))
	for _, sc := range byType {
		sort.Slice(sc.Chunks, func(i, j int) bool {
			if sc.Chunks[i].PageNumber != sc.Chunks[j].PageNumber {
				return sc.Chunks[i].PageNumber < sc.Chunks[j].PageNumber
			}
			return sc.Chunks[i].ChunkIndex < sc.Chunks[j].ChunkIndex
		})
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].SectionType < out[j].SectionType
	})
	return out
}
