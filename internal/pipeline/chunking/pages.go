package chunking

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

var pageMarkerRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*-{0,3}\s*page\s+(\d+)(?:\s+of\s+\d+)?\s*-{0,3}\s*$`),
	regexp.MustCompile(`(?i)^\s*\[\s*page\s+(\d+)\s*\]\s*$`),
	regexp.MustCompile(`(?i)^\s*={3,}\s*page\s+(\d+)\s*={3,}\s*$`),
}

// SplitPages splits a raw OCR dump into pages on common "Page N" markers.
// Text before the first marker (or text with no markers at all) becomes
// page 1.
func SplitPages(text string) []domain.PageData {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Form feeds are unambiguous page breaks; honor them first.
	if strings.Contains(text, "\f") {
		parts := strings.Split(text, "\f")
		out := make([]domain.PageData, 0, len(parts))
		n := 1
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			out = append(out, domain.PageData{PageNumber: n, Text: strings.TrimSpace(p)})
			n++
		}
		if len(out) > 0 {
			return out
		}
	}

	lines := strings.Split(text, "\n")
	var (
		out     []domain.PageData
		current []string
		pageNum = 1
		seen    = false
	)

	flush := func(n int) {
		body := strings.TrimSpace(strings.Join(current, "\n"))
		current = nil
		if body == "" {
			return
		}
		out = append(out, domain.PageData{PageNumber: n, Text: body})
	}

	for _, line := range lines {
		if n, ok := matchPageMarker(line); ok {
			flush(pageNum)
			pageNum = n
			seen = true
			continue
		}
		current = append(current, line)
	}
	flush(pageNum)

	if !seen && len(out) == 0 {
		return []domain.PageData{{PageNumber: 1, Text: strings.TrimSpace(text)}}
	}
	return out
}

func matchPageMarker(line string) (int, bool) {
	for _, re := range pageMarkerRes {
		if m := re.FindStringSubmatch(line); len(m) == 2 {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}
