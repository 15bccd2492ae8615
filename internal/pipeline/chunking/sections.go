package chunking

import (
	"regexp"
	"strings"

	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
)

type sectionBlock struct {
	Type   domain.SectionType
	Header string
	Text   string
}

var knownHeaderRe = regexp.MustCompile(`(?i)^\s*(?:section\s+[ivx\d]+[.:]?\s*)?(declarations?(?:\s+page)?|definitions?|coverages?(?:\s+(?:summary|parts))?|conditions|general\s+conditions|exclusions?|endorsements?|schedule\s+of\s+values|statement\s+of\s+values|loss\s+runs?|loss\s+history|insuring\s+agreements?|premium\s+(?:summary|schedule)|financial\s+statements?)\s*:?\s*$`)

var markdownHeaderRe = regexp.MustCompile(`^#{1,3}\s+(.+?)\s*#*\s*$`)

// allCapsHeader reports whether a line looks like an ALL-CAPS section header:
// short, mostly letters, no sentence punctuation.
func allCapsHeader(line string) bool {
	s := strings.TrimSpace(line)
	if len(s) < 4 || len(s) > 60 {
		return false
	}
	if strings.ContainsAny(s, ".;!?") {
		return false
	}
	letters := 0
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 4
}

// scanSections walks page lines against an ordered pattern list; the first
// matching pattern wins. Unmatched lines accumulate into the current section,
// Unknown until a header is seen.
func scanSections(pageText string) []sectionBlock {
	var (
		blocks  []sectionBlock
		current = sectionBlock{Type: domain.SectionUnknown}
		lines   []string
	)

	flush := func() {
		current.Text = strings.TrimSpace(strings.Join(lines, "\n"))
		lines = nil
		if current.Text != "" || current.Header != "" {
			blocks = append(blocks, current)
		}
	}

	startSection := func(header string) {
		flush()
		current = sectionBlock{
			Type:   domain.MapSectionType(header),
			Header: strings.TrimSpace(header),
		}
	}

	for _, line := range strings.Split(pageText, "\n") {
		switch {
		case knownHeaderRe.MatchString(line):
			m := knownHeaderRe.FindStringSubmatch(line)
			startSection(m[1])
			lines = append(lines, line)
		case markdownHeaderRe.MatchString(line):
			m := markdownHeaderRe.FindStringSubmatch(line)
			startSection(m[1])
			lines = append(lines, line)
		case allCapsHeader(line):
			startSection(strings.TrimSpace(line))
			lines = append(lines, line)
		default:
			lines = append(lines, line)
		}
	}
	flush()

	if len(blocks) == 0 {
		return []sectionBlock{{Type: domain.SectionUnknown, Text: strings.TrimSpace(pageText)}}
	}
	return blocks
}
