package tokens

import (
	"regexp"
	"strings"
)

// Estimator is a deterministic heuristic token counter. It is not exact, but
// it is monotonic in text length, which is what the splitting logic needs.
type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

const (
	charsPerToken    = 4.0
	tokensPerWord    = 1.3
	domainAdjustment = 1.1
)

// CountTokens averages a character-based and a word-based estimate, then
// applies a fixed adjustment for insurance vocabulary density.
func (e *Estimator) CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	charEstimate := float64(len(text)) / charsPerToken
	wordEstimate := float64(len(strings.Fields(text))) * tokensPerWord
	estimate := (charEstimate + wordEstimate) / 2.0 * domainAdjustment
	if estimate < 1 {
		return 1
	}
	return int(estimate)
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

// SplitByTokenLimit splits text so every returned piece estimates at or below
// limit. Splitting prefers line groups, then sentence boundaries; a single
// unsplittable sentence is returned whole. Trailing lines up to overlap
// tokens carry into the next piece for context continuity.
func (e *Estimator) SplitByTokenLimit(text string, limit int, overlap int) []string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if limit <= 0 || e.CountTokens(text) <= limit {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}

	var (
		out     []string
		current []string
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		piece := strings.Join(current, "\n")
		out = append(out, piece)

		// Carry trailing lines into the next piece.
		carry := []string{}
		carryTokens := 0
		for i := len(current) - 1; i >= 0 && carryTokens < overlap; i-- {
			lineTokens := e.CountTokens(current[i])
			if carryTokens+lineTokens > overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryTokens += lineTokens
		}
		current = carry
	}

	// The budget is checked against the joined piece, not a running per-line
	// sum: the joining newlines count toward the estimate too.
	fits := func(line string) bool {
		joined := strings.Join(append(current[:len(current):len(current)], line), "\n")
		return e.CountTokens(joined) <= limit
	}

	for _, line := range strings.Split(text, "\n") {
		if e.CountTokens(line) > limit {
			if len(current) > 0 {
				out = append(out, strings.Join(current, "\n"))
				current = nil
			}
			out = append(out, e.splitBySentences(line, limit)...)
			continue
		}

		if len(current) > 0 && !fits(line) {
			flush()
			if !fits(line) {
				// Overlap carry plus this line exceeds the budget; drop
				// the carry.
				current = nil
			}
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, "\n"))
	}

	cleaned := out[:0]
	for _, p := range out {
		if strings.TrimSpace(p) != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// splitBySentences handles a single line too long for the budget. A sentence
// that alone exceeds the limit is returned whole.
func (e *Estimator) splitBySentences(line string, limit int) []string {
	marked := sentenceEndRe.ReplaceAllString(line, "$1\x00")
	sentences := strings.Split(marked, "\x00")

	var (
		out     []string
		current []string
	)
	for _, s := range sentences {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if e.CountTokens(s) > limit {
			if len(current) > 0 {
				out = append(out, strings.Join(current, " "))
				current = nil
			}
			out = append(out, s)
			continue
		}
		joined := strings.Join(append(current[:len(current):len(current)], s), " ")
		if e.CountTokens(joined) > limit && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
		current = append(current, s)
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}
