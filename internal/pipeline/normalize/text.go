package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result pairs the rewritten text with the structured values found in it.
type Result struct {
	NormalizedText string  `json:"normalized_text"`
	Fields         []Field `json:"fields"`
}

// datePatterns and currencyPatterns are matched in order; for overlapping
// spans the earlier pattern wins.
var datePatterns = []*regexp.Regexp{
	dayMonthYearRe,
	monthDayYearRe,
	numericMDYRe,
}

var currencyPatterns = []*regexp.Regexp{
	symbolAmountRe,
	codeAmountRe,
	amountCodeRe,
	indianUnitRe,
	spelledAmountRe,
}

// NormalizeText rewrites every recognizable date and monetary span in text to
// its canonical form and returns the structured extractions alongside.
// Unparseable spans are left untouched. Offsets in the returned fields refer
// to the normalized output text.
func NormalizeText(text string) Result {
	out, fields := rewrite(text, datePatterns, nil, func(raw string) (string, Field, bool) {
		iso, ok := NormalizeDate(raw)
		if !ok {
			return "", Field{}, false
		}
		return iso, Field{Kind: "date", Raw: raw, Value: iso}, true
	})

	out, fields = rewrite(out, currencyPatterns, fields, func(raw string) (string, Field, bool) {
		amt, ok := NormalizeCurrency(raw)
		if !ok {
			return "", Field{}, false
		}
		return fmt.Sprintf("%.2f %s", amt.Amount, amt.Currency),
			Field{Kind: "currency", Raw: raw, Value: amt}, true
	})

	out, fields = rewrite(out, []*regexp.Regexp{policyNumberRe}, fields, func(raw string) (string, Field, bool) {
		m := policyNumberRe.FindStringSubmatch(raw)
		if m == nil {
			return "", Field{}, false
		}
		normalized := NormalizePolicyNumber(m[1])
		if normalized == "" {
			return "", Field{}, false
		}
		return strings.Replace(raw, m[1], normalized, 1),
			Field{Kind: "policy_number", Raw: m[1], Value: normalized}, true
	})

	for _, m := range emailRe.FindAllStringIndex(out, -1) {
		fields = append(fields, Field{
			Kind:  "email",
			Raw:   out[m[0]:m[1]],
			Value: strings.ToLower(out[m[0]:m[1]]),
			Start: m[0],
			End:   m[1],
		})
	}

	return Result{NormalizedText: out, Fields: fields}
}

type span struct {
	start, end int
}

// collectSpans gathers matches from every pattern over the same input,
// dropping any match overlapping an earlier-pattern match.
func collectSpans(text string, patterns []*regexp.Regexp) []span {
	var spans []span
	overlaps := func(s span) bool {
		for _, t := range spans {
			if s.start < t.end && t.start < s.end {
				return true
			}
		}
		return false
	}
	for _, re := range patterns {
		for _, m := range re.FindAllStringIndex(text, -1) {
			s := span{start: m[0], end: m[1]}
			if !overlaps(s) {
				spans = append(spans, s)
			}
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

// rewrite replaces each matched span in text through fn in one pass,
// appending a Field per successful replacement with offsets into the
// rewritten string.
func rewrite(text string, patterns []*regexp.Regexp, fields []Field, fn func(raw string) (string, Field, bool)) (string, []Field) {
	spans := collectSpans(text, patterns)
	if len(spans) == 0 {
		return text, fields
	}

	var b strings.Builder
	prev := 0
	for _, s := range spans {
		raw := text[s.start:s.end]
		replacement, field, ok := fn(raw)
		if !ok {
			continue
		}
		b.WriteString(text[prev:s.start])
		field.Start = b.Len()
		b.WriteString(replacement)
		field.End = b.Len()
		fields = append(fields, field)
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String(), fields
}
