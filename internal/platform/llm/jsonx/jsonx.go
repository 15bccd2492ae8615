package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy names which fallback recovered the object, so call sites can log
// how far from well-formed the model output was.
type Strategy string

const (
	StrategyDirect      Strategy = "direct"
	StrategyFenced      Strategy = "fenced"
	StrategyBraceWindow Strategy = "brace_window"
	StrategyNone        Strategy = "none"
)

var fenceRe = regexp.MustCompile("```(?:json)?\\s*((?s:.*?))\\s*```")

// ParseError carries the raw model output past the object-parse chain so a
// caller can still attempt ExtractStringField on it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v; preview=%s", e.Err, Preview(e.Raw, 400))
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseObject parses raw LLM output into a JSON object, trying a fixed chain
// of strategies: direct parse, fenced-block extraction, then the widest
// brace-delimited window. Malformed output is never retried upstream; it
// degrades here or fails.
func ParseObject(raw string) (map[string]any, Strategy, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, StrategyNone, fmt.Errorf("empty response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, StrategyDirect, nil
	}

	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &obj); err == nil {
			return obj, StrategyFenced, nil
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil {
			return obj, StrategyBraceWindow, nil
		}
	}

	return nil, StrategyNone, fmt.Errorf("no parseable JSON object")
}

// ExtractStringField is the last-resort rescue for a single field out of
// unparseable output.
func ExtractStringField(raw string, field string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(raw)
	if len(m) != 2 {
		return "", false
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &out); err != nil {
		return "", false
	}
	return out, true
}

// Preview truncates raw output for log diagnostics.
func Preview(raw string, n int) string {
	s := strings.TrimSpace(raw)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
