package mention

import (
	"fmt"
	"strconv"
	"strings"
)

// AsString renders scalar model output as a trimmed string.
func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// FloatFromAny coerces model output to a float64. Strings may carry percent
// signs or commas; anything unparseable is 0.
func FloatFromAny(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		percent := strings.HasSuffix(s, "%")
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		if percent {
			return f / 100
		}
		return f
	default:
		return 0
	}
}

// Clamp01 bounds a score to [0,1]. Values that look like percentages
// (1 < v <= 100) are scaled down first.
func Clamp01(v float64) float64 {
	if v > 1 && v <= 100 {
		v = v / 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StringSliceFromAny flattens a model-reported array to trimmed strings.
func StringSliceFromAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := AsString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
