package validation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/normalize"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/llm"
	"github.com/Shreekar11/insura-ai-sub003/internal/platform/logger"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one cross-section inconsistency.
type Issue struct {
	IssueType        string   `json:"issue_type"`
	Severity         Severity `json:"severity"`
	FieldName        string   `json:"field_name"`
	SectionsInvolved []string `json:"sections_involved,omitempty"`
	ValuesFound      []any    `json:"values_found,omitempty"`
	RecommendedValue any      `json:"recommended_value,omitempty"`
	Message          string   `json:"message"`
}

// ReconciledValue is the canonical value chosen for a field that appears in
// more than one section.
type ReconciledValue struct {
	FieldName      string         `json:"field_name"`
	CanonicalValue any            `json:"canonical_value"`
	SourceSections []string       `json:"source_sections,omitempty"`
	Confidence     float64        `json:"confidence"`
	OriginalValues map[string]any `json:"original_values,omitempty"`
}

// Result is the Tier 3 output attached to the document's extraction report.
type Result struct {
	IsValid          bool              `json:"is_valid"`
	Issues           []Issue           `json:"issues"`
	ReconciledValues []ReconciledValue `json:"reconciled_values"`
	Summary          map[string]int    `json:"summary"`
}

// criticalFields maps each always-checked field to the severity of a
// cross-section disagreement. Only a policy number mismatch makes the
// document unusable.
var criticalFields = []struct {
	name     string
	severity Severity
}{
	{"policy_number", SeverityError},
	{"insured_name", SeverityWarning},
	{"carrier_name", SeverityWarning},
	{"effective_date", SeverityWarning},
	{"expiration_date", SeverityWarning},
}

// sectionPriority breaks ties between disagreeing sections. Lower wins;
// unlisted sections fall back to first-seen order.
var sectionPriority = map[domain.SectionType]int{
	domain.SectionDeclarations:      1,
	domain.SectionCoverages:         2,
	domain.SectionInsuringAgreement: 3,
	domain.SectionEndorsements:      4,
}

// Validator reconciles field values extracted independently per section.
// State-free; one Validate call per document run.
type Validator struct {
	log *logger.Logger
	llm llm.Client // optional conflict escalation
	cfg config.ValidationConfig
}

func NewValidator(log *logger.Logger, llmClient llm.Client, cfg config.ValidationConfig) (*Validator, error) {
	if log == nil {
		return nil, fmt.Errorf("validation: missing logger")
	}
	if cfg.PremiumTolerance <= 0 {
		cfg.PremiumTolerance = 0.05
	}
	prompts.RegisterAll()
	return &Validator{
		log: log.With("service", "CrossSectionValidator"),
		llm: llmClient,
		cfg: cfg,
	}, nil
}

// sectionValue is one field occurrence within one section.
type sectionValue struct {
	section domain.SectionType
	value   any
}

// Validate runs the rule checks over the per-section extraction results and
// optionally escalates found conflicts to the LLM.
func (v *Validator) Validate(ctx context.Context, results []extraction.SectionResult) (*Result, error) {
	fields := collectFields(results)

	res := &Result{}
	for _, cf := range criticalFields {
		v.checkCritical(res, fields, cf.name, cf.severity)
	}
	v.checkDateOrder(res)
	v.checkPremiumAlignment(res, results, fields)

	if v.cfg.UseLLMForConflicts && v.llm != nil && len(res.Issues) > 0 {
		if err := v.escalateConflicts(ctx, results, res); err != nil {
			v.log.Warn("LLM conflict escalation failed (continuing with rule-based result)", "error", err)
		}
	}

	res.IsValid = true
	res.Summary = map[string]int{}
	for _, issue := range res.Issues {
		res.Summary[string(issue.Severity)]++
		if issue.Severity == SeverityError {
			res.IsValid = false
		}
	}
	return res, nil
}

// collectFields flattens every section's extracted data into dotted paths
// and indexes occurrences by terminal field name.
func collectFields(results []extraction.SectionResult) map[string][]sectionValue {
	out := map[string][]sectionValue{}
	for _, sr := range results {
		flat := map[string]any{}
		flatten("", sr.ExtractedData, flat)

		paths := make([]string, 0, len(flat))
		for p := range flat {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		seen := map[string]struct{}{}
		for _, path := range paths {
			value := flat[path]
			if value == nil || mention.AsString(value) == "" {
				continue
			}
			name := path
			if i := strings.LastIndex(path, "."); i >= 0 {
				name = path[i+1:]
			}
			// one occurrence per (section, field name); lists would
			// otherwise drown the scalar declarations values
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out[name] = append(out[name], sectionValue{section: sr.SectionType, value: value})
		}
	}
	return out
}

func flatten(prefix string, v any, out map[string]any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			flatten(p, child, out)
		}
	case []any:
		for i, child := range t {
			flatten(fmt.Sprintf("%s.%d", prefix, i), child, out)
		}
	default:
		out[prefix] = v
	}
}

// checkCritical compares a critical field's values across sections, emits an
// issue on disagreement, and records the reconciled value either way.
func (v *Validator) checkCritical(res *Result, fields map[string][]sectionValue, name string, severity Severity) {
	occ := fields[name]
	if len(occ) == 0 {
		return
	}

	distinct := map[string]sectionValue{}
	var order []string
	sections := make([]string, 0, len(occ))
	original := map[string]any{}
	for _, sv := range occ {
		sections = append(sections, string(sv.section))
		original[string(sv.section)] = sv.value
		key := comparableValue(name, sv.value)
		if _, ok := distinct[key]; !ok {
			distinct[key] = sv
			order = append(order, key)
		}
	}

	winner := occ[0]
	for _, sv := range occ[1:] {
		if priorityOf(sv.section) < priorityOf(winner.section) {
			winner = sv
		}
	}

	if len(distinct) > 1 {
		values := make([]any, 0, len(order))
		for _, key := range order {
			values = append(values, distinct[key].value)
		}
		res.Issues = append(res.Issues, Issue{
			IssueType:        "cross_section_mismatch",
			Severity:         severity,
			FieldName:        name,
			SectionsInvolved: sections,
			ValuesFound:      values,
			RecommendedValue: winner.value,
			Message: fmt.Sprintf("%s disagrees across sections %s; using value from %s",
				name, strings.Join(sections, ", "), winner.section),
		})
	}

	confidence := 1.0
	if len(distinct) > 1 {
		confidence = 0.6
	}
	res.ReconciledValues = append(res.ReconciledValues, ReconciledValue{
		FieldName:      name,
		CanonicalValue: winner.value,
		SourceSections: sections,
		Confidence:     confidence,
		OriginalValues: original,
	})
}

func priorityOf(s domain.SectionType) int {
	if p, ok := sectionPriority[s]; ok {
		return p
	}
	return 100
}

// comparableValue normalizes a raw field value for equality. Dates collapse
// to ISO form so "01/15/2024" and "2024-01-15" do not count as a conflict.
func comparableValue(name string, v any) string {
	s := strings.TrimSpace(mention.AsString(v))
	if strings.HasSuffix(name, "_date") {
		if iso, ok := normalize.NormalizeDate(s); ok {
			return iso
		}
	}
	return strings.ToLower(s)
}

// checkDateOrder verifies effective < expiration using the already
// reconciled values.
func (v *Validator) checkDateOrder(res *Result) {
	var effective, expiration string
	for _, rv := range res.ReconciledValues {
		s := mention.AsString(rv.CanonicalValue)
		if iso, ok := normalize.NormalizeDate(s); ok {
			s = iso
		}
		switch rv.FieldName {
		case "effective_date":
			effective = s
		case "expiration_date":
			expiration = s
		}
	}
	if effective == "" || expiration == "" {
		return
	}
	from, err1 := time.Parse("2006-01-02", effective)
	to, err2 := time.Parse("2006-01-02", expiration)
	if err1 != nil || err2 != nil {
		return
	}
	if !from.Before(to) {
		res.Issues = append(res.Issues, Issue{
			IssueType:   "date_order",
			Severity:    SeverityError,
			FieldName:   "effective_date",
			ValuesFound: []any{effective, expiration},
			Message:     fmt.Sprintf("effective_date %s is not before expiration_date %s", effective, expiration),
		})
	}
}

// checkPremiumAlignment compares the declarations total premium against the
// summed per-coverage premiums within relative tolerance.
func (v *Validator) checkPremiumAlignment(res *Result, results []extraction.SectionResult, fields map[string][]sectionValue) {
	var total float64
	found := false
	for _, sv := range fields["total_premium"] {
		if sv.section == domain.SectionDeclarations {
			total = parseAmount(sv.value)
			found = total > 0
			break
		}
	}
	if !found {
		return
	}

	var sum float64
	counted := 0
	for _, sr := range results {
		if sr.SectionType != domain.SectionCoverages {
			continue
		}
		items, _ := sr.ExtractedData["coverages"].([]any)
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if amt := parseAmount(m["premium_amount"]); amt > 0 {
				sum += amt
				counted++
			}
		}
	}
	if counted == 0 {
		return
	}

	if math.Abs(total-sum)/total > v.cfg.PremiumTolerance {
		res.Issues = append(res.Issues, Issue{
			IssueType:        "premium_mismatch",
			Severity:         SeverityWarning,
			FieldName:        "total_premium",
			SectionsInvolved: []string{string(domain.SectionDeclarations), string(domain.SectionCoverages)},
			ValuesFound:      []any{total, sum},
			RecommendedValue: total,
			Message:          fmt.Sprintf("declarations total_premium %.2f differs from summed coverage premiums %.2f beyond tolerance", total, sum),
		})
	}
}

// parseAmount accepts raw numbers or currency strings.
func parseAmount(v any) float64 {
	if f := mention.FloatFromAny(v); f > 0 {
		return f
	}
	if s := mention.AsString(v); s != "" {
		if amt, ok := normalize.NormalizeCurrency(s); ok {
			return amt.Amount
		}
	}
	return 0
}
