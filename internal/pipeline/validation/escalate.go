package validation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/mention"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/prompts"
)

// escalateConflicts hands the full per-section data plus the rule-based
// issues to the LLM and merges its findings in. Rule-based issues win ties
// on field name; LLM reconciled values only override when their stated
// confidence beats the rule-based one.
func (v *Validator) escalateConflicts(ctx context.Context, results []extraction.SectionResult, res *Result) error {
	sectionData := map[string]any{}
	for _, sr := range results {
		sectionData[string(sr.SectionType)] = sr.ExtractedData
	}
	dataJSON, err := json.Marshal(sectionData)
	if err != nil {
		return fmt.Errorf("marshal section data: %w", err)
	}
	issuesJSON, err := json.Marshal(res.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	prompt, err := prompts.Build(prompts.PromptValidationConflicts, prompts.Input{
		SectionDataJSON: string(dataJSON),
		IssuesJSON:      string(issuesJSON),
	})
	if err != nil {
		return fmt.Errorf("build validation prompt: %w", err)
	}
	obj, err := v.llm.GenerateJSON(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	if err != nil {
		return fmt.Errorf("validation escalation: %w", err)
	}

	ruleFields := map[string]struct{}{}
	for _, issue := range res.Issues {
		ruleFields[issue.FieldName] = struct{}{}
	}
	rawIssues, _ := obj["issues"].([]any)
	for _, item := range rawIssues {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field := mention.AsString(m["field_name"])
		if field == "" {
			continue
		}
		if _, dup := ruleFields[field]; dup {
			continue
		}
		severity := Severity(mention.AsString(m["severity"]))
		switch severity {
		case SeverityError, SeverityWarning, SeverityInfo:
		default:
			continue
		}
		ruleFields[field] = struct{}{}
		res.Issues = append(res.Issues, Issue{
			IssueType:        mention.AsString(m["issue_type"]),
			Severity:         severity,
			FieldName:        field,
			SectionsInvolved: mention.StringSliceFromAny(m["sections_involved"]),
			RecommendedValue: m["recommended_value"],
			Message:          mention.AsString(m["message"]),
		})
	}

	byField := map[string]int{}
	for i, rv := range res.ReconciledValues {
		byField[rv.FieldName] = i
	}
	rawReconciled, _ := obj["reconciled_values"].([]any)
	for _, item := range rawReconciled {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field := mention.AsString(m["field_name"])
		value := m["canonical_value"]
		if field == "" || value == nil {
			continue
		}
		confidence := mention.Clamp01(mention.FloatFromAny(m["confidence"]))
		if i, exists := byField[field]; exists {
			if confidence > res.ReconciledValues[i].Confidence {
				res.ReconciledValues[i].CanonicalValue = value
				res.ReconciledValues[i].Confidence = confidence
			}
			continue
		}
		byField[field] = len(res.ReconciledValues)
		res.ReconciledValues = append(res.ReconciledValues, ReconciledValue{
			FieldName:      field,
			CanonicalValue: value,
			Confidence:     confidence,
		})
	}
	return nil
}
