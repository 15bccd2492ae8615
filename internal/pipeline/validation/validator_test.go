package validation

import (
	"context"
	"testing"

	"github.com/Shreekar11/insura-ai-sub003/internal/config"
	"github.com/Shreekar11/insura-ai-sub003/internal/data/repos/testutil"
	"github.com/Shreekar11/insura-ai-sub003/internal/domain"
	"github.com/Shreekar11/insura-ai-sub003/internal/pipeline/extraction"
)

type stubLLM struct {
	calls    int
	response map[string]any
}

func (s *stubLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *stubLLM) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	s.calls++
	return s.response, nil
}

func newValidator(t *testing.T, llmClient *stubLLM, useLLM bool) *Validator {
	t.Helper()
	cfg := config.ValidationConfig{UseLLMForConflicts: useLLM, PremiumTolerance: 0.05}
	var v *Validator
	var err error
	if llmClient != nil {
		v, err = NewValidator(testutil.Logger(t), llmClient, cfg)
	} else {
		v, err = NewValidator(testutil.Logger(t), nil, cfg)
	}
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func declarations(fields map[string]any) extraction.SectionResult {
	return extraction.SectionResult{
		SectionType:   domain.SectionDeclarations,
		ExtractedData: fields,
		Confidence:    0.9,
	}
}

func coverages(items ...map[string]any) extraction.SectionResult {
	list := make([]any, 0, len(items))
	for _, it := range items {
		list = append(list, it)
	}
	return extraction.SectionResult{
		SectionType:   domain.SectionCoverages,
		ExtractedData: map[string]any{"coverages": list},
		Confidence:    0.85,
	}
}

func TestPolicyNumberMismatchIsError(t *testing.T) {
	v := newValidator(t, nil, false)
	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"policy_number": "POL-123"}),
		{
			SectionType:   domain.SectionCoverages,
			ExtractedData: map[string]any{"coverages": []any{map[string]any{"coverage_type": "Building", "policy_number": "POL-124"}}},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var policyIssues []Issue
	for _, is := range res.Issues {
		if is.FieldName == "policy_number" {
			policyIssues = append(policyIssues, is)
		}
	}
	if len(policyIssues) != 1 {
		t.Fatalf("expected exactly one policy_number issue, got %d (%+v)", len(policyIssues), res.Issues)
	}
	if policyIssues[0].Severity != SeverityError {
		t.Fatalf("policy number mismatch must be error severity, got %s", policyIssues[0].Severity)
	}
	if res.IsValid {
		t.Fatalf("error issue must make the document invalid")
	}

	var reconciled *ReconciledValue
	for i := range res.ReconciledValues {
		if res.ReconciledValues[i].FieldName == "policy_number" {
			reconciled = &res.ReconciledValues[i]
		}
	}
	if reconciled == nil || reconciled.CanonicalValue != "POL-123" {
		t.Fatalf("declarations must win the tie-break: %+v", reconciled)
	}
}

func TestInsuredNameMismatchIsWarningOnly(t *testing.T) {
	v := newValidator(t, nil, false)
	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"insured_name": "Acme Corp"}),
		{
			SectionType:   domain.SectionEndorsements,
			ExtractedData: map[string]any{"insured_name": "Acme Corporation"},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].Severity != SeverityWarning {
		t.Fatalf("expected one warning, got %+v", res.Issues)
	}
	if !res.IsValid {
		t.Fatalf("warnings alone must not invalidate the document")
	}
}

func TestEquivalentDateFormatsDoNotConflict(t *testing.T) {
	v := newValidator(t, nil, false)
	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"effective_date": "2024-01-15", "expiration_date": "2025-01-15"}),
		{
			SectionType:   domain.SectionInsuringAgreement,
			ExtractedData: map[string]any{"effective_date": "01/15/2024"},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(res.Issues) != 0 {
		t.Fatalf("same date in different formats is not a conflict: %+v", res.Issues)
	}
}

func TestDateOrderViolationIsError(t *testing.T) {
	v := newValidator(t, nil, false)
	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"effective_date": "2025-01-15", "expiration_date": "2024-01-15"}),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	found := false
	for _, is := range res.Issues {
		if is.IssueType == "date_order" && is.Severity == SeverityError {
			found = true
		}
	}
	if !found || res.IsValid {
		t.Fatalf("inverted policy period must be an error: %+v", res.Issues)
	}
}

func TestPremiumAlignment(t *testing.T) {
	v := newValidator(t, nil, false)

	// within 5%: no issue
	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"total_premium": 10000.0}),
		coverages(
			map[string]any{"coverage_type": "Building", "premium_amount": 6000.0},
			map[string]any{"coverage_type": "Contents", "premium_amount": 3800.0},
		),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, is := range res.Issues {
		if is.IssueType == "premium_mismatch" {
			t.Fatalf("2%% gap is within tolerance: %+v", is)
		}
	}

	// beyond 5%: warning
	res, err = v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"total_premium": 10000.0}),
		coverages(map[string]any{"coverage_type": "Building", "premium_amount": 6000.0}),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	found := false
	for _, is := range res.Issues {
		if is.IssueType == "premium_mismatch" && is.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("40%% premium gap must warn: %+v", res.Issues)
	}
}

func TestNoIssuesSkipsEscalation(t *testing.T) {
	stub := &stubLLM{response: map[string]any{}}
	v := newValidator(t, stub, true)
	_, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"policy_number": "POL-1"}),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("clean documents must not hit the LLM")
	}
}

func TestEscalationMergeRules(t *testing.T) {
	stub := &stubLLM{response: map[string]any{
		"issues": []any{
			// duplicate field: rule-based wins, dropped
			map[string]any{"issue_type": "llm_dup", "severity": "warning", "field_name": "policy_number"},
			// new field: merged
			map[string]any{"issue_type": "ambiguous_term", "severity": "info", "field_name": "broker_name", "message": "broker listed twice"},
			// bad severity: dropped
			map[string]any{"issue_type": "weird", "severity": "fatal", "field_name": "carrier_name"},
		},
		"reconciled_values": []any{
			// higher confidence than the rule-based 0.6: overrides
			map[string]any{"field_name": "policy_number", "canonical_value": "POL-123-A", "confidence": 0.92},
			// new field: appended
			map[string]any{"field_name": "broker_name", "canonical_value": "Marsh", "confidence": 0.8},
		},
	}}
	v := newValidator(t, stub, true)

	res, err := v.Validate(context.Background(), []extraction.SectionResult{
		declarations(map[string]any{"policy_number": "POL-123"}),
		{
			SectionType:   domain.SectionCoverages,
			ExtractedData: map[string]any{"policy_number": "POL-124"},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("conflicts must trigger exactly one escalation call, got %d", stub.calls)
	}

	types := map[string]int{}
	for _, is := range res.Issues {
		types[is.IssueType]++
	}
	if types["llm_dup"] != 0 || types["weird"] != 0 || types["ambiguous_term"] != 1 {
		t.Fatalf("merge rules violated: %+v", res.Issues)
	}

	values := map[string]ReconciledValue{}
	for _, rv := range res.ReconciledValues {
		values[rv.FieldName] = rv
	}
	if values["policy_number"].CanonicalValue != "POL-123-A" || values["policy_number"].Confidence != 0.92 {
		t.Fatalf("higher-confidence LLM value must override: %+v", values["policy_number"])
	}
	if values["broker_name"].CanonicalValue != "Marsh" {
		t.Fatalf("new LLM reconciled value must be appended: %+v", values)
	}
}
