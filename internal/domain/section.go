package domain

import "strings"

// SectionType is the closed taxonomy of insurance document sections.
type SectionType string

const (
	SectionDeclarations       SectionType = "declarations"
	SectionDefinitions        SectionType = "definitions"
	SectionCoverages          SectionType = "coverages"
	SectionConditions         SectionType = "conditions"
	SectionExclusions         SectionType = "exclusions"
	SectionEndorsements       SectionType = "endorsements"
	SectionScheduleOfValues   SectionType = "schedule_of_values"
	SectionLossRun            SectionType = "loss_run"
	SectionInsuringAgreement  SectionType = "insuring_agreement"
	SectionPremiumSummary     SectionType = "premium_summary"
	SectionFinancialStatement SectionType = "financial_statement"
	SectionUnknown            SectionType = "unknown"
)

func AllSectionTypes() []SectionType {
	return []SectionType{
		SectionDeclarations,
		SectionDefinitions,
		SectionCoverages,
		SectionConditions,
		SectionExclusions,
		SectionEndorsements,
		SectionScheduleOfValues,
		SectionLossRun,
		SectionInsuringAgreement,
		SectionPremiumSummary,
		SectionFinancialStatement,
		SectionUnknown,
	}
}

func (s SectionType) Valid() bool {
	switch s {
	case SectionDeclarations, SectionDefinitions, SectionCoverages, SectionConditions,
		SectionExclusions, SectionEndorsements, SectionScheduleOfValues, SectionLossRun,
		SectionInsuringAgreement, SectionPremiumSummary, SectionFinancialStatement, SectionUnknown:
		return true
	}
	return false
}

// SectionPolicy is the static per-section processing policy: extraction order,
// whether an LLM pass is required, and whether the section is table data only.
type SectionPolicy struct {
	Priority    int
	RequiresLLM bool
	TableOnly   bool
	MaxTokens   int
}

var sectionPolicies = map[SectionType]SectionPolicy{
	SectionDeclarations:       {Priority: 1, RequiresLLM: true, MaxTokens: 8000},
	SectionInsuringAgreement:  {Priority: 2, RequiresLLM: true, MaxTokens: 8000},
	SectionCoverages:          {Priority: 3, RequiresLLM: true, MaxTokens: 12000},
	SectionPremiumSummary:     {Priority: 4, RequiresLLM: true, MaxTokens: 6000},
	SectionEndorsements:       {Priority: 5, RequiresLLM: true, MaxTokens: 10000},
	SectionExclusions:         {Priority: 6, RequiresLLM: true, MaxTokens: 10000},
	SectionConditions:         {Priority: 7, RequiresLLM: true, MaxTokens: 10000},
	SectionDefinitions:        {Priority: 8, RequiresLLM: true, MaxTokens: 12000},
	SectionScheduleOfValues:   {Priority: 9, RequiresLLM: false, TableOnly: true, MaxTokens: 16000},
	SectionLossRun:            {Priority: 10, RequiresLLM: false, TableOnly: true, MaxTokens: 16000},
	SectionFinancialStatement: {Priority: 11, RequiresLLM: false, TableOnly: true, MaxTokens: 16000},
	SectionUnknown:            {Priority: 12, RequiresLLM: true, MaxTokens: 8000},
}

func PolicyFor(s SectionType) SectionPolicy {
	if p, ok := sectionPolicies[s]; ok {
		return p
	}
	return sectionPolicies[SectionUnknown]
}

var sectionAliases = map[string]SectionType{
	"declaration":         SectionDeclarations,
	"declarations":        SectionDeclarations,
	"declarations page":   SectionDeclarations,
	"dec":                 SectionDeclarations,
	"dec page":            SectionDeclarations,
	"policy declarations": SectionDeclarations,
	"definition":          SectionDefinitions,
	"definitions":         SectionDefinitions,
	"coverage":            SectionCoverages,
	"coverages":           SectionCoverages,
	"coverage summary":    SectionCoverages,
	"coverage parts":      SectionCoverages,
	"condition":           SectionConditions,
	"conditions":          SectionConditions,
	"general conditions":  SectionConditions,
	"exclusion":           SectionExclusions,
	"exclusions":          SectionExclusions,
	"endorsement":         SectionEndorsements,
	"endorsements":        SectionEndorsements,
	"sov":                 SectionScheduleOfValues,
	"schedule of values":  SectionScheduleOfValues,
	"statement of values": SectionScheduleOfValues,
	"loss run":            SectionLossRun,
	"loss runs":           SectionLossRun,
	"loss history":        SectionLossRun,
	"insuring agreement":  SectionInsuringAgreement,
	"insuring agreements": SectionInsuringAgreement,
	"premium":             SectionPremiumSummary,
	"premium summary":     SectionPremiumSummary,
	"premium schedule":    SectionPremiumSummary,
	"financials":          SectionFinancialStatement,
	"financial statement": SectionFinancialStatement,
	"financial statements": SectionFinancialStatement,
	"balance sheet":        SectionFinancialStatement,
}

// MapSectionType canonicalizes a free-form section label; unmapped labels
// collapse to SectionUnknown.
func MapSectionType(raw string) SectionType {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return SectionUnknown
	}
	if st := SectionType(strings.ReplaceAll(s, " ", "_")); st.Valid() {
		return st
	}
	if st, ok := sectionAliases[s]; ok {
		return st
	}
	return SectionUnknown
}
