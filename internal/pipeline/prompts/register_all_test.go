package prompts

import (
	"strings"
	"testing"
)

func TestRegisterAllBuildsEveryPrompt(t *testing.T) {
	RegisterAll()

	in := Input{
		ChunkBatchJSON:  `[{"chunk_id":"c1","page_number":1,"text":"x"}]`,
		ChunkID:         "c1",
		ChunkText:       "x",
		DocTypesCSV:     DocTypesCSV(),
		SectionTypesCSV: SectionTypesCSV(),
		EntityTypesCSV:  EntityTypesCSV(),
		RelationTypesCSV: RelationTypesCSV(),
		PagesExcerpt:    "page 1 text",
		SectionType:     "declarations",
		SectionText:     "POLICY NUMBER: POL-1",
		EntitiesJSON:    `[{"entity_type":"POLICY_NUMBER","normalized_value":"POL-1"}]`,
		SectionDataJSON: `{"declarations":{"policy_number":"POL-1"}}`,
	}

	names := []PromptName{
		PromptBatchNormalize, PromptChunkNormalize,
		PromptClassifyDocument, PromptClassifyFallback,
		PromptSectionDeclarations, PromptSectionCoverages, PromptSectionConditions,
		PromptSectionExclusions, PromptSectionEndorsements, PromptSectionDefinitions,
		PromptSectionInsuringAgreement, PromptSectionPremiumSummary, PromptSectionDefault,
		PromptRelationshipExtract, PromptValidationConflicts,
	}
	for _, name := range names {
		p, err := Build(name, in)
		if err != nil {
			t.Fatalf("build %s: %v", name, err)
		}
		if p.System == "" || p.User == "" {
			t.Fatalf("%s rendered empty system/user", name)
		}
		if p.Schema == nil || p.SchemaName == "" {
			t.Fatalf("%s missing schema", name)
		}
		if p.Fingerprint() == "" {
			t.Fatalf("%s missing fingerprint", name)
		}
	}
}

func TestBuildValidatesRequiredInput(t *testing.T) {
	RegisterAll()
	if _, err := Build(PromptSectionDeclarations, Input{}); err == nil {
		t.Fatalf("expected missing SectionText error")
	}
	if _, err := Build(PromptName("nope"), Input{}); err == nil || !strings.Contains(err.Error(), "unknown prompt") {
		t.Fatalf("expected unknown prompt error, got %v", err)
	}
}

func TestTemplateRendersInputFields(t *testing.T) {
	RegisterAll()
	p, err := Build(PromptClassifyFallback, Input{
		DocTypesCSV: DocTypesCSV(),
		ScoresJSON:  `{"policy":0.4}`,
		KeywordsCSV: "declarations page",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(p.User, `{"policy":0.4}`) {
		t.Fatalf("scores not rendered into user prompt: %s", p.User)
	}
	if !strings.Contains(p.User, "correspondence") {
		t.Fatalf("closed type list not rendered: %s", p.User)
	}
}
