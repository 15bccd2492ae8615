package tokens

import (
	"strings"
	"testing"
)

func TestCountTokensDeterministic(t *testing.T) {
	e := NewEstimator()
	text := "The insured shall provide written notice of any claim within thirty days."
	a := e.CountTokens(text)
	b := e.CountTokens(text)
	if a != b {
		t.Fatalf("CountTokens not deterministic: %d vs %d", a, b)
	}
	if a <= 0 {
		t.Fatalf("CountTokens = %d, want > 0", a)
	}
	if e.CountTokens("") != 0 {
		t.Fatal("empty text should estimate 0 tokens")
	}
}

func TestCountTokensMonotonic(t *testing.T) {
	e := NewEstimator()
	base := "policy number POL-2024-001 effective date"
	longer := base + " " + base
	if e.CountTokens(longer) < e.CountTokens(base) {
		t.Fatal("CountTokens should not shrink as text grows")
	}
}

func TestSplitByTokenLimitRespectsBudget(t *testing.T) {
	e := NewEstimator()
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, "Coverage is provided for direct physical loss or damage to covered property.")
	}
	text := strings.Join(lines, "\n")

	limit := 100
	pieces := e.SplitByTokenLimit(text, limit, 10)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if got := e.CountTokens(p); got > limit {
			t.Fatalf("piece %d estimates %d tokens, budget %d", i, got, limit)
		}
	}
}

func TestSplitByTokenLimitJoinedPiecesStayWithinBudget(t *testing.T) {
	e := NewEstimator()
	// Short lines and tight limits so several lines fit a group; the joining
	// newlines must count against the budget, not just the per-line sums.
	lines := []string{
		"Named Insured: Acme Corp",
		"Policy Number: CPP-2024-000123",
		"Premises 001 Building 001",
		"Coverage A Building 1,000,000",
		"Coverage B Contents 250,000",
		"Deductible 5,000 per occurrence",
		"Forms apply per schedule",
		"Agent: Example Brokerage LLC",
	}
	text := strings.Join(lines, "\n")

	for limit := 16; limit <= 80; limit += 7 {
		for _, overlap := range []int{0, 5, 12} {
			for i, p := range e.SplitByTokenLimit(text, limit, overlap) {
				if got := e.CountTokens(p); got > limit {
					t.Fatalf("limit=%d overlap=%d piece %d estimates %d tokens: %q",
						limit, overlap, i, got, p)
				}
			}
		}
	}
}

func TestSplitByTokenLimitShortTextUnchanged(t *testing.T) {
	e := NewEstimator()
	text := "Short declarations page."
	pieces := e.SplitByTokenLimit(text, 500, 50)
	if len(pieces) != 1 || pieces[0] != text {
		t.Fatalf("short text should pass through, got %v", pieces)
	}
}

func TestSplitByTokenLimitUnsplittableSentence(t *testing.T) {
	e := NewEstimator()
	// One sentence with no sentence boundaries, far over budget.
	sentence := strings.Repeat("indemnification ", 80)
	pieces := e.SplitByTokenLimit(sentence, 20, 0)
	if len(pieces) != 1 {
		t.Fatalf("unsplittable sentence should be returned whole, got %d pieces", len(pieces))
	}
}
