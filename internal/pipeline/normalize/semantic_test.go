package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12th Dec 2023", "2023-12-12", true},
		{"01/15/24", "2024-01-15", true},
		{"01/15/2024", "2024-01-15", true},
		{"15/01/2024", "2024-01-15", true},
		{"Dec 12, 2023", "2023-12-12", true},
		{"December 12 2023", "2023-12-12", true},
		{"3 January 1999", "1999-01-03", true},
		{"06/30/75", "1975-06-30", true},
		{"2023-12-12", "2023-12-12", true},
		{"not a date", "", false},
		{"13/45/2023", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeDate(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("NormalizeDate(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in       string
		amount   float64
		currency string
		ok       bool
	}{
		{"$1,200.50", 1200.50, "USD", true},
		{"Rs. 12,500/-", 12500.0, "INR", true},
		{"USD 1,200.50", 1200.50, "USD", true},
		{"1,200.50 USD", 1200.50, "USD", true},
		{"INR 2,50,000", 250000.0, "INR", true},
		{"€1.200,50", 1200.50, "EUR", true},
		{"2 lakh rupees", 200000.0, "INR", true},
		{"1.5 crore", 15000000.0, "INR", true},
		{"two lakh rupees", 200000.0, "INR", true},
		{"five hundred dollars", 500.0, "USD", true},
		{"twenty five thousand dollars", 25000.0, "USD", true},
		{"no money here", 0, "", false},
		{"", 0, "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeCurrency(c.in)
		if ok != c.ok {
			t.Fatalf("NormalizeCurrency(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if !ok {
			continue
		}
		if got.Amount != c.amount || got.Currency != c.currency {
			t.Fatalf("NormalizeCurrency(%q) = %+v; want %v %s", c.in, got, c.amount, c.currency)
		}
	}
}

func TestNormalizePolicyNumber(t *testing.T) {
	if got := NormalizePolicyNumber("  pol-123 "); got != "POL-123" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizePolicyNumber("abc 99,"); got != "ABC99" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizePolicyNumber("pol-123-"); got != "POL-123" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeTextRewritesSpans(t *testing.T) {
	in := "Policy Number: POL-123 effective 12th Dec 2023, premium $1,200.50 due."
	res := NormalizeText(in)

	if !strings.Contains(res.NormalizedText, "2023-12-12") {
		t.Fatalf("date not rewritten: %q", res.NormalizedText)
	}
	if !strings.Contains(res.NormalizedText, "1200.50 USD") {
		t.Fatalf("currency not rewritten: %q", res.NormalizedText)
	}
	if strings.Contains(res.NormalizedText, "$") {
		t.Fatalf("raw currency symbol remains: %q", res.NormalizedText)
	}

	kinds := map[string]int{}
	for _, f := range res.Fields {
		kinds[f.Kind]++
		if f.Start < 0 || f.End > len(res.NormalizedText) || f.Start >= f.End {
			t.Fatalf("field %+v has invalid span", f)
		}
		if res.NormalizedText[f.Start:f.End] == "" {
			t.Fatalf("field %+v span empty", f)
		}
	}
	if kinds["date"] != 1 || kinds["currency"] != 1 || kinds["policy_number"] != 1 {
		t.Fatalf("unexpected field kinds: %v", kinds)
	}
}

func TestNormalizeTextNoDuplicateCurrencyFields(t *testing.T) {
	res := NormalizeText("total $500 plus Rs. 12,500/- surcharge")
	currency := 0
	for _, f := range res.Fields {
		if f.Kind == "currency" {
			currency++
		}
	}
	if currency != 2 {
		t.Fatalf("expected exactly 2 currency fields, got %d (%+v)", currency, res.Fields)
	}
	if !strings.Contains(res.NormalizedText, "500.00 USD") || !strings.Contains(res.NormalizedText, "12500.00 INR") {
		t.Fatalf("rewrite wrong: %q", res.NormalizedText)
	}
}

func TestNormalizeTextLeavesPlainTextAlone(t *testing.T) {
	in := "This paragraph has no structured values at all."
	res := NormalizeText(in)
	if res.NormalizedText != in || len(res.Fields) != 0 {
		t.Fatalf("plain text must pass through unchanged: %+v", res)
	}
}

func TestNormalizeTextEmailField(t *testing.T) {
	res := NormalizeText("contact Broker@Example.com for binding")
	found := false
	for _, f := range res.Fields {
		if f.Kind == "email" && f.Value == "broker@example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("email not extracted: %+v", res.Fields)
	}
}
