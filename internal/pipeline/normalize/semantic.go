package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field is one structured value lifted out of chunk text by the
// deterministic normalizer.
type Field struct {
	Kind  string `json:"kind"` // date | currency | policy_number | email
	Raw   string `json:"raw"`
	Value any    `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// CurrencyAmount is a parsed monetary value with its ISO 4217 code.
type CurrencyAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

var monthsByName = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	// numeric m/d/y with 2- or 4-digit year, slash or dash separated
	numericMDYRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	// "12th Dec 2023", "12 December, 2023"
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+(\d{2,4})\b`)
	// "Dec 12, 2023", "December 12 2023"
	monthDayYearRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})\b`)
)

// expandYear resolves ambiguous 2-digit years: <50 means 20xx, >=50 means 19xx.
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	return year >= 1900 && year <= 2200
}

// NormalizeDate parses a single date expression into YYYY-MM-DD form.
// Returns false when the input is not a recognizable date.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil && m[0] == s {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validDate(y, mo, d) {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
		}
		return "", false
	}

	if m := numericMDYRe.FindStringSubmatch(s); m != nil && m[0] == s {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		// Day-first input like 15/01/2024 still resolves when the first
		// component cannot be a month.
		if mo > 12 && d <= 12 {
			mo, d = d, mo
		}
		y = expandYear(y)
		if validDate(y, mo, d) {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
		}
		return "", false
	}

	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil && m[0] == s {
		d, _ := strconv.Atoi(m[1])
		mo := monthsByName[strings.ToLower(strings.TrimSuffix(m[2], "."))]
		y, _ := strconv.Atoi(m[3])
		y = expandYear(y)
		if validDate(y, mo, d) {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
		}
		return "", false
	}

	if m := monthDayYearRe.FindStringSubmatch(s); m != nil && m[0] == s {
		mo := monthsByName[strings.ToLower(strings.TrimSuffix(m[1], "."))]
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		y = expandYear(y)
		if validDate(y, mo, d) {
			return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
		}
		return "", false
	}

	return "", false
}

var symbolCurrencies = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
}

var codeCurrencies = map[string]string{
	"usd": "USD", "eur": "EUR", "gbp": "GBP", "inr": "INR",
	"cad": "CAD", "aud": "AUD", "jpy": "JPY", "chf": "CHF",
	"rs": "INR", "rs.": "INR", "rupees": "INR", "rupee": "INR",
	"dollars": "USD", "dollar": "USD",
	"euros": "EUR", "euro": "EUR",
	"pounds": "GBP", "pound": "GBP",
}

var (
	symbolAmountRe = regexp.MustCompile(`([$€£₹])\s*([\d.,]+)(?:\s*/-)?`)
	// "Rs. 12,500/-", "USD 1,200.50", "INR 2,50,000"
	codeAmountRe = regexp.MustCompile(`(?i)\b(usd|eur|gbp|inr|cad|aud|jpy|chf|rs\.?)\s*([\d.,]+)(?:\s*/-)?`)
	// "1,200.50 USD", "12500 rupees"
	amountCodeRe = regexp.MustCompile(`(?i)\b([\d.,]+)\s*(usd|eur|gbp|inr|cad|aud|jpy|chf|rupees?|dollars?|euros?|pounds?)\b`)
	// "2 lakh", "1.5 crore rupees"
	indianUnitRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(lakh|lac|crore)s?(?:\s+(rupees?))?\b`)

	indianGroupingRe   = regexp.MustCompile(`^\d{1,2}(?:,\d{2})*,\d{3}(?:\.\d+)?$`)
	europeanGroupingRe = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
)

var spelledNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50, "sixty": 60, "seventy": 70,
	"eighty": 80, "ninety": 90,
}

var spelledMultipliers = map[string]float64{
	"hundred":  100,
	"thousand": 1000,
	"lakh":     100000,
	"lac":      100000,
	"million":  1000000,
	"crore":    10000000,
}

var spelledAmountRe = regexp.MustCompile(`(?i)\b((?:(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|lakh|lac|million|crore)\s+)+)(rupees?|dollars?|euros?|pounds?)\b`)

// parseGroupedNumber resolves locale-ambiguous digit grouping. A dot-grouped
// value with a comma decimal is European; comma pairs before the final
// 3-digit group mark Indian grouping; otherwise commas are US thousands.
func parseGroupedNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	switch {
	case europeanGroupingRe.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case indianGroupingRe.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	default:
		if strings.Count(s, ",") == 1 && strings.Count(s, ".") == 0 {
			// A lone comma with a non-3-digit tail is a decimal comma.
			parts := strings.SplitN(s, ",", 2)
			if len(parts[1]) != 3 {
				s = parts[0] + "." + parts[1]
			} else {
				s = parts[0] + parts[1]
			}
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func parseSpelledAmount(words string) (float64, bool) {
	total := 0.0
	current := 0.0
	seen := false
	for _, w := range strings.Fields(strings.ToLower(words)) {
		if v, ok := spelledNumbers[w]; ok {
			current += v
			seen = true
			continue
		}
		if mult, ok := spelledMultipliers[w]; ok {
			if current == 0 {
				current = 1
			}
			if mult >= 1000 {
				total += current * mult
				current = 0
			} else {
				current *= mult
			}
			seen = true
			continue
		}
		return 0, false
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

// NormalizeCurrency parses one monetary expression. Returns false when the
// input carries no recognizable amount or currency.
func NormalizeCurrency(raw string) (CurrencyAmount, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CurrencyAmount{}, false
	}

	if m := symbolAmountRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[0]) == s {
		if amt, ok := parseGroupedNumber(m[2]); ok {
			return CurrencyAmount{Amount: amt, Currency: symbolCurrencies[m[1]]}, true
		}
	}
	if m := codeAmountRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[0]) == s {
		code := codeCurrencies[strings.ToLower(m[1])]
		if amt, ok := parseGroupedNumber(m[2]); ok && code != "" {
			return CurrencyAmount{Amount: amt, Currency: code}, true
		}
	}
	if m := amountCodeRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[0]) == s {
		code := codeCurrencies[strings.ToLower(m[2])]
		if amt, ok := parseGroupedNumber(m[1]); ok && code != "" {
			return CurrencyAmount{Amount: amt, Currency: code}, true
		}
	}
	if m := indianUnitRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[0]) == s {
		base, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return CurrencyAmount{Amount: base * spelledMultipliers[strings.ToLower(m[2])], Currency: "INR"}, true
		}
	}
	if m := spelledAmountRe.FindStringSubmatch(s); m != nil && strings.TrimSpace(m[0]) == s {
		if amt, ok := parseSpelledAmount(m[1]); ok {
			return CurrencyAmount{Amount: amt, Currency: codeCurrencies[strings.ToLower(m[2])]}, true
		}
	}
	return CurrencyAmount{}, false
}

var policyNumberRe = regexp.MustCompile(`\b(?i:(?:policy|certificate|cert)\s*(?:no|number|#)\.?\s*:?\s*)([A-Z0-9][A-Z0-9/-]{2,30})`)

// NormalizePolicyNumber canonicalizes a policy or claim identifier:
// uppercase, no internal spaces, trailing non-alphanumerics stripped
// (internal hyphens survive).
func NormalizePolicyNumber(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), "")
	for len(s) > 0 {
		last := s[len(s)-1]
		if (last >= 'A' && last <= 'Z') || (last >= '0' && last <= '9') {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
