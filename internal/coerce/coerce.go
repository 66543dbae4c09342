// Package coerce converts the dirty textual values found in tracking
// extracts into typed values: 44-digit invoice keys, regional dates and
// timestamps, and currency/weight figures with ambiguous thousands
// separators.
//
// All coercions degrade to "no value" instead of returning errors: an
// unparseable date or number nulls that one field, never the row. Only the
// invoice key is mandatory, and that decision belongs to the merge engine,
// not to this package.
package coerce

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKeyLength is the fixed length of a normalized fiscal document key.
const InvoiceKeyLength = 44

var nonDigits = regexp.MustCompile(`\D`)

// InvoiceKey strips all non-digit characters and accepts the result only if
// exactly 44 digits remain. Punctuated renderings of the same key normalize
// to the same value.
func InvoiceKey(s string) (string, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) != InvoiceKeyLength {
		return "", false
	}
	return digits, true
}

// Sentinel date strings that mean "no date" in the source system.
var sentinelDates = map[string]struct{}{
	"":                    {},
	"00/00/0000":          {},
	"00/00/0000 00:00:00": {},
	"0000-00-00":          {},
}

// Ordered layouts for timestamp parsing. Regional day-first forms come
// before ISO so "05/03/2024" reads as 5 March, matching the source system.
var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// Timestamp parses a textual timestamp against the ordered layout list.
// Returns nil when the value is empty, a sentinel, or matches no layout.
func Timestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if _, sentinel := sentinelDates[s]; sentinel {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Date parses like Timestamp but truncates the result to midnight UTC,
// mirroring a cast to a date column.
func Date(s string) *time.Time {
	t := Timestamp(s)
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// Patterns for separator conventions, tried in order. The first match
// decides how the string is normalized before the decimal cast.
var numberPatterns = []struct {
	re        *regexp.Regexp
	normalize func(string) string
}{
	// 1.234,56: dot thousands, comma decimal
	{regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+,\d{1,3}$`), func(s string) string {
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	}},
	// 1,234.56: comma thousands, dot decimal
	{regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+\.\d{1,3}$`), func(s string) string {
		return strings.ReplaceAll(s, ",", "")
	}},
	// 1234,5: plain comma decimal
	{regexp.MustCompile(`^[+-]?\d+,\d{1,3}$`), func(s string) string {
		return strings.ReplaceAll(s, ",", ".")
	}},
	// 1234.5: plain dot decimal
	{regexp.MustCompile(`^[+-]?\d+\.\d{1,3}$`), func(s string) string {
		return s
	}},
	// 1.234: dot-grouped integer
	{regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+$`), func(s string) string {
		return strings.ReplaceAll(s, ".", "")
	}},
	// 1,234: comma-grouped integer
	{regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+$`), func(s string) string {
		return strings.ReplaceAll(s, ",", "")
	}},
	// 1234: bare integer
	{regexp.MustCompile(`^[+-]?\d+$`), func(s string) string {
		return s
	}},
}

var nonNumeric = regexp.MustCompile(`[^0-9,.\-]`)

// Decimal parses a currency or weight value by matching separator
// conventions. When no pattern matches, a permissive fallback strips
// everything non-numeric and reads commas as the decimal mark; if even
// that fails the result is nil.
func Decimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, p := range numberPatterns {
		if p.re.MatchString(s) {
			if d, err := decimal.NewFromString(p.normalize(s)); err == nil {
				return &d
			}
			return nil
		}
	}

	// Permissive fallback for values with currency symbols or stray text.
	stripped := nonNumeric.ReplaceAllString(s, "")
	stripped = strings.ReplaceAll(stripped, ".", "")
	stripped = strings.ReplaceAll(stripped, ",", ".")
	if stripped == "" || stripped == "-" || stripped == "." {
		return nil
	}
	if d, err := decimal.NewFromString(stripped); err == nil {
		return &d
	}
	return nil
}

// Integer strips non-digit characters and parses what remains. Empty after
// stripping means nil.
func Integer(s string) *int {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// Text trims whitespace and maps empty to nil, mirroring NULLIF(TRIM(s),'').
func Text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// DigitsOnly strips non-digits and maps empty to nil. Used for tax IDs and
// postal codes that arrive with punctuation.
func DigitsOnly(s string) *string {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return nil
	}
	return &digits
}

var nonLetters = regexp.MustCompile(`[^A-Za-z]`)

// StateCode keeps only letters, uppercases, and accepts two or three
// characters. Anything else is nil.
func StateCode(s string) *string {
	letters := strings.ToUpper(nonLetters.ReplaceAllString(s, ""))
	if len(letters) < 2 || len(letters) > 3 {
		return nil
	}
	return &letters
}
