package entity

import (
	"regexp"
	"strings"
	"time"
)

// Date candidate patterns, in priority order: day-first before
// year-first. Day-first wins when both shapes appear because invoices
// in this locale overwhelmingly print DD/MM/YYYY.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{2}[/\-.]\d{2}[/\-.]\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[/\-.]\d{2}[/\-.]\d{2}\b`),
}

// dateLayouts correspond positionally to datePatterns, after separator
// normalization to "-".
var dateLayouts = []string{"02-01-2006", "2006-01-02"}

// findDate returns the first date-shaped token in the text along with
// the layout it should parse under. The first pattern with a match
// wins; later patterns are not consulted even if normalization of the
// winner fails.
func findDate(text string) (raw string, layout string, ok bool) {
	for i, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return m, dateLayouts[i], true
		}
	}
	return "", "", false
}

// NormalizeDate converts a raw date token to ISO 8601 (YYYY-MM-DD).
// Out-of-range month/day values fail; an invalid date must never reach
// the store.
func NormalizeDate(raw string, layout string) (string, bool) {
	s := strings.NewReplacer("/", "-", ".", "-").Replace(strings.TrimSpace(raw))
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// YearMonthQuarter derives calendar analytics from a normalized ISO
// date. Quarter is ((month-1)/3)+1.
func YearMonthQuarter(iso string) (year, month, quarter int, ok bool) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return 0, 0, 0, false
	}
	m := int(t.Month())
	return t.Year(), m, (m-1)/3 + 1, true
}
