package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount parses a currency-decimal string under Portuguese locale
// rules, tolerating both "1.234,56" and "1234.56" shapes. The last
// separator (dot or comma) is taken as the decimal separator and every
// other separator is treated as a thousands grouper.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	lastSep := strings.LastIndexAny(s, ".,")
	if lastSep == -1 {
		return strconv.ParseFloat(s, 64)
	}

	intPart := s[:lastSep]
	fracPart := s[lastSep+1:]
	intPart = strings.ReplaceAll(intPart, ".", "")
	intPart = strings.ReplaceAll(intPart, ",", "")

	return strconv.ParseFloat(intPart+"."+fracPart, 64)
}

// ParseRate parses a small percentage value like "23" or "23,5".
func ParseRate(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
