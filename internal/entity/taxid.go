package entity

import "regexp"

// taxIDRe matches 9-digit runs whose leading digit is one a Portuguese
// NIF can start with. This is the loose candidate shape used during
// extraction; ValidTaxID applies the checksum.
var taxIDRe = regexp.MustCompile(`\b[1235689]\d{8}\b`)

// taxIDCandidates returns all candidate tax ids in document order.
func taxIDCandidates(text string) []string {
	return taxIDRe.FindAllString(text, -1)
}

// ValidTaxID reports whether s is a checksum-valid taxpayer id.
// All nine digits enter a weighted sum with descending weights 9..1
// (the check digit itself carries weight 1). The expected check digit
// is 11 - (sum mod 11), mapped to 0 when >= 10, and must equal the
// ninth digit. Because 11 is prime and every weight is below it, any
// single-digit change shifts the sum to a different residue class.
func ValidTaxID(s string) bool {
	if len(s) != 9 {
		return false
	}
	switch s[0] {
	case '1', '2', '5', '6', '8', '9':
	default:
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * (9 - i)
	}
	check := 11 - (sum % 11)
	if check >= 10 {
		check = 0
	}
	return check == int(s[8]-'0')
}
