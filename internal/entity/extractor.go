package entity

import (
	"regexp"
	"strings"
)

// ibanRe matches the country-prefixed fixed-length IBAN shape. Scoped
// to PT50 like the source data; widening it is a product decision, not
// a bug fix.
var ibanRe = regexp.MustCompile(`(?i)\bPT50[0-9A-Z]{21}\b`)

// totalPatterns collect currency-decimal candidates for the invoice
// total. All matches across all patterns are candidates; the maximum
// positive value wins (max-of-candidates policy). Known limitation:
// on multi-total documents a line-item subtotal larger than the real
// total can win.
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Total[:\s]+€?\s*(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})`),
	regexp.MustCompile(`(?i)(?:Valor|Montante)[:\s]+€?\s*(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})`),
	regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})\s*€`),
}

// invoicePatterns are tried in order; the first match wins.
var invoicePatterns = []*regexp.Regexp{
	// Document-type keyword plus token: "Fatura nº FT2024/123".
	regexp.MustCompile(`(?i)Fatura\s*(?:n\.?|nº|#)\s*([A-Za-z0-9\-/]+)`),
	// Short series code plus year/sequence: "FT 2024/123".
	regexp.MustCompile(`(?i)(?:FT|FA|FR|NC|ND)[:\s/\-]*(\d{4}[/\-]\d+)`),
	// Generic label plus token.
	regexp.MustCompile(`(?i)(?:Invoice|Doc)[:\s]*([A-Za-z0-9\-/]+)`),
}

var (
	eurCodeRe   = regexp.MustCompile(`(?i)\bEUR\b`)
	vatRateRe   = regexp.MustCompile(`(?i)\bIVA\b[^\n]*?(\d{1,2}[.,]?\d{0,2})\s*%?`)
	netTotalRe  = regexp.MustCompile(`(?i)(?:Base|Subtotal)[^\n]*?(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})`)
	taxAmountRe = regexp.MustCompile(`(?i)(?:IVA|Imposto)[^\n]*?(\d{1,3}(?:[.,]\d{3})*[.,]\d{2})`)
	supplierRe  = regexp.MustCompile(`(?i)Fornecedor[:\s]+(.+)`)
	clientRe    = regexp.MustCompile(`(?i)Cliente[:\s]+(.+)`)
)

// Extract derives structured fields from raw document text.
// Pure and deterministic; a field that cannot be recognized or parsed
// is omitted without affecting the other fields.
func Extract(text string) Bag {
	var bag Bag
	if text == "" {
		return bag
	}

	extractTaxIDs(text, &bag)

	if m := ibanRe.FindString(text); m != "" {
		bag.IBAN = strPtr(strings.ToUpper(m))
	}

	if raw, layout, ok := findDate(text); ok {
		if iso, ok := NormalizeDate(raw, layout); ok {
			bag.Date = strPtr(iso)
		}
	}

	extractTotal(text, &bag)

	for _, re := range invoicePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			bag.InvoiceNo = strPtr(strings.TrimSpace(m[1]))
			break
		}
	}

	if strings.Contains(text, "€") || eurCodeRe.MatchString(text) {
		bag.Currency = strPtr("EUR")
	}

	if m := vatRateRe.FindStringSubmatch(text); m != nil {
		if v, err := ParseRate(m[1]); err == nil {
			bag.VATRate = floatPtr(v)
		}
	}
	if m := netTotalRe.FindStringSubmatch(text); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			bag.NetTotal = floatPtr(v)
		}
	}
	if m := taxAmountRe.FindStringSubmatch(text); m != nil {
		if v, err := ParseAmount(m[1]); err == nil {
			bag.TaxAmount = floatPtr(v)
		}
	}

	if m := supplierRe.FindStringSubmatch(text); m != nil {
		bag.Supplier = strPtr(strings.TrimSpace(m[1]))
	}
	if m := clientRe.FindStringSubmatch(text); m != nil {
		bag.Client = strPtr(strings.TrimSpace(m[1]))
	}

	return bag
}

// extractTaxIDs picks the first candidate as the primary id and the
// first candidate distinct from it as the counterpart.
func extractTaxIDs(text string, bag *Bag) {
	candidates := taxIDCandidates(text)
	if len(candidates) == 0 {
		return
	}
	bag.TaxID = strPtr(candidates[0])
	for _, c := range candidates[1:] {
		if c != candidates[0] {
			bag.CounterpartTaxID = strPtr(c)
			break
		}
	}
}

// extractTotal applies the max-of-candidates policy across all total
// patterns. Unparseable and non-positive candidates are discarded.
func extractTotal(text string, bag *Bag) {
	var best float64
	found := false
	for _, re := range totalPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := ParseAmount(m[1])
			if err != nil || v <= 0 {
				continue
			}
			if !found || v > best {
				best = v
				found = true
			}
		}
	}
	if found {
		bag.Total = floatPtr(best)
	}
}
