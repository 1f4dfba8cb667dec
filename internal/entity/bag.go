// Package entity implements rule-based extraction of structured fields
// from raw document text: tax identifiers, IBAN, dates, invoice
// numbers, monetary amounts, and counterpart names. Extraction is pure
// and deterministic; a field that cannot be parsed is omitted, never
// guessed or zero-filled.
package entity

// Field keys as they appear in the index under "entities.".
const (
	KeyTaxID            = "tax_id"
	KeyCounterpartTaxID = "counterpart_tax_id"
	KeyIBAN             = "iban"
	KeyDate             = "date"
	KeyInvoiceNo        = "invoice_no"
	KeyTotal            = "total"
	KeyCurrency         = "currency"
	KeyVATRate          = "vat_rate"
	KeyTaxAmount        = "tax_amount"
	KeyNetTotal         = "net_total"
	KeySupplier         = "supplier"
	KeyClient           = "client"
)

// Bag holds the extracted field values. A nil field means "not found";
// no sentinel values stand in for absence.
type Bag struct {
	TaxID            *string
	CounterpartTaxID *string
	IBAN             *string
	Date             *string // normalized ISO 8601 (YYYY-MM-DD)
	InvoiceNo        *string
	Total            *float64
	Currency         *string
	VATRate          *float64
	TaxAmount        *float64
	NetTotal         *float64
	Supplier         *string
	Client           *string
}

// IsEmpty reports whether no field was extracted.
func (b Bag) IsEmpty() bool {
	return len(b.Fields()) == 0
}

// Fields returns the bag as a key-value map with absent fields omitted,
// ready for indexing under the "entities" sub-document.
func (b Bag) Fields() map[string]any {
	m := make(map[string]any)
	put := func(key string, s *string) {
		if s != nil {
			m[key] = *s
		}
	}
	putf := func(key string, f *float64) {
		if f != nil {
			m[key] = *f
		}
	}
	put(KeyTaxID, b.TaxID)
	put(KeyCounterpartTaxID, b.CounterpartTaxID)
	put(KeyIBAN, b.IBAN)
	put(KeyDate, b.Date)
	put(KeyInvoiceNo, b.InvoiceNo)
	putf(KeyTotal, b.Total)
	put(KeyCurrency, b.Currency)
	putf(KeyVATRate, b.VATRate)
	putf(KeyTaxAmount, b.TaxAmount)
	putf(KeyNetTotal, b.NetTotal)
	put(KeySupplier, b.Supplier)
	put(KeyClient, b.Client)
	return m
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
