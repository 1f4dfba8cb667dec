// Package query turns raw user input into an executable search plan:
// a classifier decides what kind of token the user typed, and a
// planner expands that into weighted clauses for the index.
package query

// Index field paths referenced by plans.
const (
	FieldPath             = "path"
	FieldFilename         = "filename"
	FieldFilenameEdge     = "filename_edge"
	FieldText             = "text"
	FieldTextEdge         = "text_edge"
	FieldIndexedAt        = "indexed_at"
	FieldTaxID            = "entities.tax_id"
	FieldCounterpartTaxID = "entities.counterpart_tax_id"
	FieldIBAN             = "entities.iban"
	FieldInvoiceNo        = "entities.invoice_no"
	FieldTotal            = "entities.total"
	FieldDate             = "entities.date"
	FieldSupplier         = "entities.supplier"
	FieldClient           = "entities.client"
)

// Intent is the detected shape of a raw query.
type Intent string

const (
	IntentTaxID    Intent = "tax_id"
	IntentIBAN     Intent = "iban"
	IntentAmount   Intent = "amount"
	IntentInvoice  Intent = "invoice"
	IntentName     Intent = "name"
	IntentFreeText Intent = "free_text"
)

// Classification is the classifier verdict for one raw query.
type Classification struct {
	Intent Intent

	// Value is the token the planner should match on. For tax ids and
	// IBANs it is the normalized identifier, otherwise the trimmed
	// query.
	Value string

	// Amount is the parsed monetary value, set only for IntentAmount.
	Amount float64

	// ChecksumOK reports whether a tax-id token also passes the
	// checksum validator. Informational; shape alone decides intent.
	ChecksumOK bool
}

// Mode selects strict or recall-oriented matching.
type Mode string

const (
	ModeExact Mode = "exact"
	ModeFuzzy Mode = "fuzzy"
)

// ClauseKind discriminates Clause payloads.
type ClauseKind string

const (
	ClauseTerm         ClauseKind = "term"
	ClausePhrase       ClauseKind = "phrase"
	ClauseMatch        ClauseKind = "match"
	ClauseFuzzy        ClauseKind = "fuzzy"
	ClauseWildcard     ClauseKind = "wildcard"
	ClausePrefix       ClauseKind = "prefix"
	ClauseNumericRange ClauseKind = "numeric_range"
	ClauseDateRange    ClauseKind = "date_range"
)

// Clause is one field-scoped predicate inside a plan.
type Clause struct {
	Kind  ClauseKind
	Field string
	Text  string
	Boost float64

	// Numeric range bounds, inclusive. Nil means unbounded.
	Min *float64
	Max *float64

	// Date range bounds in ISO form. Empty means unbounded.
	Start string
	End   string
}

// Plan is the storage-agnostic query tree: every Must clause is
// required, and when Should clauses exist at least MinShould of them
// must match too. An empty plan matches everything in scope.
type Plan struct {
	Must      []Clause
	Should    []Clause
	MinShould int
}

func term(field, text string) Clause {
	return Clause{Kind: ClauseTerm, Field: field, Text: text}
}

func prefix(field, text string) Clause {
	return Clause{Kind: ClausePrefix, Field: field, Text: text}
}

func phrase(field, text string, boost float64) Clause {
	return Clause{Kind: ClausePhrase, Field: field, Text: text, Boost: boost}
}

func match(field, text string, boost float64) Clause {
	return Clause{Kind: ClauseMatch, Field: field, Text: text, Boost: boost}
}

func fuzzy(field, text string, boost float64) Clause {
	return Clause{Kind: ClauseFuzzy, Field: field, Text: text, Boost: boost}
}
