package query

// AmountTolerance absorbs formatting and rounding noise when matching
// a typed amount against the indexed total.
const AmountTolerance = 0.01

// Filters are the structured search controls, applied when no
// universal query text is given.
type Filters struct {
	Text     string
	TaxID    string
	DateFrom string
	DateTo   string
	MinTotal *float64
	MaxTotal *float64
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Text == "" && f.TaxID == "" && f.DateFrom == "" && f.DateTo == "" &&
		f.MinTotal == nil && f.MaxTotal == nil
}

// Options shape the plan independently of the query content.
type Options struct {
	// Mode selects exact or fuzzy matching for name and free-text
	// intents. Defaults to fuzzy.
	Mode Mode

	// Folder scopes every search to one directory subtree.
	Folder string

	// ForceText bypasses intent handling and searches the query as
	// text across every field.
	ForceText bool
}

// BuildPlan expands a classified query plus structured filters into a
// plan. The folder scope is always a required clause. Intent clauses
// are used when query text exists, structured filters otherwise.
func BuildPlan(cls Classification, f Filters, opts Options) Plan {
	var p Plan

	if opts.Folder != "" {
		p.Must = append(p.Must, prefix(FieldPath, opts.Folder))
	}

	switch {
	case cls.Value != "" && opts.ForceText:
		planForceText(&p, cls.Value)
	case cls.Value != "":
		planIntent(&p, cls, opts.Mode)
	default:
		planFilters(&p, f)
	}

	if len(p.Should) > 0 {
		p.MinShould = 1
	}
	return p
}

func planIntent(p *Plan, cls Classification, mode Mode) {
	exact := mode == ModeExact
	q := cls.Value

	switch cls.Intent {
	case IntentTaxID:
		p.Should = append(p.Should,
			term(FieldTaxID, q),
			term(FieldCounterpartTaxID, q),
		)

	case IntentIBAN:
		p.Must = append(p.Must, term(FieldIBAN, q))

	case IntentAmount:
		lo := cls.Amount - AmountTolerance
		hi := cls.Amount + AmountTolerance
		p.Must = append(p.Must, Clause{
			Kind:  ClauseNumericRange,
			Field: FieldTotal,
			Min:   &lo,
			Max:   &hi,
		})

	case IntentInvoice:
		p.Should = append(p.Should,
			match(FieldInvoiceNo, q, 2),
			Clause{Kind: ClauseWildcard, Field: FieldInvoiceNo, Text: "*" + q + "*"},
		)

	case IntentName:
		if exact {
			p.Should = append(p.Should,
				phrase(FieldSupplier, q, 5),
				phrase(FieldClient, q, 5),
				phrase(FieldFilename, q, 3),
				phrase(FieldText, q, 3),
			)
			return
		}
		p.Should = append(p.Should,
			fuzzy(FieldSupplier, q, 3),
			fuzzy(FieldClient, q, 3),
			fuzzy(FieldText, q, 1),
			phrase(FieldSupplier, q, 5),
			phrase(FieldClient, q, 5),
			match(FieldFilenameEdge, q, 3),
			match(FieldTextEdge, q, 2),
		)

	default:
		if exact {
			p.Should = append(p.Should,
				phrase(FieldFilename, q, 3),
				phrase(FieldText, q, 3),
			)
			return
		}
		p.Should = append(p.Should,
			match(FieldFilename, q, 3),
			match(FieldFilenameEdge, q, 3),
			match(FieldText, q, 1),
			match(FieldTextEdge, q, 2),
			match(FieldTaxID, q, 2),
			match(FieldInvoiceNo, q, 2),
			match(FieldIBAN, q, 2),
			fuzzy(FieldSupplier, q, 2.5),
			fuzzy(FieldClient, q, 2.5),
		)
	}
}

// planForceText is the recall hammer: one broad fuzzy union across
// every searchable field, ignoring intent.
func planForceText(p *Plan, q string) {
	p.Should = append(p.Should,
		fuzzy(FieldFilename, q, 3),
		match(FieldFilenameEdge, q, 4),
		fuzzy(FieldText, q, 2),
		match(FieldTextEdge, q, 3),
		fuzzy(FieldSupplier, q, 3),
		fuzzy(FieldClient, q, 3),
		match(FieldInvoiceNo, q, 2),
		match(FieldTaxID, q, 2),
		match(FieldCounterpartTaxID, q, 2),
		match(FieldIBAN, q, 2),
	)
}

func planFilters(p *Plan, f Filters) {
	if f.Text != "" {
		p.Should = append(p.Should,
			match(FieldFilename, f.Text, 3),
			match(FieldText, f.Text, 1),
		)
	}
	if f.TaxID != "" {
		p.Must = append(p.Must, term(FieldTaxID, f.TaxID))
	}
	if f.DateFrom != "" || f.DateTo != "" {
		p.Must = append(p.Must, Clause{
			Kind:  ClauseDateRange,
			Field: FieldDate,
			Start: f.DateFrom,
			End:   f.DateTo,
		})
	}
	if f.MinTotal != nil || f.MaxTotal != nil {
		p.Must = append(p.Must, Clause{
			Kind:  ClauseNumericRange,
			Field: FieldTotal,
			Min:   f.MinTotal,
			Max:   f.MaxTotal,
		})
	}
}
