package record

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/WhiteShieldPT/docsearch-pt/internal/entity"
	"github.com/WhiteShieldPT/docsearch-pt/internal/extract"
)

// Build assembles the index document for one file from its extraction
// result and entity bag. Calendar facets come from the normalized date
// only; without a date none of year, month, or quarter is set.
func Build(path string, fileSize int64, res extract.Result, bag entity.Bag, now time.Time) IndexRecord {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	id := DocID(abs)

	rec := IndexRecord{
		ID:           id,
		Filename:     filepath.Base(abs),
		Extension:    strings.TrimPrefix(strings.ToLower(filepath.Ext(abs)), "."),
		Path:         abs,
		Text:         res.Text,
		FilenameEdge: filepath.Base(abs),
		TextEdge:     res.Text,
		Language:     "pt",
		Pages:        res.Pages,
		FileSize:     fileSize,
		Checksum:     id,
		Engine:       string(res.Engine),
		Confidence:   res.Confidence,
		ProcessingMS: res.Duration.Milliseconds(),
		IndexedAt:    now.UTC(),
	}

	if fields := bag.Fields(); len(fields) > 0 {
		rec.Entities = fields
	}

	if bag.Date != nil {
		if y, m, q, ok := entity.YearMonthQuarter(*bag.Date); ok {
			rec.Year = &y
			rec.Month = &m
			rec.Quarter = &q
		}
	}

	if bag.Supplier != nil {
		if kw := supplierKeyword(*bag.Supplier); kw != "" {
			rec.SupplierKeyword = &kw
		}
	}

	if invoiceWordRe.MatchString(res.Text) {
		dt := "Fatura"
		rec.DocumentType = &dt
	}

	return rec
}
