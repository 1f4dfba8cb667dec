// Package record builds the index document for one ingested file:
// identity, raw text, extracted entities, calendar facets, and
// processing metadata.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// invoiceWordRe classifies a document as an invoice on a whole-word
// locale term match.
var invoiceWordRe = regexp.MustCompile(`(?i)\bFatura\b`)

const supplierKeywordMax = 40

// IndexRecord is the document shape persisted to the index. Pointer
// fields are omitted when absent; analytics fields derived from the
// date are all-or-nothing.
type IndexRecord struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	Path      string `json:"path"`
	Text      string `json:"text"`

	// Edge copies feed the partial-token analyzer so half-typed
	// filenames and words still match.
	FilenameEdge string `json:"filename_edge"`
	TextEdge     string `json:"text_edge"`

	Entities map[string]any `json:"entities,omitempty"`
	Language string         `json:"language"`

	Pages    int    `json:"pages"`
	FileSize int64  `json:"file_size"`
	Checksum string `json:"checksum"`

	DocumentType *string `json:"document_type,omitempty"`

	Engine       string   `json:"engine"`
	Confidence   *float64 `json:"confidence,omitempty"`
	ProcessingMS int64    `json:"processing_ms"`

	Year    *int `json:"year,omitempty"`
	Month   *int `json:"month,omitempty"`
	Quarter *int `json:"quarter,omitempty"`

	SupplierKeyword *string `json:"supplier_keyword,omitempty"`

	IndexedAt time.Time `json:"indexed_at"`
}

// DocID derives the stable document id from the absolute file path.
// Identical path means identical id, so re-ingesting overwrites
// instead of duplicating.
func DocID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])
}

// supplierKeyword reduces a supplier name to a coarse facet token:
// the first space-separated word of the first comma segment, capped
// at 40 characters. It is a grouping key, not a validated entity.
func supplierKeyword(supplier string) string {
	seg := supplier
	if i := strings.IndexByte(seg, ','); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.TrimSpace(seg)
	if i := strings.IndexByte(seg, ' '); i >= 0 {
		seg = seg[:i]
	}
	if r := []rune(seg); len(r) > supplierKeywordMax {
		seg = string(r[:supplierKeywordMax])
	}
	return seg
}
