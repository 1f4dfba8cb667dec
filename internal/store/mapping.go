// Package store wraps a Bleve v2 index as the document search
// backend: per-document upsert and delete keyed by the path-derived
// id, plan-driven search with highlighting, and a cursor for
// maintenance sweeps.
package store

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	"github.com/blevesearch/bleve/v2/analysis/datetime/flexible"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	// FoldingAnalyzerName lowercases and strips diacritics so
	// "Construções" and "construcoes" meet in the same term.
	FoldingAnalyzerName = "folding"

	// EdgeAnalyzerName adds edge n-grams on top of folding for
	// partial-token completion matching.
	EdgeAnalyzerName = "edge"

	edgeFilterName = "edge_ngram_3_20"

	// isoDateParserName accepts the normalized entity date alongside
	// full timestamps.
	isoDateParserName = "iso_date"
)

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomDateTimeParser(isoDateParserName, map[string]interface{}{
		"type":    flexible.Name,
		"layouts": []interface{}{"2006-01-02", time.RFC3339},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add date parser: %w", err)
	}

	err = im.AddCustomAnalyzer(FoldingAnalyzerName, map[string]interface{}{
		"type":         custom.Name,
		"char_filters": []string{asciifolding.Name},
		"tokenizer":    unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add folding analyzer: %w", err)
	}

	err = im.AddCustomTokenFilter(edgeFilterName, map[string]interface{}{
		"type": edgengram.Name,
		"min":  3.0,
		"max":  20.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add edge filter: %w", err)
	}

	err = im.AddCustomAnalyzer(EdgeAnalyzerName, map[string]interface{}{
		"type":         custom.Name,
		"char_filters": []string{asciifolding.Name},
		"tokenizer":    unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			edgeFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add edge analyzer: %w", err)
	}

	folded := bleve.NewTextFieldMapping()
	folded.Analyzer = FoldingAnalyzerName

	edge := bleve.NewTextFieldMapping()
	edge.Analyzer = EdgeAnalyzerName
	edge.Store = false

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	number := bleve.NewNumericFieldMapping()

	date := bleve.NewDateTimeFieldMapping()
	date.DateFormat = isoDateParserName

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("filename", folded)
	doc.AddFieldMappingsAt("filename_edge", edge)
	doc.AddFieldMappingsAt("text", folded)
	doc.AddFieldMappingsAt("text_edge", edge)
	doc.AddFieldMappingsAt("path", exact)
	doc.AddFieldMappingsAt("extension", exact)
	doc.AddFieldMappingsAt("language", exact)
	doc.AddFieldMappingsAt("engine", exact)
	doc.AddFieldMappingsAt("document_type", exact)
	doc.AddFieldMappingsAt("supplier_keyword", exact)
	doc.AddFieldMappingsAt("checksum", exact)
	doc.AddFieldMappingsAt("id", exact)
	doc.AddFieldMappingsAt("pages", number)
	doc.AddFieldMappingsAt("file_size", number)
	doc.AddFieldMappingsAt("processing_ms", number)
	doc.AddFieldMappingsAt("confidence", number)
	doc.AddFieldMappingsAt("year", number)
	doc.AddFieldMappingsAt("month", number)
	doc.AddFieldMappingsAt("quarter", number)
	doc.AddFieldMappingsAt("indexed_at", bleve.NewDateTimeFieldMapping())

	entities := bleve.NewDocumentMapping()
	entities.AddFieldMappingsAt("tax_id", exact)
	entities.AddFieldMappingsAt("counterpart_tax_id", exact)
	entities.AddFieldMappingsAt("iban", exact)
	entities.AddFieldMappingsAt("invoice_no", exact)
	entities.AddFieldMappingsAt("currency", exact)
	entities.AddFieldMappingsAt("date", date)
	entities.AddFieldMappingsAt("total", number)
	entities.AddFieldMappingsAt("vat_rate", number)
	entities.AddFieldMappingsAt("tax_amount", number)
	entities.AddFieldMappingsAt("net_total", number)
	entities.AddFieldMappingsAt("supplier", folded)
	entities.AddFieldMappingsAt("client", folded)
	doc.AddSubDocumentMapping("entities", entities)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = FoldingAnalyzerName

	return im, nil
}
