// Package extract implements the multi-stage text-extraction chain.
// PDFs try the native text layer first, then the conversion service,
// then page-by-page OCR; images try the conversion service then OCR;
// everything else gets a single conversion-service attempt. A stage
// failure is never fatal; the chain degrades to an empty result.
package extract

import "time"

// Engine identifies which extraction tier produced the text.
type Engine string

const (
	// EngineNative is the PDF text layer.
	EngineNative Engine = "native"
	// EngineConversion is the external conversion service.
	EngineConversion Engine = "conversion"
	// EngineOCR is optical recognition on rasterized pages.
	EngineOCR Engine = "ocr"
)

// Result is the outcome of extracting text from one document.
type Result struct {
	// Text is the extracted text. Empty when no tier recovered anything.
	Text string

	// Engine is the tier that produced Text. Empty when Text is empty
	// and no tier reported success.
	Engine Engine

	// Pages is the page count when known (0 = unknown).
	Pages int

	// Confidence is a heuristic proxy, scale depends on the engine and
	// values are never comparable across engines. Nil means the engine
	// yields no score (OCR in particular).
	Confidence *float64

	// Duration is the wall time spent across all attempted tiers.
	Duration time.Duration
}

// lengthConfidence is the heuristic confidence proxy for text-layer
// engines: length/10000, unbounded.
func lengthConfidence(text string) *float64 {
	c := float64(len(text)) / 10000.0
	return &c
}
