package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
)

// imageExtensions are raster formats that may carry an embedded text
// layer the conversion service can read before we resort to OCR.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
}

// pdfExtractor is the native text-layer tier, stubbed in tests.
type pdfExtractor func(path string) (string, int, error)

// converter is the conversion-service tier.
type converter interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// recognizer is the OCR tier.
type recognizer interface {
	Image(ctx context.Context, path string) (string, error)
	PDF(ctx context.Context, path string) (string, int, error)
}

// Orchestrator selects and falls back across text sources for one
// document. It never returns an error: every stage failure is logged
// and treated as an empty result for that stage, and the chain
// proceeds. A document where every tier comes up empty yields an empty
// Result so the file stays discoverable by filename and path.
type Orchestrator struct {
	minTextLen int
	native     pdfExtractor
	conversion converter
	ocr        recognizer
	logger     *slog.Logger
}

// NewOrchestrator wires the three tiers from configuration.
func NewOrchestrator(cfg config.ExtractionConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		minTextLen: cfg.MinTextLength,
		native:     pdfText,
		conversion: NewTikaClient(cfg.TikaURL, cfg.TikaTimeout),
		ocr:        NewOCR(cfg),
		logger:     logger,
	}
}

// Extract runs the fallback chain appropriate for the document type.
func (o *Orchestrator) Extract(ctx context.Context, path string) Result {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(path))

	var res Result
	switch {
	case ext == ".pdf":
		res = o.extractPDF(ctx, path)
	case imageExtensions[ext]:
		res = o.extractImage(ctx, path)
	default:
		res = o.extractOther(ctx, path)
	}

	res.Duration = time.Since(start)
	return res
}

// extractPDF tries native text layer, then conversion service, then
// page-by-page OCR. The acceptance threshold keeps a few stray
// characters from a noisy text layer from masking a scanned document.
func (o *Orchestrator) extractPDF(ctx context.Context, path string) Result {
	pages := 0

	text, pageCount, err := o.native(path)
	if err != nil {
		o.logger.Warn("native pdf extraction failed", "path", path, "error", err)
	} else {
		pages = pageCount
		if len(text) > o.minTextLen {
			return Result{Text: text, Engine: EngineNative, Pages: pages, Confidence: lengthConfidence(text)}
		}
	}

	text, err = o.conversion.ExtractText(ctx, path)
	if err != nil {
		o.logger.Warn("conversion service failed", "path", path, "error", err)
	} else if len(text) > o.minTextLen {
		return Result{Text: text, Engine: EngineConversion, Pages: pages, Confidence: lengthConfidence(text)}
	}

	text, ocrPages, err := o.ocr.PDF(ctx, path)
	if err != nil {
		o.logger.Warn("pdf ocr failed", "path", path, "error", err)
		return Result{Pages: pages}
	}
	if pages == 0 {
		pages = ocrPages
	}
	if text != "" {
		o.logger.Info("text recovered via ocr", "path", filepath.Base(path))
	}
	// OCR yields no comparable confidence score.
	return Result{Text: text, Engine: EngineOCR, Pages: pages}
}

// extractImage tries the conversion service first (some images embed a
// text layer), then OCR on the image itself.
func (o *Orchestrator) extractImage(ctx context.Context, path string) Result {
	text, err := o.conversion.ExtractText(ctx, path)
	if err != nil {
		o.logger.Warn("conversion service failed", "path", path, "error", err)
	} else if strings.TrimSpace(text) != "" {
		return Result{Text: text, Engine: EngineConversion}
	}

	text, err = o.ocr.Image(ctx, path)
	if err != nil {
		o.logger.Warn("image ocr failed", "path", path, "error", err)
		return Result{}
	}
	if text != "" {
		o.logger.Info("text recovered via ocr", "path", filepath.Base(path))
	}
	return Result{Text: text, Engine: EngineOCR}
}

// extractOther is a single conversion-service attempt, no fallback.
func (o *Orchestrator) extractOther(ctx context.Context, path string) Result {
	text, err := o.conversion.ExtractText(ctx, path)
	if err != nil {
		o.logger.Warn("conversion service failed", "path", path, "error", err)
		return Result{}
	}
	return Result{Text: text, Engine: EngineConversion}
}
