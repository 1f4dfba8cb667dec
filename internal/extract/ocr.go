package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
)

// OCR drives the optical-recognition collaborator. Pages are rasterized
// to grayscale PNGs with pdftoppm and fed to tesseract with a fixed
// two-language model, segmentation mode, and DPI hint. Tesseract's
// plain-text output carries no usable confidence score.
type OCR struct {
	cfg    config.ExtractionConfig
	runner Runner
}

// NewOCR creates an OCR engine with the default exec runner.
func NewOCR(cfg config.ExtractionConfig) *OCR {
	return &OCR{cfg: cfg, runner: execRunner{}}
}

// NewOCRWithRunner creates an OCR engine with a custom runner (tests).
func NewOCRWithRunner(cfg config.ExtractionConfig, runner Runner) *OCR {
	return &OCR{cfg: cfg, runner: runner}
}

// Image runs recognition directly on an image file.
func (o *OCR) Image(ctx context.Context, path string) (string, error) {
	out, errb, err := o.runner.Run(ctx, o.cfg.Tesseract, o.tesseractArgs(path)...)
	if err != nil {
		return "", docerr.New(docerr.ErrCodeOCRFailed,
			fmt.Sprintf("tesseract: %s (%s)", err, truncate(string(errb), 512)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// PDF rasterizes a PDF page by page and recognizes each page.
// One failed page does not abort the rest; its text is simply missing.
func (o *OCR) PDF(ctx context.Context, path string) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "docsearch-ocr-*")
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -gray -png <in.pdf> <tmp/page>
	_, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", o.cfg.RenderDPI), "-gray", "-png", path, prefix)
	if err != nil {
		return "", 0, docerr.New(docerr.ErrCodeOCRFailed,
			fmt.Sprintf("pdftoppm: %s (%s)", err, truncate(string(errb), 512)), err)
	}

	// Rendered pages come out as page-1.png, page-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if o.cfg.MaxPages > 0 && len(matches) > o.cfg.MaxPages {
		matches = matches[:o.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, docerr.New(docerr.ErrCodeOCRFailed, "pdftoppm produced no images", nil)
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := o.Image(ctx, img)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return strings.TrimSpace(b.String()), len(matches), nil
}

func (o *OCR) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", o.cfg.Languages}
	if o.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", o.cfg.PSM))
	}
	if o.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", o.cfg.OEM))
	}
	if o.cfg.DPIHint > 0 {
		args = append(args, "--dpi", fmt.Sprintf("%d", o.cfg.DPIHint))
	}
	return args
}
