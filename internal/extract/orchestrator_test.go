package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubConverter struct {
	text   string
	err    error
	called int
}

func (s *stubConverter) ExtractText(ctx context.Context, path string) (string, error) {
	s.called++
	return s.text, s.err
}

type stubOCR struct {
	imageText string
	pdfText   string
	pdfPages  int
	err       error
	called    int
}

func (s *stubOCR) Image(ctx context.Context, path string) (string, error) {
	s.called++
	return s.imageText, s.err
}

func (s *stubOCR) PDF(ctx context.Context, path string) (string, int, error) {
	s.called++
	return s.pdfText, s.pdfPages, s.err
}

func newTestOrchestrator(native pdfExtractor, conv converter, ocr recognizer) *Orchestrator {
	return &Orchestrator{
		minTextLen: 40,
		native:     native,
		conversion: conv,
		ocr:        ocr,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func longText(prefix string) string {
	return prefix + strings.Repeat(" fatura", 20)
}

// =============================================================================
// PDF Fallback Chain Tests
// =============================================================================

func TestExtract_PDFNativeWins(t *testing.T) {
	conv := &stubConverter{text: longText("tika")}
	ocr := &stubOCR{}
	o := newTestOrchestrator(func(string) (string, int, error) {
		return longText("native"), 4, nil
	}, conv, ocr)

	res := o.Extract(context.Background(), "/docs/a.pdf")

	assert.Equal(t, EngineNative, res.Engine)
	assert.Equal(t, 4, res.Pages)
	assert.NotNil(t, res.Confidence)
	assert.Zero(t, conv.called)
	assert.Zero(t, ocr.called)
}

func TestExtract_PDFEmptyNativeFallsToConversionNeverOCR(t *testing.T) {
	conv := &stubConverter{text: longText("tika")}
	ocr := &stubOCR{pdfText: "should never be used"}
	o := newTestOrchestrator(func(string) (string, int, error) {
		return "", 2, nil
	}, conv, ocr)

	res := o.Extract(context.Background(), "/docs/scan.pdf")

	assert.Equal(t, EngineConversion, res.Engine)
	assert.Equal(t, 2, res.Pages, "page count survives from the native pass")
	assert.Zero(t, ocr.called, "OCR must not run when conversion succeeds")
}

func TestExtract_PDFShortTextBelowThresholdIsRejected(t *testing.T) {
	// Both tiers return stray characters under the threshold; the
	// chain must continue to OCR instead of accepting noise.
	conv := &stubConverter{text: "x y"}
	ocr := &stubOCR{pdfText: "texto ocr", pdfPages: 3}
	o := newTestOrchestrator(func(string) (string, int, error) {
		return "ab", 0, nil
	}, conv, ocr)

	res := o.Extract(context.Background(), "/docs/noisy.pdf")

	assert.Equal(t, EngineOCR, res.Engine)
	assert.Equal(t, "texto ocr", res.Text)
	assert.Equal(t, 3, res.Pages)
	assert.Nil(t, res.Confidence, "OCR yields no confidence score")
}

func TestExtract_PDFAllTiersFailYieldsEmptyResult(t *testing.T) {
	conv := &stubConverter{err: errors.New("tika down")}
	ocr := &stubOCR{err: errors.New("tesseract missing")}
	o := newTestOrchestrator(func(string) (string, int, error) {
		return "", 0, errors.New("corrupt pdf")
	}, conv, ocr)

	res := o.Extract(context.Background(), "/docs/broken.pdf")

	assert.Empty(t, res.Text)
	assert.Empty(t, string(res.Engine))
	assert.Nil(t, res.Confidence)
}

// =============================================================================
// Image and Other-Type Tests
// =============================================================================

func TestExtract_ImageConversionFirstThenOCR(t *testing.T) {
	conv := &stubConverter{text: "  "}
	ocr := &stubOCR{imageText: "texto da imagem"}
	o := newTestOrchestrator(nil, conv, ocr)

	res := o.Extract(context.Background(), "/docs/recibo.jpg")

	assert.Equal(t, EngineOCR, res.Engine)
	assert.Equal(t, "texto da imagem", res.Text)
	assert.Equal(t, 1, conv.called)
}

func TestExtract_ImageConversionTextAccepted(t *testing.T) {
	conv := &stubConverter{text: "texto embutido"}
	ocr := &stubOCR{}
	o := newTestOrchestrator(nil, conv, ocr)

	res := o.Extract(context.Background(), "/docs/digitalizacao.png")

	assert.Equal(t, EngineConversion, res.Engine)
	assert.Zero(t, ocr.called)
}

func TestExtract_OtherTypesSingleAttempt(t *testing.T) {
	conv := &stubConverter{text: "folha de cálculo"}
	ocr := &stubOCR{}
	o := newTestOrchestrator(nil, conv, ocr)

	res := o.Extract(context.Background(), "/docs/mapa.xlsx")

	assert.Equal(t, EngineConversion, res.Engine)
	assert.Equal(t, "folha de cálculo", res.Text)
	assert.Zero(t, ocr.called)
}
