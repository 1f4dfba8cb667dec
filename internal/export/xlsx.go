// Package export renders search results as an XLSX workbook for
// accountants and auditors who live in spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
)

const sheet = "Documentos"

var headers = []string{
	"Ficheiro",
	"Caminho",
	"Data",
	"NIF",
	"NIF Contraparte",
	"Fornecedor",
	"Cliente",
	"Nº Fatura",
	"Total",
	"IVA %",
	"IBAN",
	"Indexado em",
}

// ResultsXLSX renders hits into a workbook and returns its bytes.
func ResultsXLSX(hits []store.Hit, logger *slog.Logger) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, docerr.InternalError("cannot create worksheet", err)
	}
	f.SetActiveSheet(index)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, hit := range hits {
		row := rowIdx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, stringField(hit, query.FieldFilename))
		write(2, stringField(hit, query.FieldPath))
		write(3, stringField(hit, query.FieldDate))
		write(4, stringField(hit, query.FieldTaxID))
		write(5, stringField(hit, query.FieldCounterpartTaxID))
		write(6, stringField(hit, query.FieldSupplier))
		write(7, stringField(hit, query.FieldClient))
		write(8, stringField(hit, query.FieldInvoiceNo))
		if total, ok := numberField(hit, query.FieldTotal); ok {
			write(9, total)
		}
		if rate, ok := numberField(hit, "entities.vat_rate"); ok {
			write(10, rate)
		}
		write(11, stringField(hit, query.FieldIBAN))
		write(12, stringField(hit, query.FieldIndexedAt))
	}

	_ = f.SetColWidth(sheet, "A", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "H", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, docerr.InternalError("cannot serialize workbook", err)
	}

	logger.Info("export rendered",
		slog.Int("rows", len(hits)),
		slog.Duration("took", time.Since(start)))
	return buf.Bytes(), nil
}

// Filename suggests a timestamped download name.
func Filename(now time.Time) string {
	return fmt.Sprintf("documentos_%s.xlsx", now.Format("20060102_150405"))
}

func stringField(h store.Hit, field string) string {
	if v, ok := h.Fields[field].(string); ok {
		return v
	}
	return ""
}

func numberField(h store.Hit, field string) (float64, bool) {
	v, ok := h.Fields[field].(float64)
	return v, ok
}
