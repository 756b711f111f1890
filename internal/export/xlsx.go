package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"docextract/internal/domain"
	"docextract/internal/service"
)

// Sheet names used for the exported workbook.
const (
	InvoiceSheet  = "Invoice_Details"
	ContractSheet = "Contract_Details"
)

// WriteXLSX writes items as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, kind domain.DocumentKind, items []service.BatchItem) error {
	cols, err := Columns(kind)
	if err != nil {
		return err
	}
	headers, _ := Headers(kind)
	sheet := ContractSheet
	if kind == domain.DocumentKindInvoice {
		sheet = InvoiceSheet
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	widths := make([]float64, 0, len(headers))
	widths = append(widths, 30, 10, 14)
	for _, c := range cols {
		widths = append(widths, c.Width)
	}
	widths = append(widths, 30)
	for i, width := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("setting width of column %s: %w", name, err)
		}
	}

	for i := range items {
		row := itemToRow(&items[i], cols)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}
