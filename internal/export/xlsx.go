package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"catalogscan/internal/catalog"
)

// SheetName is the worksheet holding the catalog.
const SheetName = "Catalogo"

// WriteXLSX writes records as a single-sheet workbook with a bold header.
func WriteXLSX(w io.Writer, records []catalog.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	l := newLayout(records)
	header := make([]any, len(l.columns))
	for i, col := range l.columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		cells := l.row(rec)
		values := make([]any, len(cells))
		for j, c := range cells {
			if c.number != nil {
				values[j] = *c.number
			} else {
				values[j] = c.text
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(ref, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
