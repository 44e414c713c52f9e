package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"catalogscan/internal/catalog"
)

// WriteCSV writes records as RFC 4180 CSV with a header row.
func WriteCSV(w io.Writer, records []catalog.Record) error {
	header, rows := Table(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
