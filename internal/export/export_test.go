package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"catalogscan/internal/catalog"
)

func records() []catalog.Record {
	return []catalog.Record{
		{
			Origin: "ring-01.jpg",
			Status: catalog.StatusOK,
			Title:  "Dije Luna",
			Classification: catalog.Classification{
				Category: "Bijouterie/Dijes", Style: "Clásico", Material: "Plata 925",
				Color: "Plateado", Gender: "Mujer",
			},
			Tags:            "dije, luna",
			DurationSeconds: 3.25,
			Extra:           map[string]string{"nombre_archivo_img": "dije-luna.jpg"},
		},
		{
			Origin:     "broken.jpg",
			Status:     catalog.StatusMalformed,
			Title:      catalog.PlaceholderTitle,
			Diagnostic: &catalog.Diagnostic{Kind: "MALFORMED", RawResponse: "no json"},
			Extra:      map[string]string{"medidas": "2cm", "title": "shadow"},
		},
	}
}

func TestColumnsFixedThenSortedExtras(t *testing.T) {
	got := Columns(records())
	want := append(append([]string(nil), FixedColumns...), "extra_title", "medidas", "nombre_archivo_img")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(FixedColumns, Columns(nil)); diff != "" {
		t.Fatalf("empty set should still have fixed columns (-want +got):\n%s", diff)
	}
}

func TestTableFillsMissingCells(t *testing.T) {
	header, rows := Table(records())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if len(r) != len(header) {
			t.Fatalf("row %d has %d cells, header has %d", i, len(r), len(header))
		}
	}
	index := func(col string) int {
		for i, h := range header {
			if h == col {
				return i
			}
		}
		t.Fatalf("column %q missing", col)
		return -1
	}
	if rows[0][index("medidas")] != "" || rows[1][index("medidas")] != "2cm" {
		t.Fatal("extra column values misplaced")
	}
	if rows[1][index("raw_response")] != "no json" || rows[1][index("status")] != "malformed" {
		t.Fatalf("diagnostic columns wrong: %v", rows[1])
	}
	if rows[0][index("duration_seconds")] != "3.25" {
		t.Fatalf("duration = %q", rows[0][index("duration_seconds")])
	}
}

func TestExtraKeysNeverShareAColumn(t *testing.T) {
	recs := []catalog.Record{
		{Origin: "a.jpg", Status: catalog.StatusOK, Extra: map[string]string{"origin": "from-model"}},
		{Origin: "b.jpg", Status: catalog.StatusOK, Extra: map[string]string{"extra_origin": "literal"}},
	}
	header, rows := Table(recs)
	wantExtras := []string{"extra_origin", "extra_origin_2"}
	if diff := cmp.Diff(wantExtras, header[len(FixedColumns):]); diff != "" {
		t.Fatalf("extra columns mismatch (-want +got):\n%s", diff)
	}
	got := [][]string{
		rows[0][len(FixedColumns):],
		rows[1][len(FixedColumns):],
	}
	want := [][]string{
		{"", "from-model"},
		{"literal", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("extra values mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records()[:1]); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[0][2] != "category" || rows[1][2] != "Bijouterie/Dijes" || rows[1][0] != "ring-01.jpg" {
		t.Fatalf("unexpected csv rows %v", rows)
	}
}

func TestSinkWritesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.xlsx")
	sink, err := New(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if sink.Format() != "xlsx" {
		t.Fatalf("format = %q", sink.Format())
	}
	if err := sink.Write(context.Background(), records()[:1]); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected exactly one data row, got %d rows", len(rows)-1)
	}
	if rows[0][0] != "origin" || rows[0][2] != "category" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "ring-01.jpg" || rows[1][2] != "Bijouterie/Dijes" {
		t.Fatalf("unexpected data row %v", rows[1])
	}
}

func TestSinkCSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.CSV")
	sink, err := New(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(context.Background(), records()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("origin,title,category")) {
		t.Fatalf("unexpected csv prefix %q", data[:30])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("out.ods", "ods"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
