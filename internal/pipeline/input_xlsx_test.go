package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"medbill/internal"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"SERVICE_CATEGORY_NAME", "DEFINITION", "OWNER"},
		{"Consults", "Office consults 99242 to 99245", "billing team"},
		{"Lab", "Basic metabolic panel 80048", "lab team"},
	})
	defs, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 {
		t.Fatalf("len=%d", len(defs))
	}
	if defs[0].ServiceCategory != "Consults" || defs[0].Definition != "Office consults 99242 to 99245" {
		t.Fatalf("row 1 bad: %+v", defs[0])
	}
	if defs[0].RowNo != 1 || defs[1].RowNo != 2 {
		t.Fatalf("row numbering bad: %d %d", defs[0].RowNo, defs[1].RowNo)
	}
}

func TestParseXLSXMissingCategoryColumn(t *testing.T) {
	blob := mkXLSX([][]any{
		{"DEFINITION"},
		{"Emergency visits 99281-99285"},
	})
	defs, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Fatalf("len=%d", len(defs))
	}
	if defs[0].ServiceCategory != "" {
		t.Fatalf("category=%q", defs[0].ServiceCategory)
	}
}

func TestParseXLSXSkipsBlankDefinitions(t *testing.T) {
	blob := mkXLSX([][]any{
		{"SERVICE_CATEGORY_NAME", "DEFINITION"},
		{"Consults", ""},
		{"Lab", "Basic metabolic panel 80048"},
	})
	defs, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Fatalf("len=%d", len(defs))
	}
	if defs[0].ServiceCategory != "Lab" {
		t.Fatalf("category=%q", defs[0].ServiceCategory)
	}
}

func TestParseDefinitionsUnsupportedFormat(t *testing.T) {
	if _, err := ParseDefinitions(internal.SourceFormat("csv"), nil); err == nil {
		t.Fatal("expected error")
	}
}
