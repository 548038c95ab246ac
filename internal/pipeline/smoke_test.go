package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"medbill/internal"
	"medbill/internal/config"
	"medbill/internal/storage"
)

func TestSmokeXLSXToBillingXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	input := filepath.Join(tmp, "definitions.xlsx")
	blob := mkXLSX([][]any{
		{"SERVICE_CATEGORY_NAME", "DEFINITION"},
		{"Imaging", "Imaging services 100 through 102, dx X1 and X2, POS 11, TOB 131, females 18-65, modifier M1"},
		{"Unknown", "free text the model cannot interpret"},
	})
	if err := os.WriteFile(input, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	responses := map[string]string{
		"Imaging services": "```json\n" + `{"serviceCodes":["100-102"],"diagnosisCodes":["X1","X2"],"revenueCodes":[],"modifier":"M1","pos":["11"],"typeOfBill":"131","gender":"F","minAge":"18","maxAge":"65"}` + "\n```",
	}
	completer := stubCompleter(func(prompt string) (string, error) {
		for needle, response := range responses {
			if strings.Contains(prompt, needle) {
				return response, nil
			}
		}
		return "{}", nil
	})

	cfg := config.Config{DBPath: filepath.Join(tmp, "app.db"), OutputDir: tmp, RowDelayMs: 0}
	proc := NewProcessingService(db, cfg, completer)

	output := filepath.Join(tmp, "billing.xlsx")
	counts, err := proc.RunOnce(context.Background(), internal.FormatXLSX, input, output)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Definitions != 2 || counts.Extracted != 1 || counts.Skipped != 1 || counts.RowsEmitted != 3 {
		t.Fatalf("counts=%+v", counts)
	}

	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows=%d", len(rows))
	}
	if rows[0][0] != "ServiceCategory" || rows[0][10] != "Billed_Amnt" {
		t.Fatalf("header bad: %v", rows[0])
	}

	wantCodes := []string{"100", "101", "102"}
	for i, want := range wantCodes {
		row := rows[i+1]
		if row[1] != want {
			t.Fatalf("row %d code=%q", i, row[1])
		}
		if row[0] != "Imaging" || row[3] != "F" || row[4] != "18-65" || row[5] != "X1,X2" {
			t.Fatalf("row %d fields bad: %v", i, row)
		}
		if row[6] != "11" || row[7] != "131" || row[8] != "M1" || row[9] != "1" || row[10] != "100" {
			t.Fatalf("row %d fields bad: %v", i, row)
		}
	}
}

func TestSmokeEmptyRunStillWritesHeaders(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "empty.xlsx")
	if err := ExportRowsToXLSX(nil, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d", len(rows))
	}
	if len(rows[0]) != len(BillingColumns) {
		t.Fatalf("header len=%d", len(rows[0]))
	}
}
