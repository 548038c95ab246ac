package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"medbill/internal"
)

// BillingColumns is the fixed output schema, written even when a run
// produced zero billing rows.
var BillingColumns = []string{
	"ServiceCategory", "ServiceCode", "RevenueCode", "Gender", "Age",
	"DiagnosisCode", "POS", "TypeOfBill", "Modifier", "Minutes", "Billed_Amnt",
}

func ExportRowsToXLSX(rows []internal.BillingRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range BillingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.ServiceCategory)
		set(2, row.ServiceCode)
		set(3, row.RevenueCode)
		set(4, row.Gender)
		set(5, row.Age)
		set(6, row.DiagnosisCode)
		set(7, row.POS)
		set(8, row.TypeOfBill)
		set(9, row.Modifier)
		set(10, row.Minutes)
		set(11, row.BilledAmnt)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
