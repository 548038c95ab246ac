package pipeline

import (
	"medbill/internal"
	"medbill/internal/util"
)

// BuildBillingRows fans one extracted record out into billing rows, one per
// resolved service code. The prompt already asks the model to expand code
// ranges, but the codes are re-expanded here so the output is correct even
// when the model ignores that rule. An empty record or an empty resolved
// code list yields zero rows.
func BuildBillingRows(serviceCategory string, record internal.ExtractedRecord) []internal.BillingRow {
	if record.IsEmpty() {
		return nil
	}

	serviceCodes := ExpandServiceRanges(record.ServiceCodes)

	ageRange := ""
	if record.MinAge != "" || record.MaxAge != "" {
		ageRange = record.MinAge + "-" + record.MaxAge
	}

	diagnosisString := util.SafeJoin(record.DiagnosisCodes)
	revenueString := util.SafeJoin(record.RevenueCodes)
	posString := util.SafeJoin(record.POS)

	rows := make([]internal.BillingRow, 0, len(serviceCodes))
	for _, code := range serviceCodes {
		rows = append(rows, internal.BillingRow{
			ServiceCategory: serviceCategory,
			ServiceCode:     code,
			RevenueCode:     revenueString,
			Gender:          record.Gender,
			Age:             ageRange,
			DiagnosisCode:   diagnosisString,
			POS:             posString,
			TypeOfBill:      record.TypeOfBill,
			Modifier:        record.Modifier,
			Minutes:         1,
			BilledAmnt:      100,
		})
	}

	return rows
}
