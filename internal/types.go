package internal

type SourceFormat string

const (
	FormatXLSX SourceFormat = "xlsx"
	FormatHTML SourceFormat = "html"
	FormatPDF  SourceFormat = "pdf"
)

type SourceRow struct {
	ID         int
	Path       string
	Format     string
	Hash       string
	Status     string
	ImportedAt string
}

type DefinitionRow struct {
	ID              int
	SourceID        int
	RowNo           int
	ServiceCategory string
	Definition      string
}

type ExtractionStatus string

const (
	ExtractionOK    ExtractionStatus = "OK"
	ExtractionEmpty ExtractionStatus = "EMPTY"
	ExtractionError ExtractionStatus = "ERROR"
)

// ExtractedRecord is the structured result of interpreting one free-text
// definition. Fields missing from the raw response decode to their empty
// form, never nil propagated downstream.
type ExtractedRecord struct {
	ServiceCodes   []string `json:"serviceCodes"`
	DiagnosisCodes []string `json:"diagnosisCodes"`
	RevenueCodes   []string `json:"revenueCodes"`
	Modifier       string   `json:"modifier"`
	POS            []string `json:"pos"`
	TypeOfBill     string   `json:"typeOfBill"`
	Gender         string   `json:"gender"`
	MinAge         string   `json:"minAge"`
	MaxAge         string   `json:"maxAge"`
}

// IsEmpty reports whether the record is the no-data sentinel: nothing was
// extracted, so the definition contributes no billing rows.
func (r ExtractedRecord) IsEmpty() bool {
	return len(r.ServiceCodes) == 0 &&
		len(r.DiagnosisCodes) == 0 &&
		len(r.RevenueCodes) == 0 &&
		len(r.POS) == 0 &&
		r.Modifier == "" &&
		r.TypeOfBill == "" &&
		r.Gender == "" &&
		r.MinAge == "" &&
		r.MaxAge == ""
}

// BillingRow is one exported billing record: one row per resolved service
// code per definition. Minutes and BilledAmnt are static placeholders.
type BillingRow struct {
	ServiceCategory string
	ServiceCode     string
	RevenueCode     string
	Gender          string
	Age             string
	DiagnosisCode   string
	POS             string
	TypeOfBill      string
	Modifier        string
	Minutes         int
	BilledAmnt      int
}

type RunCounts struct {
	Definitions int `json:"definitions"`
	Extracted   int `json:"extracted"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	RowsEmitted int `json:"rowsEmitted"`
}
