package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medbill/internal"
	"medbill/internal/llm"
	"medbill/internal/util"
)

const promptTemplate = `
You are a medical billing extraction assistant.

Extract structured data from the following definition.

Return STRICT JSON only in this format:

{
  "serviceCodes": [],
  "diagnosisCodes": [],
  "revenueCodes": [],
  "modifier": "",
  "pos": [],
  "typeOfBill": "",
  "gender": "",
  "minAge": "",
  "maxAge": ""
}

Rules:
- Expand service code ranges like "99242 to 99245" into list
- If nothing found return empty
- Return JSON only
- No explanation text

Definition:
%s
`

// Extractor turns one free-text definition into an ExtractedRecord via the
// completion service. Model output is untrusted text: fences are stripped,
// the JSON shape is validated and every field is coerced defensively. Any
// failure degrades to the empty sentinel so one bad row never aborts a run.
type Extractor struct {
	completer llm.Completer
}

func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{completer: completer}
}

func BuildPrompt(definition string) string {
	return fmt.Sprintf(promptTemplate, definition)
}

type ExtractionOutcome struct {
	Record internal.ExtractedRecord
	Raw    string
	Status internal.ExtractionStatus
	Err    error
}

// Extract makes exactly one completion call for the definition. It never
// returns an error to the caller: a service or parse failure yields an
// ERROR outcome with the empty sentinel record, a well-formed response with
// no data yields EMPTY.
func (e *Extractor) Extract(ctx context.Context, definition string) ExtractionOutcome {
	response, err := e.completer.Complete(ctx, BuildPrompt(definition))
	if err != nil {
		return ExtractionOutcome{Status: internal.ExtractionError, Err: err}
	}

	record, err := ParseRecord(response)
	if err != nil {
		return ExtractionOutcome{Raw: response, Status: internal.ExtractionError, Err: err}
	}
	if record.IsEmpty() {
		return ExtractionOutcome{Raw: response, Status: internal.ExtractionEmpty}
	}
	return ExtractionOutcome{Record: record, Raw: response, Status: internal.ExtractionOK}
}

// ParseRecord interprets raw model output as an extraction record.
// Markdown code fences are tolerated; numbers are kept as literal text so
// numeric codes survive untruncated.
func ParseRecord(response string) (internal.ExtractedRecord, error) {
	cleaned := StripCodeFences(response)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return internal.ExtractedRecord{}, fmt.Errorf("response is not a JSON object: %w", err)
	}

	return internal.ExtractedRecord{
		ServiceCodes:   util.ToStringSlice(raw["serviceCodes"]),
		DiagnosisCodes: util.ToStringSlice(raw["diagnosisCodes"]),
		RevenueCodes:   util.ToStringSlice(raw["revenueCodes"]),
		Modifier:       strings.TrimSpace(util.ToString(raw["modifier"])),
		POS:            util.ToStringSlice(raw["pos"]),
		TypeOfBill:     strings.TrimSpace(util.ToString(raw["typeOfBill"])),
		Gender:         strings.TrimSpace(util.ToString(raw["gender"])),
		MinAge:         strings.TrimSpace(util.ToString(raw["minAge"])),
		MaxAge:         strings.TrimSpace(util.ToString(raw["maxAge"])),
	}, nil
}

// StripCodeFences removes markdown fence markers a model may wrap around
// its JSON, including an opening fence with a language tag.
func StripCodeFences(response string) string {
	cleaned := strings.ReplaceAll(response, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
