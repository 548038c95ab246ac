package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"medbill/internal"
)

type stubCompleter func(prompt string) (string, error)

func (f stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return f(prompt)
}

func TestBuildPromptInterpolatesDefinition(t *testing.T) {
	prompt := BuildPrompt("Office visit codes 99242 to 99245, females 18-65")
	if !strings.Contains(prompt, "Office visit codes 99242 to 99245, females 18-65") {
		t.Fatal("definition not interpolated")
	}
	for _, key := range []string{"serviceCodes", "diagnosisCodes", "revenueCodes", "modifier", "pos", "typeOfBill", "gender", "minAge", "maxAge"} {
		if !strings.Contains(prompt, `"`+key+`"`) {
			t.Fatalf("prompt missing key %s", key)
		}
	}
	if !strings.Contains(prompt, "STRICT JSON") {
		t.Fatal("prompt missing strict JSON rule")
	}
}

func TestParseRecordFenced(t *testing.T) {
	response := "```json\n{\"serviceCodes\": [\"99213\"], \"gender\": \"F\"}\n```"
	record, err := ParseRecord(response)
	if err != nil {
		t.Fatal(err)
	}
	if len(record.ServiceCodes) != 1 || record.ServiceCodes[0] != "99213" {
		t.Fatalf("serviceCodes=%v", record.ServiceCodes)
	}
	if record.Gender != "F" {
		t.Fatalf("gender=%q", record.Gender)
	}
}

func TestParseRecordCoercesMixedTypes(t *testing.T) {
	response := `{"serviceCodes": [99213, "99214-99216"], "diagnosisCodes": ["E11.9"], "pos": [11], "minAge": 18, "maxAge": "65"}`
	record, err := ParseRecord(response)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(record.ServiceCodes, []string{"99213", "99214-99216"}) {
		t.Fatalf("serviceCodes=%v", record.ServiceCodes)
	}
	if !reflect.DeepEqual(record.POS, []string{"11"}) {
		t.Fatalf("pos=%v", record.POS)
	}
	if record.MinAge != "18" || record.MaxAge != "65" {
		t.Fatalf("ages=%q..%q", record.MinAge, record.MaxAge)
	}
}

func TestParseRecordMissingFieldsDefaultEmpty(t *testing.T) {
	record, err := ParseRecord(`{"serviceCodes": ["10"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if record.DiagnosisCodes != nil || record.RevenueCodes != nil || record.POS != nil {
		t.Fatalf("expected empty slices: %+v", record)
	}
	if record.Modifier != "" || record.Gender != "" || record.TypeOfBill != "" {
		t.Fatalf("expected empty strings: %+v", record)
	}
}

func TestParseRecordRejectsNonJSON(t *testing.T) {
	for _, response := range []string{"not json at all", "[1,2,3]", ""} {
		if _, err := ParseRecord(response); err == nil {
			t.Fatalf("expected error for %q", response)
		}
	}
}

func TestExtractServiceFailureIsContained(t *testing.T) {
	e := NewExtractor(stubCompleter(func(string) (string, error) {
		return "", errors.New("connection refused")
	}))
	outcome := e.Extract(context.Background(), "some definition")
	if outcome.Status != internal.ExtractionError {
		t.Fatalf("status=%s", outcome.Status)
	}
	if !outcome.Record.IsEmpty() {
		t.Fatalf("record not sentinel: %+v", outcome.Record)
	}
}

func TestExtractEmptyObjectIsSentinel(t *testing.T) {
	e := NewExtractor(stubCompleter(func(string) (string, error) {
		return "{}", nil
	}))
	outcome := e.Extract(context.Background(), "nothing here")
	if outcome.Status != internal.ExtractionEmpty {
		t.Fatalf("status=%s", outcome.Status)
	}
}

func TestExtractMalformedResponseIsContained(t *testing.T) {
	e := NewExtractor(stubCompleter(func(string) (string, error) {
		return "Sure! Here is the data you asked for.", nil
	}))
	outcome := e.Extract(context.Background(), "some definition")
	if outcome.Status != internal.ExtractionError {
		t.Fatalf("status=%s", outcome.Status)
	}
	if outcome.Err == nil {
		t.Fatal("expected parse error")
	}
}
