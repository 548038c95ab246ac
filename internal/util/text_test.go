package util

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSafeJoin(t *testing.T) {
	cases := []struct {
		name  string
		input []string
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "empty", input: []string{}, want: ""},
		{name: "single", input: []string{"A"}, want: "A"},
		{name: "multiple", input: []string{"A", "B", "3"}, want: "A,B,3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SafeJoin(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestToString(t *testing.T) {
	if got := ToString(json.Number("99213")); got != "99213" {
		t.Fatalf("number: %q", got)
	}
	if got := ToString(nil); got != "" {
		t.Fatalf("nil: %q", got)
	}
	if got := ToString(1.5); got != "1.5" {
		t.Fatalf("float: %q", got)
	}
	if got := ToString(map[string]any{}); got != "" {
		t.Fatalf("object: %q", got)
	}
}

func TestToStringSlice(t *testing.T) {
	mixed := []any{"A", json.Number("3"), "", "  ", true}
	if got := ToStringSlice(mixed); !reflect.DeepEqual(got, []string{"A", "3", "true"}) {
		t.Fatalf("mixed: %v", got)
	}
	if got := ToStringSlice(nil); got != nil {
		t.Fatalf("nil: %v", got)
	}
	if got := ToStringSlice("solo"); !reflect.DeepEqual(got, []string{"solo"}) {
		t.Fatalf("scalar: %v", got)
	}
}
