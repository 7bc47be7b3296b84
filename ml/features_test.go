package ml

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFeatureNames(t *testing.T) {
	names := FeatureNames()
	if len(names) != 8 {
		t.Fatalf("expected 8 features, got %d", len(names))
	}
	names[0] = "changed"
	if KeyFeatures[0] != "koi_prad" {
		t.Fatal("FeatureNames must return a copy")
	}
	for _, name := range KeyFeatures {
		if FeatureDescription(name) == name {
			t.Errorf("missing description for %s", name)
		}
	}
}

func decodeRecord(t *testing.T, body string) map[string]any {
	t.Helper()
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.UseNumber()
	var record map[string]any
	if err := decoder.Decode(&record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return record
}

func TestBuildRow(t *testing.T) {
	names := []string{"b", "a"}
	row, perr := BuildRow(decodeRecord(t, `{"a": 1.5, "b": "2", "extra": "ignored"}`), names)
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}
	if row[0] != 2 || row[1] != 1.5 {
		t.Fatalf("unexpected row order: %v", row)
	}
}

func TestBuildRowErrors(t *testing.T) {
	names := []string{"a", "b"}
	tests := []struct {
		name    string
		body    string
		code    ErrorCode
		feature string
	}{
		{name: "missing key", body: `{"a": 1}`, code: CodeMissingFeature, feature: "b"},
		{name: "null value", body: `{"a": null, "b": 1}`, code: CodeMissingFeature, feature: "a"},
		{name: "non numeric string", body: `{"a": 1, "b": "abc"}`, code: CodeInvalidValue, feature: "b"},
		{name: "boolean", body: `{"a": true, "b": 1}`, code: CodeInvalidValue, feature: "a"},
		{name: "object", body: `{"a": {"x": 1}, "b": 1}`, code: CodeInvalidValue, feature: "a"},
		{name: "nan string", body: `{"a": "NaN", "b": 1}`, code: CodeInvalidValue, feature: "a"},
	}
	for _, tt := range tests {
		_, perr := BuildRow(decodeRecord(t, tt.body), names)
		if perr == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if perr.Code != tt.code || perr.Feature != tt.feature {
			t.Errorf("%s: got code %s feature %q, want %s %q", tt.name, perr.Code, perr.Feature, tt.code, tt.feature)
		}
		if !strings.Contains(perr.Error(), tt.feature) {
			t.Errorf("%s: message %q does not name the feature", tt.name, perr.Error())
		}
	}
}

func TestFeatureVector(t *testing.T) {
	vector, err := FeatureVector(map[string]float64{"a": 1, "b": 2}, []string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector[0] != 2 || vector[1] != 1 {
		t.Fatalf("unexpected vector: %v", vector)
	}

	_, err = FeatureVector(map[string]float64{"a": 1}, []string{"a", "b"})
	var perr *PredictionError
	if !errors.As(err, &perr) || perr.Code != CodeMissingFeature {
		t.Fatalf("expected missing feature error, got %v", err)
	}
}

func TestCoerceFloat(t *testing.T) {
	if v, err := coerceFloat(float64(3)); err != nil || v != 3 {
		t.Fatalf("float64: got %v, %v", v, err)
	}
	if v, err := coerceFloat(" 4.5 "); err != nil || v != 4.5 {
		t.Fatalf("string: got %v, %v", v, err)
	}
	if _, err := coerceFloat(math.Inf(1)); err == nil {
		t.Fatal("expected error for infinity")
	}
}
