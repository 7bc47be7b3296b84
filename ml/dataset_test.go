package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding"
)

const koiSample = "\ufeff# This file was produced by the NASA Exoplanet Archive\n" +
	"# COLUMN koi_disposition: Exoplanet Archive Disposition\n" +
	"kepid,koi_disposition,koi_period,koi_duration,koi_duration_err2,koi_depth,koi_prad,koi_teq,koi_insol,koi_srad\n" +
	"10797460,CONFIRMED,9.488,2.9575,-0.0819,615.8,2.26,793,93.59,0.927\n" +
	"10811496,CANDIDATE,19.899,1.7822,-0.2738,10829.0,14.6,638,39.3,0.868\n" +
	"10848459,FALSE POSITIVE,1.737,2.40641,,8079.2,33.46,1395,891.96,\n"

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(koiSample), LabelColumn, KeyFeatures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if ds.Labels[2] != "FALSE POSITIVE" {
		t.Fatalf("unexpected label: %q", ds.Labels[2])
	}
	// Columns follow KeyFeatures, not the file order.
	if ds.Rows[0][0] != 2.26 || ds.Rows[0][6] != 9.488 {
		t.Fatalf("unexpected row: %v", ds.Rows[0])
	}
	if !math.IsNaN(ds.Rows[2][1]) || !math.IsNaN(ds.Rows[2][7]) {
		t.Fatalf("expected NaN for empty cells: %v", ds.Rows[2])
	}
	missing := ds.MissingCount()
	if missing["koi_srad"] != 1 || missing["koi_prad"] != 0 {
		t.Fatalf("unexpected missing counts: %v", missing)
	}
}

func TestReadCSVErrors(t *testing.T) {
	header := "koi_disposition,koi_prad,koi_srad,koi_depth,koi_duration,koi_teq,koi_insol,koi_period,koi_duration_err2\n"
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "empty"},
		{name: "no rows", input: header, want: "no rows"},
		{name: "missing label column", input: "koi_prad\n1\n", want: "koi_disposition"},
		{name: "missing feature column", input: "koi_disposition,koi_prad\nCANDIDATE,1\n", want: "koi_srad"},
		{name: "non numeric", input: header + "CANDIDATE,abc,1,1,1,1,1,1,1\n", want: "not numeric"},
		{name: "empty label", input: header + ",1,1,1,1,1,1,1,1\n", want: "empty koi_disposition"},
	}
	for _, tt := range tests {
		_, err := ReadCSV(strings.NewReader(tt.input), LabelColumn, KeyFeatures)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestReadCSVRejectsInvalidUTF8(t *testing.T) {
	header := "koi_disposition,koi_prad,koi_srad,koi_depth,koi_duration,koi_teq,koi_insol,koi_period,koi_duration_err2\n"
	for name, input := range map[string]string{
		"label":  header + "CONFIRMED,1,1,1,1,1,1,1,1\nCAND\xffDATE,1,1,1,1,1,1,1,1\n",
		"header": "koi_disp\xc3osition,koi_prad\n",
		"bom":    "\ufeff" + header + "FALSE\xfe POSITIVE,1,1,1,1,1,1,1,1\n",
	} {
		_, err := ReadCSV(strings.NewReader(input), LabelColumn, KeyFeatures)
		if !errors.Is(err, encoding.ErrInvalidUTF8) {
			t.Errorf("%s: expected ErrInvalidUTF8, got %v", name, err)
		}
	}

	// A leading byte order mark is still accepted.
	ds, err := ReadCSV(strings.NewReader("\ufeff"+header+"CONFIRMED,1,1,1,1,1,1,1,1\n"), LabelColumn, KeyFeatures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Labels[0] != "CONFIRMED" {
		t.Fatalf("unexpected label %q", ds.Labels[0])
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "koi.csv")
	if err := os.WriteFile(path, []byte(koiSample), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Features) != len(KeyFeatures) {
		t.Fatalf("expected %d features, got %d", len(KeyFeatures), len(ds.Features))
	}

	if _, err := LoadDataset(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
