package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Dataset struct {
	Features []string
	Rows     [][]float64
	Labels   []string
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// MissingCount returns the number of NaN cells per feature.
func (d *Dataset) MissingCount() map[string]int {
	counts := make(map[string]int, len(d.Features))
	for _, name := range d.Features {
		counts[name] = 0
	}
	for _, row := range d.Rows {
		for j, v := range row {
			if math.IsNaN(v) {
				counts[d.Features[j]]++
			}
		}
	}
	return counts
}

var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"null": true,
	"NULL": true,
	"None": true,
	"#N/A": true,
}

// LoadDataset reads the KOI table at path, keeping LabelColumn and KeyFeatures.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ds, err := ReadCSV(file, LabelColumn, KeyFeatures)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses a headed CSV. Lines starting with '#' are skipped and a
// leading byte order mark is dropped. Empty feature cells become NaN.
// Input that is not valid UTF-8 fails with encoding.ErrInvalidUTF8.
func ReadCSV(r io.Reader, labelColumn string, features []string) (*Dataset, error) {
	decoded := transform.NewReader(r, transform.Chain(encoding.UTF8Validator, unicode.BOMOverride(transform.Nop)))
	reader := csv.NewReader(decoded)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	labelIdx, ok := columns[labelColumn]
	if !ok {
		return nil, fmt.Errorf("label column %q not found", labelColumn)
	}
	featureIdx := make([]int, len(features))
	for i, name := range features {
		idx, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("feature column %q not found", name)
		}
		featureIdx[i] = idx
	}

	ds := &Dataset{Features: append([]string(nil), features...)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(ds.Rows)+1, err)
		}
		line, _ := reader.FieldPos(0)

		label := strings.TrimSpace(record[labelIdx])
		if missingTokens[label] {
			return nil, fmt.Errorf("line %d: empty %s", line, labelColumn)
		}
		row := make([]float64, len(features))
		for i, idx := range featureIdx {
			cell := strings.TrimSpace(record[idx])
			if missingTokens[cell] {
				row[i] = math.NaN()
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %q is not numeric", line, features[i], cell)
			}
			row[i] = value
		}
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Rows) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}
