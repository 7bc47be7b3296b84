package ml

import (
	"errors"
	"fmt"
	"math"
)

// Imputer replaces missing cells with per-column medians.
type Imputer struct {
	features []string
	medians  []float64
}

func NewImputer(features []string) *Imputer {
	return &Imputer{features: append([]string(nil), features...)}
}

// Fit computes medians over the rows at indices, or over all rows when
// indices is nil.
func (im *Imputer) Fit(rows [][]float64, indices []int) error {
	if len(rows) == 0 {
		return errors.New("rows is empty")
	}
	medians := make([]float64, len(im.features))
	for col, name := range im.features {
		median := Median(ColumnValues(rows, col, indices))
		if math.IsNaN(median) {
			return fmt.Errorf("column %q has no values to impute from", name)
		}
		medians[col] = median
	}
	im.medians = medians
	return nil
}

func (im *Imputer) Transform(rows [][]float64) ([][]float64, error) {
	if im.medians == nil {
		return nil, errors.New("imputer not fitted")
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(im.medians) {
			return nil, fmt.Errorf("row %d: %w", i, ErrDimensionMismatch)
		}
		filled := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				v = im.medians[j]
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out, nil
}

func (im *Imputer) Medians() map[string]float64 {
	if im.medians == nil {
		return nil
	}
	medians := make(map[string]float64, len(im.features))
	for i, name := range im.features {
		medians[name] = im.medians[i]
	}
	return medians
}
