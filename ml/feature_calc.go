package ml

import (
	"math"
	"slices"
)

// Median returns the median of the finite-or-infinite values in values,
// skipping NaN. With an even count it averages the two middle values.
// It returns NaN when no value is present.
func Median(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	slices.Sort(present)
	mid := len(present) / 2
	if len(present)%2 == 0 {
		return (present[mid-1] + present[mid]) / 2
	}
	return present[mid]
}

// ColumnValues extracts column col from rows. A nil indices selects every row.
func ColumnValues(rows [][]float64, col int, indices []int) []float64 {
	if indices == nil {
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = row[col]
		}
		return values
	}
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = rows[idx][col]
	}
	return values
}

func ClassCounts(labels []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, label := range labels {
		if label >= 0 && label < numClasses {
			counts[label]++
		}
	}
	return counts
}

// argmax returns the first index holding the maximum value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func normalize(values []float64, total float64) []float64 {
	out := make([]float64, len(values))
	if total <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
