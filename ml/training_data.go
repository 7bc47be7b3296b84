package ml

import (
	"errors"
	"fmt"
	"slices"
)

// EncodeLabels maps string labels to indices into the sorted set of
// distinct labels.
func EncodeLabels(labels []string) ([]int, []string, error) {
	if len(labels) == 0 {
		return nil, nil, errors.New("labels is empty")
	}
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = index[label]
	}
	return encoded, classes, nil
}

func DecodeLabel(classes []string, label int) (string, error) {
	if label < 0 || label >= len(classes) {
		return "", fmt.Errorf("label %d outside %d classes", label, len(classes))
	}
	return classes[label], nil
}

// SelectRows gathers rows and labels at indices.
func SelectRows(rows [][]float64, labels []int, indices []int) ([][]float64, []int) {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = rows[idx]
		y[i] = labels[idx]
	}
	return x, y
}
