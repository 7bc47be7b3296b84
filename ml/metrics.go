package ml

import (
	"errors"
	"fmt"
)

type ClassReport struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Report struct {
	Accuracy       float64       `json:"accuracy"`
	MacroPrecision float64       `json:"macro_precision"`
	MacroRecall    float64       `json:"macro_recall"`
	Classes        []ClassReport `json:"classes"`
	// Confusion[i][j] counts samples of class i predicted as class j.
	Confusion [][]int `json:"confusion"`
	Samples   int     `json:"samples"`
}

// Evaluate scores model on encoded samples. classes names each label index.
func Evaluate(model Predictor, features [][]float64, labels []int, classes []string) (Report, error) {
	if len(features) == 0 {
		return Report{}, errors.New("no samples to evaluate")
	}
	if len(features) != len(labels) {
		return Report{}, errors.New("features and labels size mismatch")
	}

	k := len(classes)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	correct := 0
	for i, row := range features {
		predicted, _, err := model.Predict(row)
		if err != nil {
			return Report{}, fmt.Errorf("sample %d: %w", i, err)
		}
		actual := labels[i]
		if actual < 0 || actual >= k || predicted < 0 || predicted >= k {
			return Report{}, fmt.Errorf("sample %d: label outside %d classes", i, k)
		}
		confusion[actual][predicted]++
		if predicted == actual {
			correct++
		}
	}

	report := Report{
		Accuracy:  float64(correct) / float64(len(features)),
		Confusion: confusion,
		Samples:   len(features),
		Classes:   make([]ClassReport, k),
	}
	for c := 0; c < k; c++ {
		truePositive := confusion[c][c]
		predicted := 0
		actual := 0
		for j := 0; j < k; j++ {
			predicted += confusion[j][c]
			actual += confusion[c][j]
		}
		cr := ClassReport{Label: classes[c], Support: actual}
		if predicted > 0 {
			cr.Precision = float64(truePositive) / float64(predicted)
		}
		if actual > 0 {
			cr.Recall = float64(truePositive) / float64(actual)
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		report.Classes[c] = cr
		report.MacroPrecision += cr.Precision
		report.MacroRecall += cr.Recall
	}
	report.MacroPrecision /= float64(k)
	report.MacroRecall /= float64(k)
	return report, nil
}
