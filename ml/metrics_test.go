package ml

import (
	"math"
	"testing"
)

type fixedPredictor struct {
	labels map[float64]int
}

func (f *fixedPredictor) Predict(features []float64) (int, float64, error) {
	return f.labels[features[0]], 1, nil
}

func (f *fixedPredictor) PredictProba(features []float64) ([]float64, error) {
	return nil, nil
}

func TestEvaluate(t *testing.T) {
	model := &fixedPredictor{labels: map[float64]int{0: 0, 1: 0, 2: 1, 3: 1}}
	features := [][]float64{{0}, {1}, {2}, {3}}
	labels := []int{0, 1, 1, 1}

	report, err := Evaluate(model, features, labels, []string{"neg", "pos"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Accuracy != 0.75 {
		t.Fatalf("expected accuracy 0.75, got %f", report.Accuracy)
	}
	if report.Confusion[1][0] != 1 || report.Confusion[1][1] != 2 {
		t.Fatalf("unexpected confusion: %v", report.Confusion)
	}
	pos := report.Classes[1]
	if pos.Precision != 1 || math.Abs(pos.Recall-2.0/3.0) > 1e-12 || pos.Support != 3 {
		t.Fatalf("unexpected class report: %+v", pos)
	}
	if math.Abs(report.MacroPrecision-0.75) > 1e-12 {
		t.Fatalf("expected macro precision 0.75, got %f", report.MacroPrecision)
	}

	if _, err := Evaluate(model, nil, nil, []string{"neg"}); err == nil {
		t.Fatal("expected error for empty input")
	}
}
