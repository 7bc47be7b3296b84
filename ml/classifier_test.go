package ml

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func trainedClassifier(t *testing.T) *Classifier {
	t.Helper()
	rows, labels := blobs([]int{30, 30, 30}, len(KeyFeatures), 11)
	config := DefaultForestConfig()
	config.NumTrees = 10
	forest := NewRandomForest(config)
	if err := forest.Fit(rows, labels, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	medians := make(map[string]float64)
	for _, name := range KeyFeatures {
		medians[name] = 3
	}
	c, err := NewClassifier(KeyFeatures, []string{"CANDIDATE", "CONFIRMED", "FALSE POSITIVE"}, forest, medians, Metadata{
		Accuracy:  0.9,
		Seed:      42,
		TrainedAt: time.Date(2025, 10, 3, 22, 30, 54, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func recordAt(value float64) map[string]any {
	record := make(map[string]any)
	for _, name := range KeyFeatures {
		record[name] = value
	}
	return record
}

func TestClassifierPredictRecord(t *testing.T) {
	c := trainedClassifier(t)

	prediction := c.PredictRecord(recordAt(0))
	if !prediction.OK() {
		t.Fatalf("unexpected error: %v", prediction.Err)
	}
	if prediction.Label != "CANDIDATE" {
		t.Fatalf("expected CANDIDATE, got %q", prediction.Label)
	}
	prediction = c.PredictRecord(recordAt(6))
	if prediction.Label != "FALSE POSITIVE" {
		t.Fatalf("expected FALSE POSITIVE, got %q", prediction.Label)
	}

	missing := recordAt(3)
	delete(missing, "koi_teq")
	prediction = c.PredictRecord(missing)
	if prediction.OK() || prediction.Err.Code != CodeMissingFeature || prediction.Label != "" {
		t.Fatalf("expected missing feature error, got %+v", prediction)
	}
}

func TestClassifierPredict(t *testing.T) {
	c := trainedClassifier(t)
	record := make(map[string]float64)
	for _, name := range KeyFeatures {
		record[name] = 3
	}
	label, err := c.Predict(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %q", label)
	}
}

func TestClassifierSaveLoad(t *testing.T) {
	c := trainedClassifier(t)
	path := filepath.Join(t.TempDir(), "models", "forest.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadModel(ModelTypeRandomForest, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(loaded.Features, KeyFeatures) || !slices.Equal(loaded.Classes, c.Classes) {
		t.Fatalf("metadata not restored: %+v", loaded.Info())
	}
	if !loaded.Metadata.TrainedAt.Equal(c.Metadata.TrainedAt) {
		t.Fatalf("trained_at not restored: %v", loaded.Metadata.TrainedAt)
	}
	for _, v := range []float64{0, 1.4, 3, 4.6, 6} {
		want := c.PredictRecord(recordAt(v))
		got := loaded.PredictRecord(recordAt(v))
		if got.Label != want.Label || got.Confidence != want.Confidence {
			t.Fatalf("value %v: loaded model predicts %+v, original %+v", v, got, want)
		}
	}

	info := loaded.Info()
	if info.NumTrees != 10 || info.Medians["koi_prad"] != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadModel("gradient_boosting", filepath.Join(dir, "x.json")); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
	if _, err := LoadModel(ModelTypeRandomForest, filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte(`{"model_type":"random_forest"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(ModelTypeRandomForest, garbage); err == nil {
		t.Fatal("expected error for model without forest")
	}
}

func TestNewClassifierDimensionMismatch(t *testing.T) {
	rows, labels := blobs([]int{5, 5}, 3, 1)
	config := DefaultForestConfig()
	config.NumTrees = 2
	forest := NewRandomForest(config)
	if err := forest.Fit(rows, labels, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := NewClassifier(KeyFeatures, []string{"a", "b"}, forest, nil, Metadata{})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
