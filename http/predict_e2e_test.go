package http

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/ml"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/training"
)

func koiCSV(rows int) string {
	rng := rand.New(rand.NewSource(99))
	dispositions := []string{"CONFIRMED", "CANDIDATE", "FALSE POSITIVE"}
	var b strings.Builder
	b.WriteString("kepid,koi_disposition," + strings.Join(ml.KeyFeatures, ",") + "\n")
	for i := 0; i < rows; i++ {
		class := i % 3
		fmt.Fprintf(&b, "%d,%s", 10000+i, dispositions[class])
		for j := range ml.KeyFeatures {
			if (i+j)%17 == 0 {
				b.WriteString(",")
				continue
			}
			fmt.Fprintf(&b, ",%.4f", float64(class*4)+rng.Float64()*3)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func decodeMedians(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatal(err)
	}
	return record
}

// Trains on a 1000-row, three-class table, saves and reloads the model, and
// queries the server with the training medians.
func TestTrainAndServe(t *testing.T) {
	ds, err := ml.ReadCSV(strings.NewReader(koiCSV(1000)), ml.LabelColumn, ml.FeatureNames())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	opts := training.DefaultOptions()
	opts.Forest.NumTrees = 20
	result, err := training.Run(context.Background(), opts, ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.TestIndices) != 200 {
		t.Fatalf("expected 200 test rows, got %d", len(result.TestIndices))
	}
	present := make(map[string]bool)
	for _, idx := range result.TestIndices {
		present[ds.Labels[idx]] = true
	}
	if len(present) != 3 {
		t.Fatalf("expected all three classes in the test partition, got %v", present)
	}

	modelPath := filepath.Join(t.TempDir(), "forest_model.json")
	if err := result.Classifier.Save(modelPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	model, err := ml.LoadModel(ml.ModelTypeRandomForest, modelPath)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	api, err := NewAPI(model, 16, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	handler := NewHandler(DefaultServerConfig(), api, zap.NewNop())

	body, err := json.Marshal(model.Medians)
	if err != nil {
		t.Fatal(err)
	}
	payload := postPredict(t, handler, string(body))
	label, _ := payload["predicted_class"].(string)
	if !slices.Contains(model.Classes, label) {
		t.Fatalf("predicted %v, want one of %v", payload, model.Classes)
	}
	if want := result.Classifier.PredictRecord(decodeMedians(t, body)); want.Label != label {
		t.Fatalf("loaded model predicts %q, trained model %q", label, want.Label)
	}
	if _, ok := payload["error"]; ok {
		t.Fatalf("unexpected error: %v", payload)
	}
}
