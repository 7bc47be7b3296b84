package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const ModelTypeRandomForest = "random_forest"

type Metadata struct {
	RunID       string    `json:"run_id"`
	Accuracy    float64   `json:"accuracy"`
	TrainSize   int       `json:"train_size"`
	TestSize    int       `json:"test_size"`
	Seed        int64     `json:"seed"`
	ImputeScope string    `json:"impute_scope"`
	TrainedAt   time.Time `json:"trained_at"`
}

// Classifier bundles a fitted forest with the feature order and label names
// it was trained on. It is not modified after Save or LoadClassifier.
type Classifier struct {
	ModelType string             `json:"model_type"`
	Features  []string           `json:"features"`
	Classes   []string           `json:"classes"`
	Medians   map[string]float64 `json:"medians"`
	Metadata  Metadata           `json:"metadata"`
	Forest    *RandomForest      `json:"forest"`
}

type ModelInfo struct {
	ModelType string             `json:"model_type"`
	Features  []string           `json:"features"`
	Classes   []string           `json:"classes"`
	Medians   map[string]float64 `json:"medians"`
	NumTrees  int                `json:"n_estimators"`
	Metadata  Metadata           `json:"metadata"`
}

func NewClassifier(features, classes []string, forest *RandomForest, medians map[string]float64, meta Metadata) (*Classifier, error) {
	c := &Classifier{
		ModelType: ModelTypeRandomForest,
		Features:  append([]string(nil), features...),
		Classes:   append([]string(nil), classes...),
		Medians:   medians,
		Metadata:  meta,
		Forest:    forest,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Classifier) validate() error {
	if c.Forest == nil || c.Forest.NumTrees() == 0 {
		return ErrNotTrained
	}
	if len(c.Features) != c.Forest.NumFeatures() {
		return fmt.Errorf("%w: %d feature names for a %d-feature model", ErrDimensionMismatch, len(c.Features), c.Forest.NumFeatures())
	}
	if len(c.Classes) != c.Forest.NumClasses() {
		return fmt.Errorf("%d class names for a %d-class model", len(c.Classes), c.Forest.NumClasses())
	}
	return nil
}

// Predict labels a record holding every feature.
func (c *Classifier) Predict(record map[string]float64) (string, error) {
	row, err := FeatureVector(record, c.Features)
	if err != nil {
		return "", err
	}
	label, _, err := c.Forest.Predict(row)
	if err != nil {
		return "", err
	}
	return DecodeLabel(c.Classes, label)
}

// PredictRecord labels a decoded JSON object. Failures come back as typed
// errors inside the Prediction.
func (c *Classifier) PredictRecord(record map[string]any) Prediction {
	row, perr := BuildRow(record, c.Features)
	if perr != nil {
		return Prediction{Err: perr}
	}
	label, confidence, err := c.Forest.Predict(row)
	if err != nil {
		return failedPrediction(CodePredictionFailed, "", err)
	}
	name, err := DecodeLabel(c.Classes, label)
	if err != nil {
		return failedPrediction(CodePredictionFailed, "", err)
	}
	return Prediction{Label: name, Confidence: confidence}
}

func (c *Classifier) Info() ModelInfo {
	medians := make(map[string]float64, len(c.Medians))
	for k, v := range c.Medians {
		medians[k] = v
	}
	return ModelInfo{
		ModelType: c.ModelType,
		Features:  append([]string(nil), c.Features...),
		Classes:   append([]string(nil), c.Classes...),
		Medians:   medians,
		NumTrees:  c.Forest.NumTrees(),
		Metadata:  c.Metadata,
	}
}

// Save writes the classifier as JSON, replacing any file at path.
func (c *Classifier) Save(path string) error {
	if err := c.validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadClassifier(path string) (*Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Classifier
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if c.ModelType == "" {
		return nil, errors.New("model file has no model type")
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}
