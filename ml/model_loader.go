package ml

import (
	"fmt"
)

func LoadModel(modelType, path string) (*Classifier, error) {
	switch modelType {
	case ModelTypeRandomForest:
		model, err := LoadClassifier(path)
		if err != nil {
			return nil, err
		}
		if model.ModelType != modelType {
			return nil, fmt.Errorf("%s holds a %q model, want %q", path, model.ModelType, modelType)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
