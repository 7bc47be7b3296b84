package ml

import (
	"errors"
	"fmt"
)

var (
	ErrNotTrained        = errors.New("model not trained")
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Predictor is a fitted classifier over encoded labels.
type Predictor interface {
	Predict(features []float64) (int, float64, error)
	PredictProba(features []float64) ([]float64, error)
}

// ModelProvider answers prediction requests for the HTTP layer.
type ModelProvider interface {
	PredictRecord(record map[string]any) Prediction
	Info() ModelInfo
}

type ErrorCode string

const (
	CodeMalformedRequest ErrorCode = "malformed_request"
	CodeMissingFeature   ErrorCode = "missing_feature"
	CodeInvalidValue     ErrorCode = "invalid_value"
	CodePredictionFailed ErrorCode = "prediction_failed"
)

type PredictionError struct {
	Code    ErrorCode
	Feature string
	Err     error
}

func (e *PredictionError) Error() string {
	switch {
	case e.Code == CodeMissingFeature:
		return fmt.Sprintf("missing feature %q", e.Feature)
	case e.Feature != "":
		return fmt.Sprintf("feature %q: %v", e.Feature, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Prediction holds either a label or an error, never both.
type Prediction struct {
	Label      string
	Confidence float64
	Err        *PredictionError
}

func (p Prediction) OK() bool {
	return p.Err == nil
}

func failedPrediction(code ErrorCode, feature string, err error) Prediction {
	return Prediction{Err: &PredictionError{Code: code, Feature: feature, Err: err}}
}

// MalformedRequest wraps a body decoding failure as a prediction result.
func MalformedRequest(err error) Prediction {
	return failedPrediction(CodeMalformedRequest, "", err)
}
