package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LabelColumn holds the KOI disposition in the archive export.
const LabelColumn = "koi_disposition"

// KeyFeatures is the model input in column order.
var KeyFeatures = []string{
	"koi_prad",
	"koi_srad",
	"koi_depth",
	"koi_duration",
	"koi_teq",
	"koi_insol",
	"koi_period",
	"koi_duration_err2",
}

var featureDescriptions = map[string]string{
	"koi_prad":          "Planetary radius [Earth radii]",
	"koi_srad":          "Stellar radius [Solar radii]",
	"koi_depth":         "Transit depth [ppm]",
	"koi_duration":      "Transit duration [hrs]",
	"koi_teq":           "Equilibrium temperature [K]",
	"koi_insol":         "Insolation flux [Earth flux]",
	"koi_period":        "Orbital period [days]",
	"koi_duration_err2": "Transit duration lower error [hrs]",
}

func FeatureNames() []string {
	return append([]string(nil), KeyFeatures...)
}

func FeatureDescription(name string) string {
	if desc, ok := featureDescriptions[name]; ok {
		return desc
	}
	return name
}

// FeatureVector orders a record by names. Every name must be present.
func FeatureVector(record map[string]float64, names []string) ([]float64, error) {
	vector := make([]float64, len(names))
	for i, name := range names {
		value, ok := record[name]
		if !ok {
			return nil, &PredictionError{Code: CodeMissingFeature, Feature: name}
		}
		vector[i] = value
	}
	return vector, nil
}

// BuildRow converts a decoded JSON object into a feature row in names order.
// Keys outside names are ignored.
func BuildRow(record map[string]any, names []string) ([]float64, *PredictionError) {
	row := make([]float64, len(names))
	for i, name := range names {
		raw, ok := record[name]
		if !ok || raw == nil {
			return nil, &PredictionError{Code: CodeMissingFeature, Feature: name}
		}
		value, err := coerceFloat(raw)
		if err != nil {
			return nil, &PredictionError{Code: CodeInvalidValue, Feature: name, Err: err}
		}
		row[i] = value
	}
	return row, nil
}

var errNotFinite = errors.New("value is not finite")

func coerceFloat(raw any) (float64, error) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.String())
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		value = f
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNotFinite
	}
	return value, nil
}
