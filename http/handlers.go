package http

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/db"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/ml"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/monitoring"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

const defaultTrainingLogLimit = 20

// TrainingLogSource returns recent training runs, newest first.
type TrainingLogSource func(limit int) ([]db.TrainingLog, error)

type formField struct {
	Name        string
	Description string
}

// API serves the form page and predictions for one loaded model.
type API struct {
	model       ml.ModelProvider
	features    []string
	cache       *lru.Cache[string, ml.Prediction]
	trainingLog TrainingLogSource
	metrics     *monitoring.MetricsCollector
	log         *zap.Logger
}

// NewAPI wraps model. cacheSize <= 0 disables the prediction cache and a nil
// trainingLog makes /api/training/log report it as unavailable.
func NewAPI(model ml.ModelProvider, cacheSize int, trainingLog TrainingLogSource, log *zap.Logger) (*API, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	api := &API{
		model:       model,
		features:    model.Info().Features,
		trainingLog: trainingLog,
		metrics:     monitoring.NewMetricsCollector(),
		log:         log,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, ml.Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		api.cache = cache
	}
	return api, nil
}

func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /{$}", api.handleIndex)
	mux.HandleFunc("POST /predict", api.handlePredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", api.handleModel)
	mux.HandleFunc("GET /api/metrics", api.handleMetrics)
	mux.HandleFunc("GET /api/training/log", api.handleTrainingLog)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	fields := make([]formField, len(a.features))
	for i, name := range a.features {
		fields[i] = formField{Name: name, Description: ml.FeatureDescription(name)}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Features []formField }{fields}); err != nil {
		a.log.Error("render index", zap.Error(err))
	}
}

type predictResponse struct {
	PredictedClass string       `json:"predicted_class,omitempty"`
	Error          string       `json:"error,omitempty"`
	ErrorCode      ml.ErrorCode `json:"error_code,omitempty"`
}

// handlePredict always answers 200; failures are reported in the body.
func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	prediction := a.predictRequest(r)
	if !prediction.OK() {
		a.metrics.RecordPrediction(string(prediction.Err.Code), time.Since(start))
		a.log.Info("prediction rejected",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("code", string(prediction.Err.Code)),
			zap.Error(prediction.Err),
		)
		respondJSON(w, http.StatusOK, predictResponse{
			Error:     prediction.Err.Error(),
			ErrorCode: prediction.Err.Code,
		})
		return
	}
	a.metrics.RecordPrediction(monitoring.OutcomeOK, time.Since(start))
	respondJSON(w, http.StatusOK, predictResponse{PredictedClass: prediction.Label})
}

func (a *API) predictRequest(r *http.Request) (prediction ml.Prediction) {
	defer func() {
		if v := recover(); v != nil {
			prediction = ml.Prediction{Err: &ml.PredictionError{
				Code: ml.CodePredictionFailed,
				Err:  fmt.Errorf("panic: %v", v),
			}}
		}
	}()

	var record map[string]any
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return ml.MalformedRequest(fmt.Errorf("invalid JSON body: %w", err))
	}
	if record == nil {
		return ml.MalformedRequest(errors.New("body must be a JSON object"))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ml.MalformedRequest(errors.New("unexpected data after JSON object"))
	}
	return a.predict(record)
}

func (a *API) predict(record map[string]any) ml.Prediction {
	if a.cache == nil {
		return a.model.PredictRecord(record)
	}
	row, perr := ml.BuildRow(record, a.features)
	if perr != nil {
		return ml.Prediction{Err: perr}
	}
	key := rowKey(row)
	if cached, ok := a.cache.Get(key); ok {
		a.metrics.RecordCache(true)
		return cached
	}
	a.metrics.RecordCache(false)
	prediction := a.model.PredictRecord(record)
	if prediction.OK() {
		a.cache.Add(key, prediction)
	}
	return prediction
}

func rowKey(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.model.Info())
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.metrics.Snapshot())
}

func (a *API) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if a.trainingLog == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "training log not configured"})
		return
	}
	limit := defaultTrainingLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = l
	}
	logs, err := a.trainingLog(limit)
	if err != nil {
		a.log.Error("load training log", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load training log"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"runs":  logs,
		"count": len(logs),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}
