package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/present"
	"churn-predictor/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxRequestBytes = 64 << 10

// PredictRequest is the body of POST /api/v1/predict. Feature keys may be
// feature ids or column names in either convention; missing features take
// their defaults.
type PredictRequest struct {
	Features  map[string]float64 `json:"features"`
	RequestID string             `json:"request_id,omitempty"`
}

// PredictResponse is the result of a successful API prediction.
type PredictResponse struct {
	ID               string          `json:"id,omitempty"`
	RequestID        string          `json:"request_id,omitempty"`
	Label            int             `json:"label"`
	Probabilities    [2]float64      `json:"probabilities"`
	ChurnProbability string          `json:"churn_probability"`
	ModelVersion     string          `json:"model_version"`
	Message          present.Message `json:"message"`
	Record           features.Record `json:"record"`
	Latency          float64         `json:"latency_ms"`
	Timestamp        time.Time       `json:"timestamp"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message present.Message `json:"message"`
}

// SchemaColumn describes one expected model column.
type SchemaColumn struct {
	Column  string    `json:"column"`
	Feature string    `json:"feature"`
	Label   string    `json:"label"`
	Kind    string    `json:"kind"`
	Min     float64   `json:"min"`
	Max     *float64  `json:"max,omitempty"`
	Options []float64 `json:"options,omitempty"`
	Default float64   `json:"default"`
}

// SchemaResponse is the body of GET /api/v1/schema.
type SchemaResponse struct {
	Naming     string            `json:"naming"`
	Columns    []SchemaColumn    `json:"columns"`
	Model      *ml.ModelMetadata `json:"model,omitempty"`
	ModelError string            `json:"model_error,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.classifier == nil {
		s.writeError(w, http.StatusServiceUnavailable, s.loadErr)
		return
	}

	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.countInputError()
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	record, err := s.collector.CollectNumbers(req.Features)
	if err != nil {
		s.countInputError()
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	normalized, err := features.Normalize(record, s.schema.Columns)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	pred, err := s.classifier.Classify(r.Context(), normalized)
	if err != nil {
		log.Warn().Err(err).Str("request_id", req.RequestID).Msg("api prediction failed")
		s.writeError(w, statusFor(err), err)
		return
	}

	resp := PredictResponse{
		ID:               s.saveHistory(normalized, pred, "api"),
		RequestID:        req.RequestID,
		Label:            pred.Label,
		Probabilities:    pred.Probabilities,
		ChurnProbability: present.FormatPercent(pred.ChurnProbability()),
		ModelVersion:     pred.ModelVersion,
		Message:          present.Outcome(pred),
		Record:           normalized,
		Latency:          float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:        time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	resp := SchemaResponse{
		Naming:  string(s.schema.Naming),
		Columns: make([]SchemaColumn, 0, len(s.schema.Columns)),
	}
	for _, col := range s.schema.Columns {
		f, ok := s.schema.Field(col)
		if !ok {
			continue
		}
		sc := SchemaColumn{
			Column:  col,
			Feature: string(f.Feature),
			Label:   f.Label,
			Kind:    f.Kind.String(),
			Min:     f.Min,
			Options: f.Options,
			Default: f.Default,
		}
		if f.Bounded() {
			max := f.Max
			sc.Max = &max
		}
		resp.Columns = append(resp.Columns, sc)
	}

	if s.classifier != nil {
		md := s.classifier.Metadata()
		resp.Model = &md
	} else {
		resp.ModelError = s.loadErr.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "prediction history is disabled"})
		return
	}

	limit := common.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > common.MaxHistoryLimit {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("limit must be between 1 and %d", common.MaxHistoryLimit),
			})
			return
		}
		limit = n
	}

	records, err := s.history.RecentPredictions(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read prediction history")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read prediction history"})
		return
	}
	if records == nil {
		records = []storage.PredictionRecord{}
	}
	if total, err := s.history.Count(); err == nil {
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
	} else {
		log.Warn().Err(err).Msg("failed to count prediction history")
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "prediction history is disabled"})
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := s.history.GetPrediction(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("prediction %s not found", id)})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to read prediction")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read prediction history"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy":      false,
			"model_loaded": false,
			"mode":         s.mode(),
			"last_error":   s.loadErr.Error(),
			"last_check":   time.Now(),
		})
		return
	}

	health := s.classifier.Health()
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// saveHistory stores a prediction and returns its id, or "" when history is
// disabled or the write failed.
func (s *Server) saveHistory(record features.Record, pred ml.Prediction, source string) string {
	if s.history == nil {
		return ""
	}
	saved, err := s.history.SavePrediction(storage.PredictionRecord{
		Source:        source,
		ModelVersion:  pred.ModelVersion,
		Columns:       record.Columns(),
		Values:        record.Values(),
		Label:         pred.Label,
		Probabilities: pred.Probabilities,
	})
	if s.metrics != nil {
		s.metrics.HistoryWriteInc(err == nil)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to save prediction")
		return ""
	}
	return saved.ID
}

func (s *Server) countInputError() {
	if s.metrics != nil {
		s.metrics.InputErrorInc()
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if errors.Is(err, features.ErrSchemaMismatch) && s.metrics != nil {
		s.metrics.SchemaMismatchInc()
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Message: present.ErrorMessage(err)})
}

// statusFor maps an error kind to its API status code.
func statusFor(err error) int {
	var inputErr *features.InputError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, features.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ml.ErrPrediction):
		return http.StatusBadGateway
	case errors.Is(err, ml.ErrArtifactNotFound), errors.Is(err, ml.ErrArtifactLoad):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
