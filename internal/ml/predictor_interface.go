// Package ml wraps the pre-trained churn classifier behind a small adapter.
//
// A model is loaded once at startup from one of three backends: a Go-native
// JSON artifact, a scikit-learn pickle served by an embedded Python script,
// or a remote scoring endpoint. The Predictor adapter enforces the training
// column order, validates outputs, caches results and reports metrics.
package ml

import (
	"context"
	"time"
)

// Prediction is the outcome of classifying one row.
type Prediction struct {
	Label         int        `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
	ModelVersion  string     `json:"model_version,omitempty"`
}

// ChurnProbability returns the probability of class 1.
func (p Prediction) ChurnProbability() float64 { return p.Probabilities[1] }

// StayProbability returns the probability of class 0.
func (p Prediction) StayProbability() float64 { return p.Probabilities[0] }

// ModelMetadata contains information about the loaded model
type ModelMetadata struct {
	Backend      string    `json:"backend"`
	Path         string    `json:"path,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
	Features     []string  `json:"features,omitempty"`
	Accuracy     float64   `json:"accuracy,omitempty"`
	TrainingRows int       `json:"training_rows,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Model is a loaded binary classifier. Implementations are read-only after
// loading and safe for concurrent use.
type Model interface {
	// Predict scores one row whose values follow the training column order.
	// It returns predict(row) and predict_proba(row) together.
	Predict(ctx context.Context, columns []string, row []float64) (Prediction, error)

	// Metadata describes the artifact.
	Metadata() ModelMetadata

	// Close releases resources held by the backend.
	Close() error
}

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsInc(label int)
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLModelLoadedSet(bool)
	MLPredictionScoresObserve(float64)
	MLTimeoutsInc()
	MLCacheHitsInc()
	MLCacheMissesInc()
	MLFeatureDriftSet(column string, score float64)
}
