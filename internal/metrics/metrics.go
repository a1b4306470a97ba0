// Package metrics provides Prometheus metrics collection for the churn
// prediction service. It defines the request, prediction, and model health
// metrics exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	FormSubmissions  *prometheus.CounterVec // Form submissions by action (update, predict)
	APIRequests      *prometheus.CounterVec // JSON API requests by endpoint and status code
	InputErrors      prometheus.Counter     // Submissions rejected by the input collector
	SchemaMismatches prometheus.Counter     // Records whose columns did not match the training order

	// ML and prediction metrics
	MLPredictions      *prometheus.CounterVec // Successful predictions by label
	MLFailures         prometheus.Counter     // Failed predictions
	MLTimeouts         prometheus.Counter     // Predictions that hit the inference timeout
	MLLatency          prometheus.Histogram   // Inference latency in seconds
	MLPredictionScores prometheus.Histogram   // Distribution of churn probabilities
	MLModelAge         prometheus.Gauge       // Age of the loaded model in seconds
	MLModelLoaded      prometheus.Gauge       // 1 when a model is loaded
	MLCacheHits        prometheus.Counter     // Prediction cache hits
	MLCacheMisses      prometheus.Counter     // Prediction cache misses
	MLFeatureDrift     *prometheus.GaugeVec   // Input mean shift from training, per column

	// Storage metrics
	HistoryWrites      prometheus.Counter // Predictions written to history
	HistoryWriteErrors prometheus.Counter // Failed history writes
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		FormSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_form_submissions_total",
			Help: "Total number of form submissions by action",
		}, []string{"action"}),
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_api_requests_total",
			Help: "Total number of JSON API requests by endpoint and status code",
		}, []string{"endpoint", "code"}),
		InputErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_input_errors_total",
			Help: "Total number of submissions rejected by input validation",
		}),
		SchemaMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_schema_mismatches_total",
			Help: "Total number of records whose columns did not match the model",
		}),
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_ml_predictions_total",
			Help: "Total number of predictions served by predicted label, cache hits included",
		}, []string{"label"}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_ml_failures_total",
			Help: "Total number of failed predictions",
		}),
		MLTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_ml_timeouts_total",
			Help: "Total number of predictions that exceeded the inference timeout",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_ml_latency_seconds",
			Help:    "Model inference latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_ml_churn_probability",
			Help:    "Distribution of predicted churn probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_ml_model_age_seconds",
			Help: "Age of the loaded model in seconds",
		}),
		MLModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_ml_model_loaded",
			Help: "Whether a model is loaded (1) or not (0)",
		}),
		MLCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_ml_cache_hits_total",
			Help: "Total number of prediction cache hits",
		}),
		MLCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_ml_cache_misses_total",
			Help: "Total number of prediction cache misses",
		}),
		MLFeatureDrift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "churn_ml_feature_drift",
			Help: "Shift of the recent input mean from the training mean, in training standard deviations",
		}, []string{"column"}),
		HistoryWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_history_writes_total",
			Help: "Total number of predictions written to history",
		}),
		HistoryWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_history_write_errors_total",
			Help: "Total number of failed history writes",
		}),
	}
}
