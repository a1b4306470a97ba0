// Package web serves the churn prediction form and its JSON API.
//
// The page mirrors the single-screen flow of the form: thirteen controls, a
// preview of the normalized record and, after the Predict action, a styled
// outcome. When the model failed to load the server either refuses to offer
// the form (strict mode) or offers it and reports the load error on Predict
// (degraded mode).
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Classifier is the part of ml.Predictor the server depends on.
type Classifier interface {
	Classify(ctx context.Context, r features.Record) (ml.Prediction, error)
	Metadata() ml.ModelMetadata
	Health() ml.HealthStatus
}

// History persists and lists predictions.
type History interface {
	SavePrediction(rec storage.PredictionRecord) (storage.PredictionRecord, error)
	GetPrediction(id string) (storage.PredictionRecord, error)
	RecentPredictions(limit int) ([]storage.PredictionRecord, error)
	Count() (int, error)
}

// Metrics records request-level counters.
type Metrics interface {
	FormSubmissionInc(action string)
	APIRequestInc(endpoint string, code int)
	InputErrorInc()
	SchemaMismatchInc()
	HistoryWriteInc(ok bool)
}

// Config holds server settings.
type Config struct {
	Port            int
	MetricsPath     string
	RequireArtifact bool
	Gatherer        prometheus.Gatherer // nil uses the default registry
}

// Options carries the collaborators of a Server. Exactly one of Classifier
// and LoadErr is expected to be set.
type Options struct {
	Classifier Classifier
	LoadErr    error
	Schema     features.Schema
	History    History // nil disables history
	Metrics    Metrics // nil disables request metrics
}

// Server serves the form, the API, health and metrics.
type Server struct {
	config     Config
	classifier Classifier
	loadErr    error
	schema     features.Schema
	collector  *features.Collector
	history    History
	metrics    Metrics
	router     *mux.Router
	server     *http.Server
}

// NewServer builds the router and HTTP server.
func NewServer(config Config, opts Options) (*Server, error) {
	if opts.Classifier == nil && opts.LoadErr == nil {
		return nil, fmt.Errorf("either a classifier or a load error is required")
	}
	if len(opts.Schema.Columns) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}
	if config.MetricsPath == "" {
		config.MetricsPath = common.DefaultMetricsPath
	}

	s := &Server{
		config:     config,
		classifier: opts.Classifier,
		loadErr:    opts.LoadErr,
		schema:     opts.Schema,
		collector:  features.NewCollector(opts.Schema.Naming),
		history:    opts.History,
		metrics:    opts.Metrics,
	}
	if s.loadErr != nil {
		s.classifier = nil
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	api.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	api.HandleFunc("/predictions", s.handlePredictions).Methods(http.MethodGet)
	api.HandleFunc("/predictions/{id}", s.handlePrediction).Methods(http.MethodGet)

	if config.Gatherer != nil {
		r.Handle(config.MetricsPath, promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle(config.MetricsPath, promhttp.Handler())
	}

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start begins serving HTTP requests. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.server.Addr).
		Bool("model_loaded", s.classifier != nil).
		Bool("strict", s.config.RequireArtifact).
		Msg("starting churn prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// halted reports whether the form must not be offered at all.
func (s *Server) halted() bool {
	return s.loadErr != nil && s.config.RequireArtifact
}

func (s *Server) mode() string {
	switch {
	case s.loadErr == nil:
		return "ready"
	case s.config.RequireArtifact:
		return "halted"
	default:
		return "degraded"
	}
}
