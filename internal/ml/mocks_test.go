package ml

import (
	"context"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[int]int
	failures         int
	latencySum       float64
	timeouts         int
	cacheHits        int
	cacheMisses      int
	modelAge         float64
	modelLoaded      bool
	predictionScores []float64
	drift            map[string]float64
}

func (m *MockMetrics) MLFeatureDriftSet(column string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drift == nil {
		m.drift = map[string]float64{}
	}
	m.drift[column] = score
}

func (m *MockMetrics) MLPredictionsInc(label int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = map[int]int{}
	}
	m.predictions[label]++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLModelLoadedSet(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLTimeoutsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *MockMetrics) MLCacheHitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *MockMetrics) MLCacheMissesInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

// stubModel returns a fixed prediction or error and counts calls.
type stubModel struct {
	mu       sync.Mutex
	pred     Prediction
	err      error
	block    bool
	calls    int
	lastRow  []float64
	metadata ModelMetadata
	closed   bool
}

func (s *stubModel) Predict(ctx context.Context, columns []string, row []float64) (Prediction, error) {
	s.mu.Lock()
	s.calls++
	s.lastRow = append([]float64(nil), row...)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return Prediction{}, ctx.Err()
	}
	return s.pred, s.err
}

func (s *stubModel) Metadata() ModelMetadata {
	if s.metadata.Version == "" {
		s.metadata.Version = "stub-1"
		s.metadata.Backend = "stub"
	}
	return s.metadata
}

func (s *stubModel) Close() error {
	s.closed = true
	return nil
}

func (s *stubModel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
