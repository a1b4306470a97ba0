package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// PredictorConfig contains configuration for the predictor
type PredictorConfig struct {
	Timeout   time.Duration
	CacheSize int // 0 disables the result cache
	CacheTTL  time.Duration
	Drift     DriftConfig
}

// Predictor is the adapter between normalized feature records and a loaded
// Model. It is safe for concurrent use.
type Predictor struct {
	model     Model
	columns   []string
	config    PredictorConfig
	cache     *expirable.LRU[string, Prediction]
	metrics   MetricsInterface
	perfStats *PerformanceStats
	drift     *DriftMonitor // nil when disabled or the model has no baseline
}

// HealthStatus summarises predictor state for the health endpoint.
type HealthStatus struct {
	Healthy         bool         `json:"healthy"`
	LastCheck       time.Time    `json:"last_check"`
	ModelLoaded     bool         `json:"model_loaded"`
	Backend         string       `json:"backend"`
	ModelVersion    string       `json:"model_version"`
	AverageLatency  float64      `json:"average_latency_ms"`
	PredictionCount int64        `json:"prediction_count"`
	ErrorRate       float64      `json:"error_rate"`
	CacheHitRate    float64      `json:"cache_hit_rate"`
	LastError       string       `json:"last_error,omitempty"`
	UptimeSeconds   float64      `json:"uptime_seconds"`
	DriftAlerts     []DriftAlert `json:"drift_alerts,omitempty"`
}

type PerformanceStats struct {
	mu           sync.RWMutex
	predictions  int64
	errors       int64
	cacheHits    int64
	cacheMisses  int64
	totalLatency time.Duration
	lastError    string
	startTime    time.Time
}

// NewPredictor wraps model. columns is the training-time column order every
// record must match. Models that declare their feature names must agree with
// it exactly.
func NewPredictor(model Model, columns []string, config PredictorConfig, metrics MetricsInterface) (*Predictor, error) {
	if model == nil {
		return nil, fmt.Errorf("model is nil")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("training column order is empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = common.DefaultPredictTimeout
	}

	md := model.Metadata()
	if len(md.Features) > 0 {
		if err := features.CheckOrder(md.Features, columns); err != nil {
			return nil, loadFailed(md.Path, fmt.Errorf("artifact features do not match the configured column order: %w", err))
		}
	}

	p := &Predictor{
		model:     model,
		columns:   append([]string(nil), columns...),
		config:    config,
		metrics:   metrics,
		perfStats: &PerformanceStats{startTime: time.Now()},
	}
	if config.CacheSize > 0 {
		p.cache = expirable.NewLRU[string, Prediction](config.CacheSize, nil, config.CacheTTL)
	}
	if bp, ok := model.(BaselineProvider); ok && !config.Drift.Disabled {
		if baseline, ok := bp.Baseline(); ok {
			dm, err := NewDriftMonitor(p.columns, baseline, config.Drift)
			if err != nil {
				log.Warn().Err(err).Msg("input drift monitoring disabled")
			} else {
				p.drift = dm
			}
		}
	}

	if metrics != nil {
		metrics.MLModelLoadedSet(true)
		if !md.TrainedAt.IsZero() {
			metrics.MLModelAgeSet(time.Since(md.TrainedAt).Seconds())
		}
	}

	log.Info().
		Str("backend", md.Backend).
		Str("version", md.Version).
		Int("columns", len(columns)).
		Int("cache_size", config.CacheSize).
		Dur("timeout", config.Timeout).
		Msg("predictor ready")
	return p, nil
}

// Columns returns the training-time column order.
func (p *Predictor) Columns() []string {
	return append([]string(nil), p.columns...)
}

// Metadata describes the loaded model.
func (p *Predictor) Metadata() ModelMetadata {
	return p.model.Metadata()
}

// Classify returns the predicted label and class probabilities for a record
// already normalized to the training column order. A record in any other
// order is a *features.SchemaMismatchError; inference failures are
// *PredictionError.
func (p *Predictor) Classify(ctx context.Context, r features.Record) (Prediction, error) {
	if err := features.CheckOrder(r.Columns(), p.columns); err != nil {
		return Prediction{}, err
	}

	row := r.Values()
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, p.fail(fmt.Errorf("column %q is not a finite number", p.columns[i]))
		}
	}

	key := cacheKey(row)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.recordCacheHit()
			p.recordPrediction(cached)
			p.observeDrift(row)
			return cached, nil
		}
		p.recordCacheMiss()
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	pred, err := p.model.Predict(ctx, p.Columns(), row)
	elapsed := time.Since(start)
	p.recordLatency(elapsed)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && p.metrics != nil {
			p.metrics.MLTimeoutsInc()
		}
		return Prediction{}, p.fail(err)
	}
	if err := validateOutput(pred); err != nil {
		return Prediction{}, p.fail(fmt.Errorf("output validation failed: %w", err))
	}

	pred.ModelVersion = p.model.Metadata().Version
	if p.cache != nil {
		p.cache.Add(key, pred)
	}
	p.recordPrediction(pred)
	p.observeDrift(row)

	log.Debug().
		Int("label", pred.Label).
		Float64("churn_probability", pred.ChurnProbability()).
		Dur("latency", elapsed).
		Msg("prediction complete")
	return pred, nil
}

// observeDrift feeds a classified row to the drift monitor and publishes the
// per-column scores.
func (p *Predictor) observeDrift(row []float64) {
	if p.drift == nil {
		return
	}
	p.drift.Observe(row)
	if p.metrics == nil {
		return
	}
	for col, score := range p.drift.Scores() {
		p.metrics.MLFeatureDriftSet(col, score)
	}
}

// DriftAlerts returns the columns whose recent inputs drifted from training.
func (p *Predictor) DriftAlerts() []DriftAlert {
	if p.drift == nil {
		return nil
	}
	return p.drift.Alerts()
}

// validateOutput checks predict/predict_proba output for a binary classifier.
func validateOutput(pred Prediction) error {
	if pred.Label != 0 && pred.Label != 1 {
		return fmt.Errorf("label %d is not 0 or 1", pred.Label)
	}
	var sum float64
	for i, prob := range pred.Probabilities {
		if math.IsNaN(prob) || prob < 0 || prob > 1 {
			return fmt.Errorf("probability %d is %v, outside [0, 1]", i, prob)
		}
		sum += prob
	}
	if math.Abs(sum-1) > 1e-3 {
		return fmt.Errorf("probabilities sum to %.4f", sum)
	}
	return nil
}

func cacheKey(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (p *Predictor) fail(err error) error {
	p.perfStats.mu.Lock()
	p.perfStats.errors++
	p.perfStats.lastError = err.Error()
	p.perfStats.mu.Unlock()

	if p.metrics != nil {
		p.metrics.MLFailuresInc()
	}
	log.Error().Err(err).Str("backend", p.model.Metadata().Backend).Msg("prediction failed")
	return &PredictionError{Err: err}
}

func (p *Predictor) recordLatency(d time.Duration) {
	p.perfStats.mu.Lock()
	p.perfStats.totalLatency += d
	p.perfStats.mu.Unlock()

	if p.metrics != nil {
		p.metrics.MLLatencyObserve(d.Seconds())
	}
}

func (p *Predictor) recordPrediction(pred Prediction) {
	p.perfStats.mu.Lock()
	p.perfStats.predictions++
	p.perfStats.mu.Unlock()

	if p.metrics != nil {
		p.metrics.MLPredictionsInc(pred.Label)
		p.metrics.MLPredictionScoresObserve(pred.ChurnProbability())
	}
}

func (p *Predictor) recordCacheHit() {
	p.perfStats.mu.Lock()
	p.perfStats.cacheHits++
	p.perfStats.mu.Unlock()
	if p.metrics != nil {
		p.metrics.MLCacheHitsInc()
	}
}

func (p *Predictor) recordCacheMiss() {
	p.perfStats.mu.Lock()
	p.perfStats.cacheMisses++
	p.perfStats.mu.Unlock()
	if p.metrics != nil {
		p.metrics.MLCacheMissesInc()
	}
}

// Health returns the current health status
func (p *Predictor) Health() HealthStatus {
	p.perfStats.mu.RLock()
	predictions := p.perfStats.predictions
	errs := p.perfStats.errors
	cacheHits := p.perfStats.cacheHits
	cacheMisses := p.perfStats.cacheMisses
	totalLatency := p.perfStats.totalLatency
	lastError := p.perfStats.lastError
	uptime := time.Since(p.perfStats.startTime)
	p.perfStats.mu.RUnlock()

	// predictions counts every served result; only cache misses reach the model.
	attempts := predictions + errs
	var avgLatency, errorRate float64
	if attempts > 0 {
		errorRate = float64(errs) / float64(attempts)
	}
	if invocations := attempts - cacheHits; invocations > 0 {
		avgLatency = float64(totalLatency.Microseconds()) / 1000 / float64(invocations)
	}

	var cacheHitRate float64
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}

	md := p.model.Metadata()
	return HealthStatus{
		Healthy:         errorRate < 0.1,
		LastCheck:       time.Now(),
		ModelLoaded:     true,
		Backend:         md.Backend,
		ModelVersion:    md.Version,
		AverageLatency:  avgLatency,
		PredictionCount: predictions,
		ErrorRate:       errorRate,
		CacheHitRate:    cacheHitRate,
		LastError:       lastError,
		UptimeSeconds:   uptime.Seconds(),
		DriftAlerts:     p.DriftAlerts(),
	}
}

// Close releases the underlying model.
func (p *Predictor) Close() error {
	if p.metrics != nil {
		p.metrics.MLModelLoadedSet(false)
	}
	return p.model.Close()
}
