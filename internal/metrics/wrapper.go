package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces used by the
// predictor and the web handlers.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc(label int) {
	w.m.MLPredictions.WithLabelValues(strconv.Itoa(label)).Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLModelLoadedSet(loaded bool) {
	if loaded {
		w.m.MLModelLoaded.Set(1)
		return
	}
	w.m.MLModelLoaded.Set(0)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLTimeoutsInc() {
	w.m.MLTimeouts.Inc()
}

func (w *MetricsWrapper) MLCacheHitsInc() {
	w.m.MLCacheHits.Inc()
}

func (w *MetricsWrapper) MLCacheMissesInc() {
	w.m.MLCacheMisses.Inc()
}

func (w *MetricsWrapper) MLFeatureDriftSet(column string, score float64) {
	w.m.MLFeatureDrift.WithLabelValues(column).Set(score)
}

func (w *MetricsWrapper) FormSubmissionInc(action string) {
	w.m.FormSubmissions.WithLabelValues(action).Inc()
}

func (w *MetricsWrapper) APIRequestInc(endpoint string, code int) {
	w.m.APIRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func (w *MetricsWrapper) InputErrorInc() {
	w.m.InputErrors.Inc()
}

func (w *MetricsWrapper) SchemaMismatchInc() {
	w.m.SchemaMismatches.Inc()
}

func (w *MetricsWrapper) HistoryWriteInc(ok bool) {
	if ok {
		w.m.HistoryWrites.Inc()
		return
	}
	w.m.HistoryWriteErrors.Inc()
}
