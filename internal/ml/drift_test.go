package ml

import (
	"context"
	"testing"

	"churn-predictor/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoColumnMonitor(t *testing.T, cfg DriftConfig) *DriftMonitor {
	t.Helper()
	d, err := NewDriftMonitor([]string{"a", "b"}, Baseline{Mean: []float64{0, 10}, Scale: []float64{1, 2}}, cfg)
	require.NoError(t, err)
	return d
}

func TestNewDriftMonitor_Validation(t *testing.T) {
	_, err := NewDriftMonitor([]string{"a", "b"}, Baseline{Mean: []float64{0}, Scale: []float64{1, 1}}, DriftConfig{})
	assert.Error(t, err)

	_, err = NewDriftMonitor([]string{"a"}, Baseline{Mean: []float64{0}, Scale: []float64{0}}, DriftConfig{})
	assert.Error(t, err)

	_, err = NewDriftMonitor(nil, Baseline{}, DriftConfig{})
	assert.Error(t, err)
}

func TestDriftMonitor_NoScoresBeforeMinSamples(t *testing.T) {
	d := twoColumnMonitor(t, DriftConfig{WindowSize: 10, MinSamples: 3})

	d.Observe([]float64{5, 10})
	d.Observe([]float64{5, 10})
	assert.Nil(t, d.Scores())
	assert.Nil(t, d.Alerts())

	d.Observe([]float64{5, 10})
	assert.Equal(t, 3, d.Samples())
	assert.Equal(t, map[string]float64{"a": 5, "b": 0}, d.Scores())
}

func TestDriftMonitor_AlertsBySeverity(t *testing.T) {
	d := twoColumnMonitor(t, DriftConfig{WindowSize: 10, MinSamples: 1, Threshold: 0.5})

	d.Observe([]float64{0.8, 12.8})

	alerts := d.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "a", alerts[0].Column)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.InDelta(t, 0.8, alerts[0].DriftScore, 1e-9)
	assert.Equal(t, "b", alerts[1].Column)
	assert.Equal(t, "high", alerts[1].Severity)
	assert.InDelta(t, 1.4, alerts[1].DriftScore, 1e-9)
	assert.InDelta(t, 12.8, alerts[1].CurrentMean, 1e-9)
	assert.Equal(t, 10.0, alerts[1].TrainingMean)
}

func TestDriftMonitor_WindowEvictsOldRows(t *testing.T) {
	d := twoColumnMonitor(t, DriftConfig{WindowSize: 4, MinSamples: 2, Threshold: 0.5})

	for i := 0; i < 4; i++ {
		d.Observe([]float64{10, 30})
	}
	assert.NotEmpty(t, d.Alerts())

	for i := 0; i < 4; i++ {
		d.Observe([]float64{0, 10})
	}
	assert.Equal(t, 4, d.Samples())
	assert.Empty(t, d.Alerts())
	assert.InDelta(t, 0, d.Scores()["a"], 1e-9)
}

func TestDriftMonitor_IgnoresWrongWidth(t *testing.T) {
	d := twoColumnMonitor(t, DriftConfig{MinSamples: 1})
	d.Observe([]float64{1, 2, 3})
	assert.Equal(t, 0, d.Samples())
}

func TestPredictor_PublishesDrift(t *testing.T) {
	a := complaintsOnlyLogistic()
	a.Logistic.Mean = make([]float64, 13)
	a.Logistic.Scale = make([]float64, 13)
	for i := range a.Logistic.Scale {
		a.Logistic.Scale[i] = 1
	}
	m, err := LoadNative(writeArtifact(t, a))
	require.NoError(t, err)

	p, metrics := newTestPredictor(t, m, PredictorConfig{Drift: DriftConfig{MinSamples: 1, Threshold: 0.5}})
	_, err = p.Classify(context.Background(), defaultRecord(t, features.NamingUnderscored))
	require.NoError(t, err)

	assert.Equal(t, 0.0, metrics.drift["Complaints"])
	assert.Equal(t, 150.0, metrics.drift["Seconds_of_Use"])

	columns := map[string]bool{}
	for _, alert := range p.Health().DriftAlerts {
		columns[alert.Column] = true
	}
	assert.True(t, columns["Seconds_of_Use"])
	assert.False(t, columns["Complaints"])
}

func TestPredictor_DriftDisabled(t *testing.T) {
	a := complaintsOnlyLogistic()
	a.Logistic.Mean = make([]float64, 13)
	a.Logistic.Scale = make([]float64, 13)
	for i := range a.Logistic.Scale {
		a.Logistic.Scale[i] = 1
	}
	m, err := LoadNative(writeArtifact(t, a))
	require.NoError(t, err)

	p, metrics := newTestPredictor(t, m, PredictorConfig{Drift: DriftConfig{Disabled: true, MinSamples: 1}})
	_, err = p.Classify(context.Background(), defaultRecord(t, features.NamingUnderscored))
	require.NoError(t, err)

	assert.Nil(t, metrics.drift)
	assert.Nil(t, p.DriftAlerts())
}

func TestPredictor_NoDriftWithoutBaseline(t *testing.T) {
	m, err := LoadNative(writeArtifact(t, complaintsOnlyLogistic()))
	require.NoError(t, err)

	p, metrics := newTestPredictor(t, m, PredictorConfig{Drift: DriftConfig{MinSamples: 1}})
	_, err = p.Classify(context.Background(), defaultRecord(t, features.NamingUnderscored))
	require.NoError(t, err)

	assert.Nil(t, metrics.drift)
	assert.Nil(t, p.DriftAlerts())
}
