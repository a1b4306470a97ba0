package ml

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Baseline is the training-time distribution of each column, as recorded by
// the artifact's standard scaler.
type Baseline struct {
	Mean  []float64
	Scale []float64
}

// BaselineProvider is implemented by models that know their training
// distribution.
type BaselineProvider interface {
	Baseline() (Baseline, bool)
}

// DriftConfig configures input drift monitoring.
type DriftConfig struct {
	Disabled   bool
	WindowSize int     // rows kept in the sliding window
	MinSamples int     // rows required before scores are reported
	Threshold  float64 // mean shift, in training standard deviations, that raises an alert
}

// DriftAlert reports a column whose recent inputs moved away from training.
type DriftAlert struct {
	Timestamp    time.Time `json:"timestamp"`
	Column       string    `json:"column"`
	DriftScore   float64   `json:"drift_score"`
	Threshold    float64   `json:"threshold"`
	Severity     string    `json:"severity"`
	CurrentMean  float64   `json:"current_mean"`
	TrainingMean float64   `json:"training_mean"`
}

// DriftMonitor compares the mean of recently classified rows with the
// training mean of each column. The score of a column is the absolute mean
// shift divided by the training standard deviation.
type DriftMonitor struct {
	mu      sync.Mutex
	columns []string
	mean    []float64
	scale   []float64
	config  DriftConfig
	window  [][]float64
	sums    []float64
	next    int
	count   int
}

// NewDriftMonitor creates a monitor for columns with the given baseline.
func NewDriftMonitor(columns []string, baseline Baseline, config DriftConfig) (*DriftMonitor, error) {
	n := len(columns)
	if n == 0 || len(baseline.Mean) != n || len(baseline.Scale) != n {
		return nil, fmt.Errorf("baseline has %d means and %d scales for %d columns",
			len(baseline.Mean), len(baseline.Scale), n)
	}
	for i, s := range baseline.Scale {
		if s <= 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("baseline scale of %q must be positive", columns[i])
		}
	}

	if config.WindowSize <= 0 {
		config.WindowSize = 500
	}
	if config.MinSamples <= 0 {
		config.MinSamples = 30
	}
	if config.MinSamples > config.WindowSize {
		config.MinSamples = config.WindowSize
	}
	if config.Threshold <= 0 {
		config.Threshold = 0.5
	}

	return &DriftMonitor{
		columns: append([]string(nil), columns...),
		mean:    append([]float64(nil), baseline.Mean...),
		scale:   append([]float64(nil), baseline.Scale...),
		config:  config,
		window:  make([][]float64, config.WindowSize),
		sums:    make([]float64, n),
	}, nil
}

// Observe adds one classified row to the window, evicting the oldest row
// once the window is full. Rows of the wrong width are ignored.
func (d *DriftMonitor) Observe(row []float64) {
	if len(row) != len(d.columns) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old := d.window[d.next]; old != nil {
		for i, v := range old {
			d.sums[i] -= v
		}
	} else {
		d.count++
	}
	stored := append([]float64(nil), row...)
	for i, v := range stored {
		d.sums[i] += v
	}
	d.window[d.next] = stored
	d.next = (d.next + 1) % len(d.window)
}

// Samples returns the number of rows in the window.
func (d *DriftMonitor) Samples() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Scores returns the drift score of every column, or nil until MinSamples
// rows have been observed.
func (d *DriftMonitor) Scores() map[string]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count < d.config.MinSamples {
		return nil
	}
	scores := make(map[string]float64, len(d.columns))
	for i, col := range d.columns {
		scores[col] = math.Abs(d.sums[i]/float64(d.count)-d.mean[i]) / d.scale[i]
	}
	return scores
}

// Alerts returns the columns whose score exceeds the threshold, in column
// order. A score above twice the threshold is high severity.
func (d *DriftMonitor) Alerts() []DriftAlert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count < d.config.MinSamples {
		return nil
	}

	var alerts []DriftAlert
	now := time.Now()
	for i, col := range d.columns {
		current := d.sums[i] / float64(d.count)
		score := math.Abs(current-d.mean[i]) / d.scale[i]
		if score <= d.config.Threshold {
			continue
		}
		severity := "medium"
		if score > 2*d.config.Threshold {
			severity = "high"
		}
		alerts = append(alerts, DriftAlert{
			Timestamp:    now,
			Column:       col,
			DriftScore:   score,
			Threshold:    d.config.Threshold,
			Severity:     severity,
			CurrentMean:  current,
			TrainingMean: d.mean[i],
		})
	}
	return alerts
}
