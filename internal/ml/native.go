package ml

import (
	"context"
	"fmt"
	"math"
	"time"

	"churn-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// NativeModel scores rows with a Go-native artifact.
type NativeModel struct {
	artifact *Artifact
	metadata ModelMetadata
}

// LoadNative loads a native JSON artifact from path.
func LoadNative(path string) (*NativeModel, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}

	version := a.Version
	if version == "" {
		version = "unknown"
	}
	m := &NativeModel{
		artifact: a,
		metadata: ModelMetadata{
			Backend:      common.BackendNative,
			Path:         path,
			Kind:         a.Kind,
			Version:      version,
			TrainedAt:    a.TrainedAt,
			Features:     append([]string(nil), a.Features...),
			Accuracy:     a.Accuracy,
			TrainingRows: a.TrainingRows,
			LoadedAt:     time.Now(),
		},
	}

	log.Info().
		Str("model_path", path).
		Str("kind", a.Kind).
		Str("version", version).
		Int("features", len(a.Features)).
		Msg("native model loaded")
	return m, nil
}

// Baseline implements BaselineProvider for standardized logistic models.
func (m *NativeModel) Baseline() (Baseline, bool) {
	lr := m.artifact.Logistic
	if lr == nil || len(lr.Mean) == 0 || len(lr.Scale) == 0 {
		return Baseline{}, false
	}
	return Baseline{
		Mean:  append([]float64(nil), lr.Mean...),
		Scale: append([]float64(nil), lr.Scale...),
	}, true
}

// Predict implements Model.
func (m *NativeModel) Predict(ctx context.Context, columns []string, row []float64) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if len(row) != len(m.artifact.Features) {
		return Prediction{}, fmt.Errorf("expected %d features, got %d", len(m.artifact.Features), len(row))
	}

	p1, err := m.score(row)
	if err != nil {
		return Prediction{}, err
	}
	return binaryPrediction(p1), nil
}

func (m *NativeModel) score(row []float64) (float64, error) {
	a := m.artifact
	switch a.Kind {
	case KindLogisticRegression:
		lr := a.Logistic
		z := lr.Intercept
		for i, x := range row {
			if lr.Mean != nil {
				x -= lr.Mean[i]
			}
			if lr.Scale != nil {
				x /= lr.Scale[i]
			}
			z += lr.Coefficients[i] * x
		}
		return sigmoid(z), nil

	case KindRandomForest:
		var sum float64
		for _, t := range a.Trees {
			v, err := t.leaf(row)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum / float64(len(a.Trees)), nil

	case KindGradientBoosting:
		lr := a.LearningRate
		if lr == 0 {
			lr = 1
		}
		margin := a.BaseScore
		for _, t := range a.Trees {
			v, err := t.leaf(row)
			if err != nil {
				return 0, err
			}
			margin += lr * v
		}
		return sigmoid(margin), nil
	}
	return 0, fmt.Errorf("unsupported model kind %q", a.Kind)
}

func (t Tree) leaf(row []float64) (float64, error) {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("invalid tree state")
		}
	}
}

// Metadata implements Model.
func (m *NativeModel) Metadata() ModelMetadata { return m.metadata }

// Close implements Model.
func (m *NativeModel) Close() error { return nil }

// binaryPrediction mirrors predict/predict_proba for a binary classifier:
// the label is the argmax of the probabilities, ties going to class 0.
func binaryPrediction(p1 float64) Prediction {
	p1 = math.Min(math.Max(p1, 0), 1)
	label := 0
	if p1 > 0.5 {
		label = 1
	}
	return Prediction{Label: label, Probabilities: [2]float64{1 - p1, p1}}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
