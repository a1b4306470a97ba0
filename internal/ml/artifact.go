package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ArtifactFormat identifies the Go-native model file format.
const ArtifactFormat = "churn-model/v1"

// Model kinds supported by the native backend.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
	KindGradientBoosting   = "gradient_boosting"
)

// Artifact is the on-disk form of a native model.
type Artifact struct {
	Format       string          `json:"format"`
	Kind         string          `json:"kind"`
	Version      string          `json:"version,omitempty"`
	TrainedAt    time.Time       `json:"trained_at,omitempty"`
	Features     []string        `json:"features"`
	Accuracy     float64         `json:"accuracy,omitempty"`
	TrainingRows int             `json:"training_rows,omitempty"`
	Logistic     *LogisticParams `json:"logistic,omitempty"`
	Trees        []Tree          `json:"trees,omitempty"`
	LearningRate float64         `json:"learning_rate,omitempty"`
	BaseScore    float64         `json:"base_score,omitempty"`
}

// LogisticParams holds a fitted logistic regression with optional standard
// scaling applied before the linear term.
type LogisticParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
}

// Tree is a flattened binary decision tree. Children always follow their
// parent in Nodes.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one split or leaf. Leaf values are class-1 probabilities for
// random forests and raw margins for gradient boosting.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["format", "kind", "features"],
  "properties": {
    "format": {"const": "churn-model/v1"},
    "kind": {"enum": ["logistic_regression", "random_forest", "gradient_boosting"]},
    "version": {"type": "string"},
    "trained_at": {"type": "string"},
    "features": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {"type": "string", "minLength": 1}
    },
    "accuracy": {"type": "number", "minimum": 0, "maximum": 1},
    "training_rows": {"type": "integer", "minimum": 0},
    "logistic": {
      "type": "object",
      "required": ["intercept", "coefficients"],
      "properties": {
        "intercept": {"type": "number"},
        "coefficients": {"type": "array", "minItems": 1, "items": {"type": "number"}},
        "mean": {"type": "array", "items": {"type": "number"}},
        "scale": {"type": "array", "items": {"type": "number"}}
      }
    },
    "trees": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["nodes"],
        "properties": {
          "nodes": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/node"}}
        }
      }
    },
    "learning_rate": {"type": "number", "exclusiveMinimum": 0},
    "base_score": {"type": "number"}
  },
  "allOf": [
    {
      "if": {"properties": {"kind": {"const": "logistic_regression"}}},
      "then": {"required": ["logistic"]}
    },
    {
      "if": {"properties": {"kind": {"enum": ["random_forest", "gradient_boosting"]}}},
      "then": {"required": ["trees"]}
    }
  ],
  "$defs": {
    "node": {
      "type": "object",
      "required": ["is_leaf"],
      "properties": {
        "feature_idx": {"type": "integer", "minimum": -1},
        "threshold": {"type": "number"},
        "left_child": {"type": "integer"},
        "right_child": {"type": "integer"},
        "value": {"type": "number"},
        "is_leaf": {"type": "boolean"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledArtifactSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("artifact.json", strings.NewReader(artifactSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("artifact.json")
	})
	return schemaCompiled, schemaErr
}

// ReadArtifact reads, schema-validates and decodes a native artifact.
func ReadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, loadFailed(path, err)
	}
	a, err := DecodeArtifact(data)
	if err != nil {
		return nil, loadFailed(path, err)
	}
	return a, nil
}

// DecodeArtifact validates raw JSON against the artifact schema and decodes it.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := compiledArtifactSchema()
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("artifact does not match %s: %w", ArtifactFormat, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// validate checks the constraints the JSON schema cannot express.
func (a *Artifact) validate() error {
	n := len(a.Features)
	switch a.Kind {
	case KindLogisticRegression:
		lr := a.Logistic
		if len(lr.Coefficients) != n {
			return fmt.Errorf("logistic model has %d coefficients for %d features", len(lr.Coefficients), n)
		}
		if lr.Mean != nil && len(lr.Mean) != n {
			return fmt.Errorf("scaler mean has %d entries for %d features", len(lr.Mean), n)
		}
		if lr.Scale != nil {
			if len(lr.Scale) != n {
				return fmt.Errorf("scaler scale has %d entries for %d features", len(lr.Scale), n)
			}
			for i, s := range lr.Scale {
				if s == 0 {
					return fmt.Errorf("scaler scale for %q is zero", a.Features[i])
				}
			}
		}
	case KindRandomForest, KindGradientBoosting:
		for ti, t := range a.Trees {
			if err := t.validate(n); err != nil {
				return fmt.Errorf("tree %d: %w", ti, err)
			}
		}
		if a.Kind == KindRandomForest {
			for ti, t := range a.Trees {
				for _, node := range t.Nodes {
					if node.IsLeaf && (node.Value < 0 || node.Value > 1) {
						return fmt.Errorf("tree %d: forest leaf value %.4f is not a probability", ti, node.Value)
					}
				}
			}
		}
	}
	return nil
}

func (t Tree) validate(featureCount int) error {
	for i, node := range t.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d splits on feature index %d of %d", i, node.FeatureIdx, featureCount)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has invalid child index %d", i, child)
			}
		}
	}
	return nil
}
