package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"churn-predictor/internal/common"

	"github.com/rs/zerolog/log"
)

// PythonModel serves a pickled scikit-learn estimator through a short-lived
// Python process per request.
type PythonModel struct {
	modelPath  string
	pythonPath string
	scriptDir  string
	scriptPath string
	timeout    time.Duration
	metadata   ModelMetadata
}

type pythonRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type pythonResponse struct {
	Prediction    *int      `json:"prediction"`
	Probabilities []float64 `json:"probabilities"`
	Error         string    `json:"error,omitempty"`
}

type pythonCheck struct {
	OK       bool     `json:"ok"`
	Kind     string   `json:"kind,omitempty"`
	Version  string   `json:"version,omitempty"`
	Features []string `json:"features,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// LoadPython prepares the embedded inference script and verifies that the
// pickle at path deserializes. An empty pythonPath searches PATH.
func LoadPython(path, pythonPath string, timeout time.Duration) (*PythonModel, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, loadFailed(path, err)
	}

	if pythonPath == "" {
		pythonPath, err = findPython()
		if err != nil {
			return nil, loadFailed(path, err)
		}
	}

	scriptDir, err := os.MkdirTemp("", "churn-inference-*")
	if err != nil {
		return nil, loadFailed(path, fmt.Errorf("create script dir: %w", err))
	}
	scriptPath := filepath.Join(scriptDir, "churn_inference.py")
	if err := createInferenceScript(scriptPath); err != nil {
		os.RemoveAll(scriptDir)
		return nil, loadFailed(path, fmt.Errorf("write inference script: %w", err))
	}

	m := &PythonModel{
		modelPath:  path,
		pythonPath: pythonPath,
		scriptDir:  scriptDir,
		scriptPath: scriptPath,
		timeout:    timeout,
	}

	check, err := m.healthCheck()
	if err != nil {
		os.RemoveAll(scriptDir)
		return nil, loadFailed(path, err)
	}

	version := check.Version
	if version == "" {
		version = info.ModTime().UTC().Format("20060102T150405Z")
	}
	m.metadata = ModelMetadata{
		Backend:   common.BackendPython,
		Path:      path,
		Kind:      check.Kind,
		Version:   version,
		TrainedAt: info.ModTime(),
		Features:  check.Features,
		LoadedAt:  time.Now(),
	}

	log.Info().
		Str("model_path", path).
		Str("python_path", pythonPath).
		Str("kind", check.Kind).
		Msg("pickled model loaded")
	return m, nil
}

// Predict implements Model.
func (m *PythonModel) Predict(ctx context.Context, columns []string, row []float64) (Prediction, error) {
	reqJSON, err := json.Marshal(pythonRequest{Columns: columns, Rows: [][]float64{row}})
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pythonPath, m.scriptPath, m.modelPath)
	cmd.Stdin = bytes.NewReader(reqJSON)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Prediction{}, fmt.Errorf("python inference timed out after %v: %w", m.timeout, context.DeadlineExceeded)
		}

		// The script reports its own failures as JSON on stdout.
		var resp pythonResponse
		if json.Unmarshal(stdout.Bytes(), &resp) == nil && resp.Error != "" {
			return Prediction{}, fmt.Errorf("python inference error: %s", resp.Error)
		}

		log.Error().
			Err(err).
			Str("python_path", m.pythonPath).
			Str("model_path", m.modelPath).
			Str("stderr", stderr.String()).
			Msg("Python inference execution failed")
		return Prediction{}, fmt.Errorf("python inference failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp pythonResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Prediction{}, fmt.Errorf("failed to parse response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return Prediction{}, fmt.Errorf("python inference error: %s", resp.Error)
	}
	if len(resp.Probabilities) != 2 {
		return Prediction{}, fmt.Errorf("expected 2 probabilities, got %d", len(resp.Probabilities))
	}
	if resp.Prediction == nil {
		return Prediction{}, fmt.Errorf("response has no prediction")
	}

	return Prediction{
		Label:         *resp.Prediction,
		Probabilities: [2]float64{resp.Probabilities[0], resp.Probabilities[1]},
	}, nil
}

func (m *PythonModel) healthCheck() (*pythonCheck, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout+10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pythonPath, m.scriptPath, "--check", m.modelPath)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var check pythonCheck
	if err := json.Unmarshal(stdout.Bytes(), &check); err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("model check failed: %w, stderr: %s", runErr, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to parse model check output: %w", err)
	}
	if !check.OK {
		if check.Error == "" {
			check.Error = "unknown error"
		}
		return nil, fmt.Errorf("model check failed: %s", check.Error)
	}
	return &check, nil
}

// Metadata implements Model.
func (m *PythonModel) Metadata() ModelMetadata { return m.metadata }

// Close removes the generated inference script.
func (m *PythonModel) Close() error {
	return os.RemoveAll(m.scriptDir)
}

func findPython() (string, error) {
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		for _, name := range []string{"python3", "python"} {
			candidate := filepath.Join(venv, "bin", name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Python 3 executable found; set PYTHON_PATH")
}

func createInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
import json
import sys


def load(path):
    try:
        import joblib
        return joblib.load(path)
    except ImportError:
        import pickle
        with open(path, "rb") as fh:
            return pickle.load(fh)


def check(path):
    model = load(path)
    names = getattr(model, "feature_names_in_", None)
    out = {"ok": True, "kind": type(model).__name__}
    if names is not None:
        out["features"] = [str(n) for n in names]
    if not hasattr(model, "predict_proba"):
        out = {"ok": False, "error": "model has no predict_proba"}
    print(json.dumps(out))


def predict(path):
    request = json.load(sys.stdin)
    model = load(path)
    try:
        import pandas as pd
        rows = pd.DataFrame(request["rows"], columns=request["columns"])
    except ImportError:
        rows = request["rows"]
    label = model.predict(rows)[0]
    proba = model.predict_proba(rows)[0]
    print(json.dumps({
        "prediction": int(label),
        "probabilities": [float(p) for p in proba],
    }))


def main():
    args = sys.argv[1:]
    try:
        if len(args) == 2 and args[0] == "--check":
            check(args[1])
        elif len(args) == 1:
            predict(args[0])
        else:
            print(json.dumps({"error": "usage: churn_inference.py [--check] <model_path>"}))
            sys.exit(2)
    except Exception as e:
        if args and args[0] == "--check":
            print(json.dumps({"ok": False, "error": str(e)}))
        else:
            print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`

	return os.WriteFile(scriptPath, []byte(script), 0755)
}
