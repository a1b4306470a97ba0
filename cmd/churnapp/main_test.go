package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		common.EnvConfigFile, common.EnvPort, common.EnvMetricsPath, common.EnvModelPath,
		common.EnvModelBackend, common.EnvPythonPath, common.EnvRemoteURL,
		common.EnvRemoteLabelPath, common.EnvRemoteProbPath, common.EnvRequireArtifact,
		common.EnvSchemaNaming, common.EnvSchemaColumns, common.EnvPredictTimeout,
		common.EnvCacheSize, common.EnvCacheTTL, common.EnvDataPath, common.EnvLogLevel,
		common.EnvLogFile, common.EnvDriftEnabled, common.EnvDriftWindow, common.EnvDriftThreshold,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(common.EnvLogLevel, "error")
}

// writeModel writes a logistic artifact that only looks at Complaints.
func writeModel(t *testing.T) string {
	t.Helper()
	columns := features.DefaultSchema(features.NamingUnderscored).Columns
	coef := make([]float64, len(columns))
	coef[0] = 5
	data, err := json.Marshal(&ml.Artifact{
		Format:   ml.ArtifactFormat,
		Kind:     ml.KindLogisticRegression,
		Version:  "cli-test",
		Features: columns,
		Logistic: &ml.LogisticParams{Intercept: -2.5, Coefficients: coef},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "churn_model.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"churnapp"}, args...))
	return out.String(), errOut.String(), err
}

func TestParseFeatureArgs(t *testing.T) {
	input, err := parseFeatureArgs([]string{"complaints=1", "Seconds of Use= 4370.5", "Tariff_Plan=2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"complaints":     "1",
		"seconds_of_use": "4370.5",
		"tariff_plan":    "2",
	}, input)

	_, err = parseFeatureArgs([]string{"complaints"})
	var inputErr *features.InputError
	assert.ErrorAs(t, err, &inputErr)

	_, err = parseFeatureArgs([]string{"shoe_size=42"})
	assert.ErrorAs(t, err, &inputErr)
}

func TestSchemaCommand(t *testing.T) {
	clearEnv(t)

	out, _, err := runApp(t, "schema", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Naming  string `json:"naming"`
		Columns []struct {
			Position int    `json:"position"`
			Column   string `json:"column"`
			Feature  string `json:"feature"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "underscored", resp.Naming)
	require.Len(t, resp.Columns, 13)
	assert.Equal(t, "Complaints", resp.Columns[0].Column)
	assert.Equal(t, "seconds_of_use", resp.Columns[2].Feature)
}

func TestSchemaCommand_Text(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvSchemaNaming, "spaced")

	out, _, err := runApp(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "Seconds of Use")
	assert.Contains(t, out, "spaced")
}

func TestPredictCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvModelPath, writeModel(t))

	out, _, err := runApp(t, "predict", "--feature", "complaints=1", "-f", "age=40", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Label   int    `json:"label"`
		Churn   string `json:"churn_probability"`
		Version string `json:"model_version"`
		Rows    []struct {
			Column string `json:"column"`
			Value  string `json:"value"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Label)
	assert.Equal(t, "92.41%", result.Churn)
	assert.Equal(t, "cli-test", result.Version)
	require.Len(t, result.Rows, 13)
	assert.Equal(t, "Complaints", result.Rows[0].Column)
	assert.Equal(t, "1", result.Rows[0].Value)
}

func TestPredictCommand_Text(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvModelPath, writeModel(t))

	out, _, err := runApp(t, "predict")
	require.NoError(t, err)
	assert.Contains(t, out, "Input Data")
	assert.Contains(t, out, "Customer likely to stay")
	assert.Contains(t, out, "92.41%")
}

func TestPredictCommand_MissingModel(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing_model.json")
	t.Setenv(common.EnvModelPath, missing)

	_, errOut, err := runApp(t, "predict", "-f", "complaints=1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ml.ErrArtifactNotFound)
	assert.Contains(t, errOut, "Model not found")
	assert.Contains(t, errOut, missing)
}

func TestPredictCommand_InvalidFeature(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvModelPath, writeModel(t))

	_, errOut, err := runApp(t, "predict", "-f", "age=abc")
	require.Error(t, err)
	assert.Contains(t, errOut, "Invalid input")
}

func TestConfigFlag(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("schema:\n  naming: spaced\n"), 0644))

	out, _, err := runApp(t, "--config", configPath, "schema", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "naming: spaced")
	assert.Contains(t, out, "column: Seconds of Use")
}
