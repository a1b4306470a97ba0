package main

import (
	"fmt"
	"io"
	"os"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// runtime holds what every subcommand needs after start-up.
type runtime struct {
	settings cfg.Settings
	schema   features.Schema
	logs     io.Closer
}

// setup loads configuration and initializes logging.
func setup(cmd *cli.Command) (*runtime, error) {
	if path := cmd.String(configFlagName); path != "" {
		if err := os.Setenv(common.EnvConfigFile, path); err != nil {
			return nil, err
		}
	}

	settings, err := cfg.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	logs, err := initLogging(settings.LogLevel, settings.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logging setup failed: %w", err)
	}

	schema, err := settings.Schema()
	if err != nil {
		logs.Close()
		return nil, err
	}

	return &runtime{settings: settings, schema: schema, logs: logs}, nil
}

func (rt *runtime) Close() {
	if rt.logs != nil {
		rt.logs.Close()
	}
}

// loadPredictor loads the configured model once and wraps it in the adapter.
// Errors are *ml.ArtifactError values.
func (rt *runtime) loadPredictor(metrics ml.MetricsInterface) (*ml.Predictor, error) {
	s := rt.settings
	model, err := ml.LoadModel(ml.LoadConfig{
		Backend:    s.ModelBackend,
		ModelPath:  s.ModelPath,
		PythonPath: s.PythonPath,
		Remote: ml.RemoteConfig{
			URL:       s.RemoteURL,
			LabelPath: s.RemoteLabelPath,
			ProbPath:  s.RemoteProbPath,
			Timeout:   s.PredictTimeout,
		},
		Timeout: s.PredictTimeout,
	})
	if err != nil {
		return nil, err
	}

	predictor, err := ml.NewPredictor(model, rt.schema.Columns, ml.PredictorConfig{
		Timeout:   s.PredictTimeout,
		CacheSize: s.CacheSize,
		CacheTTL:  s.CacheTTL,
		Drift: ml.DriftConfig{
			Disabled:   !s.DriftEnabled,
			WindowSize: s.DriftWindow,
			Threshold:  s.DriftThreshold,
		},
	}, metrics)
	if err != nil {
		model.Close()
		return nil, err
	}

	md := predictor.Metadata()
	log.Info().
		Str("backend", md.Backend).
		Str("kind", md.Kind).
		Str("version", md.Version).
		Str("naming", string(rt.schema.Naming)).
		Int("columns", len(rt.schema.Columns)).
		Msg("model loaded")
	return predictor, nil
}

// openHistory opens the prediction history when DATA_PATH is configured.
func (rt *runtime) openHistory() (*storage.Store, error) {
	if !rt.settings.HistoryEnabled() {
		return nil, nil
	}
	if err := os.MkdirAll(rt.settings.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}
	return storage.New(rt.settings.DataPath)
}
