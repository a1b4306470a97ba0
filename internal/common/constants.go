package common

import "time"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvMetricsPath     = "METRICS_PATH"
	EnvModelPath       = "MODEL_PATH"
	EnvModelBackend    = "MODEL_BACKEND"
	EnvPythonPath      = "PYTHON_PATH"
	EnvRemoteURL       = "MODEL_REMOTE_URL"
	EnvRemoteLabelPath = "MODEL_REMOTE_LABEL_PATH"
	EnvRemoteProbPath  = "MODEL_REMOTE_PROBA_PATH"
	EnvRequireArtifact = "REQUIRE_ARTIFACT"
	EnvSchemaNaming    = "SCHEMA_NAMING"
	EnvSchemaColumns   = "SCHEMA_COLUMNS"
	EnvPredictTimeout  = "PREDICT_TIMEOUT"
	EnvCacheSize       = "PREDICTION_CACHE_SIZE"
	EnvCacheTTL        = "PREDICTION_CACHE_TTL"
	EnvDataPath        = "DATA_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFile         = "LOG_FILE"
	EnvDriftEnabled    = "DRIFT_ENABLED"
	EnvDriftWindow     = "DRIFT_WINDOW"
	EnvDriftThreshold  = "DRIFT_THRESHOLD"
)

// Model backends
const (
	BackendNative = "native"
	BackendPython = "python"
	BackendRemote = "remote"
)

// Configuration defaults
const (
	DefaultPort            = 8501
	DefaultMetricsPath     = "/metrics"
	DefaultModelPath       = "models/churn_model.json"
	DefaultModelBackend    = BackendNative
	DefaultRemoteLabelPath = "prediction"
	DefaultRemoteProbPath  = "probabilities"
	DefaultSchemaNaming    = "underscored"
	DefaultPredictTimeout  = 5 * time.Second
	DefaultCacheSize       = 256
	DefaultCacheTTL        = 10 * time.Minute
	DefaultLogLevel        = "info"
	DefaultHistoryLimit    = 20
	DefaultDriftWindow     = 500
	DefaultDriftThreshold  = 0.5
)

// Validation constants
const (
	MinPort           = 1024
	MaxPort           = 65535
	MaxCacheSize      = 100000
	MinPredictTimeout = 10 * time.Millisecond
	MaxPredictTimeout = 2 * time.Minute
	MaxHistoryLimit   = 1000
	MinDriftWindow    = 10
	MaxDriftWindow    = 100000
)
