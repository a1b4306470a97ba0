package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type ConfigFile struct {
	Server struct {
		Port        int    `yaml:"port"`
		MetricsPath string `yaml:"metricsPath"`
	} `yaml:"server"`

	Model struct {
		Path            string `yaml:"path"`
		Backend         string `yaml:"backend"`
		PythonPath      string `yaml:"pythonPath"`
		RequireArtifact *bool  `yaml:"requireArtifact"`
		Timeout         string `yaml:"timeout"`
		Remote          struct {
			URL       string `yaml:"url"`
			LabelPath string `yaml:"labelPath"`
			ProbaPath string `yaml:"probaPath"`
		} `yaml:"remote"`
	} `yaml:"model"`

	Schema struct {
		Naming  string   `yaml:"naming"`
		Columns []string `yaml:"columns"`
	} `yaml:"schema"`

	Cache struct {
		Size *int   `yaml:"size"`
		TTL  string `yaml:"ttl"`
	} `yaml:"cache"`

	Drift struct {
		Enabled   *bool   `yaml:"enabled"`
		Window    int     `yaml:"window"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"drift"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
		LogFile  string `yaml:"logFile"`
	} `yaml:"system"`
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE with
// environment overrides, or the environment alone.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := parseDurationOr(config.Model.Timeout, common.DefaultPredictTimeout)
	if err != nil {
		return Settings{}, fmt.Errorf("model.timeout: %w", err)
	}
	cacheTTL, err := parseDurationOr(config.Cache.TTL, common.DefaultCacheTTL)
	if err != nil {
		return Settings{}, fmt.Errorf("cache.ttl: %w", err)
	}

	requireArtifact := true
	if config.Model.RequireArtifact != nil {
		requireArtifact = *config.Model.RequireArtifact
	}
	cacheSize := common.DefaultCacheSize
	if config.Cache.Size != nil {
		cacheSize = *config.Cache.Size
	}
	driftEnabled := true
	if config.Drift.Enabled != nil {
		driftEnabled = *config.Drift.Enabled
	}
	driftThreshold := common.DefaultDriftThreshold
	if config.Drift.Threshold != 0 {
		driftThreshold = config.Drift.Threshold
	}

	settings := Settings{
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		MetricsPath:     getEnvOrDefault(common.EnvMetricsPath, orDefault(config.Server.MetricsPath, common.DefaultMetricsPath)),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, orDefault(config.Model.Path, common.DefaultModelPath)),
		ModelBackend:    getEnvOrDefault(common.EnvModelBackend, orDefault(config.Model.Backend, common.DefaultModelBackend)),
		PythonPath:      getEnvOrDefault(common.EnvPythonPath, config.Model.PythonPath),
		RemoteURL:       getEnvOrDefault(common.EnvRemoteURL, config.Model.Remote.URL),
		RemoteLabelPath: getEnvOrDefault(common.EnvRemoteLabelPath, orDefault(config.Model.Remote.LabelPath, common.DefaultRemoteLabelPath)),
		RemoteProbPath:  getEnvOrDefault(common.EnvRemoteProbPath, orDefault(config.Model.Remote.ProbaPath, common.DefaultRemoteProbPath)),
		RequireArtifact: getBoolOrDefault(common.EnvRequireArtifact, requireArtifact),
		SchemaNaming:    getEnvOrDefault(common.EnvSchemaNaming, orDefault(config.Schema.Naming, common.DefaultSchemaNaming)),
		SchemaColumns:   getListFromEnvOrConfig(common.EnvSchemaColumns, config.Schema.Columns),
		PredictTimeout:  getDurationOrDefault(common.EnvPredictTimeout, timeout),
		CacheSize:       getIntOrDefault(common.EnvCacheSize, cacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, cacheTTL),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFile:         getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
		DriftEnabled:    getBoolOrDefault(common.EnvDriftEnabled, driftEnabled),
		DriftWindow:     getIntFromEnvOrConfig(common.EnvDriftWindow, config.Drift.Window, common.DefaultDriftWindow),
		DriftThreshold:  getFloatOrDefault(common.EnvDriftThreshold, driftThreshold),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		MetricsPath:     getEnvOrDefault(common.EnvMetricsPath, common.DefaultMetricsPath),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ModelBackend:    getEnvOrDefault(common.EnvModelBackend, common.DefaultModelBackend),
		PythonPath:      os.Getenv(common.EnvPythonPath),
		RemoteURL:       os.Getenv(common.EnvRemoteURL),
		RemoteLabelPath: getEnvOrDefault(common.EnvRemoteLabelPath, common.DefaultRemoteLabelPath),
		RemoteProbPath:  getEnvOrDefault(common.EnvRemoteProbPath, common.DefaultRemoteProbPath),
		RequireArtifact: getBoolOrDefault(common.EnvRequireArtifact, true),
		SchemaNaming:    getEnvOrDefault(common.EnvSchemaNaming, common.DefaultSchemaNaming),
		SchemaColumns:   getListFromEnvOrConfig(common.EnvSchemaColumns, nil),
		PredictTimeout:  getDurationOrDefault(common.EnvPredictTimeout, common.DefaultPredictTimeout),
		CacheSize:       getIntOrDefault(common.EnvCacheSize, common.DefaultCacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, common.DefaultCacheTTL),
		DataPath:        os.Getenv(common.EnvDataPath), // optional, enables history
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFile:         os.Getenv(common.EnvLogFile),
		DriftEnabled:    getBoolOrDefault(common.EnvDriftEnabled, true),
		DriftWindow:     getIntOrDefault(common.EnvDriftWindow, common.DefaultDriftWindow),
		DriftThreshold:  getFloatOrDefault(common.EnvDriftThreshold, common.DefaultDriftThreshold),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}
	if !strings.HasPrefix(settings.MetricsPath, "/") || settings.MetricsPath == "/" {
		return fmt.Errorf("metrics path must be an absolute sub-path, got %q", settings.MetricsPath)
	}

	switch settings.ModelBackend {
	case common.BackendNative, common.BackendPython:
		if settings.ModelPath == "" {
			return fmt.Errorf("model path cannot be empty for the %s backend", settings.ModelBackend)
		}
	case common.BackendRemote:
		if settings.RemoteURL == "" {
			return fmt.Errorf("remote model URL is required for the remote backend")
		}
		if settings.RemoteProbPath == "" {
			return fmt.Errorf("remote probability path cannot be empty")
		}
	default:
		return fmt.Errorf("model backend must be one of %s, %s, %s; got %q",
			common.BackendNative, common.BackendPython, common.BackendRemote, settings.ModelBackend)
	}

	if _, err := settings.Schema(); err != nil {
		return err
	}

	if settings.PredictTimeout < common.MinPredictTimeout || settings.PredictTimeout > common.MaxPredictTimeout {
		return fmt.Errorf("prediction timeout must be between %v and %v, got %v",
			common.MinPredictTimeout, common.MaxPredictTimeout, settings.PredictTimeout)
	}
	if settings.CacheSize < 0 || settings.CacheSize > common.MaxCacheSize {
		return fmt.Errorf("prediction cache size must be between 0 and %d, got %d", common.MaxCacheSize, settings.CacheSize)
	}
	if settings.CacheSize > 0 && settings.CacheTTL <= 0 {
		return fmt.Errorf("prediction cache TTL must be positive, got %v", settings.CacheTTL)
	}

	if settings.DriftEnabled {
		if settings.DriftWindow < common.MinDriftWindow || settings.DriftWindow > common.MaxDriftWindow {
			return fmt.Errorf("drift window must be between %d and %d, got %d",
				common.MinDriftWindow, common.MaxDriftWindow, settings.DriftWindow)
		}
		if settings.DriftThreshold <= 0 {
			return fmt.Errorf("drift threshold must be positive, got %v", settings.DriftThreshold)
		}
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}

// Schema returns the column naming convention and training order.
func (s *Settings) Schema() (features.Schema, error) {
	naming, err := features.ParseNaming(s.SchemaNaming)
	if err != nil {
		return features.Schema{}, err
	}
	schema, err := features.NewSchema(naming, s.SchemaColumns)
	if err != nil {
		return features.Schema{}, fmt.Errorf("invalid schema columns: %w", err)
	}
	return schema, nil
}

// HistoryEnabled reports whether predictions are persisted.
func (s *Settings) HistoryEnabled() bool {
	return s.DataPath != ""
}

func parseDurationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
