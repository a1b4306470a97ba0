package cfg

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Settings struct {
	Port            int
	MetricsPath     string
	ModelPath       string
	ModelBackend    string
	PythonPath      string
	RemoteURL       string
	RemoteLabelPath string
	RemoteProbPath  string
	RequireArtifact bool // halt instead of serving a form without predictions
	SchemaNaming    string
	SchemaColumns   []string // training column order; empty selects the default
	PredictTimeout  time.Duration
	CacheSize       int
	CacheTTL        time.Duration
	DataPath        string
	LogLevel        string
	LogFile         string
	DriftEnabled    bool
	DriftWindow     int
	DriftThreshold  float64 // mean shift in training standard deviations
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

// getListFromEnvOrConfig splits a comma-separated variable, trimming spaces
// but keeping the spaces inside names such as "Seconds of Use".
func getListFromEnvOrConfig(key string, configValue []string) []string {
	env := os.Getenv(key)
	if env == "" {
		return configValue
	}
	parts := strings.Split(env, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
