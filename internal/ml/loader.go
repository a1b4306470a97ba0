package ml

import (
	"fmt"
	"time"

	"churn-predictor/internal/common"
)

// LoadConfig selects and configures a model backend.
type LoadConfig struct {
	Backend    string
	ModelPath  string
	PythonPath string
	Remote     RemoteConfig
	Timeout    time.Duration
}

// LoadModel loads the model once for the lifetime of the process. Failures
// are *ArtifactError values matching ErrArtifactNotFound or ErrArtifactLoad.
func LoadModel(cfg LoadConfig) (Model, error) {
	switch cfg.Backend {
	case common.BackendNative, "":
		m, err := LoadNative(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	case common.BackendPython:
		m, err := LoadPython(cfg.ModelPath, cfg.PythonPath, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return m, nil
	case common.BackendRemote:
		remote := cfg.Remote
		if remote.Timeout == 0 {
			remote.Timeout = cfg.Timeout
		}
		m, err := NewRemote(remote)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, loadFailed(cfg.ModelPath, fmt.Errorf("unknown model backend %q", cfg.Backend))
	}
}
