package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is matched when the model file does not exist.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrArtifactLoad is matched when the model file exists but cannot be used.
	ErrArtifactLoad = errors.New("model artifact could not be loaded")
	// ErrPrediction is matched by every inference failure.
	ErrPrediction = errors.New("prediction failed")
)

// ArtifactError describes a failure to locate or deserialize the model.
type ArtifactError struct {
	Path string
	Kind error // ErrArtifactNotFound or ErrArtifactLoad
	Err  error
}

func (e *ArtifactError) Error() string {
	if e.Kind == ErrArtifactNotFound {
		return fmt.Sprintf("model artifact not found: %s", e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("failed to load model artifact %s", e.Path)
	}
	return fmt.Sprintf("failed to load model artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(path string, err error) error {
	return &ArtifactError{Path: path, Kind: ErrArtifactNotFound, Err: err}
}

func loadFailed(path string, err error) error {
	return &ArtifactError{Path: path, Kind: ErrArtifactLoad, Err: err}
}

// PredictionError wraps a failure raised while running inference.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() []error {
	return []error{ErrPrediction, e.Err}
}
