package ml

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"churn-predictor/internal/common"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// RemoteModel forwards rows to an HTTP scoring endpoint. The request body is
// {"columns": [...], "rows": [[...]]} and the label and probabilities are read
// from the response with gjson paths.
type RemoteModel struct {
	endpoint  string
	labelPath string
	probPath  string
	rest      *resty.Client
	metadata  ModelMetadata
}

// RemoteConfig configures a RemoteModel.
type RemoteConfig struct {
	URL       string
	LabelPath string
	ProbPath  string
	Timeout   time.Duration
}

// NewRemote validates the endpoint and builds the HTTP client.
func NewRemote(cfg RemoteConfig) (*RemoteModel, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("expected an absolute http(s) URL")
		}
		return nil, loadFailed(cfg.URL, err)
	}
	if cfg.ProbPath == "" {
		cfg.ProbPath = common.DefaultRemoteProbPath
	}

	r := resty.New()
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	} else {
		r.SetTimeout(common.DefaultPredictTimeout)
	}
	r.SetHeader("Accept", "application/json")

	m := &RemoteModel{
		endpoint:  cfg.URL,
		labelPath: cfg.LabelPath,
		probPath:  cfg.ProbPath,
		rest:      r,
		metadata: ModelMetadata{
			Backend:  common.BackendRemote,
			Path:     cfg.URL,
			Version:  u.Host,
			LoadedAt: time.Now(),
		},
	}
	log.Info().Str("endpoint", cfg.URL).Msg("remote model configured")
	return m, nil
}

// Predict implements Model.
func (m *RemoteModel) Predict(ctx context.Context, columns []string, row []float64) (Prediction, error) {
	resp, err := m.rest.R().
		SetContext(ctx).
		SetBody(pythonRequest{Columns: columns, Rows: [][]float64{row}}).
		Post(m.endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Prediction{}, fmt.Errorf("remote inference timed out: %w", context.DeadlineExceeded)
		}
		return Prediction{}, fmt.Errorf("remote inference request: %w", err)
	}
	if resp.IsError() {
		return Prediction{}, fmt.Errorf("remote inference: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return parseRemoteResponse(resp.Body(), m.labelPath, m.probPath)
}

func parseRemoteResponse(body []byte, labelPath, probPath string) (Prediction, error) {
	if !gjson.ValidBytes(body) {
		return Prediction{}, fmt.Errorf("remote inference returned invalid JSON")
	}
	if msg := gjson.GetBytes(body, "error"); msg.Exists() && msg.String() != "" {
		return Prediction{}, fmt.Errorf("remote inference error: %s", msg.String())
	}

	probs := gjson.GetBytes(body, probPath)
	if !probs.Exists() {
		return Prediction{}, fmt.Errorf("response has no probabilities at %q", probPath)
	}
	// predict_proba returns one row per input; unwrap the single row.
	if first := probs.Get("0"); first.IsArray() {
		probs = first
	}
	values := probs.Array()
	if len(values) != 2 {
		return Prediction{}, fmt.Errorf("expected 2 probabilities, got %d", len(values))
	}
	for _, v := range values {
		if v.Type != gjson.Number {
			return Prediction{}, fmt.Errorf("probability %q is not a number", v.Raw)
		}
	}
	p := Prediction{Probabilities: [2]float64{values[0].Float(), values[1].Float()}}

	label := gjson.Result{}
	if labelPath != "" {
		label = gjson.GetBytes(body, labelPath)
		if label.IsArray() {
			label = label.Get("0")
		}
	}
	switch {
	case !label.Exists():
		if p.Probabilities[1] > p.Probabilities[0] {
			p.Label = 1
		}
	case label.Type == gjson.Number:
		p.Label = int(label.Int())
		if float64(p.Label) != label.Float() {
			return Prediction{}, fmt.Errorf("label %s is not an integer", label.Raw)
		}
	default:
		return Prediction{}, fmt.Errorf("label %q is not a number", label.Raw)
	}
	return p, nil
}

// Metadata implements Model.
func (m *RemoteModel) Metadata() ModelMetadata { return m.metadata }

// Close implements Model.
func (m *RemoteModel) Close() error { return nil }
