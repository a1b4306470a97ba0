package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/present"

	"github.com/urfave/cli/v3"
)

func newPredictCmd() *cli.Command {
	return &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Classify one customer from key=value features",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "feature",
				Aliases: []string{"f"},
				Usage:   "Feature value as key=value; key is a feature id or column name (repeatable)",
			},
			newFormatFlag(),
		},
		Action: cmdPredict,
	}
}

type predictResult struct {
	Rows       []present.Row   `json:"rows" yaml:"rows"`
	Label      int             `json:"label" yaml:"label"`
	Churn      string          `json:"churn_probability" yaml:"churn_probability"`
	Stay       string          `json:"stay_probability" yaml:"stay_probability"`
	Version    string          `json:"model_version" yaml:"model_version"`
	Message    present.Message `json:"message" yaml:"message"`
	Prediction ml.Prediction   `json:"-" yaml:"-"`
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := parseFeatureArgs(cmd.StringSlice("feature"))
	if err != nil {
		return reportError(cmd, err)
	}

	predictor, err := rt.loadPredictor(nil)
	if err != nil {
		return reportError(cmd, err)
	}
	defer predictor.Close()

	result, err := classify(ctx, rt.schema, predictor, input)
	if err != nil {
		return reportError(cmd, err)
	}

	out := stdout(cmd)
	if format != formatText {
		return encode(out, format, result)
	}

	fmt.Fprintln(out, "Input Data")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, row := range result.Rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Column, row.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s\n%s\n", result.Message.Title, result.Message.Text)
	if result.Message.Recommendation != "" {
		fmt.Fprintf(out, "Recommendation: %s\n", result.Message.Recommendation)
	}
	return nil
}

// classify runs the collect, normalize and predict steps for one record.
func classify(ctx context.Context, schema features.Schema, predictor *ml.Predictor, input map[string]string) (predictResult, error) {
	record, err := features.NewCollector(schema.Naming).Collect(input)
	if err != nil {
		return predictResult{}, err
	}
	normalized, err := features.Normalize(record, schema.Columns)
	if err != nil {
		return predictResult{}, err
	}
	pred, err := predictor.Classify(ctx, normalized)
	if err != nil {
		return predictResult{}, err
	}
	return predictResult{
		Rows:       present.Table(normalized),
		Label:      pred.Label,
		Churn:      present.FormatPercent(pred.ChurnProbability()),
		Stay:       present.FormatPercent(pred.StayProbability()),
		Version:    pred.ModelVersion,
		Message:    present.Outcome(pred),
		Prediction: pred,
	}, nil
}

// parseFeatureArgs turns key=value pairs into collector input keyed by
// feature id.
func parseFeatureArgs(args []string) (map[string]string, error) {
	input := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, &features.InputError{Field: arg, Value: "", Reason: "expected key=value"}
		}
		f, known := features.Lookup(strings.TrimSpace(key))
		if !known {
			return nil, &features.InputError{Field: key, Value: value, Reason: "unknown feature"}
		}
		input[string(f.Feature)] = strings.TrimSpace(value)
	}
	return input, nil
}

// reportError prints the user-facing message and returns err so the process
// exits non-zero.
func reportError(cmd *cli.Command, err error) error {
	msg := present.ErrorMessage(err)
	w := stderr(cmd)
	fmt.Fprintf(w, "%s: %s\n", msg.Title, msg.Text)
	if msg.Recommendation != "" {
		fmt.Fprintln(w, msg.Recommendation)
	}
	return err
}
