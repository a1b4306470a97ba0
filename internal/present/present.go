// Package present turns records, predictions and errors into the strings the
// web page, the JSON API and the CLI display.
package present

import (
	"errors"
	"fmt"
	"strings"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Style selects how a message is rendered.
type Style string

const (
	StyleSuccess Style = "success"
	StyleError   Style = "error"
	StyleWarning Style = "warning"
)

// Message is a styled block of user-facing text.
type Message struct {
	Style          Style  `json:"style"`
	Title          string `json:"title"`
	Text           string `json:"text"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Row is one line of the record preview table.
type Row struct {
	Column string `json:"column"`
	Label  string `json:"label,omitempty"`
	Value  string `json:"value"`
}

var printer = message.NewPrinter(language.English)

// Table renders a record as ordered rows. Integer fields print without
// decimals and float fields with two; both use thousands separators.
func Table(r features.Record) []Row {
	columns := r.Columns()
	values := r.Values()
	rows := make([]Row, len(columns))
	for i, col := range columns {
		row := Row{Column: col}
		if f, ok := features.Lookup(col); ok {
			row.Label = f.Label
			row.Value = FormatValue(f.Kind, values[i])
		} else {
			row.Value = printer.Sprintf("%v", values[i])
		}
		rows[i] = row
	}
	return rows
}

// FormatValue formats v for display according to its kind.
func FormatValue(kind features.Kind, v float64) string {
	if kind == features.KindInt {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

// FormatPercent renders a probability in [0, 1] as a percentage with two
// decimal places, e.g. 0.95 -> "95.00%".
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// Outcome renders a prediction. Label 1 reports the churn probability,
// label 0 the probability of staying.
func Outcome(p ml.Prediction) Message {
	if p.Label == 1 {
		return Message{
			Style: StyleError,
			Title: "High risk of churn",
			Text: fmt.Sprintf("This customer is likely to churn (probability of churn: %s).",
				FormatPercent(p.ChurnProbability())),
			Recommendation: "Reach out with a retention offer: review the plan, resolve open complaints and consider a loyalty discount.",
		}
	}
	return Message{
		Style: StyleSuccess,
		Title: "Customer likely to stay",
		Text: fmt.Sprintf("This customer is likely to stay (probability of staying: %s).",
			FormatPercent(p.StayProbability())),
		Recommendation: "No immediate action needed; continue standard engagement.",
	}
}

// ErrorMessage renders err as user-readable text for its kind.
func ErrorMessage(err error) Message {
	var (
		artifactErr *ml.ArtifactError
		mismatchErr *features.SchemaMismatchError
		inputErr    *features.InputError
	)

	switch {
	case errors.As(err, &artifactErr) && errors.Is(err, ml.ErrArtifactNotFound):
		return Message{
			Style:          StyleError,
			Title:          "Model not found",
			Text:           fmt.Sprintf("Model file not found: %s", artifactErr.Path),
			Recommendation: "Place the trained model at this path (or set MODEL_PATH) and restart the application.",
		}
	case errors.As(err, &artifactErr):
		return Message{
			Style:          StyleError,
			Title:          "Model could not be loaded",
			Text:           artifactErr.Error(),
			Recommendation: "Check that the artifact matches the configured backend and column order, then restart the application.",
		}
	case errors.As(err, &mismatchErr):
		return Message{
			Style:          StyleError,
			Title:          "Schema mismatch",
			Text:           capitalize(mismatchErr.Error()) + ".",
			Recommendation: "Check the configured training column order (SCHEMA_COLUMNS) and naming convention (SCHEMA_NAMING).",
		}
	case errors.As(err, &inputErr):
		name := inputErr.Field
		if f, ok := features.Lookup(inputErr.Field); ok {
			name = f.Label
		}
		return Message{
			Style: StyleWarning,
			Title: "Invalid input",
			Text:  fmt.Sprintf("%s: %q %s.", name, inputErr.Value, inputErr.Reason),
		}
	case errors.Is(err, ml.ErrPrediction):
		return Message{
			Style: StyleError,
			Title: "Prediction failed",
			Text:  err.Error(),
		}
	default:
		return Message{Style: StyleError, Title: "Error", Text: err.Error()}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
