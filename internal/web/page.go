package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"churn-predictor/internal/features"
	"churn-predictor/internal/present"

	"github.com/rs/zerolog/log"
)

const (
	actionUpdate  = "update"
	actionPredict = "predict"
)

type formField struct {
	ID      string
	Label   string
	Value   string
	Min     string
	Max     string
	Step    string
	Options []string
}

type pageData struct {
	Fatal        *present.Message
	Halted       bool
	Message      *present.Message
	Fields       []formField
	Rows         []present.Row
	Naming       string
	ModelVersion string
	PredictionID string
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.halted() {
		msg := present.ErrorMessage(s.loadErr)
		s.render(w, http.StatusServiceUnavailable, pageData{Fatal: &msg})
		return
	}

	data := pageData{Naming: string(s.schema.Naming)}
	if s.classifier != nil {
		data.ModelVersion = s.classifier.Metadata().Version
	}

	action := actionUpdate
	input := map[string]string{}
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			msg := present.Message{Style: present.StyleWarning, Title: "Invalid input", Text: err.Error()}
			data.Message = &msg
			data.Fields = s.formFields(nil, s.collector.Defaults())
			s.render(w, http.StatusBadRequest, data)
			return
		}
		for _, f := range features.Catalog {
			input[string(f.Feature)] = r.PostForm.Get(string(f.Feature))
		}
		if r.PostForm.Get("action") == actionPredict {
			action = actionPredict
		}
		if s.metrics != nil {
			s.metrics.FormSubmissionInc(action)
		}
	}

	record, err := s.collector.Collect(input)
	if err != nil {
		s.countInputError()
		msg := present.ErrorMessage(err)
		data.Message = &msg
		data.Fields = s.formFields(input, s.collector.Defaults())
		s.render(w, http.StatusOK, data)
		return
	}
	data.Fields = s.formFields(nil, record)

	normalized, err := features.Normalize(record, s.schema.Columns)
	if err != nil {
		s.haltOnMismatch(w, data, err)
		return
	}
	data.Rows = present.Table(normalized)

	if action == actionPredict {
		msg, id, err := s.predictMessage(r.Context(), normalized)
		if errors.Is(err, features.ErrSchemaMismatch) {
			s.haltOnMismatch(w, data, err)
			return
		}
		data.Message = &msg
		data.PredictionID = id
	}

	s.render(w, http.StatusOK, data)
}

// predictMessage classifies a normalized record and renders the outcome.
func (s *Server) predictMessage(ctx context.Context, record features.Record) (present.Message, string, error) {
	if s.classifier == nil {
		return present.ErrorMessage(s.loadErr), "", s.loadErr
	}
	pred, err := s.classifier.Classify(ctx, record)
	if err != nil {
		log.Warn().Err(err).Msg("form prediction failed")
		return present.ErrorMessage(err), "", err
	}
	id := s.saveHistory(record, pred, "form")
	return present.Outcome(pred), id, nil
}

// haltOnMismatch renders the mismatch message without the table or the
// predict action.
func (s *Server) haltOnMismatch(w http.ResponseWriter, data pageData, err error) {
	if s.metrics != nil {
		s.metrics.SchemaMismatchInc()
	}
	log.Error().Err(err).Msg("record does not match the training schema")
	msg := present.ErrorMessage(err)
	data.Halted = true
	data.Message = &msg
	data.Fields = nil
	data.Rows = nil
	s.render(w, http.StatusUnprocessableEntity, data)
}

// formFields builds the controls. Raw input wins over record values so a
// rejected entry is shown back to the user unchanged.
func (s *Server) formFields(input map[string]string, record features.Record) []formField {
	out := make([]formField, 0, len(features.Catalog))
	for _, f := range features.Catalog {
		ff := formField{
			ID:    string(f.Feature),
			Label: f.Label,
			Min:   formatNumber(f.Min),
			Step:  "1",
		}
		if f.Kind == features.KindFloat {
			ff.Step = "0.01"
		}
		if f.Bounded() {
			ff.Max = formatNumber(f.Max)
		}
		for _, o := range f.Options {
			ff.Options = append(ff.Options, formatNumber(o))
		}

		if raw := input[ff.ID]; raw != "" {
			ff.Value = raw
		} else if v, ok := record.Value(s.schema.Naming.Column(f)); ok {
			ff.Value = formatNumber(v)
		} else {
			ff.Value = formatNumber(f.Default)
		}
		out = append(out, ff)
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render page")
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Customer Churn Prediction</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; background: #f5f6f8; color: #222; }
        main { max-width: 960px; margin: 0 auto; padding: 24px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 12px 24px; }
        label { display: block; font-size: 14px; margin-bottom: 4px; }
        input, select { width: 100%; padding: 6px; box-sizing: border-box; }
        .actions { margin: 20px 0; }
        .actions button { padding: 8px 20px; margin-right: 8px; }
        table { border-collapse: collapse; width: 100%; background: #fff; }
        th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
        td.value { text-align: right; font-variant-numeric: tabular-nums; }
        .message { padding: 14px 18px; border-radius: 6px; margin: 16px 0; }
        .message.success { background: #e6f4ea; border-left: 6px solid #34a853; }
        .message.error { background: #fce8e6; border-left: 6px solid #d93025; }
        .message.warning { background: #fef7e0; border-left: 6px solid #f9ab00; }
        .muted { color: #666; font-size: 13px; }
    </style>
</head>
<body>
<main>
    <h1>Customer Churn Prediction</h1>
{{- if .Fatal}}
    <div class="message {{.Fatal.Style}}" id="fatal">
        <h3>{{.Fatal.Title}}</h3>
        <p>{{.Fatal.Text}}</p>
        {{if .Fatal.Recommendation}}<p>{{.Fatal.Recommendation}}</p>{{end}}
    </div>
{{- else}}
    {{if .ModelVersion}}<p class="muted">Model version {{.ModelVersion}}, columns named {{.Naming}}</p>{{end}}
    {{if .Message}}
    <div class="message {{.Message.Style}}" id="message">
        <h3>{{.Message.Title}}</h3>
        <p>{{.Message.Text}}</p>
        {{if .Message.Recommendation}}<p>{{.Message.Recommendation}}</p>{{end}}
        {{if .PredictionID}}<p class="muted">Prediction {{.PredictionID}}</p>{{end}}
    </div>
    {{end}}
    {{if not .Halted}}
    <form method="post" action="/">
        <h2>Customer Information</h2>
        <div class="grid">
        {{range .Fields}}
            <div>
                <label for="{{.ID}}">{{.Label}}</label>
                {{if .Options}}
                {{$value := .Value}}
                <select id="{{.ID}}" name="{{.ID}}">
                    {{range .Options}}<option value="{{.}}"{{if eq . $value}} selected{{end}}>{{.}}</option>{{end}}
                </select>
                {{else}}
                <input type="number" id="{{.ID}}" name="{{.ID}}" value="{{.Value}}" min="{{.Min}}"{{if .Max}} max="{{.Max}}"{{end}} step="{{.Step}}">
                {{end}}
            </div>
        {{end}}
        </div>
        <div class="actions">
            <button type="submit" name="action" value="update">Update</button>
            <button type="submit" name="action" value="predict">Predict</button>
        </div>
    </form>
    {{if .Rows}}
    <h2>Input Data</h2>
    <table id="record">
        <thead><tr><th>Column</th><th>Field</th><th>Value</th></tr></thead>
        <tbody>
        {{range .Rows}}<tr><td>{{.Column}}</td><td>{{.Label}}</td><td class="value">{{.Value}}</td></tr>
        {{end}}
        </tbody>
    </table>
    {{end}}
    {{end}}
{{- end}}
</main>
</body>
</html>
`
