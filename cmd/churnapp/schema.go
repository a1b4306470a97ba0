package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

func newSchemaCmd() *cli.Command {
	return &cli.Command{
		Name:   "schema",
		Usage:  "Print the model's expected columns in training order",
		Flags:  []cli.Flag{newFormatFlag()},
		Action: cmdSchema,
	}
}

type schemaColumn struct {
	Position int       `json:"position" yaml:"position"`
	Column   string    `json:"column" yaml:"column"`
	Feature  string    `json:"feature" yaml:"feature"`
	Kind     string    `json:"kind" yaml:"kind"`
	Label    string    `json:"label" yaml:"label"`
	Default  float64   `json:"default" yaml:"default"`
	Options  []float64 `json:"options,omitempty" yaml:"options,omitempty"`
}

func cmdSchema(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	columns := make([]schemaColumn, 0, len(rt.schema.Columns))
	for i, col := range rt.schema.Columns {
		sc := schemaColumn{Position: i, Column: col}
		if f, ok := rt.schema.Field(col); ok {
			sc.Feature = string(f.Feature)
			sc.Kind = f.Kind.String()
			sc.Label = f.Label
			sc.Default = f.Default
			sc.Options = f.Options
		}
		columns = append(columns, sc)
	}

	out := stdout(cmd)
	if format != formatText {
		return encode(out, format, map[string]any{
			"naming":  string(rt.schema.Naming),
			"columns": columns,
		})
	}

	fmt.Fprintf(out, "Columns named %s, in training order:\n", rt.schema.Naming)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tKIND\tDEFAULT\tLABEL")
	for _, c := range columns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%s\n", c.Position, c.Column, c.Kind, c.Default, c.Label)
	}
	return tw.Flush()
}
