package main

import (
	"context"
	"fmt"
	"os"

	"churn-predictor/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version = "v0.1.0-dev"
	commit  = ""
)

const configFlagName = "config"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("churnapp failed")
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "churnapp",
		Usage:   "Collect customer attributes and predict churn with a pre-trained model",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlagName,
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file; environment variables override it",
				Sources: cli.EnvVars(common.EnvConfigFile),
			},
		},
		Commands: []*cli.Command{
			newServeCmd(),
			newSchemaCmd(),
			newPredictCmd(),
		},
	}
}
