package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churn-predictor/internal/metrics"
	"churn-predictor/internal/web"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the prediction form and JSON API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides PORT)",
			},
		},
		Action: cmdServe,
	}
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if port := cmd.Int("port"); port != 0 {
		rt.settings.Port = int(port)
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	opts := web.Options{Schema: rt.schema, Metrics: mw}

	predictor, loadErr := rt.loadPredictor(mw)
	if loadErr != nil {
		log.Error().Err(loadErr).Bool("strict", rt.settings.RequireArtifact).Msg("model unavailable")
		opts.LoadErr = loadErr
	} else {
		defer predictor.Close()
		opts.Classifier = predictor
	}

	store, err := rt.openHistory()
	if err != nil {
		log.Warn().Err(err).Msg("history initialization failed, continuing without persistence")
	} else if store != nil {
		defer store.Close()
		opts.History = store
	}

	srv, err := web.NewServer(web.Config{
		Port:            rt.settings.Port,
		MetricsPath:     rt.settings.MetricsPath,
		RequireArtifact: rt.settings.RequireArtifact,
	}, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
