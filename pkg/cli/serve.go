package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpctrl "github.com/secmon-lab/argus/pkg/controller/http"
	"github.com/secmon-lab/argus/pkg/service/metrics"
	"github.com/secmon-lab/argus/pkg/service/worker"
	"github.com/secmon-lab/argus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var disableWorker bool
	var cfg pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ARGUS_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "disable-worker",
			Usage:       "Serve the API without running the pipeline worker",
			Category:    "Pipeline",
			Sources:     cli.EnvVars("ARGUS_DISABLE_WORKER"),
			Destination: &disableWorker,
		},
	}
	flags = append(flags, cfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and the document pipeline",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			recorder := metrics.NewCollector(registry)

			rt, err := cfg.build(ctx, recorder)
			if err != nil {
				return err
			}
			defer rt.close()

			httpOpts := []httpctrl.Options{
				httpctrl.WithMetricsHandler(metrics.Handler(registry)),
			}
			if rt.tokens != nil {
				httpOpts = append(httpOpts, httpctrl.WithTokenVerifier(rt.tokens))
			} else {
				logging.Default().Warn("jwt-secret not configured, API requests will be rejected")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(rt.uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)

			if !disableWorker {
				pipelineWorker := worker.NewPipelineWorker(rt.uc.Pipeline, cfg.pipeline.Interval(),
					worker.WithBackoffMax(cfg.pipeline.BackoffMax()))
				if err := pipelineWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start pipeline worker")
				}
				eg.Go(func() error {
					<-ctx.Done()
					pipelineWorker.Stop()
					return nil
				})
			}

			eg.Go(func() error {
				logging.Default().Info("Starting HTTP server", "addr", addr, "pipeline", cfg.pipeline)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})

			eg.Go(func() error {
				<-ctx.Done()
				logging.Default().Info("Shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				return nil
			})

			if err := eg.Wait(); err != nil {
				return err
			}

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
