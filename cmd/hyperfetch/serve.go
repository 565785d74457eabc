package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/pkg/middleware"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

const (
	shutdownTimeout = 10 * time.Second
	instrumentation = "github.com/hyp3rd/hyperfetch"
)

var errServerExited = ewrap.New("rpc server exited")

type serveOptions struct {
	configPath string
	listenAddr string
	logOut     io.Writer
	// ready is called with the bound address once the server listens.
	ready func(addr string)
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fetch service and its RPC server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logOut = cmd.ErrOrStderr()

			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "RPC listen address (overrides listen_addr)")

	return cmd
}

// buildService wraps the orchestrator in the stats, logging, tracing and metrics middleware.
func buildService(ctx context.Context, cfg *hyperfetch.Config, opts serveOptions) (hyperfetch.Service, error) {
	logger, err := newLogger(cfg.Log, opts.logOut)
	if err != nil {
		return nil, err
	}

	collector := stats.NewCollector()

	hf, err := hyperfetch.NewFromConfig(ctx, cfg,
		hyperfetch.WithLogger(logger),
		hyperfetch.WithStatsCollector(collector),
	)
	if err != nil {
		return nil, err
	}

	svc := hyperfetch.ApplyMiddleware(hf,
		func(next hyperfetch.Service) hyperfetch.Service {
			return middleware.NewStatsCollectorMiddleware(next, collector)
		},
		func(next hyperfetch.Service) hyperfetch.Service {
			return middleware.NewLoggingMiddleware(next, logger)
		},
		func(next hyperfetch.Service) hyperfetch.Service {
			return middleware.NewOTelTracingMiddleware(next, otel.Tracer(instrumentation),
				middleware.WithCommonAttributes(attribute.String("component", "hyperfetch")))
		},
	)

	metered, err := middleware.NewOTelMetricsMiddleware(svc, otel.Meter(instrumentation))
	if err != nil {
		_ = hf.Stop(ctx)

		return nil, err
	}

	return metered, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if opts.listenAddr != "" {
		cfg.ListenAddr = opts.listenAddr
	}

	svc, err := buildService(ctx, cfg, opts)
	if err != nil {
		return err
	}

	logger, _ := newLogger(cfg.Log, opts.logOut)

	srv := hyperfetch.NewRPCServer(cfg.ListenAddr, hyperfetch.WithRPCLogger(logger))

	err = srv.Start(ctx, svc)
	if err != nil {
		_ = svc.Stop(context.WithoutCancel(ctx))

		return err
	}

	logger.Info().Str("addr", srv.Address()).Msg("hyperfetch listening")

	if opts.ready != nil {
		opts.ready(srv.Address())
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		select {
		case err := <-srv.Done():
			if err == nil {
				err = errServerExited
			}

			return err
		case <-gctx.Done():
			return nil
		}
	})

	group.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("hyperfetch shutting down")

		return errors.Join(srv.Shutdown(shutdownCtx), svc.Stop(shutdownCtx))
	})

	return group.Wait()
}
