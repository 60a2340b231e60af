package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/vless2clash/internal/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen            string
		readHeaderTimeout time.Duration
		convertTimeout    time.Duration
		fetchTimeout      time.Duration
		shutdownTimeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			f := cmd.Flags()
			if f.Changed("listen") {
				cfg.Server.Listen = listen
			}
			if f.Changed("read-header-timeout") {
				cfg.Server.ReadHeaderTimeout = readHeaderTimeout
			}
			if f.Changed("convert-timeout") {
				cfg.Server.ConvertTimeout = convertTimeout
			}
			if f.Changed("fetch-timeout") {
				cfg.Fetch.Timeout = fetchTimeout
			}
			if f.Changed("shutdown-timeout") {
				cfg.Server.ShutdownTimeout = shutdownTimeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&listen, "listen", "127.0.0.1:25500", "HTTP listen address")
	f.DurationVar(&readHeaderTimeout, "read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout")
	f.DurationVar(&convertTimeout, "convert-timeout", 60*time.Second, "upper bound for one conversion (including remote fetches)")
	f.DurationVar(&fetchTimeout, "fetch-timeout", 15*time.Second, "timeout for one subscription fetch")
	f.DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown wait after a signal")
	return cmd
}

// serve runs the server until ctx is done, then shuts it down gracefully.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger

	srv := &http.Server{
		Addr: cfg.Server.Listen,
		Handler: httpapi.NewHandlerWithOptions(httpapi.Options{
			ConvertTimeout:    cfg.Server.ConvertTimeout,
			FetchTimeout:      cfg.Fetch.Timeout,
			FetchMaxBytes:     cfg.Fetch.MaxBytes,
			FetchMaxRedirects: cfg.Fetch.RedirectLimit(),
			UserAgent:         cfg.Fetch.UserAgent,
			IPLookupBaseURL:   cfg.IPLookup.BaseURL,
			IPLookupTimeout:   cfg.IPLookup.Timeout,
			Logger:            log,
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", "http://"+cfg.Server.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
		return nil
	})
	return g.Wait()
}
