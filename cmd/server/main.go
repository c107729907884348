package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"nutribudget"
	"nutribudget/app"
	"nutribudget/capability"
	"nutribudget/httpapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("SETUP: Server exited", "error", err)
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	var srvCfg nutribudget.ServerConfig
	if err := app.Decode(&srvCfg); err != nil {
		return err
	}

	if srvCfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              srvCfg.SentryDSN,
			Environment:      srvCfg.SentryEnv,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		}); err != nil {
			slog.Warn("SETUP: Sentry initialization failed", "error", err)
		} else {
			slog.Info("SETUP: Sentry initialized", "environment", srvCfg.SentryEnv)
			defer sentry.Flush(2 * time.Second)
		}
	}

	var instrumentation capability.Options
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracerProvider, meterProvider, otelShutdown, err := nutribudget.InitOtel(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
		instrumentation.Tracer = tracerProvider.Tracer(nutribudget.TracerNameCapability)
		instrumentation.Meter = meterProvider.Meter(nutribudget.TracerNameCapability)
	}

	a, err := app.Build(ctx, cfg, app.Options{
		GenerationLogger: nutribudget.NewStdoutGenerationLogger(),
		Instrumentation:  instrumentation,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("SETUP: Failed to close resources", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           httpapi.NewServer(a.Service).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SETUP: Listening", "addr", srvCfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("SETUP: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
