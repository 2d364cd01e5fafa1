package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wehubfusion/Conduit/internal/concurrency"
	"github.com/wehubfusion/Conduit/internal/tracing"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/source/blobsource"
)

// envConfig is the process configuration read from the environment.
type envConfig struct {
	LogLevel     string  `env:"CONDUIT_LOG_LEVEL" envDefault:"info"`
	Environment  string  `env:"CONDUIT_ENVIRONMENT" envDefault:"development"`
	NATSURL      string  `env:"CONDUIT_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	OTLPEndpoint string  `env:"CONDUIT_OTLP_ENDPOINT"`
	SampleRatio  float64 `env:"CONDUIT_TRACE_SAMPLE_RATIO" envDefault:"1"`
	SentryDSN    string  `env:"CONDUIT_SENTRY_DSN"`
	Parallel     int     `env:"CONDUIT_PARALLEL"`
	AzureStorage string  `env:"CONDUIT_AZURE_STORAGE_CONNECTION_STRING"`
}

func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// app holds the process-wide services shared by every chain the CLI builds.
type app struct {
	env      envConfig
	logger   *zap.Logger
	registry *runtime.Registry
	metrics  *runtime.Metrics
	handler  runtime.ExceptionHandler

	promRegistry    *prometheus.Registry
	metricsServer   *http.Server
	tracingShutdown tracing.Shutdown
	sentryEnabled   bool
	undoMaxProcs    func()
}

type appOptions struct {
	metricsAddr     string
	continueOnError bool
}

func newApp(ctx context.Context, cfg envConfig, opts appOptions) (*app, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{
		env:          cfg,
		logger:       logger,
		registry:     commands.NewRegistry(),
		promRegistry: prometheus.NewRegistry(),
		undoMaxProcs: concurrency.SetMaxProcs(logger),
	}
	a.promRegistry.MustRegister(collectors.NewGoCollector())
	a.metrics = runtime.NewMetrics(a.promRegistry)

	tcfg := tracing.DefaultConfig("conduit", cfg.OTLPEndpoint)
	tcfg.ServiceVersion = version
	tcfg.Environment = cfg.Environment
	tcfg.SampleRatio = cfg.SampleRatio
	a.tracingShutdown, err = tracing.Setup(ctx, tcfg, logger)
	if err != nil {
		return nil, err
	}

	var handler runtime.ExceptionHandler = runtime.NewDefaultExceptionHandler(logger)
	if opts.continueOnError {
		handler = continueHandler{next: handler}
	}
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "conduit@" + version,
		}); err != nil {
			return nil, fmt.Errorf("init sentry: %w", err)
		}
		a.sentryEnabled = true
		handler = runtime.NewSentryExceptionHandler(sentry.CurrentHub(), handler)
	}
	a.handler = handler

	if opts.metricsAddr != "" {
		a.serveMetrics(opts.metricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))
	a.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics", zap.String("addr", addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// parallelism resolves the number of inputs processed at once: the flag
// value, then CONDUIT_PARALLEL, then a CPU-based default.
func (a *app) parallelism(flag int) int {
	switch {
	case flag > 0:
		return flag
	case a.env.Parallel > 0:
		return a.env.Parallel
	}
	return concurrency.DefaultParallelism()
}

// blobClient creates the blob client for azblob:// inputs.
func (a *app) blobClient() (blobOpener, error) {
	if a.env.AzureStorage == "" {
		return nil, fmt.Errorf("blob inputs need CONDUIT_AZURE_STORAGE_CONNECTION_STRING")
	}
	return blobsource.NewClient(a.env.AzureStorage, a.logger.Named("blobsource"))
}

// newContext creates a pipeline context wired to the app's shared services.
func (a *app) newContext(logger *zap.Logger) *runtime.Context {
	return runtime.NewContext(
		runtime.WithLogger(logger),
		runtime.WithExceptionHandler(a.handler),
		runtime.WithMetrics(a.metrics),
	)
}

func (a *app) close() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.metricsServer.Shutdown(ctx)
		cancel()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
	_ = tracing.Stop(a.tracingShutdown, a.logger)
	a.undoMaxProcs()
	_ = a.logger.Sync()
}

// continueHandler logs through next and then swallows the error, so the
// failing record counts as dropped and the input keeps flowing.
type continueHandler struct {
	next runtime.ExceptionHandler
}

func (h continueHandler) Handle(err error, rec *record.Record) error {
	_ = h.next.Handle(err, rec)
	return nil
}
