package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmmcquay/sgf-renderer/internal/cache"
	"github.com/dmmcquay/sgf-renderer/internal/config"
	"github.com/dmmcquay/sgf-renderer/internal/health"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/metrics"
	"github.com/dmmcquay/sgf-renderer/internal/ratelimit"
	"github.com/dmmcquay/sgf-renderer/internal/render"
	"github.com/dmmcquay/sgf-renderer/internal/retry"
	"github.com/dmmcquay/sgf-renderer/internal/service"
)

// app holds the components every command shares.
type app struct {
	cfg        *config.Config
	logger     logging.ContextLogger
	logCloser  io.Closer
	collector  *metrics.Collector
	prometheus *metrics.PrometheusCollector
	renderer   *render.Renderer
	service    *service.Service
	checker    *health.Checker
}

type appOptions struct {
	configPath string
	logLevel   string
	// withMetrics registers Prometheus collectors. Only long-running
	// commands need them.
	withMetrics bool
}

func newApp(opts appOptions) (*app, error) {
	configPath := opts.configPath
	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, closer := logging.NewLoggerFromConfig(logging.FromAppConfig(cfg))
	if configPath != "" {
		logger.Debug("Loaded configuration from %s", configPath)
	}

	theme, err := render.ParseTheme(cfg.Render.DefaultTheme)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		collector: metrics.NewCollector(),
	}

	a.renderer = render.New(render.Options{
		Canvas:     cfg.Render.CanvasSize,
		AssetDir:   cfg.Render.AssetDir,
		FontPath:   cfg.Render.FontPath,
		WriteRetry: retry.FileWriteConfig(cfg.Render.WriteRetries),
	}, logger)

	images := cache.NewManager(&cfg.Cache, logger)
	if opts.withMetrics {
		a.prometheus = metrics.NewPrometheusCollector()
		a.renderer.SetRecorder(metrics.Recorders{a.collector, a.prometheus})
		images.SetObserver(a.prometheus)
	} else {
		a.renderer.SetRecorder(a.collector)
	}

	a.service = service.New(a.renderer, images, theme, logger)

	a.checker = health.NewChecker(logger, cfg.Server.Version, GitCommit)
	assetsCheck := health.AssetsCheck(a.renderer.Assets())
	a.checker.RegisterCheck("assets", func(ctx context.Context) error {
		err := assetsCheck(ctx)
		if a.prometheus != nil {
			a.prometheus.SetAssetsLoaded(err == nil || health.IsDegraded(err))
		}
		return err
	})
	a.checker.RegisterCheck("render", health.RenderCheck(a.renderer))

	return a, nil
}

// newLimiter builds the configured rate limiter. It is nil when disabled.
func (a *app) newLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(&a.cfg.RateLimit, a.logger)
}

func (a *app) close() {
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
}
