// Package app assembles the logger, collector and extractor shared by the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/collector"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/httpclient"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/logger"

	// registered collectors
	_ "github.com/mohammed-shakir/poi-feature-vectors/internal/collector/overpass"
	_ "github.com/mohammed-shakir/poi-feature-vectors/internal/collector/redisextract"
	_ "github.com/mohammed-shakir/poi-feature-vectors/internal/collector/wfs"
)

func NewLogger(cfg config.Config, component string, out io.Writer) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Collector: cfg.Collector,
		Component: component,
	}, out)
	return logger.NewSlog(&zl)
}

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Collector features.Collector
	Extractor *features.Extractor
	Specs     []features.Spec
}

// New resolves the configured collector and feature schema.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	specs, err := features.ParseSpecs(cfg.FeatureSpecs)
	if err != nil {
		return nil, fmt.Errorf("FEATURE_SPECS: %w", err)
	}
	if len(specs) == 0 {
		specs = features.DefaultSpecs()
	}
	policy, err := features.ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return nil, fmt.Errorf("DUPLICATE_POLICY: %w", err)
	}

	c, err := collector.New(ctx, cfg.Collector, collector.Deps{
		Config: cfg,
		Logger: log,
		Client: httpclient.NewOutbound(cfg.FetchTimeout),
	})
	if err != nil {
		return nil, err
	}

	ex := features.NewExtractor(c,
		features.WithLogger(log),
		features.WithDuplicatePolicy(policy),
	)
	return &App{
		Config:    cfg,
		Logger:    log,
		Collector: c,
		Extractor: ex,
		Specs:     specs,
	}, nil
}

// Pinger returns the collector's readiness check, or nil if it has none.
func (a *App) Pinger() collector.Pinger {
	if p, ok := a.Collector.(collector.Pinger); ok {
		return p
	}
	return nil
}

// Close releases collector resources such as the redis pool.
func (a *App) Close() error {
	if c, ok := a.Collector.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
