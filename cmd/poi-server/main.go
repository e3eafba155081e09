package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/app"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/health"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/router"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/server"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// overriding collector via flag
	collectorFlag := flag.String("collector", "", "feature collector (overpass, wfs, redis)")
	flag.Parse()

	cfg := config.FromEnv()
	if *collectorFlag != "" {
		cfg.Collector = strings.ToLower(strings.TrimSpace(*collectorFlag))
	}

	log := app.NewLogger(cfg, "poi-server", os.Stdout)
	log.Info("starting poi-server",
		"addr", cfg.Addr,
		"version", Version,
		"collector", cfg.Collector,
		"box_size_km", cfg.BoxSizeKm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routes := server.Routes{}
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Collector: cfg.Collector,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(p.Registerer(), true)
		routes.Metrics = p.Handler()
	} else {
		observability.Init(nil, false)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("collector setup failed", "err", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	routes.Features = router.NewFeatureHandler(log, a.Extractor, router.Options{
		Specs:        a.Specs,
		SizeKm:       cfg.BoxSizeKm,
		Workers:      cfg.BatchWorkers,
		FetchTimeout: cfg.FetchTimeout,
	})
	routes.Ready = health.Readiness(a.Pinger(), cfg.Collector, 5*time.Second)

	if err := server.Run(ctx, cfg, log, server.NewRouter(log, routes)); err != nil {
		log.Error("server exited with error", "err", err)
		return 1
	}
	log.Info("server stopped")
	return 0
}
