package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/app"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/collector/redisextract"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/store/keys"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/store/redisstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	file := flag.String("file", "", "GeoJSON FeatureCollection extract to load (- for stdin)")
	chunk := flag.Int("chunk", 5000, "POIs per redis round trip")
	flag.Parse()

	cfg := config.FromEnv()
	cfg.Collector = redisextract.Name
	log := app.NewLogger(cfg, "poi-loader", os.Stderr)
	observability.Init(nil, false)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: poi-loader -file extract.geojson")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := load(ctx, cfg, log, *file, *chunk); err != nil {
		log.Error("load failed", "err", err)
		return 1
	}
	return 0
}

func load(ctx context.Context, cfg config.Config, log *slog.Logger, path string, chunk int) error {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open extract: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	start := time.Now()
	pois, err := redisextract.DecodeGeoJSON(in)
	if err != nil {
		return err
	}
	log.Info("extract decoded", "pois", len(pois), "took", time.Since(start))

	cli, err := redisstore.New(ctx, cfg.Redis.Addr, redisstore.WithReadTimeout(10*time.Second))
	if err != nil {
		return err
	}
	s := redisextract.New(log, cli, cfg.Redis.Prefix, cfg.Redis.H3Res)
	defer func() { _ = s.Close() }()

	if chunk <= 0 {
		chunk = len(pois)
	}
	cells := 0
	for i := 0; i < len(pois); i += chunk {
		end := min(i+chunk, len(pois))
		n, err := s.Load(ctx, pois[i:end])
		if err != nil {
			return fmt.Errorf("load pois %d-%d: %w", i, end, err)
		}
		cells += n
	}
	total, err := cli.CountKeys(ctx, keys.CellKey(cfg.Redis.Prefix, cfg.Redis.H3Res, "*"))
	if err != nil {
		return err
	}
	log.Info("extract loaded",
		"pois", len(pois),
		"cell_writes", cells,
		"cells_total", total,
		"res", cfg.Redis.H3Res,
		"prefix", cfg.Redis.Prefix,
		"took", time.Since(start))
	return nil
}
