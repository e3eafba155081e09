package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "COLLECTOR", "BOX_SIZE_KM", "FEATURE_SPECS", "H3_RES", "BATCH_WORKERS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Addr != ":8090" || cfg.Collector != "overpass" || cfg.BoxSizeKm != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FeatureSpecs != DefaultFeatureSpecs {
		t.Fatalf("FeatureSpecs=%q", cfg.FeatureSpecs)
	}
	if cfg.Redis.H3Res != 9 || cfg.BatchWorkers != 4 {
		t.Fatalf("res=%d workers=%d", cfg.Redis.H3Res, cfg.BatchWorkers)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COLLECTOR", "Redis")
	t.Setenv("BOX_SIZE_KM", "5.5")
	t.Setenv("H3_RES", "42")
	t.Setenv("BATCH_WORKERS", "0")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("METRICS_ENABLED", "no")

	cfg := FromEnv()
	if cfg.Collector != "redis" {
		t.Fatalf("collector=%q", cfg.Collector)
	}
	if cfg.BoxSizeKm != 5.5 {
		t.Fatalf("box=%v", cfg.BoxSizeKm)
	}
	if cfg.Redis.H3Res != 9 {
		t.Fatalf("out-of-range res should fall back to 9, got %d", cfg.Redis.H3Res)
	}
	if cfg.BatchWorkers != 1 {
		t.Fatalf("workers=%d want 1", cfg.BatchWorkers)
	}
	if cfg.FetchTimeout != 5*time.Second || cfg.MetricsEnabled {
		t.Fatalf("timeout=%v metrics=%v", cfg.FetchTimeout, cfg.MetricsEnabled)
	}
}
