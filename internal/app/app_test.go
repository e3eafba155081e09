package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

func baseConfig() config.Config {
	cfg := config.Config{
		LogLevel:     "error",
		Collector:    "overpass",
		FeatureSpecs: "amenity,amenity:school",
		BoxSizeKm:    2,
	}
	cfg.Overpass.URL = "http://127.0.0.1:1/api/interpreter"
	cfg.Overpass.RPS = 1
	return cfg
}

func TestNew_Overpass(t *testing.T) {
	var buf bytes.Buffer
	cfg := baseConfig()
	a, err := New(context.Background(), cfg, NewLogger(cfg, "test", &buf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := features.FormatSpecs(a.Specs); got != "amenity,amenity:school" {
		t.Fatalf("specs=%q", got)
	}
	if a.Pinger() == nil {
		t.Fatal("overpass collector should expose a readiness ping")
	}
	if a.Extractor.Policy() != features.LastWriteWins {
		t.Fatalf("policy=%v want last_write_wins", a.Extractor.Policy())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown collector": func(c *config.Config) { c.Collector = "postgis" },
		"bad specs":         func(c *config.Config) { c.FeatureSpecs = "amenity:" },
		"bad policy":        func(c *config.Config) { c.DuplicatePolicy = "first" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mut(&cfg)
			_, err := New(context.Background(), cfg, NewLogger(cfg, "test", &bytes.Buffer{}))
			if err == nil {
				t.Fatal("expected error")
			}
			if name == "unknown collector" && !strings.Contains(err.Error(), "overpass") {
				t.Fatalf("error should list registered collectors: %v", err)
			}
			if name != "unknown collector" && !errors.Is(err, model.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
		})
	}
}
