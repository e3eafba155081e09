package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
)

const extract = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"node/1","geometry":{"type":"Point","coordinates":[18.0686,59.3293]},"properties":{"amenity":"school"}},
 {"type":"Feature","id":"node/2","geometry":{"type":"Point","coordinates":[11.9746,57.7089]},"properties":{"shop":"bakery"}},
 {"type":"Feature","id":"node/3","geometry":{"type":"Point","coordinates":[11.9750,57.7090]},"properties":{"amenity":"cafe"}}
]}`

func TestLoad_WritesCells(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	path := filepath.Join(t.TempDir(), "extract.geojson")
	if err := os.WriteFile(path, []byte(extract), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var cfg config.Config
	cfg.Redis = config.RedisCfg{Addr: mr.Addr(), H3Res: 9, Prefix: "poi"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := load(context.Background(), cfg, log, path, 2); err != nil {
		t.Fatalf("load: %v", err)
	}
	keys := mr.Keys()
	if len(keys) < 2 {
		t.Fatalf("want at least 2 cell keys, got %v", keys)
	}
	for _, k := range keys {
		if len(k) < 6 || k[:6] != "poi:9:" {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg config.Config
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := load(context.Background(), cfg, log, filepath.Join(t.TempDir(), "nope.geojson"), 10); err == nil {
		t.Fatal("expected error for missing file")
	}
}
