// Package redisextract serves POIs from a pre-loaded extract in Redis. POIs
// are grouped per H3 cell; each cell key holds a JSON array of POIs.
package redisextract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/collector"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
	h3mapper "github.com/mohammed-shakir/poi-feature-vectors/internal/mapper/h3"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/store/keys"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/store/redisstore"
)

const Name = "redis"

func init() {
	collector.Register(Name, func(ctx context.Context, d collector.Deps) (features.Collector, error) {
		rc := d.Config.Redis
		cli, err := redisstore.New(ctx, rc.Addr)
		if err != nil {
			return nil, err
		}
		return New(d.Logger, cli, rc.Prefix, rc.H3Res), nil
	})
}

type POI struct {
	ID   string            `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

type Store struct {
	logger *slog.Logger
	cli    *redisstore.Client
	mapr   *h3mapper.Mapper
	prefix string
	res    int
}

func New(logger *slog.Logger, cli *redisstore.Client, prefix string, res int) *Store {
	return &Store{
		logger: logger,
		cli:    cli,
		mapr:   h3mapper.New(),
		prefix: prefix,
		res:    res,
	}
}

func (s *Store) Name() string { return Name }

func (s *Store) Ping(ctx context.Context) error { return s.cli.Ping(ctx) }

func (s *Store) Close() error { return s.cli.Close() }

// Load merges pois into their cells. A POI whose ID is already stored in the
// same cell is replaced. POIs without an ID get a content hash.
func (s *Store) Load(ctx context.Context, pois []POI) (int, error) {
	byKey := make(map[string][]POI)
	for _, p := range pois {
		if err := (model.Coordinate{Lat: p.Lat, Lon: p.Lon}).Validate(); err != nil {
			return 0, fmt.Errorf("poi %q: %w", p.ID, err)
		}
		if p.ID == "" {
			p.ID = keys.ContentID(p.Lat, p.Lon, p.Tags)
		}
		cell, err := s.mapr.CellForPoint(p.Lat, p.Lon, s.res)
		if err != nil {
			return 0, fmt.Errorf("poi %q: %w", p.ID, err)
		}
		k := keys.CellKey(s.prefix, s.res, cell.String())
		byKey[k] = append(byKey[k], p)
	}
	if len(byKey) == 0 {
		return 0, nil
	}

	ks := make([]string, 0, len(byKey))
	for k := range byKey {
		ks = append(ks, k)
	}
	existing, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return 0, fmt.Errorf("read existing cells: %w", err)
	}

	out := make(map[string][]byte, len(byKey))
	for k, add := range byKey {
		merged, err := merge(existing[k], add)
		if err != nil {
			return 0, fmt.Errorf("cell %s: %w", k, err)
		}
		b, err := json.Marshal(merged)
		if err != nil {
			return 0, fmt.Errorf("encode cell %s: %w", k, err)
		}
		out[k] = b
	}
	if err := s.cli.MSet(ctx, out, 0); err != nil {
		return 0, fmt.Errorf("write cells: %w", err)
	}
	observability.AddLoadedPOIs(len(pois))
	s.logger.InfoContext(ctx, "poi extract loaded", "pois", len(pois), "cells", len(out), "res", s.res)
	return len(out), nil
}

func merge(raw []byte, add []POI) ([]POI, error) {
	var cur []POI
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cur); err != nil {
			return nil, fmt.Errorf("decode stored pois: %w", err)
		}
	}
	idx := make(map[string]int, len(cur)+len(add))
	for i, p := range cur {
		idx[p.ID] = i
	}
	for _, p := range add {
		if i, ok := idx[p.ID]; ok {
			cur[i] = p
			continue
		}
		idx[p.ID] = len(cur)
		cur = append(cur, p)
	}
	sort.Slice(cur, func(i, j int) bool { return cur[i].ID < cur[j].ID })
	return cur, nil
}

// Fetch returns every stored POI inside bb that carries at least one of keys.
func (s *Store) Fetch(ctx context.Context, bb model.BBox, tagKeys []string) (*features.Table, error) {
	t := features.NewTable(tagKeys...)
	if len(tagKeys) == 0 {
		return t, nil
	}
	cells, err := s.mapr.CoverBBox(bb, s.res)
	if err != nil {
		return nil, fmt.Errorf("cover bbox: %w", err)
	}
	ks := make([]string, len(cells))
	for i, c := range cells {
		ks[i] = keys.CellKey(s.prefix, s.res, c.String())
	}

	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("read cells: %w", err)
	}

	for _, k := range ks {
		b, ok := raw[k]
		if !ok {
			continue
		}
		var pois []POI
		if err := json.Unmarshal(b, &pois); err != nil {
			return nil, fmt.Errorf("decode cell %s: %w", k, err)
		}
		for _, p := range pois {
			if bb.Contains(p.Lat, p.Lon) && hasAnyKey(p.Tags, tagKeys) {
				t.AddRow(p.Tags)
			}
		}
	}
	s.logger.DebugContext(ctx, "redis extract fetch done",
		"cells", len(ks),
		"cells_found", len(raw),
		"rows", t.Len())
	return t, nil
}

func hasAnyKey(tags map[string]string, want []string) bool {
	for _, k := range want {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}
