// Package wfs fetches tagged POIs from a GeoServer WFS layer.
package wfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/collector"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

const Name = "wfs"

func init() {
	collector.Register(Name, func(_ context.Context, d collector.Deps) (features.Collector, error) {
		wc := d.Config.WFS
		return New(d.Logger, d.Client, OWSEndpoint(wc.GeoServerURL), wc.Layer, wc.GeomColumn)
	})
}

type Collector struct {
	logger     *slog.Logger
	client     *http.Client
	owsURL     *url.URL
	layer      string
	geomColumn string
	startNow   func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, ows, layer, geomColumn string) (*Collector, error) {
	u, err := url.Parse(ows)
	if err != nil {
		return nil, fmt.Errorf("parse ows url: %w", err)
	}
	if strings.TrimSpace(layer) == "" {
		return nil, fmt.Errorf("wfs layer is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if geomColumn == "" {
		geomColumn = "geom"
	}
	return &Collector{
		logger:     logger,
		client:     client,
		owsURL:     u,
		layer:      layer,
		geomColumn: geomColumn,
		startNow:   time.Now,
	}, nil
}

func (c *Collector) Name() string { return Name }

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func (c *Collector) Fetch(ctx context.Context, bb model.BBox, keys []string) (*features.Table, error) {
	if len(keys) == 0 {
		return features.NewTable(), nil
	}
	params, err := BuildGetFeatureParams(c.layer, c.geomColumn, bb, keys)
	if err != nil {
		return nil, fmt.Errorf("build wfs params: %w", err)
	}

	u := *c.owsURL
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency("geoserver", dur.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("type is %q (want \"FeatureCollection\")", fc.Type)
	}

	t := features.NewTable(keys...)
	for _, f := range fc.Features {
		row := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if s, ok := cellString(v); ok {
				row[k] = s
			}
		}
		t.AddRow(row)
	}
	c.logger.DebugContext(ctx, "wfs fetch done",
		"layer", c.layer,
		"features", t.Len(),
		"duration", dur.String())
	return t, nil
}

// Ping issues a GetCapabilities request.
func (c *Collector) Ping(ctx context.Context) error {
	u := *c.owsURL
	u.RawQuery = url.Values{"service": {"WFS"}, "request": {"GetCapabilities"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build capabilities request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wfs capabilities: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wfs capabilities status %d", resp.StatusCode)
	}
	return nil
}

// cellString renders a property value; null is reported as absent.
func cellString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(b), true
	}
}
