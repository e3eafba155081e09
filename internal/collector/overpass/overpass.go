// Package overpass fetches OpenStreetMap entities through the Overpass API.
package overpass

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

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/collector"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

const Name = "overpass"

func init() {
	collector.Register(Name, func(_ context.Context, d collector.Deps) (features.Collector, error) {
		oc := d.Config.Overpass
		return New(d.Logger, d.Client, Options{
			URL:       oc.URL,
			Timeout:   oc.Timeout,
			RPS:       oc.RPS,
			UserAgent: oc.UserAgent,
		})
	})
}

type Options struct {
	URL string
	// Timeout is sent as the server-side [timeout:N] setting.
	Timeout   time.Duration
	RPS       float64
	UserAgent string
}

type Element struct {
	ID     int64   `json:"id"`
	Type   string  `json:"type"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

type response struct {
	Remark   string    `json:"remark,omitempty"`
	Elements []Element `json:"elements"`
}

type Collector struct {
	logger  *slog.Logger
	client  *http.Client
	url     *url.URL
	opts    Options
	limiter *rate.Limiter
	now     func() time.Time
}

func New(logger *slog.Logger, client *http.Client, opts Options) (*Collector, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse overpass url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("overpass url %q must be absolute", opts.URL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "poi-feature-vectors/1.0"
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Collector{
		logger:  logger,
		client:  client,
		url:     u,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}, nil
}

func (c *Collector) Name() string { return Name }

// BuildQuery returns an Overpass QL union selecting nodes, ways and relations
// that carry any of keys inside bb.
func BuildQuery(bb model.BBox, keys []string, timeout time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	box := fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(bb.South()), formatCoord(bb.West()),
		formatCoord(bb.North()), formatCoord(bb.East()))
	for _, k := range keys {
		fmt.Fprintf(&b, "  nwr[%s](%s);\n", quote(k), box)
	}
	b.WriteString(");\nout tags center;\n")
	return b.String()
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 7, 64)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func (c *Collector) Fetch(ctx context.Context, bb model.BBox, keys []string) (*features.Table, error) {
	if len(keys) == 0 {
		return features.NewTable(), nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("overpass rate limit wait: %w", err)
	}

	q := BuildQuery(bb, keys, c.opts.Timeout)
	form := url.Values{}
	form.Set("data", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	start := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveUpstreamLatency(Name, c.now().Sub(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	// a runtime error on the server still answers 200 with a remark
	if strings.Contains(strings.ToLower(body.Remark), "error") {
		return nil, fmt.Errorf("overpass remark: %s", body.Remark)
	}

	c.logger.DebugContext(ctx, "overpass fetch done",
		"elements", len(body.Elements),
		"keys", strings.Join(keys, ","),
		"duration", c.now().Sub(start).String())
	return toTable(body.Elements, keys), nil
}

// Ping checks that the interpreter answers a trivial status query.
func (c *Collector) Ping(ctx context.Context) error {
	u := *c.url
	u.Path = strings.TrimSuffix(u.Path, "/interpreter") + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("overpass status: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("overpass status code %d", resp.StatusCode)
	}
	return nil
}

func toTable(elems []Element, keys []string) *features.Table {
	t := features.NewTable(keys...)
	seen := make(map[string]struct{}, len(elems))
	for _, e := range elems {
		if len(e.Tags) == 0 {
			continue
		}
		id := e.Type + "/" + strconv.FormatInt(e.ID, 10)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t.AddRow(e.Tags)
	}
	return t
}
