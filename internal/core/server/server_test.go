package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/health"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/router"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRoutes(p *metrics.Provider) Routes {
	c := features.CollectorFunc(func(_ context.Context, _ model.BBox, keys []string) (*features.Table, error) {
		t := features.NewTable(keys...)
		t.AddRow(map[string]string{"amenity": "school"})
		return t, nil
	})
	fh := router.NewFeatureHandler(quietLogger(), features.NewExtractor(c), router.Options{SizeKm: 2})
	return Routes{
		Features: fh,
		Ready:    health.Readiness(nil, "test", time.Second),
		Metrics:  p.Handler(),
	}
}

func TestNewRouter_Endpoints(t *testing.T) {
	p := metrics.Init(metrics.Config{Collector: "test"})
	observability.Init(p.Registerer(), true)
	t.Cleanup(func() { observability.Init(nil, false) })

	srv := httptest.NewServer(NewRouter(quietLogger(), testRoutes(p)))
	t.Cleanup(srv.Close)

	for _, path := range []string{"/healthz", "/readyz", "/features?lat=1&lon=1", "/bbox?lat=1&lon=1"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status=%d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("GET %s: missing X-Request-ID", path)
		}
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `route="/features"`) {
		t.Fatalf("expected http metrics keyed by route pattern:\n%s", b)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, config.Config{FetchTimeout: time.Second}, quietLogger(), NewRouter(quietLogger(), testRoutes(metrics.Init(metrics.Config{}))))
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became reachable: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
