// Package collector selects the feature source used by the extractor.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/config"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

// Deps are shared dependencies handed to every factory.
type Deps struct {
	Config config.Config
	Logger *slog.Logger
	Client *http.Client
}

type Factory func(ctx context.Context, d Deps) (features.Collector, error)

// Pinger is implemented by collectors that can report upstream readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func New(ctx context.Context, name string, d Deps) (features.Collector, error) {
	f, ok := reg[name]
	if !ok {
		return nil, fmt.Errorf("unknown collector %q (registered: %v)", name, Names())
	}
	c, err := f(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("init collector %q: %w", name, err)
	}
	return c, nil
}
