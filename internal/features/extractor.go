package features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/bbox"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/logger"
)

// Collector retrieves the entities inside bb carrying any of tagKeys.
type Collector interface {
	Fetch(ctx context.Context, bb model.BBox, tagKeys []string) (*Table, error)
}

// Named is implemented by collectors that report a name for logs and metrics.
type Named interface {
	Name() string
}

type CollectorFunc func(ctx context.Context, bb model.BBox, tagKeys []string) (*Table, error)

func (f CollectorFunc) Fetch(ctx context.Context, bb model.BBox, tagKeys []string) (*Table, error) {
	return f(ctx, bb, tagKeys)
}

// RetrievalError wraps any failure of the collector boundary.
type RetrievalError struct {
	Collector string
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve features from %s: %v", e.Collector, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// IsRetrievalError reports whether err carries a RetrievalError.
func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

type DuplicatePolicy int

const (
	// LastWriteWins keeps one slot per label; later specs overwrite earlier ones.
	LastWriteWins DuplicatePolicy = iota
	// RejectDuplicates fails before fetching when two specs share a label.
	RejectDuplicates
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last_write_wins", "last-write-wins", "lww":
		return LastWriteWins, nil
	case "reject":
		return RejectDuplicates, nil
	default:
		return LastWriteWins, fmt.Errorf("%w: unknown duplicate policy %q (want last_write_wins|reject)", model.ErrInvalidArgument, s)
	}
}

func (p DuplicatePolicy) String() string {
	if p == RejectDuplicates {
		return "reject"
	}
	return "last_write_wins"
}

// Result is the outcome of one extraction. Vector is always populated; when
// Err is non-nil it is the all-zero fallback and Err is a *RetrievalError.
type Result struct {
	Vector *Vector
	Err    error
}

func (r Result) Degraded() bool { return r.Err != nil }

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(e *Extractor) { e.policy = p }
}

type Extractor struct {
	collector Collector
	name      string
	logger    *slog.Logger
	policy    DuplicatePolicy
	now       func() time.Time
}

func NewExtractor(c Collector, opts ...Option) *Extractor {
	name := "collector"
	if n, ok := c.(Named); ok && n.Name() != "" {
		name = n.Name()
	}
	e := &Extractor{
		collector: c,
		name:      name,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Extractor) Policy() DuplicatePolicy { return e.policy }

// Extract counts entities in bb for every spec. The returned error is only
// set for invalid input; retrieval failures land in Result.Err.
func (e *Extractor) Extract(ctx context.Context, bb model.BBox, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{Vector: NewVector(0)}, nil
	}
	if err := bb.Validate(); err != nil {
		return Result{}, err
	}
	if e.policy == RejectDuplicates {
		if dups := DuplicateLabels(specs); len(dups) > 0 {
			return Result{}, fmt.Errorf("%w: duplicate feature specs %s", model.ErrInvalidArgument, strings.Join(dups, ","))
		}
	}

	// collectors logging through ctx inherit the collector field
	ctx = logger.WithCollector(ctx, e.name)
	keys := TagKeys(specs)
	table, err := e.fetch(ctx, bb, keys)
	if err != nil {
		observability.ObserveVector(e.name, "degraded")
		e.logger.WarnContext(ctx, "feature retrieval failed; returning zero vector",
			"bbox", bb.String(),
			"keys", strings.Join(keys, ","),
			"err", err)
		return Result{Vector: ZeroVector(specs), Err: err}, nil
	}
	if table.Len() == 0 {
		// an empty result carries no usable columns
		table = NewTable(keys...)
	}

	v := NewVector(len(specs))
	for _, s := range specs {
		var n int
		switch {
		case !table.HasColumn(s.Key):
			n = 0
		case s.HasValue:
			n = table.CountEqual(s.Key, s.Value)
		default:
			n = table.CountPresent(s.Key)
		}
		v.Set(s.Label(), n)
	}

	observability.ObserveVector(e.name, "ok")
	e.logger.DebugContext(ctx, "feature vector built",
		"rows", table.Len(),
		"labels", v.Len())
	return Result{Vector: v}, nil
}

// Aggregate returns only the vector, zero-filled on retrieval failure.
func (e *Extractor) Aggregate(ctx context.Context, bb model.BBox, specs []Spec) (*Vector, error) {
	res, err := e.Extract(ctx, bb, specs)
	if err != nil {
		return nil, err
	}
	return res.Vector, nil
}

// ExtractAround builds the sizeKm box around (lat, lon) and extracts from it.
func (e *Extractor) ExtractAround(ctx context.Context, lat, lon, sizeKm float64, specs []Spec) (model.BBox, Result, error) {
	bb, err := bbox.Around(lat, lon, sizeKm)
	if err != nil {
		return model.BBox{}, Result{}, err
	}
	res, err := e.Extract(ctx, bb, specs)
	return bb, res, err
}

func (e *Extractor) fetch(ctx context.Context, bb model.BBox, keys []string) (t *Table, err error) {
	start := e.now()
	defer func() {
		if rec := recover(); rec != nil {
			t, err = nil, fmt.Errorf("collector panic: %v", rec)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			observability.IncRetrievalFailure(e.name)
			err = &RetrievalError{Collector: e.name, Err: err}
		}
		observability.ObserveFetch(e.name, outcome, e.now().Sub(start).Seconds())
	}()

	t, err = e.collector.Fetch(ctx, bb, keys)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = NewTable()
	}
	return t, nil
}
