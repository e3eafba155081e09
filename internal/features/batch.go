package features

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

// Point is one coordinate of a batch; ID is carried through untouched.
type Point struct {
	ID    string
	Label string
	model.Coordinate
}

// ErrNotProcessed marks batch points that were never extracted because the
// batch context ended first.
var ErrNotProcessed = errors.New("point not processed")

type BatchItem struct {
	Point  Point
	BBox   model.BBox
	Result Result
	// Err holds per-point input errors such as an out-of-range coordinate,
	// or ErrNotProcessed wrapping the context error.
	Err error
}

// BatchExtract runs ExtractAround for every point with at most workers
// concurrent fetches. Items are returned in input order.
func (e *Extractor) BatchExtract(ctx context.Context, points []Point, sizeKm float64, specs []Spec, workers int) ([]BatchItem, error) {
	if e.policy == RejectDuplicates {
		if dups := DuplicateLabels(specs); len(dups) > 0 {
			return nil, fmt.Errorf("%w: duplicate feature specs %s", model.ErrInvalidArgument, strings.Join(dups, ","))
		}
	}
	if workers <= 0 {
		workers = 1
	}

	items := make([]BatchItem, len(points))
	for i, p := range points {
		items[i] = BatchItem{Point: p, Err: ErrNotProcessed}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bb, res, err := e.ExtractAround(gctx, p.Lat, p.Lon, sizeKm, specs)
			items[i] = BatchItem{Point: p, BBox: bb, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i := range items {
			if items[i].Err == ErrNotProcessed {
				items[i].Err = fmt.Errorf("%w: %w", ErrNotProcessed, err)
			}
		}
		return items, fmt.Errorf("batch extract: %w", err)
	}
	return items, nil
}
