package features

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

func TestBatchExtract_OrderAndPerPointErrors(t *testing.T) {
	var mu sync.Mutex
	seen := map[float64]bool{}
	c := CollectorFunc(func(_ context.Context, bb model.BBox, _ []string) (*Table, error) {
		mu.Lock()
		seen[bb.Center().Lat] = true
		mu.Unlock()
		if bb.Center().Lat > 50 {
			return nil, errors.New("upstream down")
		}
		tbl := NewTable()
		tbl.AddRow(map[string]string{"shop": "books"})
		return tbl, nil
	})

	points := []Point{
		{ID: "a", Coordinate: model.Coordinate{Lat: 10, Lon: 10}},
		{ID: "b", Coordinate: model.Coordinate{Lat: 95, Lon: 10}},
		{ID: "c", Coordinate: model.Coordinate{Lat: 51, Lon: 0}},
	}
	items, err := NewExtractor(c).BatchExtract(context.Background(), points, 2, []Spec{Presence("shop")}, 2)
	if err != nil {
		t.Fatalf("BatchExtract: %v", err)
	}
	if len(items) != 3 || items[0].Point.ID != "a" || items[1].Point.ID != "b" || items[2].Point.ID != "c" {
		t.Fatalf("items out of order: %+v", items)
	}
	if n, _ := items[0].Result.Vector.Get("shop"); n != 1 {
		t.Fatalf("point a shop=%d want 1", n)
	}
	if !errors.Is(items[1].Err, model.ErrInvalidArgument) {
		t.Fatalf("point b: expected invalid latitude, got %v", items[1].Err)
	}
	if !items[2].Result.Degraded() {
		t.Fatalf("point c should be degraded")
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(seen))
	}
}

func TestBatchExtract_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	points := []Point{
		{ID: "a", Label: "1", Coordinate: model.Coordinate{Lat: 1, Lon: 1}},
		{ID: "b", Label: "0", Coordinate: model.Coordinate{Lat: 2, Lon: 2}},
	}
	items, err := NewExtractor(CollectorFunc(func(context.Context, model.BBox, []string) (*Table, error) {
		return NewTable(), nil
	})).BatchExtract(ctx, points, 1, []Spec{Presence("shop")}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(items) != len(points) {
		t.Fatalf("items=%d want %d", len(items), len(points))
	}
	for i, it := range items {
		if it.Point.ID != points[i].ID || it.Point.Label != points[i].Label {
			t.Fatalf("item %d lost its point: %+v", i, it.Point)
		}
		if !errors.Is(it.Err, ErrNotProcessed) || !errors.Is(it.Err, context.Canceled) {
			t.Fatalf("item %d: want ErrNotProcessed wrapping context.Canceled, got %v", i, it.Err)
		}
		if it.Result.Vector != nil {
			t.Fatalf("item %d should carry no vector", i)
		}
	}
}

func TestBatchExtract_DeadlineMidway(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	slow := CollectorFunc(func(ctx context.Context, _ model.BBox, keys []string) (*Table, error) {
		select {
		case <-time.After(30 * time.Millisecond):
			return NewTable(keys...), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	points := make([]Point, 5)
	for i := range points {
		points[i] = Point{ID: strconv.Itoa(i), Coordinate: model.Coordinate{Lat: float64(i), Lon: 1}}
	}
	items, err := NewExtractor(slow).BatchExtract(ctx, points, 1, []Spec{Presence("shop")}, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !errors.Is(items[len(items)-1].Err, ErrNotProcessed) {
		t.Fatalf("last point should be marked not processed, got %+v", items[len(items)-1])
	}
	for i, it := range items {
		if it.Point.ID != strconv.Itoa(i) {
			t.Fatalf("item %d id=%q", i, it.Point.ID)
		}
		if it.Err == nil && it.Result.Vector == nil {
			t.Fatalf("item %d has neither a vector nor an error", i)
		}
	}
}
