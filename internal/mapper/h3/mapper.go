// Package h3mapper converts coordinates and bounding boxes to H3 cells.
package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellsForBBox returns the cells whose centers fall inside bb, sorted.
func (m *Mapper) CellsForBBox(bb model.BBox, res int) ([]h3.Cell, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	outer := h3.GeoLoop{
		{Lat: bb.Y1, Lng: bb.X1},
		{Lat: bb.Y1, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X1},
	}
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	return sortUnique(cells), nil
}

// CoverBBox returns a superset of the cells containing any point of bb: the
// center-contained cells plus their first ring. A box smaller than one cell
// falls back to the ring around its center.
func (m *Mapper) CoverBBox(bb model.BBox, res int) ([]h3.Cell, error) {
	inner, err := m.CellsForBBox(bb, res)
	if err != nil {
		return nil, err
	}
	if len(inner) == 0 {
		c := bb.Center()
		center, err := m.CellForPoint(c.Lat, c.Lon, res)
		if err != nil {
			return nil, err
		}
		inner = []h3.Cell{center}
	}

	seen := make(map[h3.Cell]struct{}, len(inner)*2)
	out := make([]h3.Cell, 0, len(inner)*2)
	for _, c := range inner {
		disk, err := h3.GridDisk(c, 1)
		if err != nil {
			return nil, fmt.Errorf("h3 grid disk: %w", err)
		}
		for _, d := range disk {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return sortUnique(out), nil
}

func (m *Mapper) CellForPoint(lat, lon float64, res int) (h3.Cell, error) {
	if err := validateRes(res); err != nil {
		return 0, err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return 0, fmt.Errorf("h3 cell for point: %w", err)
	}
	if !c.IsValid() {
		return 0, errors.New("h3 returned an invalid cell")
	}
	return c, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func sortUnique(cells []h3.Cell) []h3.Cell {
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	out := cells[:0]
	for i, c := range cells {
		if i > 0 && c == cells[i-1] {
			continue
		}
		out = append(out, c)
	}
	return out
}
