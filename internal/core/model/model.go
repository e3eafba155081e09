// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument marks malformed caller input (bad coordinates, box sizes, specs).
var ErrInvalidArgument = errors.New("invalid argument")

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v must be in [-90,90]", ErrInvalidArgument, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v must be in [-180,180]", ErrInvalidArgument, c.Lon)
	}
	return nil
}

// BBox is X1=west, Y1=south, X2=east, Y2=north.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

func (b BBox) West() float64  { return b.X1 }
func (b BBox) South() float64 { return b.Y1 }
func (b BBox) East() float64  { return b.X2 }
func (b BBox) North() float64 { return b.Y2 }

func (b BBox) Center() Coordinate {
	return Coordinate{Lat: (b.Y1 + b.Y2) / 2, Lon: (b.X1 + b.X2) / 2}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.Y1 && lat <= b.Y2 && lon >= b.X1 && lon <= b.X2
}

func (b BBox) Validate() error {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return fmt.Errorf("%w: bbox must satisfy west<east and south<north", ErrInvalidArgument)
	}
	return nil
}

// Array returns [west, south, east, north].
func (b BBox) Array() [4]float64 {
	return [4]float64{b.X1, b.Y1, b.X2, b.Y2}
}
