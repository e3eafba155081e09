// Package bbox derives square query rectangles around a coordinate.
package bbox

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

// KmPerDegree is the flat approximation used for both axes.
const KmPerDegree = 111.0

const SRID = "EPSG:4326"

// Around returns the box of side sizeKm centered on (lat, lon). There is no
// antimeridian or pole handling; the box may extend past valid ranges.
func Around(lat, lon, sizeKm float64) (model.BBox, error) {
	if err := (model.Coordinate{Lat: lat, Lon: lon}).Validate(); err != nil {
		return model.BBox{}, err
	}
	if err := ValidateSize(sizeKm); err != nil {
		return model.BBox{}, err
	}

	half := sizeKm / KmPerDegree / 2
	bb := model.BBox{
		X1:   lon - half,
		Y1:   lat - half,
		X2:   lon + half,
		Y2:   lat + half,
		SRID: SRID,
	}
	// sizes below float resolution at this coordinate collapse the box
	if err := bb.Validate(); err != nil {
		return model.BBox{}, fmt.Errorf("box size %v km: %w", sizeKm, err)
	}
	return bb, nil
}

// ValidateSize rejects box sides that are not finite and positive.
func ValidateSize(sizeKm float64) error {
	if math.IsNaN(sizeKm) || math.IsInf(sizeKm, 0) || sizeKm <= 0 {
		return fmt.Errorf("%w: box size %v km must be positive", model.ErrInvalidArgument, sizeKm)
	}
	return nil
}

// Degrees converts a box side in kilometers to degrees.
func Degrees(sizeKm float64) float64 {
	return sizeKm / KmPerDegree
}
