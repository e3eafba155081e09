package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/app"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/bbox"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

var (
	vecLat float64
	vecLon float64
)

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Compute the feature vector for one coordinate",
	Example: `  featurevec vector --lat 59.3293 --lon 18.0686
  featurevec vector --lat 57.7089 --lon 11.9746 --size 1 --specs amenity:cafe,shop`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx, cancel := withFetchTimeout(ctx)
		defer cancel()

		bb, res, err := a.Extractor.ExtractAround(ctx, vecLat, vecLon, flagSize, a.Specs)
		if err != nil {
			return err
		}
		rec := newRecord(Row{Lat: vecLat, Lon: vecLon}, flagSize, bb, res, nil)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var bboxCmd = &cobra.Command{
	Use:   "bbox",
	Short: "Print the bounding box around a coordinate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bb, err := bbox.Around(vecLat, vecLon, flagSize)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), bb.String())
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{vectorCmd, bboxCmd} {
		c.Flags().Float64Var(&vecLat, "lat", 0, "latitude in degrees")
		c.Flags().Float64Var(&vecLon, "lon", 0, "longitude in degrees")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lon")
	}
}

// record is one output line; Values follows the schema order for matrix use.
type record struct {
	Line     int              `json:"line,omitempty"`
	Label    string           `json:"label,omitempty"`
	Lat      float64          `json:"lat"`
	Lon      float64          `json:"lon"`
	SizeKm   float64          `json:"size_km"`
	BBox     [4]float64       `json:"bbox"`
	Counts   *features.Vector `json:"counts"`
	Values   []int            `json:"values"`
	Degraded bool             `json:"degraded"`
	Error    string           `json:"error,omitempty"`
}

func newRecord(r Row, size float64, bb model.BBox, res features.Result, inputErr error) record {
	rec := record{Line: r.Line, Label: r.Label, Lat: r.Lat, Lon: r.Lon, SizeKm: size}
	if inputErr != nil {
		rec.Error = inputErr.Error()
		rec.Degraded = errors.Is(inputErr, features.ErrNotProcessed)
		return rec
	}
	if res.Vector == nil {
		rec.Error = features.ErrNotProcessed.Error()
		rec.Degraded = true
		return rec
	}
	rec.BBox = bb.Array()
	rec.Counts = res.Vector
	rec.Values = res.Vector.Values()
	rec.Degraded = res.Degraded()
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}

func withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.FetchTimeout)
}
