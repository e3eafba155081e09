// Package router maps HTTP requests onto the feature extractor.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/bbox"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

// MaxBatchPoints caps POST /features/batch.
const MaxBatchPoints = 1000

type Options struct {
	Specs        []features.Spec
	SizeKm       float64
	Workers      int
	FetchTimeout time.Duration
}

type FeatureHandler struct {
	logger  *slog.Logger
	ex      *features.Extractor
	specs   []features.Spec
	sizeKm  float64
	workers int
	timeout time.Duration
}

func NewFeatureHandler(logger *slog.Logger, ex *features.Extractor, o Options) *FeatureHandler {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if len(o.Specs) == 0 {
		o.Specs = features.DefaultSpecs()
	}
	return &FeatureHandler{
		logger:  logger,
		ex:      ex,
		specs:   o.Specs,
		sizeKm:  o.SizeKm,
		workers: o.Workers,
		timeout: o.FetchTimeout,
	}
}

func (h *FeatureHandler) Routes(r chi.Router) {
	r.Get("/features", h.Features)
	r.Post("/features/batch", h.Batch)
	r.Get("/bbox", h.BBox)
}

// FeatureRequest is a validated GET /features query.
type FeatureRequest struct {
	Lat    float64
	Lon    float64
	SizeKm float64
	Specs  []features.Spec
}

type featureResponse struct {
	Lat      float64          `json:"lat"`
	Lon      float64          `json:"lon"`
	SizeKm   float64          `json:"size_km"`
	BBox     [4]float64       `json:"bbox"`
	Counts   *features.Vector `json:"counts"`
	Degraded bool             `json:"degraded"`
	Error    string           `json:"error,omitempty"`
}

func (h *FeatureHandler) Features(w http.ResponseWriter, r *http.Request) {
	q, err := ParseFeatureRequest(r, h.specs, h.sizeKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	bb, res, err := h.ex.ExtractAround(ctx, q.Lat, q.Lon, q.SizeKm, q.Specs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(q.Lat, q.Lon, q.SizeKm, bb, res))
}

func (h *FeatureHandler) BBox(w http.ResponseWriter, r *http.Request) {
	lat, lon, size, err := parsePoint(r, h.sizeKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bb, err := bbox.Around(lat, lon, size)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lat":     lat,
		"lon":     lon,
		"size_km": size,
		"bbox":    bb.Array(),
		"srid":    bb.SRID,
	})
}

type batchRequest struct {
	SizeKm *float64     `json:"size_km"`
	Specs  []string     `json:"specs"`
	Points []batchPoint `json:"points"`
}

type batchPoint struct {
	ID    string  `json:"id,omitempty"`
	Label string  `json:"label,omitempty"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type batchItem struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
	featureResponse
}

func (h *FeatureHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: decode body: %v", model.ErrInvalidArgument, err))
		return
	}
	if len(req.Points) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: points is empty", model.ErrInvalidArgument))
		return
	}
	if len(req.Points) > MaxBatchPoints {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d points exceeds limit %d", model.ErrInvalidArgument, len(req.Points), MaxBatchPoints))
		return
	}

	specs := h.specs
	if len(req.Specs) > 0 {
		var err error
		if specs, err = parseSpecList(req.Specs); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	size := h.sizeKm
	if req.SizeKm != nil {
		size = *req.SizeKm
	}
	if err := bbox.ValidateSize(size); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	points := make([]features.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = features.Point{ID: p.ID, Label: p.Label, Coordinate: model.Coordinate{Lat: p.Lat, Lon: p.Lon}}
	}

	ctx, cancel := h.fetchContext(r.Context())
	defer cancel()

	items, err := h.ex.BatchExtract(ctx, points, size, specs, h.workers)
	if err != nil && items == nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "batch interrupted", "err", err, "points", len(points))
	}

	out := make([]batchItem, len(items))
	for i, it := range items {
		bi := batchItem{ID: it.Point.ID, Label: it.Point.Label}
		switch {
		case it.Err != nil:
			bi.featureResponse = featureResponse{
				Lat:      it.Point.Lat,
				Lon:      it.Point.Lon,
				SizeKm:   size,
				Degraded: errors.Is(it.Err, features.ErrNotProcessed),
				Error:    it.Err.Error(),
			}
		case it.Result.Vector == nil:
			bi.featureResponse = featureResponse{
				Lat:      it.Point.Lat,
				Lon:      it.Point.Lon,
				SizeKm:   size,
				Degraded: true,
				Error:    features.ErrNotProcessed.Error(),
			}
		default:
			bi.featureResponse = toResponse(it.Point.Lat, it.Point.Lon, size, it.BBox, it.Result)
		}
		out[i] = bi
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *FeatureHandler) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func toResponse(lat, lon, size float64, bb model.BBox, res features.Result) featureResponse {
	out := featureResponse{
		Lat:      lat,
		Lon:      lon,
		SizeKm:   size,
		BBox:     bb.Array(),
		Counts:   res.Vector,
		Degraded: res.Degraded(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// ParseFeatureRequest reads lat, lon, size_km and spec. spec may repeat or
// hold a comma list; without it defSpecs is used.
func ParseFeatureRequest(r *http.Request, defSpecs []features.Spec, defSizeKm float64) (FeatureRequest, error) {
	lat, lon, size, err := parsePoint(r, defSizeKm)
	if err != nil {
		return FeatureRequest{}, err
	}
	specs := defSpecs
	if raw := r.URL.Query()["spec"]; len(raw) > 0 {
		if specs, err = parseSpecList(raw); err != nil {
			return FeatureRequest{}, err
		}
	}
	return FeatureRequest{Lat: lat, Lon: lon, SizeKm: size, Specs: specs}, nil
}

func parsePoint(r *http.Request, defSizeKm float64) (lat, lon, size float64, err error) {
	q := r.URL.Query()
	if lat, err = requiredFloat(q.Get("lat"), "lat"); err != nil {
		return 0, 0, 0, err
	}
	if lon, err = requiredFloat(q.Get("lon"), "lon"); err != nil {
		return 0, 0, 0, err
	}
	size = defSizeKm
	if raw := strings.TrimSpace(q.Get("size_km")); raw != "" {
		if size, err = parseFloat(raw); err != nil {
			return 0, 0, 0, fmt.Errorf("%w: size_km: %v", model.ErrInvalidArgument, err)
		}
	}
	return lat, lon, size, nil
}

func parseSpecList(raw []string) ([]features.Spec, error) {
	var out []features.Spec
	for _, v := range raw {
		specs, err := features.ParseSpecs(v)
		if err != nil {
			return nil, err
		}
		out = append(out, specs...)
	}
	return out, nil
}

func requiredFloat(v, name string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("%w: missing required parameter: %s", model.ErrInvalidArgument, name)
	}
	f, err := parseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", model.ErrInvalidArgument, name, err)
	}
	return f, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
