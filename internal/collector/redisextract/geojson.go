package redisextract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type rawFeature struct {
	ID         json.RawMessage `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// DecodeGeoJSON reads a FeatureCollection extract. Points keep their
// coordinate; other geometries are reduced to their bounds center. OSM style
// exports that nest tags under a "tags" property are flattened from there.
func DecodeGeoJSON(r io.Reader) ([]POI, error) {
	var fc struct {
		Type     string       `json:"type"`
		Features []rawFeature `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("type is %q (want \"FeatureCollection\")", fc.Type)
	}

	out := make([]POI, 0, len(fc.Features))
	for i, f := range fc.Features {
		if len(bytes.TrimSpace(f.Geometry)) == 0 || string(bytes.TrimSpace(f.Geometry)) == "null" {
			continue
		}
		var g geom.T
		if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
			return nil, fmt.Errorf("feature %d: geometry: %w", i, err)
		}
		lat, lon, ok := anchor(g)
		if !ok {
			continue
		}
		id, err := featureID(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out = append(out, POI{ID: id, Lat: lat, Lon: lon, Tags: tagsOf(f.Properties)})
	}
	return out, nil
}

func anchor(g geom.T) (lat, lon float64, ok bool) {
	if p, isPoint := g.(*geom.Point); isPoint {
		if p.Empty() {
			return 0, 0, false
		}
		return p.Y(), p.X(), true
	}
	b := g.Bounds()
	if b == nil || b.IsEmpty() {
		return 0, 0, false
	}
	return (b.Min(1) + b.Max(1)) / 2, (b.Min(0) + b.Max(0)) / 2, true
}

func featureID(f rawFeature) (string, error) {
	if len(f.ID) > 0 && string(f.ID) != "null" {
		dec := json.NewDecoder(bytes.NewReader(f.ID))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return "", fmt.Errorf("parse id: %w", err)
		}
		switch t := v.(type) {
		case string:
			return t, nil
		case json.Number:
			return t.String(), nil
		default:
			return "", fmt.Errorf("id must be string or number (got %T)", v)
		}
	}
	if s, ok := f.Properties["@id"].(string); ok {
		return s, nil
	}
	return "", nil
}

func tagsOf(props map[string]any) map[string]string {
	src := props
	if nested, ok := props["tags"].(map[string]any); ok {
		src = nested
	}
	tags := make(map[string]string, len(src))
	for k, v := range src {
		if k == "@id" {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			tags[k] = t
		case bool:
			tags[k] = strconv.FormatBool(t)
		case float64:
			tags[k] = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return tags
}
