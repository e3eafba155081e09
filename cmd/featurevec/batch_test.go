package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

func TestReadRows(t *testing.T) {
	in := "lat,lon,label\n59.3293,18.0686,1\n\n57.7089, 11.9746\n"
	rows, err := ReadRows(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	want := []Row{
		{Line: 2, Lat: 59.3293, Lon: 18.0686, Label: "1"},
		{Line: 4, Lat: 57.7089, Lon: 11.9746},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows=%+v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d=%+v want %+v", i, rows[i], want[i])
		}
	}
}

func TestReadRows_Errors(t *testing.T) {
	cases := map[string]string{
		"one field":    "59.3\n",
		"bad lat":      "1,2\nnorth,2\n",
		"bad lon":      "1,east\n",
		"quoted error": "1,\"2\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadRows(strings.NewReader(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWriteRecords_MatrixOrder(t *testing.T) {
	c := features.CollectorFunc(func(_ context.Context, _ model.BBox, keys []string) (*features.Table, error) {
		t := features.NewTable(keys...)
		t.AddRow(map[string]string{"shop": "bakery"})
		return t, nil
	})
	ex := features.NewExtractor(c)
	rows := []Row{{Line: 1, Lat: 59.3, Lon: 18.0, Label: "1"}, {Line: 2, Lat: 99, Lon: 0}}
	points := []features.Point{
		{ID: "1", Coordinate: model.Coordinate{Lat: 59.3, Lon: 18.0}},
		{ID: "2", Coordinate: model.Coordinate{Lat: 99, Lon: 0}},
	}
	specs := []features.Spec{features.Presence("amenity"), features.Presence("shop")}
	items, err := ex.BatchExtract(context.Background(), points, 2, specs, 2)
	if err != nil {
		t.Fatalf("BatchExtract: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteRecords(&buf, rows, items, 2); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d:\n%s", len(lines), buf.String())
	}

	var first struct {
		Label  string `json:"label"`
		Values []int  `json:"values"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Label != "1" || len(first.Values) != 2 || first.Values[0] != 0 || first.Values[1] != 1 {
		t.Fatalf("first=%+v", first)
	}
	if !strings.Contains(lines[0], `"counts":{"amenity":0,"shop":1}`) {
		t.Fatalf("counts not in schema order: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"error":`) || !strings.Contains(lines[1], "latitude") {
		t.Fatalf("invalid row should carry its input error: %s", lines[1])
	}
}
