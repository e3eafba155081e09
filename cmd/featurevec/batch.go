package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/app"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
	"github.com/mohammed-shakir/poi-feature-vectors/internal/features"
)

var (
	batchFile    string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compute vectors for every row of a lat,lon[,label] CSV",
	Long: `Reads coordinates from a CSV file (or stdin with --file -) and writes one JSON
object per line in input order. A header row is skipped when its first cell
is not a number. Rows whose collector call failed are marked degraded and
carry an all-zero vector.`,
	Example: `  featurevec batch --file points.csv > matrix.jsonl
  cat points.csv | featurevec batch --file - --collector redis --workers 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, closeIn, err := openInput(batchFile)
		if err != nil {
			return err
		}
		defer closeIn()

		rows, err := ReadRows(in)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errors.New("no rows in input")
		}

		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		workers := batchWorkers
		if workers <= 0 {
			workers = cfg.BatchWorkers
		}
		points := make([]features.Point, len(rows))
		for i, r := range rows {
			points[i] = features.Point{
				ID:         strconv.Itoa(r.Line),
				Label:      r.Label,
				Coordinate: model.Coordinate{Lat: r.Lat, Lon: r.Lon},
			}
		}

		ctx, cancel := withFetchTimeout(ctx)
		defer cancel()
		items, err := a.Extractor.BatchExtract(ctx, points, flagSize, a.Specs, workers)
		if err != nil && items == nil {
			return err
		}
		if werr := WriteRecords(cmd.OutOrStdout(), rows, items, flagSize); werr != nil {
			return werr
		}

		degraded := 0
		for _, it := range items {
			if it.Err != nil || it.Result.Degraded() {
				degraded++
			}
		}
		log.InfoContext(ctx, "batch done", "rows", len(rows), "degraded_or_invalid", degraded, "workers", workers)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV input path, - for stdin")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent collector calls; default from BATCH_WORKERS")
	_ = batchCmd.MarkFlagRequired("file")
}

// Row is one input coordinate. Line is the 1-based CSV line.
type Row struct {
	Line  int
	Lat   float64
	Lon   float64
	Label string
}

// ReadRows parses lat,lon[,label] records.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want lat,lon[,label], got %d fields", line, len(rec))
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if latErr != nil && first {
			continue // header
		}
		if latErr != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, latErr)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		row := Row{Line: line, Lat: lat, Lon: lon}
		if len(rec) > 2 {
			row.Label = strings.TrimSpace(rec[2])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRecords emits one JSON line per item, in input order.
func WriteRecords(w io.Writer, rows []Row, items []features.BatchItem, size float64) error {
	enc := json.NewEncoder(w)
	for i, it := range items {
		if err := enc.Encode(newRecord(rows[i], size, it.BBox, it.Result, it.Err)); err != nil {
			return fmt.Errorf("write line %d: %w", rows[i].Line, err)
		}
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
