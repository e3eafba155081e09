package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuild_JSONFieldsAndContext(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Collector: "overpass", Component: "api"}, &buf)
	sl := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithComponent(ctx, "http")
	sl.InfoContext(ctx, "feature vector built", "rows", 3, "degraded", false)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	for k, want := range map[string]any{
		"msg":        "feature vector built",
		"level":      "info",
		"collector":  "overpass",
		"request_id": "req-1",
		"rows":       float64(3),
		"degraded":   false,
	} {
		if rec[k] != want {
			t.Fatalf("field %q=%v want %v (line %s)", k, rec[k], want, buf.String())
		}
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Fatalf("missing timestamp field: %s", buf.String())
	}
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	v, _ := ctx.Value(ctxReqIDKey).(string)
	if len(v) != 16 {
		t.Fatalf("generated id=%q want 16 hex chars", v)
	}
}

func TestSlog_LevelFilterAndGroups(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	sl := NewSlog(&zl)

	sl.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level: %s", buf.String())
	}

	sl.WithGroup("fetch").Warn("collector failed", "status", 502, "err", errors.New("bad gateway"))
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if rec["level"] != "warn" || rec["fetch.status"] != float64(502) || rec["fetch.err"] != "bad gateway" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"trace":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestFromContext_NilParent(t *testing.T) {
	ctx := WithCollector(context.Background(), "wfs")
	l := FromContext(ctx, nil)
	l.Info().Msg("discarded")
	if RequestID(ctx) != "" {
		t.Fatal("no request id was set")
	}
}
