// Package config loads service settings from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type OverpassCfg struct {
	URL       string
	Timeout   time.Duration
	RPS       float64
	UserAgent string
}

type WFSCfg struct {
	GeoServerURL string
	Layer        string
	GeomColumn   string
}

type RedisCfg struct {
	Addr   string
	H3Res  int
	Prefix string
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	Collector       string
	BoxSizeKm       float64
	FeatureSpecs    string
	DuplicatePolicy string
	FetchTimeout    time.Duration
	BatchWorkers    int
	MetricsEnabled  bool
	Overpass        OverpassCfg
	WFS             WFSCfg
	Redis           RedisCfg
}

// DefaultFeatureSpecs is the stock schema in FEATURE_SPECS syntax.
const DefaultFeatureSpecs = "amenity,amenity:school,amenity:hospital,amenity:restaurant,amenity:cafe," +
	"shop,tourism,tourism:hotel,tourism:museum,leisure,leisure:park,historic,amenity:place_of_worship"

func FromEnv() Config {
	res := getint("H3_RES", 9)
	if res < 0 || res > 15 {
		res = 9
	}
	workers := getint("BATCH_WORKERS", 4)
	if workers < 1 {
		workers = 1
	}

	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		Collector:       strings.ToLower(getenv("COLLECTOR", "overpass")),
		BoxSizeKm:       getfloat("BOX_SIZE_KM", 2),
		FeatureSpecs:    getenv("FEATURE_SPECS", DefaultFeatureSpecs),
		DuplicatePolicy: getenv("DUPLICATE_POLICY", "last_write_wins"),
		FetchTimeout:    getduration("FETCH_TIMEOUT", 60*time.Second),
		BatchWorkers:    workers,
		MetricsEnabled:  getbool("METRICS_ENABLED", true),
		Overpass: OverpassCfg{
			URL:       getenv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			Timeout:   getduration("OVERPASS_TIMEOUT", 180*time.Second),
			RPS:       getfloat("OVERPASS_RPS", 1),
			UserAgent: getenv("OVERPASS_USER_AGENT", "poi-feature-vectors/1.0"),
		},
		WFS: WFSCfg{
			GeoServerURL: getenv("GEOSERVER_URL", "http://localhost:8080/geoserver"),
			Layer:        getenv("WFS_LAYER", "osm:pois"),
			GeomColumn:   getenv("WFS_GEOM_COLUMN", "geom"),
		},
		Redis: RedisCfg{
			Addr:   getenv("REDIS_ADDR", "localhost:6379"),
			H3Res:  res,
			Prefix: getenv("REDIS_PREFIX", "poi"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
