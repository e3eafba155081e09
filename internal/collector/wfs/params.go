package wfs

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

func OWSEndpoint(geoServerBase string) string {
	return strings.TrimRight(geoServerBase, "/") + "/ows"
}

var safeKeyPattern = regexp.MustCompile(`^[\w:.\-]+$`)

// TagFilter builds `"k1" IS NOT NULL OR "k2" IS NOT NULL`.
func TagFilter(keys []string) (string, error) {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) > 100 || !safeKeyPattern.MatchString(k) {
			return "", fmt.Errorf("tag key %q is not a safe attribute name", k)
		}
		parts = append(parts, fmt.Sprintf(`"%s" IS NOT NULL`, k))
	}
	if len(parts) == 0 {
		return "", errors.New("no tag keys")
	}
	return strings.Join(parts, " OR "), nil
}

// BuildGetFeatureParams combines the bbox and tag filter into one cql_filter;
// GeoServer rejects bbox and cql_filter in the same request.
func BuildGetFeatureParams(layer, geomColumn string, bb model.BBox, keys []string) (url.Values, error) {
	tags, err := TagFilter(keys)
	if err != nil {
		return nil, err
	}
	srid := bb.SRID
	if srid == "" {
		srid = "EPSG:4326"
	}
	cql := fmt.Sprintf("BBOX(%s, %.8f, %.8f, %.8f, %.8f, '%s') AND (%s)",
		geomColumn, bb.X1, bb.Y1, bb.X2, bb.Y2, srid, tags)

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", layer)
	params.Set("cql_filter", cql)
	params.Set("outputFormat", "application/json")
	return params, nil
}
