// Package keys builds Redis keys for the POI extract.
package keys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// CellKey is "<prefix>:<res>:<cell>".
func CellKey(prefix string, res int, cell string) string {
	p := sanitize(strings.TrimSpace(prefix))
	if p == "" {
		p = "poi"
	}
	return fmt.Sprintf("%s:%d:%s", p, res, strings.TrimSpace(cell))
}

// ContentID derives a stable id for POIs that come without one. Tag order
// does not affect the result.
func ContentID(lat, lon float64, tags map[string]string) string {
	ks := make([]string, 0, len(tags))
	for k := range tags {
		ks = append(ks, k)
	}
	sort.Strings(ks)

	var b strings.Builder
	b.WriteString(strconv.FormatFloat(lat, 'f', 7, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(lon, 'f', 7, 64))
	for _, k := range ks {
		b.WriteByte('\x00')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return fmt.Sprintf("h:%016x", xxhash.Sum64String(b.String()))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
