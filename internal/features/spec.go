// Package features turns tagged POIs inside a bounding box into fixed-order
// count vectors.
package features

import (
	"fmt"
	"strings"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/model"
)

// Spec selects entities carrying Key, or Key equal to Value when HasValue is set.
type Spec struct {
	Key      string
	Value    string
	HasValue bool
}

func Presence(key string) Spec { return Spec{Key: key} }

// Equals counts exact matches of value. An empty value means presence,
// so Equals("k", "") is Presence("k").
func Equals(key, value string) Spec {
	if value == "" {
		return Presence(key)
	}
	return Spec{Key: key, Value: value, HasValue: true}
}

// Label is "key:value" for value specs and "key" otherwise.
func (s Spec) Label() string {
	if s.HasValue {
		return s.Key + ":" + s.Value
	}
	return s.Key
}

func (s Spec) String() string { return s.Label() }

// ParseSpec reads "key" or "key:value". The value may itself contain ':'.
func ParseSpec(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	key, value, found := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return Spec{}, fmt.Errorf("%w: empty tag key in %q", model.ErrInvalidArgument, raw)
	}
	if !found {
		return Presence(key), nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Spec{}, fmt.Errorf("%w: empty tag value in %q", model.ErrInvalidArgument, raw)
	}
	return Equals(key, value), nil
}

// ParseSpecs reads a comma separated list such as "amenity,amenity:school,shop".
func ParseSpecs(raw string) ([]Spec, error) {
	var out []Spec
	for part := range strings.SplitSeq(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseSpec(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// FormatSpecs is the inverse of ParseSpecs.
func FormatSpecs(specs []Spec) string {
	labels := make([]string, len(specs))
	for i, s := range specs {
		labels[i] = s.Label()
	}
	return strings.Join(labels, ",")
}

// DefaultSpecs is the stock feature schema used when none is configured.
func DefaultSpecs() []Spec {
	return []Spec{
		Presence("amenity"),
		Equals("amenity", "school"),
		Equals("amenity", "hospital"),
		Equals("amenity", "restaurant"),
		Equals("amenity", "cafe"),
		Presence("shop"),
		Presence("tourism"),
		Equals("tourism", "hotel"),
		Equals("tourism", "museum"),
		Presence("leisure"),
		Equals("leisure", "park"),
		Presence("historic"),
		Equals("amenity", "place_of_worship"),
	}
}

// TagKeys returns the distinct keys in first-occurrence order.
func TagKeys(specs []Spec) []string {
	seen := make(map[string]struct{}, len(specs))
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		if _, ok := seen[s.Key]; ok {
			continue
		}
		seen[s.Key] = struct{}{}
		keys = append(keys, s.Key)
	}
	return keys
}

// DuplicateLabels lists labels that occur more than once, in first-duplicate order.
func DuplicateLabels(specs []Spec) []string {
	seen := make(map[string]int, len(specs))
	var dups []string
	for _, s := range specs {
		l := s.Label()
		seen[l]++
		if seen[l] == 2 {
			dups = append(dups, l)
		}
	}
	return dups
}
