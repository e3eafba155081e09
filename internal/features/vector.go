package features

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Vector maps labels to counts and keeps first-insertion order. Set on an
// existing label overwrites the count in place.
type Vector struct {
	labels []string
	counts map[string]int
}

func NewVector(capacity int) *Vector {
	return &Vector{
		labels: make([]string, 0, capacity),
		counts: make(map[string]int, capacity),
	}
}

// ZeroVector maps every spec label to 0.
func ZeroVector(specs []Spec) *Vector {
	v := NewVector(len(specs))
	for _, s := range specs {
		v.Set(s.Label(), 0)
	}
	return v
}

func (v *Vector) Set(label string, count int) {
	if _, ok := v.counts[label]; !ok {
		v.labels = append(v.labels, label)
	}
	v.counts[label] = count
}

func (v *Vector) Get(label string) (int, bool) {
	c, ok := v.counts[label]
	return c, ok
}

func (v *Vector) Len() int { return len(v.labels) }

func (v *Vector) Labels() []string { return append([]string(nil), v.labels...) }

// Values returns the counts in label order.
func (v *Vector) Values() []int {
	out := make([]int, len(v.labels))
	for i, l := range v.labels {
		out[i] = v.counts[l]
	}
	return out
}

// Total sums all counts.
func (v *Vector) Total() int {
	n := 0
	for _, c := range v.counts {
		n += c
	}
	return n
}

// Map returns an unordered copy.
func (v *Vector) Map() map[string]int {
	out := make(map[string]int, len(v.counts))
	for k, c := range v.counts {
		out[k] = c
	}
	return out
}

// MarshalJSON writes an object whose members follow label order.
func (v *Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range v.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("marshal label %q: %w", l, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", v.counts[l])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
