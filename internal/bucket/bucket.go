// Package bucket partitions values into equal-frequency buckets with
// human-readable range labels.
package bucket

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultCount is the number of buckets the salary maps use.
const DefaultCount = 5

// ErrDegenerateBuckets is returned when the values cannot be split into the
// requested number of distinct buckets.
var ErrDegenerateBuckets = eris.New("degenerate buckets")

// Bucket is one equal-frequency interval. The lowest bucket is closed on both
// ends; every other bucket is (Low, High].
type Bucket struct {
	Index int     `json:"index"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// Set is a computed bucket partition.
type Set struct {
	edges   []float64
	buckets []Bucket
}

// New computes k equal-frequency buckets over values. unit is appended to
// every label.
func New(values []float64, k int, unit string) (*Set, error) {
	if k < 1 {
		return nil, eris.Wrapf(ErrDegenerateBuckets, "bucket: k must be at least 1, got %d", k)
	}
	if len(values) == 0 {
		return nil, eris.Wrap(ErrDegenerateBuckets, "bucket: no values")
	}

	distinct := make(map[float64]struct{}, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Wrapf(ErrDegenerateBuckets, "bucket: value %d is not finite", i)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < k {
		return nil, eris.Wrapf(ErrDegenerateBuckets,
			"bucket: %d distinct values cannot fill %d buckets", len(distinct), k)
	}

	edges := cutPoints(values, k)
	s := &Set{edges: edges, buckets: make([]Bucket, k)}
	seen := make(map[string]int, k)
	for i := 0; i < k; i++ {
		if edges[i+1] <= edges[i] && k > 1 {
			return nil, eris.Wrapf(ErrDegenerateBuckets,
				"bucket: duplicate edge %v at bucket %d", edges[i], i)
		}
		label := Label(edges[i], edges[i+1], unit)
		if prev, ok := seen[label]; ok {
			return nil, eris.Wrapf(ErrDegenerateBuckets,
				"bucket: buckets %d and %d share label %q", prev, i, label)
		}
		seen[label] = i
		s.buckets[i] = Bucket{Index: i, Low: edges[i], High: edges[i+1], Label: label}
	}

	for _, v := range values {
		if i := s.index(v); i >= 0 {
			s.buckets[i].Count++
		}
	}
	return s, nil
}

// Label formats a bucket range as "<low> - <high> <unit>" with both bounds
// truncated to integers.
func Label(low, high float64, unit string) string {
	l := fmt.Sprintf("%d - %d", int64(math.Trunc(low)), int64(math.Trunc(high)))
	if unit = strings.TrimSpace(unit); unit != "" {
		l += " " + unit
	}
	return l
}

// Len returns the number of buckets.
func (s *Set) Len() int { return len(s.buckets) }

// Edges returns a copy of the k+1 cut points.
func (s *Set) Edges() []float64 {
	out := make([]float64, len(s.edges))
	copy(out, s.edges)
	return out
}

// Buckets returns a copy of the buckets in ascending order.
func (s *Set) Buckets() []Bucket {
	out := make([]Bucket, len(s.buckets))
	copy(out, s.buckets)
	return out
}

// Labels returns the bucket labels in ascending order, as a legend lists them.
func (s *Set) Labels() []string {
	out := make([]string, len(s.buckets))
	for i, b := range s.buckets {
		out[i] = b.Label
	}
	return out
}

// Assign returns the bucket v falls in. It reports false for values outside
// [min, max] of the data the set was built from.
func (s *Set) Assign(v float64) (Bucket, bool) {
	i := s.index(v)
	if i < 0 {
		return Bucket{}, false
	}
	return s.buckets[i], true
}

func (s *Set) index(v float64) int {
	k := len(s.buckets)
	if math.IsNaN(v) || v < s.edges[0] || v > s.edges[k] {
		return -1
	}
	// First upper edge >= v. The lowest bucket also takes v == edges[0].
	return sort.SearchFloat64s(s.edges[1:], v)
}

// Bucketize builds a Set over values and assigns each value, in input order.
func Bucketize(values []float64, k int, unit string) (*Set, []Bucket, error) {
	s, err := New(values, k, unit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Bucket, len(values))
	for i, v := range values {
		b, ok := s.Assign(v)
		if !ok {
			return nil, nil, eris.Errorf("bucket: value %v escaped its own range", v)
		}
		out[i] = b
	}
	return s, out, nil
}
