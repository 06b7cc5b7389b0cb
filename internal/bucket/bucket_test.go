package bucket

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 10},
		{0.25, 20},
		{0.5, 30},
		{0.1, 14},
		{0.9, 46},
		{1, 50},
		{-1, 10},
		{2, 50},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, quantile(sorted, tt.q), 1e-9, "q=%v", tt.q)
	}
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.5))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestCutPoints_MatchQuantiles(t *testing.T) {
	values := []float64{18135, 8000, 22000, 10000, 18900, 12000, 9100}
	sorted := []float64{8000, 9100, 10000, 12000, 18135, 18900, 22000}

	const k = 4
	edges := cutPoints(values, k)
	require.Len(t, edges, k+1)
	for i, e := range edges {
		assert.InDelta(t, quantile(sorted, float64(i)/k), e, 1e-9, "edge %d", i)
	}
	assert.Equal(t, 8000.0, edges[0])
	assert.Equal(t, 22000.0, edges[k])
	assert.Equal(t, []float64{18135, 8000, 22000, 10000, 18900, 12000, 9100}, values)
}

func TestNew_FiveValues(t *testing.T) {
	s, err := New([]float64{50, 10, 40, 20, 30}, 5, "PLN")
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 18, 26, 34, 42, 50}, s.Edges())
	assert.Equal(t, []string{
		"10 - 18 PLN",
		"18 - 26 PLN",
		"26 - 34 PLN",
		"34 - 42 PLN",
		"42 - 50 PLN",
	}, s.Labels())
	for i, b := range s.Buckets() {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, 1, b.Count, "bucket %d", i)
	}
}

func TestNew_EqualFrequency(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s, err := New(values, 5, "PLN")
	require.NoError(t, err)

	total := 0
	for _, b := range s.Buckets() {
		assert.Equal(t, 2, b.Count, b.Label)
		total += b.Count
	}
	assert.Equal(t, len(values), total)
	assert.Equal(t, "1 - 2 PLN", s.Buckets()[0].Label)
	assert.Equal(t, "8 - 10 PLN", s.Buckets()[4].Label)
}

func TestAssign_Boundaries(t *testing.T) {
	s, err := New([]float64{10, 20, 30, 40, 50}, 5, "PLN")
	require.NoError(t, err)

	tests := []struct {
		v     float64
		index int
		ok    bool
	}{
		{v: 10, index: 0, ok: true}, // lowest bucket is closed
		{v: 18, index: 0, ok: true}, // right-closed
		{v: 18.0001, index: 1, ok: true},
		{v: 26, index: 1, ok: true},
		{v: 42, index: 3, ok: true},
		{v: 50, index: 4, ok: true},
		{v: 9.99, ok: false},
		{v: 50.01, ok: false},
		{v: math.NaN(), ok: false},
	}
	for _, tt := range tests {
		b, ok := s.Assign(tt.v)
		assert.Equal(t, tt.ok, ok, "v=%v", tt.v)
		if tt.ok {
			assert.Equal(t, tt.index, b.Index, "v=%v", tt.v)
		}
	}
}

func TestLabels_StrictlyIncreasing(t *testing.T) {
	values := []float64{8000, 12000, 15000, 18135, 18900, 21000, 25000, 30000, 9000, 40000}
	s, err := New(values, 5, "PLN")
	require.NoError(t, err)

	bs := s.Buckets()
	for i := 1; i < len(bs); i++ {
		assert.Greater(t, bs[i].Low, bs[i-1].Low)
		assert.Greater(t, bs[i].High, bs[i-1].High)
		assert.Equal(t, bs[i-1].High, bs[i].Low)
	}
	assert.Equal(t, "8000 - 11400 PLN", bs[0].Label)
	assert.Equal(t, "26000 - 40000 PLN", bs[4].Label)
}

func TestNew_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		k      int
	}{
		{name: "empty", values: nil, k: 5},
		{name: "zero buckets", values: []float64{1, 2, 3}, k: 0},
		{name: "fewer distinct than k", values: []float64{1, 1, 2, 2, 3, 3}, k: 5},
		{name: "duplicate edges", values: []float64{1, 1, 1, 1, 1, 1, 2, 3, 4, 5}, k: 5},
		{name: "colliding labels", values: []float64{10.5, 10.7, 10.9, 11.2, 11.4, 50}, k: 5},
		{name: "nan", values: []float64{1, 2, 3, 4, math.NaN()}, k: 2},
		{name: "inf", values: []float64{1, 2, 3, math.Inf(1)}, k: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.values, tt.k, "PLN")
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrDegenerateBuckets))
		})
	}
}

func TestNew_SingleBucket(t *testing.T) {
	s, err := New([]float64{3, 3, 3}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"3 - 3"}, s.Labels())
	assert.Equal(t, 3, s.Buckets()[0].Count)
}

func TestBucketize(t *testing.T) {
	values := []float64{30, 10, 50, 20, 40}
	s, got, err := Bucketize(values, 5, "PLN")
	require.NoError(t, err)
	require.Len(t, got, len(values))
	assert.Equal(t, 5, s.Len())

	want := []int{2, 0, 4, 1, 3}
	for i, b := range got {
		assert.Equal(t, want[i], b.Index, "value %v", values[i])
	}

	// Recomputing over the same input yields the same partition.
	s2, got2, err := Bucketize(values, 5, "PLN")
	require.NoError(t, err)
	assert.Equal(t, s.Buckets(), s2.Buckets())
	assert.Equal(t, got, got2)
}

func TestBucketize_DoesNotMutate(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	_, _, err := Bucketize(values, 5, "PLN")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, values)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "9999 - 18000 PLN", Label(9999.9, 18000.2, "PLN"))
	assert.Equal(t, "-5 - 0 PLN", Label(-5.5, 0.4, " PLN "))
	assert.Equal(t, "1 - 2", Label(1, 2, ""))
}
