package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingHistory(t *testing.T) {

	var TestCases = []struct {
		description string
		capacity    int
		durations   []float64
		want        []float64
		average     float64
	}{
		{
			description: "partially filled",
			capacity:    4,
			durations:   []float64{1, 2, 3},
			want:        []float64{1, 2, 3},
			average:     2,
		},
		{
			description: "wraps and evicts oldest",
			capacity:    3,
			durations:   []float64{1, 2, 3, 4, 5},
			want:        []float64{3, 4, 5},
			average:     4,
		},
		{
			description: "empty",
			capacity:    2,
			durations:   nil,
			want:        nil,
			average:     0,
		},
	}

	for _, tc := range TestCases {
		rh := newRollingHistory(tc.capacity)
		for _, d := range tc.durations {
			rh.add(QueryMetric{DurationMs: d})
		}

		var got []float64
		for i := 0; i < rh.size; i++ {
			got = append(got, rh.at(i).DurationMs)
		}

		assert.Equal(t, tc.want, got, tc.description)
		assert.InDelta(t, tc.average, rh.average(), 1e-9, tc.description)
	}
}

func TestRollingHistoryRetain(t *testing.T) {
	rh := newRollingHistory(3)
	for _, d := range []float64{1, 2, 3, 4} {
		rh.add(QueryMetric{DurationMs: d})
	}

	removed := rh.retain(func(m QueryMetric) bool { return m.DurationMs != 3 })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, rh.size)
	assert.Equal(t, 2.0, rh.at(0).DurationMs)
	assert.Equal(t, 4.0, rh.at(1).DurationMs)
	assert.InDelta(t, 3.0, rh.average(), 1e-9)

	// capacity survives a retain
	rh.add(QueryMetric{DurationMs: 5})
	rh.add(QueryMetric{DurationMs: 6})
	assert.Equal(t, 3, rh.size)
	assert.Equal(t, 4.0, rh.at(0).DurationMs)
}
