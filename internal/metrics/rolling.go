package metrics

// rollingHistory implements a circular buffer of query metrics. It keeps the
// sum of the retained durations so the window average is O(1).
type rollingHistory struct {
	data  []QueryMetric
	index int // next write position
	size  int
	sum   float64
}

func newRollingHistory(capacity int) *rollingHistory {
	return &rollingHistory{
		data: make([]QueryMetric, capacity),
	}
}

// add appends m, overwriting the oldest entry once the buffer is full.
func (rh *rollingHistory) add(m QueryMetric) {
	dataLength := len(rh.data)

	if rh.size == dataLength {
		rh.sum -= rh.data[rh.index].DurationMs
	} else {
		rh.size++
	}
	rh.data[rh.index] = m
	rh.sum += m.DurationMs

	// simple index wrap-around technique
	rh.index++
	if rh.index >= dataLength {
		rh.index = 0
	}
}

// at returns the i'th retained entry, oldest first.
func (rh *rollingHistory) at(i int) QueryMetric {
	start := rh.index - rh.size
	if start < 0 {
		start += len(rh.data)
	}
	return rh.data[(start+i)%len(rh.data)]
}

func (rh *rollingHistory) average() float64 {
	if rh.size == 0 {
		return 0
	}
	return rh.sum / float64(rh.size)
}

// retain keeps only entries for which keep returns true, preserving order.
func (rh *rollingHistory) retain(keep func(QueryMetric) bool) int {
	kept := make([]QueryMetric, 0, rh.size)
	for i := 0; i < rh.size; i++ {
		if m := rh.at(i); keep(m) {
			kept = append(kept, m)
		}
	}
	removed := rh.size - len(kept)

	*rh = rollingHistory{data: make([]QueryMetric, len(rh.data))}
	for _, m := range kept {
		rh.add(m)
	}
	return removed
}
