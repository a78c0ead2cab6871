package mtf

import (
	"fmt"
	"sort"
	"time"

	"trading-mtfsync/internal/model"
)

// Locate returns the index of the primary bar containing t, or -1.
// The candidate is the last bar with open time <= t; it contains t only if
// t falls before the candidate's open time plus d. times must be sorted.
func Locate(times []time.Time, d time.Duration, t time.Time) int {
	k := sort.Search(len(times), func(i int) bool { return times[i].After(t) }) - 1
	if k < 0 || !t.Before(times[k].Add(d)) {
		return -1
	}
	return k
}

// match assigns each secondary time its containing primary index in a
// single forward pass over both slices.
func match(primary, secondary []time.Time, d time.Duration) []int {
	out := make([]int, len(secondary))
	j := -1
	for i, ts := range secondary {
		// advance to the last primary bar opening at or before ts
		for j+1 < len(primary) && !primary[j+1].After(ts) {
			j++
		}
		if j >= 0 && ts.Before(primary[j].Add(d)) {
			out[i] = j
		} else {
			out[i] = -1
		}
	}
	return out
}

func checkOrdered(side string, times []time.Time) error {
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return fmt.Errorf("%s index %d (%s before %s): %w",
				side, i, times[i].Format(time.RFC3339), times[i-1].Format(time.RFC3339), model.ErrUnsorted)
		}
	}
	return nil
}
