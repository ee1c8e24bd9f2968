package analysis

import (
	"math"
	"sort"
)

// quantile interpolates linearly between the order statistics of an
// ascending slice (the "type 7" definition used by most dataframe libraries).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// medianMAD computes median and MAD (median absolute deviation) of an
// ascending slice.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// robustOutliers counts values whose robust z-score exceeds thr. Fewer
// than eight values, or a zero MAD, yields no outliers.
func robustOutliers(sorted []float64, thr float64) int {
	if len(sorted) < 8 {
		return 0
	}
	median, mad := medianMAD(sorted)
	if mad == 0 {
		return 0
	}
	var cnt int
	for _, v := range sorted {
		if math.Abs(0.6745*(v-median)/mad) > thr {
			cnt++
		}
	}
	return cnt
}

// averageRanks returns 1-based ranks with ties given their mean rank.
func averageRanks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = r
		}
		i = j + 1
	}
	return ranks
}
