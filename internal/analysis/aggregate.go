// Package analysis is the computational core: grouped weighted
// aggregation, weighted least-squares trend fitting, multi-valued token
// frequency analysis and significance tests. Every function is pure and
// safe to call concurrently on distinct inputs.
package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"gonum.org/v1/gonum/stat"
)

// DefaultQuantiles are the lower and upper quantiles reported per group.
var DefaultQuantiles = [2]float64{0.25, 0.75}

// OutlierThreshold is the robust |z| above which a value counts as an outlier.
const OutlierThreshold = 3.5

// GroupAggregate holds descriptive statistics of one metric in one group.
// Weight is the number of non-null values.
type GroupAggregate struct {
	Key      recipe.GroupKey `json:"key"`
	Mean     float64         `json:"mean"`
	Median   float64         `json:"median"`
	QLo      float64         `json:"q_lo"`
	QHi      float64         `json:"q_hi"`
	Std      float64         `json:"std"`
	Min      float64         `json:"min"`
	Max      float64         `json:"max"`
	Weight   int             `json:"weight"`
	Nulls    int             `json:"nulls"`
	Outliers int             `json:"outliers"`
}

// Aggregation is the per-group summary of one metric under one dimension.
type Aggregation struct {
	Dimension recipe.Dimension `json:"dimension"`
	Metric    string           `json:"metric"`
	Quantiles [2]float64       `json:"quantiles"`
	Groups    []GroupAggregate `json:"groups"`
	// Total is the number of input records; Excluded the nulls dropped.
	Total    int `json:"total"`
	Excluded int `json:"excluded"`

	samples [][]float64
}

// Aggregate computes grouped statistics of metric over records. Nulls are
// excluded, not zero-filled, and counted in Excluded.
func Aggregate(records []recipe.Record, dim recipe.Dimension, metric recipe.Metric, quantiles [2]float64) (*Aggregation, error) {
	if !metric.Known() {
		return nil, inputErr("metric", "unknown metric %q", metric)
	}
	return AggregateFunc(records, dim, string(metric), metric.Value, quantiles)
}

// AggregateFunc is Aggregate over an arbitrary value accessor.
func AggregateFunc(records []recipe.Record, dim recipe.Dimension, name string, value func(recipe.Record) (float64, bool), quantiles [2]float64) (*Aggregation, error) {
	if len(records) == 0 {
		return nil, inputErr("records", "empty record set")
	}
	lo, hi := quantiles[0], quantiles[1]
	if !(lo >= 0 && lo < hi && hi <= 1) {
		return nil, inputErr("quantiles", "need 0 <= lo < hi <= 1, got (%g, %g)", lo, hi)
	}

	type acc struct {
		vals  []float64
		nulls int
	}
	groups := make(map[recipe.GroupKey]*acc)
	for _, r := range records {
		k, err := dim.KeyOf(r)
		if err != nil {
			return nil, err
		}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		if v, ok := value(r); ok {
			a.vals = append(a.vals, v)
		} else {
			a.nulls++
		}
	}

	out := &Aggregation{Dimension: dim, Metric: name, Quantiles: quantiles, Total: len(records)}
	for _, k := range recipe.SortKeys(groups) {
		a := groups[k]
		out.Excluded += a.nulls
		if len(a.vals) == 0 {
			return nil, &EmptyGroupError{Metric: name, Key: k}
		}
		sorted := append([]float64(nil), a.vals...)
		sort.Float64s(sorted)
		g := GroupAggregate{
			Key:      k,
			Median:   quantile(sorted, 0.5),
			QLo:      quantile(sorted, lo),
			QHi:      quantile(sorted, hi),
			Min:      sorted[0],
			Max:      sorted[len(sorted)-1],
			Weight:   len(sorted),
			Nulls:    a.nulls,
			Outliers: robustOutliers(sorted, OutlierThreshold),
		}
		if len(sorted) > 1 {
			g.Mean, g.Std = stat.MeanStdDev(sorted, nil)
		} else {
			g.Mean = sorted[0]
		}
		out.Groups = append(out.Groups, g)
		out.samples = append(out.samples, a.vals)
	}
	return out, nil
}

// Get returns the aggregate of key.
func (a *Aggregation) Get(key recipe.GroupKey) (GroupAggregate, bool) {
	for _, g := range a.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return GroupAggregate{}, false
}

// Keys returns the group keys in analysis order.
func (a *Aggregation) Keys() []recipe.GroupKey {
	keys := make([]recipe.GroupKey, len(a.Groups))
	for i, g := range a.Groups {
		keys[i] = g.Key
	}
	return keys
}

// WeightSum is the total weight across groups; it equals Total-Excluded.
func (a *Aggregation) WeightSum() int {
	var n int
	for _, g := range a.Groups {
		n += g.Weight
	}
	return n
}

// Series returns (ordinal, mean, weight) per group, in key order, ready
// for Fit.
func (a *Aggregation) Series() (x, y, w []float64) {
	x = make([]float64, len(a.Groups))
	y = make([]float64, len(a.Groups))
	w = make([]float64, len(a.Groups))
	for i, g := range a.Groups {
		x[i] = float64(g.Key.Ordinal)
		y[i] = g.Mean
		w[i] = float64(g.Weight)
	}
	return x, y, w
}

// Samples returns the raw non-null values of each group in key order.
// The slices must not be modified.
func (a *Aggregation) Samples() [][]float64 { return a.samples }

// GroupCount is the number of records in a group.
type GroupCount struct {
	Key   recipe.GroupKey `json:"key"`
	Count int             `json:"count"`
}

// CountByGroup counts records per key (posting volume).
func CountByGroup(records []recipe.Record, dim recipe.Dimension) ([]GroupCount, error) {
	if len(records) == 0 {
		return nil, inputErr("records", "empty record set")
	}
	counts := make(map[recipe.GroupKey]int)
	for _, r := range records {
		k, err := dim.KeyOf(r)
		if err != nil {
			return nil, err
		}
		counts[k]++
	}
	out := make([]GroupCount, 0, len(counts))
	for _, k := range recipe.SortKeys(counts) {
		out = append(out, GroupCount{Key: k, Count: counts[k]})
	}
	return out, nil
}

func (g GroupAggregate) String() string {
	return fmt.Sprintf("%s: mean %.4g median %.4g (n=%d)", g.Key.Label, g.Mean, g.Median, g.Weight)
}
