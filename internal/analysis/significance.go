package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level behind TestResult.Significant.
const Alpha = 0.05

// TestKind names a hypothesis test.
type TestKind string

const (
	TestChiSquare        TestKind = "chi_square"
	TestChiSquareYates   TestKind = "chi_square_yates"
	TestChiSquareGOF     TestKind = "chi_square_goodness_of_fit"
	TestStudentT         TestKind = "t_test"
	TestWelchT           TestKind = "welch_t_test"
	TestKruskalWallis    TestKind = "kruskal_wallis"
	TestANOVA            TestKind = "anova"
	TestWeightedRankCorr TestKind = "weighted_rank_correlation"
)

// TestResult is the outcome of a significance test. DF2 is only set for
// tests with two degrees-of-freedom parameters (ANOVA).
type TestResult struct {
	Kind        TestKind `json:"kind"`
	Statistic   float64  `json:"statistic"`
	PValue      float64  `json:"p_value"`
	DF          float64  `json:"df"`
	DF2         float64  `json:"df2,omitempty"`
	Significant bool     `json:"significant"`
}

func result(kind TestKind, statistic, p, df float64) TestResult {
	p = clampP(p)
	return TestResult{Kind: kind, Statistic: finite(statistic), PValue: p, DF: df, Significant: p < Alpha}
}

// sentinel is returned for degenerate inputs that must not abort a batch.
func sentinel(kind TestKind, df float64) TestResult {
	return TestResult{Kind: kind, Statistic: 0, PValue: 1, DF: df}
}

// finite caps infinities so results stay serializable.
func finite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return 0
	}
	return v
}

// ChiSquareContingency runs Pearson's chi-square on the 2x2 table
// [[countA, sizeA-countA], [countB, sizeB-countB]]. Degenerate tables (a
// zero marginal or counts outside [0, size]) yield statistic 0, p 1.
func ChiSquareContingency(countA, sizeA, countB, sizeB int) TestResult {
	return chiSquare2x2(countA, sizeA, countB, sizeB, false)
}

// ChiSquareContingencyYates is ChiSquareContingency with Yates'
// continuity correction.
func ChiSquareContingencyYates(countA, sizeA, countB, sizeB int) TestResult {
	return chiSquare2x2(countA, sizeA, countB, sizeB, true)
}

func chiSquare2x2(a, na, b, nb int, yates bool) TestResult {
	kind := TestChiSquare
	if yates {
		kind = TestChiSquareYates
	}
	if a < 0 || b < 0 || a > na || b > nb {
		return sentinel(kind, 1)
	}
	obs := [2][2]float64{
		{float64(a), float64(na - a)},
		{float64(b), float64(nb - b)},
	}
	rows := [2]float64{float64(na), float64(nb)}
	cols := [2]float64{float64(a + b), float64(na - a + nb - b)}
	total := rows[0] + rows[1]
	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		return sentinel(kind, 1)
	}
	var chi2 float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e := rows[i] * cols[j] / total
			d := math.Abs(obs[i][j] - e)
			if yates {
				d -= math.Min(0.5, d)
			}
			chi2 += d * d / e
		}
	}
	p := distuv.ChiSquared{K: 1}.Survival(chi2)
	return result(kind, chi2, p, 1)
}

// ChiSquareGoodnessOfFit tests observed counts against expected shares.
// Shares need not sum to one; they are normalized.
func ChiSquareGoodnessOfFit(observed, expectedShares []float64) (TestResult, error) {
	if len(observed) != len(expectedShares) {
		return TestResult{}, &InputError{Field: "expected_shares", Reason: "length differs from observed", Err: ErrMismatchedLengths}
	}
	if len(observed) < 2 {
		return TestResult{}, &InsufficientDataError{Op: "chi-square goodness of fit", Need: 2, Got: len(observed)}
	}
	var n, shareSum float64
	for i := range observed {
		if observed[i] < 0 || expectedShares[i] <= 0 {
			return TestResult{}, inputErr("observed", "counts must be >= 0 and shares > 0 at index %d", i)
		}
		n += observed[i]
		shareSum += expectedShares[i]
	}
	df := float64(len(observed) - 1)
	if n == 0 {
		return sentinel(TestChiSquareGOF, df), nil
	}
	var chi2 float64
	for i, o := range observed {
		e := n * expectedShares[i] / shareSum
		chi2 += (o - e) * (o - e) / e
	}
	return result(TestChiSquareGOF, chi2, distuv.ChiSquared{K: df}.Survival(chi2), df), nil
}

// TwoSampleTTest compares the means of two independent samples. With
// equalVar it pools variances (Student); otherwise it uses Welch's
// correction. Two samples with zero spread and equal means give t 0, p 1.
func TwoSampleTTest(a, b []float64, equalVar bool) (TestResult, error) {
	kind := TestStudentT
	if !equalVar {
		kind = TestWelchT
	}
	if len(a) < 2 || len(b) < 2 {
		return TestResult{}, &InsufficientDataError{Op: string(kind), Need: 2, Got: min(len(a), len(b))}
	}
	na, nb := float64(len(a)), float64(len(b))
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)

	var se, df float64
	if equalVar {
		df = na + nb - 2
		sp2 := ((na-1)*va + (nb-1)*vb) / df
		se = math.Sqrt(sp2 * (1/na + 1/nb))
	} else {
		qa, qb := va/na, vb/nb
		se = math.Sqrt(qa + qb)
		df = (qa + qb) * (qa + qb) / (qa*qa/(na-1) + qb*qb/(nb-1))
	}
	diff := ma - mb
	if se == 0 {
		if math.IsNaN(df) {
			df = na + nb - 2
		}
		if diff == 0 {
			return sentinel(kind, df), nil
		}
		return result(kind, math.Copysign(math.Inf(1), diff), 0, df), nil
	}
	t := diff / se
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	return result(kind, t, p, df), nil
}

func checkGroups(op string, samples [][]float64) (int, error) {
	if len(samples) < 2 {
		return 0, &InsufficientDataError{Op: op, Need: 2, Got: len(samples)}
	}
	var n int
	for _, s := range samples {
		if len(s) == 0 {
			return 0, &InsufficientDataError{Op: op + " group", Need: 1, Got: 0}
		}
		n += len(s)
	}
	return n, nil
}

// KruskalWallis runs the rank-based H test across two or more groups,
// with the usual correction for ties. Fully tied data gives H 0, p 1.
func KruskalWallis(samples ...[]float64) (TestResult, error) {
	n, err := checkGroups("kruskal-wallis", samples)
	if err != nil {
		return TestResult{}, err
	}
	df := float64(len(samples) - 1)
	pooled := make([]float64, 0, n)
	for _, s := range samples {
		pooled = append(pooled, s...)
	}
	ranks := averageRanks(pooled)

	N := float64(n)
	var h float64
	off := 0
	for _, s := range samples {
		var rs float64
		for _, r := range ranks[off : off+len(s)] {
			rs += r
		}
		off += len(s)
		h += rs * rs / float64(len(s))
	}
	h = 12/(N*(N+1))*h - 3*(N+1)

	c := 1 - tieSum(pooled)/(N*N*N-N)
	if c <= 0 {
		return sentinel(TestKruskalWallis, df), nil
	}
	h /= c
	if h < 0 {
		h = 0
	}
	return result(TestKruskalWallis, h, distuv.ChiSquared{K: df}.Survival(h), df), nil
}

// tieSum returns the sum of t^3-t over groups of tied values.
func tieSum(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	var s float64
	for _, t := range counts {
		ft := float64(t)
		s += ft*ft*ft - ft
	}
	return s
}

// OneWayANOVA runs the parametric F test across two or more groups.
func OneWayANOVA(samples ...[]float64) (TestResult, error) {
	n, err := checkGroups("anova", samples)
	if err != nil {
		return TestResult{}, err
	}
	k := len(samples)
	if n <= k {
		return TestResult{}, &InsufficientDataError{Op: "anova", Need: k + 1, Got: n}
	}
	df1, df2 := float64(k-1), float64(n-k)

	var grand float64
	means := make([]float64, k)
	for i, s := range samples {
		means[i] = stat.Mean(s, nil)
		grand += means[i] * float64(len(s))
	}
	grand /= float64(n)

	var ssb, ssw float64
	for i, s := range samples {
		d := means[i] - grand
		ssb += float64(len(s)) * d * d
		for _, v := range s {
			e := v - means[i]
			ssw += e * e
		}
	}
	msb, msw := ssb/df1, ssw/df2
	var res TestResult
	switch {
	case msw == 0 && msb == 0:
		res = sentinel(TestANOVA, df1)
	case msw == 0:
		res = result(TestANOVA, math.Inf(1), 0, df1)
	default:
		f := msb / msw
		res = result(TestANOVA, f, distuv.F{D1: df1, D2: df2}.Survival(f), df1)
	}
	res.DF2 = df2
	return res, nil
}

// WeightedRankCorrelation rank-transforms x and y (ties share their mean
// rank) and returns the weighted Pearson correlation of the ranks, with w
// as covariance weights. The p-value uses a t approximation with n-2
// degrees of freedom. Constant ranks give r 0, p 1.
func WeightedRankCorrelation(x, y, w []float64) (TestResult, error) {
	if len(x) != len(y) || len(x) != len(w) {
		return TestResult{}, &InputError{Field: "series", Reason: "x, y and w must have equal length", Err: ErrMismatchedLengths}
	}
	n := len(x)
	if n < 3 {
		return TestResult{}, &InsufficientDataError{Op: "weighted rank correlation", Need: 3, Got: n}
	}
	for i, v := range w {
		if math.IsNaN(v) || v < 0 {
			return TestResult{}, inputErr("weights", "weight at index %d must be >= 0, got %g", i, v)
		}
	}
	df := float64(n - 2)
	r := stat.Correlation(averageRanks(x), averageRanks(y), w)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return sentinel(TestWeightedRankCorr, df), nil
	}
	r = math.Max(-1, math.Min(1, r))
	if 1-r*r <= 0 {
		return result(TestWeightedRankCorr, r, 0, df), nil
	}
	t := r * math.Sqrt(df/(1-r*r))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	return result(TestWeightedRankCorr, r, p, df), nil
}
