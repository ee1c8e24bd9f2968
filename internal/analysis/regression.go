package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinRegressionPoints is the smallest series Fit accepts.
const MinRegressionPoints = 3

// TrendFit is a weighted least-squares line with its unweighted twin.
// BiasPct is |Slope - SlopeUnweighted| / |SlopeUnweighted| * 100 and is
// only meaningful when BiasDefined is true.
type TrendFit struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	R2Weighted float64 `json:"r2_weighted"`
	PValue     float64 `json:"p_value"`
	StdErr     float64 `json:"std_err"`
	N          int     `json:"n"`

	SlopeUnweighted     float64 `json:"slope_unweighted"`
	InterceptUnweighted float64 `json:"intercept_unweighted"`
	R2Unweighted        float64 `json:"r2_unweighted"`

	BiasPct     float64 `json:"bias_pct"`
	BiasDefined bool    `json:"bias_defined"`
}

// Significant reports whether the weighted slope differs from zero at Alpha.
func (f TrendFit) Significant() bool { return f.PValue < Alpha }

// Fit regresses y on x with weights w. When the unweighted slope is
// exactly zero the returned fit is complete except for the bias, and the
// error is an *UndefinedBiasError.
func Fit(x, y, w []float64) (TrendFit, error) {
	if len(x) != len(y) || len(x) != len(w) {
		return TrendFit{}, &InputError{Field: "series", Reason: "x, y and w must have equal length", Err: ErrMismatchedLengths}
	}
	var n int
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			return TrendFit{}, inputErr("series", "non-finite value at index %d", i)
		}
		if math.IsNaN(w[i]) || w[i] < 0 {
			return TrendFit{}, inputErr("weights", "weight at index %d must be >= 0, got %g", i, w[i])
		}
		if w[i] > 0 {
			n++
		}
	}
	if n < MinRegressionPoints {
		return TrendFit{}, &InsufficientDataError{Op: "regression", Need: MinRegressionPoints, Got: n}
	}
	if x0, ok := constantWhereWeighted(x, w); ok {
		return TrendFit{}, &DegenerateRegressionError{X: x0}
	}

	fit := TrendFit{N: n}
	fit.Intercept, fit.Slope = stat.LinearRegression(x, y, w, false)
	fit.R2Weighted = rSquared(x, y, w, fit.Intercept, fit.Slope)
	fit.StdErr, fit.PValue = slopeInference(x, y, w, fit.Intercept, fit.Slope, n)

	if uniform(w) {
		// Equal weights collapse to the unweighted estimator exactly.
		fit.InterceptUnweighted, fit.SlopeUnweighted, fit.R2Unweighted = fit.Intercept, fit.Slope, fit.R2Weighted
	} else {
		fit.InterceptUnweighted, fit.SlopeUnweighted = stat.LinearRegression(x, y, nil, false)
		fit.R2Unweighted = rSquared(x, y, nil, fit.InterceptUnweighted, fit.SlopeUnweighted)
	}

	if fit.SlopeUnweighted == 0 {
		return fit, &UndefinedBiasError{WeightedSlope: fit.Slope}
	}
	fit.BiasPct = math.Abs(fit.Slope-fit.SlopeUnweighted) / math.Abs(fit.SlopeUnweighted) * 100
	fit.BiasDefined = true
	return fit, nil
}

// UniformWeights returns n weights of 1.
func UniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func uniform(w []float64) bool {
	for _, v := range w {
		if v != w[0] {
			return false
		}
	}
	return true
}

func constantWhereWeighted(x, w []float64) (float64, bool) {
	first := true
	var x0 float64
	for i, v := range x {
		if w[i] == 0 {
			continue
		}
		if first {
			x0, first = v, false
			continue
		}
		if v != x0 {
			return 0, false
		}
	}
	return x0, true
}

// rSquared is 1 - SSres/SStot with weighted sums. A response with no
// spread is fitted exactly by any horizontal line, so it scores 1.
func rSquared(x, y, w []float64, alpha, beta float64) float64 {
	ym := stat.Mean(y, w)
	var sstot float64
	for i := range y {
		d := y[i] - ym
		sstot += weightAt(w, i) * d * d
	}
	if sstot == 0 {
		return 1
	}
	return stat.RSquared(x, y, w, alpha, beta)
}

// slopeInference returns the slope's standard error and two-sided p-value
// from a Student t with n-2 degrees of freedom.
func slopeInference(x, y, w []float64, alpha, beta float64, n int) (se, p float64) {
	xm := stat.Mean(x, w)
	var ssres, sxx float64
	for i := range x {
		wi := weightAt(w, i)
		r := y[i] - (alpha + beta*x[i])
		ssres += wi * r * r
		dx := x[i] - xm
		sxx += wi * dx * dx
	}
	df := float64(n - 2)
	se = math.Sqrt(ssres / df / sxx)
	if se == 0 || math.IsNaN(se) {
		if beta == 0 {
			return 0, 1
		}
		return 0, 0
	}
	t := beta / se
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * tdist.Survival(math.Abs(t))
	return se, clampP(p)
}

func weightAt(w []float64, i int) float64 {
	if w == nil {
		return 1
	}
	return w[i]
}

func clampP(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
