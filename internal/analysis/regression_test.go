package analysis

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitExactLineAnyWeights(t *testing.T) {
	x := []float64{1999, 2000, 2001, 2002, 2003, 2004}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v + 1
	}
	weightSets := [][]float64{
		UniformWeights(len(x)),
		{5, 1, 30, 2, 9, 400},
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		{1, 0, 7, 0, 3, 2},
	}
	for _, w := range weightSets {
		fit, err := Fit(x, y, w)
		require.NoError(t, err)
		assert.InDelta(t, 2, fit.Slope, 1e-9, "weights %v", w)
		assert.InDelta(t, 1, fit.Intercept, 1e-5, "weights %v", w)
		assert.InDelta(t, 1, fit.R2Weighted, 1e-9, "weights %v", w)
		assert.InDelta(t, 2, fit.SlopeUnweighted, 1e-9)
		assert.True(t, fit.BiasDefined)
		assert.InDelta(t, 0, fit.BiasPct, 1e-6)
	}
}

func TestFitEqualWeightsHasZeroBias(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{3, 1, 4, 1, 5}
	fit, err := Fit(x, y, []float64{7, 7, 7, 7, 7})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.BiasPct)
	assert.Equal(t, fit.Slope, fit.SlopeUnweighted)
	assert.Equal(t, fit.R2Weighted, fit.R2Unweighted)
}

func TestFitDurationScenario(t *testing.T) {
	var recs []recipe.Record
	add := func(year, n int, mean float64) {
		for i := 0; i < n; i++ {
			// symmetric spread around the mean
			off := float64(i%3 - 1)
			recs = append(recs, recipe.Record{
				ID: recipe.YearKey(year).Label + "-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
				Year: year, Season: recipe.Winter, Minutes: recipe.Float(mean + off),
			})
		}
	}
	add(2001, 9, 30)
	add(2002, 21, 25)
	add(2003, 30, 20)

	agg, err := Aggregate(recs, recipe.DimYear, recipe.Minutes, DefaultQuantiles)
	require.NoError(t, err)
	x, y, w := agg.Series()
	fit, err := Fit(x, y, w)
	require.NoError(t, err)
	assert.Less(t, fit.Slope, 0.0)
	assert.Greater(t, fit.R2Weighted, 0.9)
	assert.Equal(t, 3, fit.N)
}

func TestFitWeightedDiffersFromUnweighted(t *testing.T) {
	x := []float64{2001, 2002, 2003, 2004}
	y := []float64{30, 28, 20, 25}
	w := []float64{200, 150, 20, 5}
	fit, err := Fit(x, y, w)
	require.NoError(t, err)
	assert.NotEqual(t, fit.Slope, fit.SlopeUnweighted)
	want := abs(fit.Slope-fit.SlopeUnweighted) / abs(fit.SlopeUnweighted) * 100
	assert.InDelta(t, want, fit.BiasPct, 1e-12)
	assert.Greater(t, fit.StdErr, 0.0)
	assert.GreaterOrEqual(t, fit.PValue, 0.0)
	assert.LessOrEqual(t, fit.PValue, 1.0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestFitErrors(t *testing.T) {
	_, err := Fit([]float64{1, 2}, []float64{1, 2}, []float64{1, 1})
	var ie *InsufficientDataError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Got)
	assert.Equal(t, KindInsufficient, KindOf(err))

	_, err = Fit([]float64{4, 4, 4}, []float64{1, 2, 3}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Fit([]float64{1, 2, 3}, []float64{1, 2}, []float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrInput)

	_, err = Fit([]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, -1, 1})
	assert.ErrorIs(t, err, ErrInput)

	// zero weights do not count towards the minimum
	_, err = Fit([]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 0, 1})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFitUndefinedBiasKeepsFit(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{1, 0, 1}
	fit, err := Fit(x, y, []float64{1, 1, 5})
	var ub *UndefinedBiasError
	require.True(t, errors.As(err, &ub))
	assert.Equal(t, KindUndefinedBias, KindOf(err))
	assert.Equal(t, 0.0, fit.SlopeUnweighted)
	assert.NotZero(t, fit.Slope)
	assert.Equal(t, fit.Slope, ub.WeightedSlope)
	assert.False(t, fit.BiasDefined)
	assert.Equal(t, 3, fit.N)
}

func TestFitConstantResponse(t *testing.T) {
	fit, err := Fit([]float64{1, 2, 3}, []float64{4, 4, 4}, []float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrUndefinedBias)
	assert.Equal(t, 1.0, fit.R2Weighted)
	assert.Equal(t, 1.0, fit.PValue)
}
