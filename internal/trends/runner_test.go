package trends

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleRecords builds three years of recipes: posting volume rises,
// duration falls, salt disappears after 2001 and quinoa and kale arrive in
// 2003. Ratings and most nutrients are absent.
func sampleRecords() []recipe.Record {
	means := map[int]float64{2001: 30, 2002: 25, 2003: 20}
	counts := map[int]int{2001: 30, 2002: 40, 2003: 50}
	var recs []recipe.Record
	id := 0
	for _, year := range []int{2001, 2002, 2003} {
		for i := 0; i < counts[year]; i++ {
			id++
			weekend := i%7 >= 5
			ingr := []string{"water", "Flour"}
			tags := []string{"easy"}
			if year == 2001 {
				ingr = append(ingr, "salt")
			}
			if year == 2003 {
				if i%2 == 0 {
					ingr = append(ingr, "quinoa")
				}
				if i%3 == 0 {
					ingr = append(ingr, "kale")
				}
				if i%4 == 0 {
					tags = append(tags, "holiday")
				}
			}
			if !weekend {
				tags = append(tags, "weeknight")
			}
			recs = append(recs, recipe.Record{
				ID:              fmt.Sprintf("r%03d", id),
				Year:            year,
				Season:          recipe.Seasons[i%4],
				IsWeekend:       weekend,
				Minutes:         recipe.Float(means[year] + float64(i%5-2)),
				NSteps:          recipe.Float(float64(5 + i%4)),
				NIngredients:    recipe.Float(float64(len(ingr))),
				ComplexityScore: recipe.Float(float64(5+i%4) * float64(len(ingr))),
				Calories:        recipe.Float(float64(200 + 10*(i%9))),
				Ingredients:     ingr,
				Tags:            tags,
			})
		}
	}
	return recs
}

func runSample(t *testing.T, opts Options) *Report {
	t.Helper()
	rep, err := Run(sampleRecords(), opts)
	require.NoError(t, err)
	return rep
}

func pair(t *testing.T, rep *Report, dim recipe.Dimension, fam recipe.Family) PairResult {
	t.Helper()
	p, ok := rep.Result(dim, fam)
	require.True(t, ok, "%s/%s missing", dim, fam)
	return p
}

func TestRunCoversEveryPairInOrder(t *testing.T) {
	rep := runSample(t, DefaultOptions())
	require.Len(t, rep.Results, len(recipe.Dimensions)*len(recipe.Families))
	i := 0
	for _, d := range recipe.Dimensions {
		for _, f := range recipe.Families {
			assert.Equal(t, d, rep.Results[i].Dimension)
			assert.Equal(t, f, rep.Results[i].Family)
			i++
		}
	}
	_, err := uuid.Parse(rep.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 120, rep.Records)
}

func TestRunDurationTrend(t *testing.T) {
	rep := runSample(t, DefaultOptions())
	p := pair(t, rep, recipe.DimYear, recipe.FamilyDuration)
	require.True(t, p.OK(), "%v", p.Errors)
	require.Len(t, p.Metrics, 1)
	m := p.Metrics[0]
	require.NotNil(t, m.Trend)
	assert.InDelta(t, -5, m.Trend.Slope, 1e-9)
	assert.Greater(t, m.Trend.R2Weighted, 0.9)
	require.NotNil(t, m.RankCorrelation)
	assert.InDelta(t, -1, m.RankCorrelation.Statistic, 1e-12)
	assert.Empty(t, m.Tests)
}

func TestRunCategoricalTests(t *testing.T) {
	rep := runSample(t, DefaultOptions())

	season := pair(t, rep, recipe.DimSeason, recipe.FamilyDuration)
	require.Len(t, season.Metrics[0].Tests, 2)
	assert.Equal(t, analysis.TestANOVA, season.Metrics[0].Tests[0].Kind)
	assert.Equal(t, analysis.TestKruskalWallis, season.Metrics[0].Tests[1].Kind)
	assert.Nil(t, season.Metrics[0].Trend)

	period := pair(t, rep, recipe.DimPeriod, recipe.FamilyDuration)
	require.Len(t, period.Metrics[0].Tests, 2)
	assert.Equal(t, analysis.TestStudentT, period.Metrics[0].Tests[0].Kind)

	welch := DefaultOptions()
	welch.EqualVar = false
	rep = runSample(t, welch)
	period = pair(t, rep, recipe.DimPeriod, recipe.FamilyDuration)
	assert.Equal(t, analysis.TestWelchT, period.Metrics[0].Tests[0].Kind)
}

func TestRunVolume(t *testing.T) {
	rep := runSample(t, DefaultOptions())

	year := pair(t, rep, recipe.DimYear, recipe.FamilyVolume)
	require.NotNil(t, year.Volume)
	require.NotNil(t, year.Volume.Trend)
	assert.InDelta(t, 10, year.Volume.Trend.Slope, 1e-9)
	assert.Equal(t, 0.0, year.Volume.Trend.BiasPct)
	assert.Nil(t, year.Volume.Test)

	period := pair(t, rep, recipe.DimPeriod, recipe.FamilyVolume)
	require.NotNil(t, period.Volume.Test)
	assert.Equal(t, analysis.TestChiSquareGOF, period.Volume.Test.Kind)
	assert.Equal(t, 1.0, period.Volume.Test.DF)

	season := pair(t, rep, recipe.DimSeason, recipe.FamilyVolume)
	require.NotNil(t, season.Volume.Test)
	assert.Equal(t, 3.0, season.Volume.Test.DF)
}

func TestRunVolumeCountsAbsentCategories(t *testing.T) {
	var records []recipe.Record
	for i := 0; i < 300; i++ {
		season := recipe.Winter
		if i%2 == 1 {
			season = recipe.Summer
		}
		records = append(records, recipe.Record{ID: fmt.Sprintf("v%d", i), Year: 2005, Season: season})
	}
	opts := DefaultOptions()
	opts.Dimensions = []recipe.Dimension{recipe.DimSeason, recipe.DimPeriod}
	opts.Families = []recipe.Family{recipe.FamilyVolume}
	rep, err := Run(records, opts)
	require.NoError(t, err)

	season := pair(t, rep, recipe.DimSeason, recipe.FamilyVolume)
	require.True(t, season.OK(), "%v", season.Errors)
	require.NotNil(t, season.Volume.Test)
	assert.Len(t, season.Volume.Counts, 2)
	assert.Equal(t, 3.0, season.Volume.Test.DF)
	// 150/0/150/0 against 75 each: 4 * 75 = 300.
	assert.InDelta(t, 300.0, season.Volume.Test.Statistic, 1e-6)
	assert.Less(t, season.Volume.Test.PValue, 1e-6)
	assert.True(t, season.Volume.Test.Significant)

	period := pair(t, rep, recipe.DimPeriod, recipe.FamilyVolume)
	require.True(t, period.OK(), "%v", period.Errors)
	require.NotNil(t, period.Volume.Test)
	assert.Equal(t, 1.0, period.Volume.Test.DF)
	// 300/0 against expected 214.29/85.71.
	assert.InDelta(t, 120.0, period.Volume.Test.Statistic, 1e-6)
	assert.True(t, period.Volume.Test.Significant)
}

func TestRunIngredientVariation(t *testing.T) {
	rep := runSample(t, DefaultOptions())
	p := pair(t, rep, recipe.DimYear, recipe.FamilyIngredients)
	require.True(t, p.OK(), "%v", p.Errors)
	tok := p.Tokens
	require.NotNil(t, tok)
	require.NotNil(t, tok.Variation)

	v := tok.Variation
	assert.Equal(t, recipe.YearKey(2001), v.First)
	assert.Equal(t, recipe.YearKey(2003), v.Last)
	require.NotEmpty(t, v.Decreases)
	salt := v.Decreases[0]
	assert.Equal(t, "salt", salt.Token)
	assert.Equal(t, -1.0, salt.Delta)
	require.NotNil(t, salt.Test)
	assert.True(t, salt.Test.Significant)

	require.Len(t, v.Increases, 2)
	assert.Equal(t, "quinoa", v.Increases[0].Token)
	assert.Equal(t, "kale", v.Increases[1].Token)

	assert.Equal(t, []analysis.DiversityRow{
		{Key: recipe.YearKey(2001), Distinct: 3, GroupSize: 30},
		{Key: recipe.YearKey(2002), Distinct: 2, GroupSize: 40},
		{Key: recipe.YearKey(2003), Distinct: 4, GroupSize: 50},
	}, tok.Diversity)
	require.NotNil(t, tok.DiversityTrend)

	require.Len(t, tok.Top, 3)
	assert.Equal(t, 1.0, tok.Top[0].Tokens[0].Frequency)
}

func TestRunAttachesErrorsWithoutAborting(t *testing.T) {
	rep := runSample(t, DefaultOptions())

	rating := pair(t, rep, recipe.DimYear, recipe.FamilyRating)
	require.Len(t, rating.Errors, 1)
	assert.Equal(t, analysis.KindEmptyGroup, rating.Errors[0].Kind)
	assert.Equal(t, "rating", rating.Errors[0].Metric)
	assert.Equal(t, "aggregate", rating.Errors[0].Stage)
	require.Len(t, rating.Metrics, 1)
	assert.Nil(t, rating.Metrics[0].Aggregation)

	nutrition := pair(t, rep, recipe.DimSeason, recipe.FamilyNutrition)
	assert.Len(t, nutrition.Metrics, 7)
	assert.Len(t, nutrition.Errors, 6)
	assert.NotNil(t, nutrition.Metrics[0].Aggregation)

	assert.Greater(t, rep.Failures(), 0)
	assert.True(t, pair(t, rep, recipe.DimYear, recipe.FamilyComplexity).OK())
}

func TestRunSubsetAndAliases(t *testing.T) {
	opts := DefaultOptions()
	opts.Dimensions = []recipe.Dimension{"weekday", recipe.DimPeriod}
	opts.Families = []recipe.Family{"tag-frequency"}
	rep := runSample(t, opts)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, recipe.DimPeriod, rep.Results[0].Dimension)
	assert.Equal(t, recipe.FamilyTags, rep.Results[0].Family)
	assert.Equal(t, []recipe.Dimension{recipe.DimPeriod}, rep.Options.Dimensions)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	recs := sampleRecords()
	recs[1].ID = recs[0].ID
	_, err := Run(recs, DefaultOptions())
	assert.ErrorIs(t, err, analysis.ErrInput)

	_, err = Run(nil, DefaultOptions())
	assert.ErrorIs(t, err, analysis.ErrInput)

	bad := DefaultOptions()
	bad.Alpha = 0
	_, err = Run(sampleRecords(), bad)
	assert.ErrorIs(t, err, analysis.ErrInput)

	bad = DefaultOptions()
	bad.Quantiles = [2]float64{0.9, 0.1}
	assert.ErrorIs(t, bad.Validate(), analysis.ErrInput)

	bad = DefaultOptions()
	bad.Families = []recipe.Family{"flavour"}
	assert.ErrorIs(t, bad.Validate(), analysis.ErrInput)
}

func TestRunHonoursAlpha(t *testing.T) {
	opts := DefaultOptions()
	opts.Alpha = 0.5
	rep := runSample(t, opts)
	for _, p := range rep.Results {
		for _, m := range p.Metrics {
			for _, tr := range m.Tests {
				assert.Equal(t, tr.PValue < 0.5, tr.Significant)
			}
		}
	}
}

func TestRunLogsPairFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	opts := DefaultOptions()
	opts.Logger = &logger
	runSample(t, opts)

	out := buf.String()
	assert.Contains(t, out, `"kind":"empty_group"`)
	assert.Contains(t, out, `"family":"rating"`)
	assert.Contains(t, out, "analysis complete")
}

func TestReportJSON(t *testing.T) {
	rep := runSample(t, DefaultOptions())
	data, err := rep.JSON(false)
	require.NoError(t, err)

	var decoded struct {
		RunID   string            `json:"run_id"`
		Records int               `json:"records"`
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, 120, decoded.Records)
	assert.Len(t, decoded.Results, len(rep.Results))

	pretty, err := rep.JSON(true)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(pretty), "\n  \"run_id\""))
}

func TestReportMarkdown(t *testing.T) {
	opts := DefaultOptions()
	opts.Labels = map[string]string{"duration": "Prep time", "minutes": "Minutes"}
	rep := runSample(t, opts)
	rep.Source = "recipes.csv"
	md := rep.Markdown()

	assert.Contains(t, md, "[RECIPE TRENDS]")
	assert.Contains(t, md, "File: recipes.csv")
	assert.Contains(t, md, "[PREP TIME BY YEAR]")
	assert.Contains(t, md, "- Minutes (excluded 0 of 120)")
	assert.Contains(t, md, "[INGREDIENTS BY YEAR]")
	assert.Contains(t, md, "• salt: 100.0% → 0.0%")
	assert.Contains(t, md, "(empty_group)")
}
