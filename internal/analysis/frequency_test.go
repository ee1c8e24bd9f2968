package analysis

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenRec(id string, year int, ingredients ...string) recipe.Record {
	return recipe.Record{ID: id, Year: year, Season: recipe.Spring, Ingredients: ingredients}
}

func TestExplodeNormalizesAndDedupes(t *testing.T) {
	recs := []recipe.Record{
		tokenRec("1", 2001, " Salt", "salt", "PEPPER ", ""),
		tokenRec("2", 2001),
	}
	ex, err := Explode(recs, recipe.Ingredients)
	require.NoError(t, err)
	assert.Equal(t, []TokenRow{{RecordID: "1", Token: "salt"}, {RecordID: "1", Token: "pepper"}}, ex.Rows)

	_, err = Explode(nil, recipe.Ingredients)
	assert.ErrorIs(t, err, ErrInput)
	_, err = Explode(recs, recipe.Field("colors"))
	assert.ErrorIs(t, err, ErrInput)
}

func TestFrequencyTableCountsRecordsWithoutTokens(t *testing.T) {
	recs := []recipe.Record{
		tokenRec("1", 2001, "salt", "flour"),
		tokenRec("2", 2001, "salt"),
		tokenRec("3", 2001),
		tokenRec("4", 2001, "salt", "sugar"),
		tokenRec("5", 2002, "sugar"),
	}
	ex, err := Explode(recs, recipe.Ingredients)
	require.NoError(t, err)
	ft, err := BuildFrequencyTable(ex, recipe.DimYear)
	require.NoError(t, err)

	y1 := recipe.YearKey(2001)
	assert.Equal(t, 4, ft.GroupSizes[y1])
	assert.InDelta(t, 0.75, ft.Frequency("salt", y1), 1e-12)
	assert.InDelta(t, 0.25, ft.Frequency("flour", y1), 1e-12)
	assert.Equal(t, 1.0, ft.Frequency("sugar", recipe.YearKey(2002)))
	assert.Equal(t, 0.0, ft.Frequency("salt", recipe.YearKey(2002)))
	assert.Equal(t, 0.0, ft.Frequency("salt", recipe.YearKey(1990)))
	assert.Equal(t, []string{"flour", "salt", "sugar"}, ft.Tokens())
	assert.Equal(t, 3, ft.Totals["salt"])

	for _, row := range ft.Rows {
		assert.GreaterOrEqual(t, row.Frequency, 0.0)
		assert.LessOrEqual(t, row.Frequency, 1.0)
	}
	top := ft.TopTokens(y1, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "salt", top[0].Token)
	assert.Equal(t, "flour", top[1].Token)
}

func TestDiversity(t *testing.T) {
	recs := []recipe.Record{
		tokenRec("1", 2001, "a", "b"),
		tokenRec("2", 2001, "b", "c"),
		tokenRec("3", 2002, "a"),
		tokenRec("4", 2003),
	}
	ex, err := Explode(recs, recipe.Ingredients)
	require.NoError(t, err)
	rows, err := Diversity(ex, recipe.DimYear)
	require.NoError(t, err)
	assert.Equal(t, []DiversityRow{
		{Key: recipe.YearKey(2001), Distinct: 3, GroupSize: 2},
		{Key: recipe.YearKey(2002), Distinct: 1, GroupSize: 1},
		{Key: recipe.YearKey(2003), Distinct: 0, GroupSize: 1},
	}, rows)
}

func TestVariationDisappearingToken(t *testing.T) {
	var recs []recipe.Record
	for i := 0; i < 50; i++ {
		recs = append(recs, tokenRec(fmt.Sprintf("a%d", i), 2001, "salt", "water"))
		recs = append(recs, tokenRec(fmt.Sprintf("b%d", i), 2002, "water"))
	}
	ex, err := Explode(recs, recipe.Ingredients)
	require.NoError(t, err)
	ft, err := BuildFrequencyTable(ex, recipe.DimYear)
	require.NoError(t, err)

	res, err := Variation(ft, recipe.YearKey(2001), recipe.YearKey(2002), 10, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Decreases)
	assert.Equal(t, "salt", res.Decreases[0].Token)
	assert.Equal(t, -1.0, res.Decreases[0].Delta)
	assert.Empty(t, res.Increases)
	assert.Equal(t, 2, res.Considered)
}

func TestVariationOrderingAndFilter(t *testing.T) {
	recs := []recipe.Record{
		tokenRec("1", 2001, "rare"),
		tokenRec("2", 2001, "old"),
		tokenRec("3", 2002, "new", "zest"),
		tokenRec("4", 2002, "new", "basil"),
		tokenRec("5", 2002, "zest", "basil"),
	}
	ex, err := Explode(recs, recipe.Ingredients)
	require.NoError(t, err)
	ft, err := BuildFrequencyTable(ex, recipe.DimYear)
	require.NoError(t, err)

	res, err := Variation(ft, recipe.YearKey(2001), recipe.YearKey(2002), 2, 0)
	require.NoError(t, err)
	// basil, new and zest all rise by 2/3; ties break on token
	require.Len(t, res.Increases, 3)
	assert.Equal(t, "basil", res.Increases[0].Token)
	assert.Equal(t, "new", res.Increases[1].Token)
	assert.Equal(t, "zest", res.Increases[2].Token)
	// rare and old appear once, below the threshold
	assert.Empty(t, res.Decreases)

	again, err := Variation(ft, recipe.YearKey(2001), recipe.YearKey(2002), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	limited, err := Variation(ft, recipe.YearKey(2001), recipe.YearKey(2002), 0, 1)
	require.NoError(t, err)
	assert.Len(t, limited.Increases, 1)
	require.Len(t, limited.Decreases, 1)
	assert.Equal(t, "old", limited.Decreases[0].Token)
}

func TestVariationErrors(t *testing.T) {
	ex, err := Explode([]recipe.Record{tokenRec("1", 2001, "a"), tokenRec("2", 2002, "b")}, recipe.Ingredients)
	require.NoError(t, err)
	ft, err := BuildFrequencyTable(ex, recipe.DimYear)
	require.NoError(t, err)

	_, err = Variation(ft, recipe.YearKey(2001), recipe.YearKey(2009), 0, 0)
	assert.ErrorIs(t, err, ErrInput)
	_, err = Variation(ft, recipe.YearKey(2001), recipe.YearKey(2002), -1, 0)
	assert.ErrorIs(t, err, ErrInput)
	_, err = Variation(nil, recipe.YearKey(2001), recipe.YearKey(2002), 0, 0)
	assert.ErrorIs(t, err, ErrInput)
}
