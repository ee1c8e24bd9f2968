package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `id,year,season,is_weekend,minutes,calories,Ingredients,tags
1,2001,Winter,false,30,"1.234,5",Salt | flour,easy
2,2002,fall,1,NA,210,water,
3,2003,summer,no,45%,,,quick|healthy
`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	r := recs[0]
	assert.Equal(t, "1", r.ID)
	assert.Equal(t, 2001, r.Year)
	assert.Equal(t, recipe.Winter, r.Season)
	assert.False(t, r.IsWeekend)
	require.NotNil(t, r.Minutes)
	assert.Equal(t, 30.0, *r.Minutes)
	require.NotNil(t, r.Calories)
	assert.InDelta(t, 1234.5, *r.Calories, 1e-9)
	assert.Equal(t, []string{"Salt", "flour"}, r.Ingredients)
	assert.Equal(t, []string{"easy"}, r.Tags)

	assert.Equal(t, recipe.Autumn, recs[1].Season)
	assert.True(t, recs[1].IsWeekend)
	assert.Nil(t, recs[1].Minutes)
	assert.Nil(t, recs[1].Tags)

	assert.Equal(t, 45.0, *recs[2].Minutes)
	assert.Nil(t, recs[2].Calories)
	assert.Equal(t, []string{"quick", "healthy"}, recs[2].Tags)

	require.NoError(t, recipe.Validate(recs))
}

func TestReadCSVErrorsCarryRow(t *testing.T) {
	in := "id,year,season,is_weekend,minutes\n1,2001,Winter,0,10\n2,2002,Monsoon,0,10\n"
	_, err := ReadCSV(strings.NewReader(in), DefaultLoadOptions())
	var ie *recipe.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 3, ie.Row)
	assert.Equal(t, "season", ie.Field)

	in = "id,year,season,is_weekend,minutes\n1,2001,Winter,0,ten\n"
	_, err = ReadCSV(strings.NewReader(in), DefaultLoadOptions())
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "minutes", ie.Field)

	_, err = ReadCSV(strings.NewReader("id,season\n1,Winter\n"), DefaultLoadOptions())
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Reason, "year")
	assert.Contains(t, ie.Reason, "is_weekend")

	_, err = ReadCSV(strings.NewReader(""), DefaultLoadOptions())
	assert.ErrorIs(t, err, recipe.ErrInput)
}

func TestReadCSVMonthAndLimits(t *testing.T) {
	in := "recipe_id;year;month;weekend\na;2005;7;weekend\n\nb;2005;12;weekday\nc;2006;3;0\n"
	opt := DefaultLoadOptions()
	opt.Delimiter = ';'
	opt.MaxRows = 2
	recs, err := ReadCSV(strings.NewReader(in), opt)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, recipe.Summer, recs[0].Season)
	assert.True(t, recs[0].IsWeekend)
	assert.Equal(t, recipe.Winter, recs[1].Season)
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"1,5", 1.5},
		{"1.234,5", 1234.5},
		{"1,234.5", 1234.5},
		{"7%", 7},
		{"1e3", 1000},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, LoadOptions{})
		require.True(t, ok, c.in)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
	_, ok := parseNumeric("abc", LoadOptions{})
	assert.False(t, ok)
}

func TestReadJSONL(t *testing.T) {
	in := `{"id":"a","year":2010,"season":"spring","is_weekend":true,"minutes":20,"ingredients":["egg","milk"],"tags":"brunch|easy"}

{"id":"b","year":2011,"month":1,"is_weekend":false,"rating":null}
`
	recs, err := ReadJSONL(strings.NewReader(in), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, recipe.Spring, recs[0].Season)
	assert.Equal(t, 20.0, *recs[0].Minutes)
	assert.Equal(t, []string{"egg", "milk"}, recs[0].Ingredients)
	assert.Equal(t, []string{"brunch", "easy"}, recs[0].Tags)
	assert.Equal(t, recipe.Winter, recs[1].Season)
	assert.Nil(t, recs[1].Rating)

	_, err = ReadJSONL(strings.NewReader(`{"id":"a","year":2010,"season":"spring","is_weekend":false}`+"\n{oops\n"), DefaultLoadOptions())
	var ie *recipe.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Row)
}

func TestReadJSONLRequiresYearAndWeekend(t *testing.T) {
	cases := map[string]string{
		"is_weekend": `{"id":"1","year":2001,"season":"fall","minutes":30}`,
		"year":       `{"id":"1","season":"fall","is_weekend":true}`,
	}
	for field, line := range cases {
		in := `{"id":"0","year":2000,"season":"winter","is_weekend":false}` + "\n" + line + "\n"
		_, err := ReadJSONL(strings.NewReader(in), DefaultLoadOptions())
		var ie *recipe.InputError
		require.True(t, errors.As(err, &ie), field)
		assert.Equal(t, 2, ie.Row, field)
		assert.Equal(t, field, ie.Field)
	}
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	tsv := filepath.Join(dir, "r.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("id\tyear\tseason\tis_weekend\n1\t2001\tWinter\t0\n"), 0o644))
	recs, err := Load(tsv, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = Load(filepath.Join(dir, "r.parquet"), DefaultLoadOptions())
	assert.Error(t, err)
	_, err = Load(filepath.Join(dir, "missing.csv"), DefaultLoadOptions())
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"id", "year", "season", "is_weekend", "n_steps", "ingredients"},
		{"r1", 2003, "Winter", true, 7, "salt|pepper"},
		{"r2", 2004, "Summer", false, 9.5, "basil"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	recs, err := Load(path, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2003, recs[0].Year)
	assert.True(t, recs[0].IsWeekend)
	assert.Equal(t, 7.0, *recs[0].NSteps)
	assert.Equal(t, []string{"salt", "pepper"}, recs[0].Ingredients)
	assert.Equal(t, recipe.Summer, recs[1].Season)
	assert.Equal(t, 9.5, *recs[1].NSteps)
}
