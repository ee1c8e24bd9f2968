// Package dataset maps already-clean tabular files onto recipe records.
// It does not parse dates or clean values; columns are taken as given.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
)

// Format is a supported input encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
	FormatJSONL Format = "jsonl"
	FormatXLSX  Format = "xlsx"
)

// LoadOptions controls record loading.
type LoadOptions struct {
	// Format overrides detection by file extension.
	Format Format
	// Delimiter for CSV. If 0, chosen by extension.
	Delimiter rune
	// ListSeparator splits multi-valued cells (ingredients, tags).
	ListSeparator string
	// Sheet selects the XLSX sheet; empty means the first one.
	Sheet string
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultLoadOptions returns the options used when none are given.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{ListSeparator: "|"}
}

// FormatOf detects the format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}

// Load reads the records stored at path.
func Load(path string, opt LoadOptions) ([]recipe.Record, error) {
	format := opt.Format
	if format == "" {
		var err error
		if format, err = FormatOf(path); err != nil {
			return nil, err
		}
	}
	if format == FormatXLSX {
		return loadXLSX(path, opt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", format, err)
	}
	defer f.Close()
	switch format {
	case FormatCSV, FormatTSV:
		if opt.Delimiter == 0 && format == FormatTSV {
			opt.Delimiter = '\t'
		}
		return ReadCSV(f, opt)
	case FormatJSONL:
		return ReadJSONL(f, opt)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// columns maps header names onto record fields.
type columns struct {
	id, year, season, month, weekend int
	metrics                          map[recipe.Metric]int
	fields                           map[recipe.Field]int
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func mapColumns(header []string) (*columns, error) {
	c := &columns{id: -1, year: -1, season: -1, month: -1, weekend: -1,
		metrics: make(map[recipe.Metric]int), fields: make(map[recipe.Field]int)}
	for i, raw := range header {
		switch h := normalizeHeader(raw); h {
		case "id", "recipe_id":
			c.id = i
		case "year":
			c.year = i
		case "season":
			c.season = i
		case "month":
			c.month = i
		case "is_weekend", "weekend":
			c.weekend = i
		case string(recipe.Ingredients):
			c.fields[recipe.Ingredients] = i
		case string(recipe.Tags):
			c.fields[recipe.Tags] = i
		default:
			if m := recipe.Metric(h); m.Known() {
				c.metrics[m] = i
			}
		}
	}
	var missing []string
	if c.id < 0 {
		missing = append(missing, "id")
	}
	if c.year < 0 {
		missing = append(missing, "year")
	}
	if c.season < 0 && c.month < 0 {
		missing = append(missing, "season")
	}
	if c.weekend < 0 {
		missing = append(missing, "is_weekend")
	}
	if len(missing) > 0 {
		return nil, &recipe.InputError{Row: 1, Field: "header", Reason: "missing column(s) " + strings.Join(missing, ", ")}
	}
	return c, nil
}

// record builds one record from a row; row is the 1-based source row.
func (c *columns) record(cells []string, row int, opt LoadOptions) (recipe.Record, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	var r recipe.Record
	r.ID = cell(c.id)
	if r.ID == "" {
		return r, &recipe.InputError{Row: row, Field: "id", Reason: "missing"}
	}
	year, err := strconv.Atoi(cell(c.year))
	if err != nil {
		return r, &recipe.InputError{Row: row, Field: "year", Reason: fmt.Sprintf("not an integer: %q", cell(c.year))}
	}
	r.Year = year

	if s := cell(c.season); s != "" {
		if r.Season, err = recipe.ParseSeason(s); err != nil {
			return r, &recipe.InputError{Row: row, Field: "season", Reason: fmt.Sprintf("unknown season %q", s)}
		}
	} else {
		month, err := strconv.Atoi(cell(c.month))
		if err != nil {
			return r, &recipe.InputError{Row: row, Field: "season", Reason: "missing"}
		}
		if r.Season, err = recipe.SeasonOfMonth(month); err != nil {
			return r, &recipe.InputError{Row: row, Field: "month", Reason: fmt.Sprintf("out of range: %d", month)}
		}
	}

	if r.IsWeekend, err = parseBool(cell(c.weekend)); err != nil {
		return r, &recipe.InputError{Row: row, Field: "is_weekend", Reason: err.Error()}
	}

	for m, i := range c.metrics {
		s := cell(i)
		if isNull(s) {
			continue
		}
		v, ok := parseNumeric(s, opt)
		if !ok {
			return r, &recipe.InputError{Row: row, Field: string(m), Reason: fmt.Sprintf("not a number: %q", s)}
		}
		m.Set(&r, &v)
	}

	for f, i := range c.fields {
		tokens := splitList(cell(i), opt.ListSeparator)
		switch f {
		case recipe.Ingredients:
			r.Ingredients = tokens
		case recipe.Tags:
			r.Tags = tokens
		}
	}
	return r, nil
}

func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	if sep == "" {
		sep = "|"
	}
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isNull(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return true
	}
	return false
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y", "weekend":
		return true, nil
	case "0", "false", "f", "no", "n", "weekday":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// fromRows converts a header plus data rows; lines[i] is the 1-based
// source row of rows[i].
func fromRows(header []string, rows [][]string, lines []int, opt LoadOptions) ([]recipe.Record, error) {
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}
	out := make([]recipe.Record, 0, len(rows))
	for i, cells := range rows {
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
		if blank(cells) {
			continue
		}
		r, err := cols.record(cells, lines[i], opt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
