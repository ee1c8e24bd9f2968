package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/dataset"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/KaramelBytes/recipetrends/internal/trends"
	"github.com/spf13/cobra"
)

// inputFlags are the loading and analysis flags shared by analyze and
// analyze-batch.
type inputFlags struct {
	delimiter     string
	decimal       string
	thousands     string
	sheet         string
	listSep       string
	maxRows       int
	format        string
	dimensions    string
	families      string
	minOccurrence int
	topK          int
	alpha         float64
	yates         bool
	welch         bool
}

func (f *inputFlags) register(c *cobra.Command) {
	fs := c.Flags()
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fs.StringVar(&f.sheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	fs.StringVar(&f.listSep, "list-sep", "", "separator for ingredient/tag list cells (overrides config)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	fs.StringVarP(&f.format, "format", "f", "markdown", "report format: markdown|json")
	fs.StringVar(&f.dimensions, "dimensions", "", "dimensions to analyze: year,season,period (default from config)")
	fs.StringVar(&f.families, "families", "", "metric families to analyze (default from config)")
	fs.IntVar(&f.minOccurrence, "min-occurrence", -1, "minimum global token occurrences for variation rankings (overrides config)")
	fs.IntVar(&f.topK, "top-k", -1, "tokens listed per group and per variation direction (overrides config)")
	fs.Float64Var(&f.alpha, "alpha", 0, "significance level (overrides config)")
	fs.BoolVar(&f.yates, "yates", false, "apply Yates continuity correction to 2x2 chi-square tests")
	fs.BoolVar(&f.welch, "welch", false, "use Welch's t-test instead of Student's for two groups")
}

func (f *inputFlags) loadOptions() (dataset.LoadOptions, error) {
	opt := loadedConfig().LoadOptions()
	if f.listSep != "" {
		opt.ListSeparator = f.listSep
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	opt.Sheet = f.sheet
	if f.delimiter != "" {
		switch f.delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
		}
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

func (f *inputFlags) analysisOptions() (trends.Options, error) {
	opts, err := loadedConfig().ToOptions()
	if err != nil {
		return opts, err
	}
	if f.dimensions != "" {
		opts.Dimensions = opts.Dimensions[:0:0]
		for _, s := range strings.Split(f.dimensions, ",") {
			d, err := recipe.ParseDimension(strings.TrimSpace(s))
			if err != nil {
				return opts, err
			}
			opts.Dimensions = append(opts.Dimensions, d)
		}
	}
	if f.families != "" {
		opts.Families = opts.Families[:0:0]
		for _, s := range strings.Split(f.families, ",") {
			fam, err := recipe.ParseFamily(strings.TrimSpace(s))
			if err != nil {
				return opts, err
			}
			opts.Families = append(opts.Families, fam)
		}
	}
	if f.minOccurrence >= 0 {
		opts.MinOccurrence = f.minOccurrence
	}
	if f.topK >= 0 {
		opts.TopK = f.topK
	}
	if f.alpha > 0 {
		opts.Alpha = f.alpha
	}
	if f.yates {
		opts.Yates = true
	}
	if f.welch {
		opts.EqualVar = false
	}
	return opts, opts.Validate()
}

// extension returns the output file extension for the chosen format.
func (f *inputFlags) extension() (string, error) {
	switch strings.ToLower(f.format) {
	case "markdown", "md":
		return ".trends.md", nil
	case "json":
		return ".trends.json", nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use markdown|json)", f.format)
}

func render(rep *trends.Report, format string) ([]byte, error) {
	if strings.EqualFold(format, "json") {
		return rep.JSON(true)
	}
	return []byte(rep.Markdown()), nil
}
