// Package trends runs the analysis core over every requested
// (dimension, family) pair and collects the outcome into a Report.
package trends

import (
	"fmt"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/rs/zerolog"
)

// Options controls which pairs are analysed and how.
type Options struct {
	Dimensions []recipe.Dimension `json:"dimensions"`
	Families   []recipe.Family    `json:"families"`
	Quantiles  [2]float64         `json:"quantiles"`
	// MinOccurrence is the global token count below which a token is
	// left out of variation rankings.
	MinOccurrence int `json:"min_occurrence"`
	// TopK bounds variation rankings and top-token lists; 0 means unlimited.
	TopK     int     `json:"top_k"`
	Alpha    float64 `json:"alpha"`
	EqualVar bool    `json:"equal_var"`
	Yates    bool    `json:"yates"`

	// Labels maps dimension, family and metric names to display names.
	// Only Markdown reads it.
	Labels map[string]string `json:"-"`
	// Logger receives per-pair failures; nil disables logging.
	Logger *zerolog.Logger `json:"-"`
}

// DefaultOptions analyses every dimension and family.
func DefaultOptions() Options {
	return Options{
		Dimensions:    append([]recipe.Dimension(nil), recipe.Dimensions...),
		Families:      append([]recipe.Family(nil), recipe.Families...),
		Quantiles:     analysis.DefaultQuantiles,
		MinOccurrence: 10,
		TopK:          10,
		Alpha:         analysis.Alpha,
		EqualVar:      true,
	}
}

// Validate checks option values that would otherwise fail deep inside a run.
func (o Options) Validate() error {
	if len(o.Dimensions) == 0 {
		return &analysis.InputError{Field: "dimensions", Reason: "at least one dimension is required"}
	}
	if len(o.Families) == 0 {
		return &analysis.InputError{Field: "families", Reason: "at least one family is required"}
	}
	for _, d := range o.Dimensions {
		if _, err := recipe.ParseDimension(string(d)); err != nil {
			return err
		}
	}
	for _, f := range o.Families {
		if _, err := recipe.ParseFamily(string(f)); err != nil {
			return err
		}
	}
	lo, hi := o.Quantiles[0], o.Quantiles[1]
	if !(lo >= 0 && lo < hi && hi <= 1) {
		return &analysis.InputError{Field: "quantiles", Reason: fmt.Sprintf("need 0 <= lo < hi <= 1, got %g/%g", lo, hi)}
	}
	if o.MinOccurrence < 0 {
		return &analysis.InputError{Field: "min_occurrence", Reason: "must be >= 0"}
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return &analysis.InputError{Field: "alpha", Reason: fmt.Sprintf("must be in (0,1), got %g", o.Alpha)}
	}
	return nil
}

// Label returns the display name of name, or name itself.
func (o Options) Label(name string) string {
	if l, ok := o.Labels[name]; ok && l != "" {
		return l
	}
	return name
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.Logger
}
