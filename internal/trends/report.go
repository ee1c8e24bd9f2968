package trends

import (
	"time"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/goccy/go-json"
)

// Report is the outcome of one Run.
type Report struct {
	RunID       string       `json:"run_id"`
	Source      string       `json:"source,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
	Records     int          `json:"records"`
	Options     Options      `json:"options"`
	Results     []PairResult `json:"results"`
}

// PairResult holds everything computed for one (dimension, family).
// Exactly one of Metrics, Volume or Tokens is populated by family kind.
type PairResult struct {
	Dimension recipe.Dimension  `json:"dimension"`
	Family    recipe.Family     `json:"family"`
	Keys      []recipe.GroupKey `json:"keys"`
	Metrics   []MetricResult    `json:"metrics,omitempty"`
	Volume    *VolumeResult     `json:"volume,omitempty"`
	Tokens    *TokenResult      `json:"tokens,omitempty"`
	Errors    []PairError       `json:"errors,omitempty"`
}

// OK reports whether the pair finished without errors.
func (p PairResult) OK() bool { return len(p.Errors) == 0 }

// MetricResult is the analysis of one scalar metric.
type MetricResult struct {
	Metric      recipe.Metric         `json:"metric"`
	Aggregation *analysis.Aggregation `json:"aggregation,omitempty"`
	Trend       *analysis.TrendFit    `json:"trend,omitempty"`
	// RankCorrelation is set on ordered dimensions alongside Trend.
	RankCorrelation *analysis.TestResult  `json:"rank_correlation,omitempty"`
	Tests           []analysis.TestResult `json:"tests,omitempty"`
}

// VolumeResult is the posting volume per group.
type VolumeResult struct {
	Counts []analysis.GroupCount `json:"counts"`
	Trend  *analysis.TrendFit    `json:"trend,omitempty"`
	// Test is a goodness-of-fit test against the expected share of each
	// categorical group.
	Test *analysis.TestResult `json:"test,omitempty"`
}

// TokenResult is the analysis of a multi-valued field.
type TokenResult struct {
	Field          recipe.Field              `json:"field"`
	Table          *analysis.FrequencyTable  `json:"-"`
	Diversity      []analysis.DiversityRow   `json:"diversity"`
	DiversityTrend *analysis.TrendFit        `json:"diversity_trend,omitempty"`
	Variation      *analysis.VariationResult `json:"variation,omitempty"`
	Top            []TopTokens               `json:"top,omitempty"`
}

// TopTokens lists the most frequent tokens of one group.
type TopTokens struct {
	Key    recipe.GroupKey         `json:"key"`
	Tokens []analysis.FrequencyRow `json:"tokens"`
}

// PairError is a failure attached to the pair (and metric) it occurred in.
type PairError struct {
	Stage   string        `json:"stage"`
	Metric  string        `json:"metric,omitempty"`
	Kind    analysis.Kind `json:"kind"`
	Message string        `json:"message"`
}

// Result returns the pair result for (dim, fam).
func (r *Report) Result(dim recipe.Dimension, fam recipe.Family) (PairResult, bool) {
	for _, p := range r.Results {
		if p.Dimension == dim && p.Family == fam {
			return p, true
		}
	}
	return PairResult{}, false
}

// Failures counts pairs carrying at least one error.
func (r *Report) Failures() int {
	var n int
	for _, p := range r.Results {
		if !p.OK() {
			n++
		}
	}
	return n
}

// JSON encodes the report, indented when pretty is set.
func (r *Report) JSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}
