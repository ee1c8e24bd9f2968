package trends

import (
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/google/uuid"
)

// Expected share of each period under uniform posting across the week.
var periodShares = map[recipe.GroupKey]float64{
	recipe.Weekday: 5.0 / 7.0,
	recipe.Weekend: 2.0 / 7.0,
}

// Run validates records and analyses every requested (dimension, family)
// pair. Invalid input aborts the run; failures inside a pair are attached
// to that pair and the run continues.
func Run(records []recipe.Record, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := recipe.Validate(records); err != nil {
		return nil, err
	}
	dims, fams, err := normalize(opts)
	if err != nil {
		return nil, err
	}
	opts.Dimensions, opts.Families = dims, fams
	log := opts.logger()

	rep := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Records:     len(records),
		Options:     opts,
	}
	for _, dim := range dims {
		keys, err := dim.Keys(records)
		if err != nil {
			return nil, err
		}
		for _, fam := range fams {
			r := &pairRunner{opts: opts, records: records, pair: PairResult{Dimension: dim, Family: fam, Keys: keys}}
			r.run()
			for _, e := range r.pair.Errors {
				log.Warn().
					Str("run_id", rep.RunID).
					Str("dimension", string(dim)).
					Str("family", string(fam)).
					Str("stage", e.Stage).
					Str("metric", e.Metric).
					Str("kind", string(e.Kind)).
					Msg(e.Message)
			}
			rep.Results = append(rep.Results, r.pair)
		}
	}
	log.Info().
		Str("run_id", rep.RunID).
		Int("records", rep.Records).
		Int("pairs", len(rep.Results)).
		Int("failed_pairs", rep.Failures()).
		Msg("analysis complete")
	return rep, nil
}

// normalize resolves aliases and drops repeats, keeping request order.
func normalize(opts Options) ([]recipe.Dimension, []recipe.Family, error) {
	var dims []recipe.Dimension
	seenD := make(map[recipe.Dimension]bool)
	for _, d := range opts.Dimensions {
		nd, err := recipe.ParseDimension(string(d))
		if err != nil {
			return nil, nil, err
		}
		if !seenD[nd] {
			seenD[nd] = true
			dims = append(dims, nd)
		}
	}
	var fams []recipe.Family
	seenF := make(map[recipe.Family]bool)
	for _, f := range opts.Families {
		nf, err := recipe.ParseFamily(string(f))
		if err != nil {
			return nil, nil, err
		}
		if !seenF[nf] {
			seenF[nf] = true
			fams = append(fams, nf)
		}
	}
	return dims, fams, nil
}

type pairRunner struct {
	opts    Options
	records []recipe.Record
	pair    PairResult
}

func (r *pairRunner) fail(stage, metric string, err error) {
	r.pair.Errors = append(r.pair.Errors, PairError{
		Stage:   stage,
		Metric:  metric,
		Kind:    analysis.KindOf(err),
		Message: err.Error(),
	})
}

func (r *pairRunner) run() {
	defer func() {
		// A panic in one pair is a bug; keep it from taking down the run.
		if v := recover(); v != nil {
			r.fail("internal", "", fmt.Errorf("panic: %v", v))
		}
	}()
	fam := r.pair.Family
	if fam == recipe.FamilyVolume {
		r.volume()
		return
	}
	if field, ok := fam.Field(); ok {
		r.tokens(field)
		return
	}
	r.numeric()
}

func (r *pairRunner) mark(res analysis.TestResult) *analysis.TestResult {
	res.Significant = res.PValue < r.opts.Alpha
	return &res
}

// fit runs Fit and keeps the line when only the bias is undefined.
func (r *pairRunner) fit(stage, metric string, x, y, w []float64) *analysis.TrendFit {
	f, err := analysis.Fit(x, y, w)
	if err != nil {
		r.fail(stage, metric, err)
		if !errors.Is(err, analysis.ErrUndefinedBias) {
			return nil
		}
	}
	return &f
}

func (r *pairRunner) numeric() {
	dim := r.pair.Dimension
	for _, m := range r.pair.Family.Metrics() {
		mr := MetricResult{Metric: m}
		agg, err := analysis.Aggregate(r.records, dim, m, r.opts.Quantiles)
		if err != nil {
			r.fail("aggregate", string(m), err)
			r.pair.Metrics = append(r.pair.Metrics, mr)
			continue
		}
		mr.Aggregation = agg
		if dim.Ordered() {
			x, y, w := agg.Series()
			mr.Trend = r.fit("regression", string(m), x, y, w)
			rc, err := analysis.WeightedRankCorrelation(x, y, w)
			if err != nil {
				r.fail("rank_correlation", string(m), err)
			} else {
				mr.RankCorrelation = r.mark(rc)
			}
		} else {
			mr.Tests = r.groupTests(string(m), agg.Samples())
		}
		r.pair.Metrics = append(r.pair.Metrics, mr)
	}
}

// groupTests compares categorical groups: a t-test for two groups, ANOVA
// for more, and Kruskal-Wallis in both cases.
func (r *pairRunner) groupTests(metric string, samples [][]float64) []analysis.TestResult {
	var out []analysis.TestResult
	if len(samples) < 2 {
		r.fail("significance", metric, &analysis.InsufficientDataError{Op: "group comparison", Need: 2, Got: len(samples)})
		return nil
	}
	if len(samples) == 2 {
		res, err := analysis.TwoSampleTTest(samples[0], samples[1], r.opts.EqualVar)
		if err != nil {
			r.fail("t_test", metric, err)
		} else {
			out = append(out, *r.mark(res))
		}
	} else {
		res, err := analysis.OneWayANOVA(samples...)
		if err != nil {
			r.fail("anova", metric, err)
		} else {
			out = append(out, *r.mark(res))
		}
	}
	res, err := analysis.KruskalWallis(samples...)
	if err != nil {
		r.fail("kruskal_wallis", metric, err)
	} else {
		out = append(out, *r.mark(res))
	}
	return out
}

func (r *pairRunner) volume() {
	dim := r.pair.Dimension
	counts, err := analysis.CountByGroup(r.records, dim)
	if err != nil {
		r.fail("count", "", err)
		return
	}
	vr := &VolumeResult{Counts: counts}
	r.pair.Volume = vr

	if dim.Ordered() {
		x := make([]float64, len(counts))
		y := make([]float64, len(counts))
		for i, c := range counts {
			x[i], y[i] = float64(c.Key.Ordinal), float64(c.Count)
		}
		vr.Trend = r.fit("regression", "", x, y, analysis.UniformWeights(len(counts)))
		return
	}

	// Categories absent from the data are observed zeros.
	seen := make(map[recipe.GroupKey]int, len(counts))
	for _, c := range counts {
		seen[c.Key] = c.Count
	}
	keys := categoryKeys(dim)
	observed := make([]float64, len(keys))
	shares := make([]float64, len(keys))
	for i, k := range keys {
		observed[i] = float64(seen[k])
		shares[i] = 1
		if s, ok := periodShares[k]; ok && dim == recipe.DimPeriod {
			shares[i] = s
		}
	}
	res, err := analysis.ChiSquareGoodnessOfFit(observed, shares)
	if err != nil {
		r.fail("goodness_of_fit", "", err)
		return
	}
	vr.Test = r.mark(res)
}

// categoryKeys lists every key a categorical dimension can take.
func categoryKeys(dim recipe.Dimension) []recipe.GroupKey {
	if dim == recipe.DimPeriod {
		return []recipe.GroupKey{recipe.Weekday, recipe.Weekend}
	}
	keys := make([]recipe.GroupKey, len(recipe.Seasons))
	for i, s := range recipe.Seasons {
		keys[i] = recipe.SeasonKey(s)
	}
	return keys
}

func (r *pairRunner) tokens(field recipe.Field) {
	dim := r.pair.Dimension
	ex, err := analysis.Explode(r.records, field)
	if err != nil {
		r.fail("explode", string(field), err)
		return
	}
	ft, err := analysis.BuildFrequencyTable(ex, dim)
	if err != nil {
		r.fail("frequency", string(field), err)
		return
	}
	tr := &TokenResult{Field: field, Table: ft, Diversity: ft.Diversity()}
	r.pair.Tokens = tr

	if dim.Ordered() {
		x := make([]float64, len(tr.Diversity))
		y := make([]float64, len(tr.Diversity))
		w := make([]float64, len(tr.Diversity))
		for i, d := range tr.Diversity {
			x[i], y[i], w[i] = float64(d.Key.Ordinal), float64(d.Distinct), float64(d.GroupSize)
		}
		tr.DiversityTrend = r.fit("diversity_regression", string(field), x, y, w)
	}

	for _, k := range ft.Keys {
		tr.Top = append(tr.Top, TopTokens{Key: k, Tokens: ft.TopTokens(k, r.opts.TopK)})
	}

	if len(ft.Keys) < 2 {
		r.fail("variation", string(field), &analysis.InsufficientDataError{Op: "variation", Need: 2, Got: len(ft.Keys)})
		return
	}
	first, last := ft.Keys[0], ft.Keys[len(ft.Keys)-1]
	v, err := analysis.Variation(ft, first, last, r.opts.MinOccurrence, r.opts.TopK)
	if err != nil {
		r.fail("variation", string(field), err)
		return
	}
	na, nb := ft.GroupSizes[first], ft.GroupSizes[last]
	test := func(rows []analysis.VariationRow) {
		for i := range rows {
			ca, cb := ft.Count(rows[i].Token, first), ft.Count(rows[i].Token, last)
			var res analysis.TestResult
			if r.opts.Yates {
				res = analysis.ChiSquareContingencyYates(ca, na, cb, nb)
			} else {
				res = analysis.ChiSquareContingency(ca, na, cb, nb)
			}
			rows[i].Test = r.mark(res)
		}
	}
	test(v.Increases)
	test(v.Decreases)
	tr.Variation = v
}
