package trends

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
)

// Markdown renders a compact text summary of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RECIPE TRENDS]\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Source))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Records: %d\n", r.Records))
	b.WriteString(fmt.Sprintf("Pairs: %d (failed %d)\n", len(r.Results), r.Failures()))

	for _, p := range r.Results {
		b.WriteString(fmt.Sprintf("\n[%s BY %s]\n",
			strings.ToUpper(r.Options.Label(string(p.Family))),
			strings.ToUpper(r.Options.Label(string(p.Dimension)))))
		switch {
		case p.Volume != nil:
			r.writeVolume(&b, p.Volume)
		case p.Tokens != nil:
			r.writeTokens(&b, p.Tokens)
		default:
			for _, m := range p.Metrics {
				r.writeMetric(&b, m)
			}
		}
		for _, e := range p.Errors {
			label := e.Stage
			if e.Metric != "" {
				label = r.Options.Label(e.Metric) + " " + e.Stage
			}
			b.WriteString(fmt.Sprintf("! %s (%s): %s\n", label, e.Kind, safeVal(e.Message)))
		}
	}
	return b.String()
}

func (r *Report) writeMetric(b *strings.Builder, m MetricResult) {
	if m.Aggregation == nil {
		return
	}
	agg := m.Aggregation
	b.WriteString(fmt.Sprintf("- %s (excluded %d of %d)\n", r.Options.Label(string(m.Metric)), agg.Excluded, agg.Total))
	for _, g := range agg.Groups {
		b.WriteString(fmt.Sprintf("  • %s: mean %.4g, median %.4g [%.4g, %.4g], std %.4g (n=%d)",
			g.Key.Label, g.Mean, g.Median, g.QLo, g.QHi, g.Std, g.Weight))
		if g.Outliers > 0 {
			b.WriteString(fmt.Sprintf("; outliers %d", g.Outliers))
		}
		b.WriteString("\n")
	}
	if m.Trend != nil {
		b.WriteString("  " + trendLine(m.Trend) + "\n")
	}
	if m.RankCorrelation != nil {
		b.WriteString("  " + testLine(*m.RankCorrelation) + "\n")
	}
	for _, t := range m.Tests {
		b.WriteString("  " + testLine(t) + "\n")
	}
}

func (r *Report) writeVolume(b *strings.Builder, v *VolumeResult) {
	for _, c := range v.Counts {
		b.WriteString(fmt.Sprintf("- %s: %d\n", c.Key.Label, c.Count))
	}
	if v.Trend != nil {
		b.WriteString(trendLine(v.Trend) + "\n")
	}
	if v.Test != nil {
		b.WriteString(testLine(*v.Test) + "\n")
	}
}

func (r *Report) writeTokens(b *strings.Builder, t *TokenResult) {
	b.WriteString("- diversity: ")
	for i, d := range t.Diversity {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s %d (n=%d)", d.Key.Label, d.Distinct, d.GroupSize))
	}
	b.WriteString("\n")
	if t.DiversityTrend != nil {
		b.WriteString("  " + trendLine(t.DiversityTrend) + "\n")
	}
	for _, top := range t.Top {
		if len(top.Tokens) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("- top %s: ", top.Key.Label))
		for i, row := range top.Tokens {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%.1f%%)", safeVal(row.Token), row.Frequency*100))
		}
		b.WriteString("\n")
	}
	v := t.Variation
	if v == nil {
		return
	}
	b.WriteString(fmt.Sprintf("- variation %s → %s (tokens with ≥%d occurrences: %d)\n",
		v.First.Label, v.Last.Label, v.MinOccurrence, v.Considered))
	writeRows := func(title string, rows []analysis.VariationRow) {
		if len(rows) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("  %s:\n", title))
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  • %s: %.1f%% → %.1f%% (%+.1f pts)",
				safeVal(row.Token), row.FreqFirst*100, row.FreqLast*100, row.Delta*100))
			if row.Test != nil {
				b.WriteString(fmt.Sprintf(" p=%.3g%s", row.Test.PValue, star(row.Test.Significant)))
			}
			b.WriteString("\n")
		}
	}
	writeRows("increases", v.Increases)
	writeRows("decreases", v.Decreases)
}

func trendLine(f *analysis.TrendFit) string {
	s := fmt.Sprintf("trend: slope %.4g/yr (unweighted %.4g), R² %.3f, p=%.3g%s",
		f.Slope, f.SlopeUnweighted, f.R2Weighted, f.PValue, star(f.Significant()))
	if f.BiasDefined {
		s += fmt.Sprintf(", weighting bias %.1f%%", f.BiasPct)
	}
	return s
}

func testLine(t analysis.TestResult) string {
	df := fmt.Sprintf("df=%.4g", t.DF)
	if t.DF2 > 0 {
		df = fmt.Sprintf("df=%.4g,%.4g", t.DF, t.DF2)
	}
	return fmt.Sprintf("%s: stat %.4g, %s, p=%.3g%s", t.Kind, t.Statistic, df, t.PValue, star(t.Significant))
}

func star(sig bool) string {
	if sig {
		return " *"
	}
	return ""
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
