package analysis

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
)

// TokenRow is one (record, token) pair of an exploded multi-valued field.
type TokenRow struct {
	RecordID string
	Token    string
}

// Exploded is a multi-valued field flattened to one row per (record,
// token). It keeps the source records so that group sizes count records
// that carry no token at all.
type Exploded struct {
	Field   recipe.Field
	Rows    []TokenRow
	records []recipe.Record
	// offsets[i] is the first row of records[i]; rows of a record are contiguous.
	offsets []int
}

// NormalizeToken lowercases and trims a raw token.
func NormalizeToken(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Explode flattens field over records. Tokens are normalized, empty
// tokens dropped and repeats within a record collapsed.
func Explode(records []recipe.Record, field recipe.Field) (*Exploded, error) {
	if len(records) == 0 {
		return nil, inputErr("records", "empty record set")
	}
	ex := &Exploded{Field: field, records: records, offsets: make([]int, len(records)+1)}
	for i, r := range records {
		ex.offsets[i] = len(ex.Rows)
		raw, err := field.Values(r)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(raw))
		for _, t := range raw {
			t = NormalizeToken(t)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			ex.Rows = append(ex.Rows, TokenRow{RecordID: r.ID, Token: t})
		}
	}
	ex.offsets[len(records)] = len(ex.Rows)
	return ex, nil
}

func (ex *Exploded) tokensOf(i int) []TokenRow { return ex.Rows[ex.offsets[i]:ex.offsets[i+1]] }

// FrequencyRow is the occurrence of one token in one group, normalized by
// the number of records in the group.
type FrequencyRow struct {
	Token     string          `json:"token"`
	Key       recipe.GroupKey `json:"key"`
	Count     int             `json:"count"`
	GroupSize int             `json:"group_size"`
	Frequency float64         `json:"frequency"`
}

// FrequencyTable holds token frequencies per group. Only observed
// (token, group) pairs are stored as rows; Frequency fills the rest with 0.
type FrequencyTable struct {
	Dimension  recipe.Dimension        `json:"dimension"`
	Field      recipe.Field            `json:"field"`
	Keys       []recipe.GroupKey       `json:"keys"`
	GroupSizes map[recipe.GroupKey]int `json:"-"`
	Rows       []FrequencyRow          `json:"rows"`
	// Totals is the global occurrence count of each token.
	Totals map[string]int `json:"-"`

	index map[recipe.GroupKey]map[string]int
}

// BuildFrequencyTable computes frequency = count / group size per
// (token, group), ordered by group then token.
func BuildFrequencyTable(ex *Exploded, dim recipe.Dimension) (*FrequencyTable, error) {
	if ex == nil || len(ex.records) == 0 {
		return nil, inputErr("exploded", "no records")
	}
	sizes := make(map[recipe.GroupKey]int)
	counts := make(map[recipe.GroupKey]map[string]int)
	totals := make(map[string]int)
	for i, r := range ex.records {
		k, err := dim.KeyOf(r)
		if err != nil {
			return nil, err
		}
		sizes[k]++
		c := counts[k]
		if c == nil {
			c = make(map[string]int)
			counts[k] = c
		}
		for _, row := range ex.tokensOf(i) {
			c[row.Token]++
			totals[row.Token]++
		}
	}

	ft := &FrequencyTable{
		Dimension:  dim,
		Field:      ex.Field,
		Keys:       recipe.SortKeys(sizes),
		GroupSizes: sizes,
		Totals:     totals,
		index:      counts,
	}
	for _, k := range ft.Keys {
		size := sizes[k]
		if size <= 0 {
			return nil, &InputError{Field: "group_size", Reason: k.Label, Err: ErrZeroGroupSize}
		}
		tokens := make([]string, 0, len(counts[k]))
		for t := range counts[k] {
			tokens = append(tokens, t)
		}
		sort.Strings(tokens)
		for _, t := range tokens {
			n := counts[k][t]
			ft.Rows = append(ft.Rows, FrequencyRow{Token: t, Key: k, Count: n, GroupSize: size, Frequency: float64(n) / float64(size)})
		}
	}
	return ft, nil
}

// HasKey reports whether key is one of the table's groups.
func (ft *FrequencyTable) HasKey(key recipe.GroupKey) bool {
	_, ok := ft.GroupSizes[key]
	return ok
}

// Count returns the occurrences of token in key; 0 when absent.
func (ft *FrequencyTable) Count(token string, key recipe.GroupKey) int {
	return ft.index[key][token]
}

// Frequency returns the normalized frequency of token in key; 0 when the
// token never occurs there.
func (ft *FrequencyTable) Frequency(token string, key recipe.GroupKey) float64 {
	size := ft.GroupSizes[key]
	if size == 0 {
		return 0
	}
	return float64(ft.index[key][token]) / float64(size)
}

// Tokens returns every token of the table in ascending order.
func (ft *FrequencyTable) Tokens() []string {
	out := make([]string, 0, len(ft.Totals))
	for t := range ft.Totals {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TopTokens returns the k most frequent tokens of key (all when k <= 0),
// count descending then token ascending.
func (ft *FrequencyTable) TopTokens(key recipe.GroupKey, k int) []FrequencyRow {
	var rows []FrequencyRow
	for _, r := range ft.Rows {
		if r.Key == key {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Token < rows[j].Token
		}
		return rows[i].Count > rows[j].Count
	})
	if k > 0 && len(rows) > k {
		rows = rows[:k]
	}
	return rows
}

// DiversityRow is the number of distinct tokens observed in a group.
type DiversityRow struct {
	Key       recipe.GroupKey `json:"key"`
	Distinct  int             `json:"distinct"`
	GroupSize int             `json:"group_size"`
}

// Diversity counts distinct tokens per group, in key order.
func Diversity(ex *Exploded, dim recipe.Dimension) ([]DiversityRow, error) {
	ft, err := BuildFrequencyTable(ex, dim)
	if err != nil {
		return nil, err
	}
	return ft.Diversity(), nil
}

// Diversity is Diversity over an already built table.
func (ft *FrequencyTable) Diversity() []DiversityRow {
	out := make([]DiversityRow, 0, len(ft.Keys))
	for _, k := range ft.Keys {
		out = append(out, DiversityRow{Key: k, Distinct: len(ft.index[k]), GroupSize: ft.GroupSizes[k]})
	}
	return out
}

// VariationRow is the change of a token's frequency between two groups.
type VariationRow struct {
	Token      string      `json:"token"`
	FreqFirst  float64     `json:"freq_first"`
	FreqLast   float64     `json:"freq_last"`
	Delta      float64     `json:"delta"`
	TotalCount int         `json:"total_count"`
	Test       *TestResult `json:"test,omitempty"`
}

// VariationResult ranks the largest frequency increases and decreases
// from First to Last.
type VariationResult struct {
	First         recipe.GroupKey `json:"first"`
	Last          recipe.GroupKey `json:"last"`
	MinOccurrence int             `json:"min_occurrence"`
	Considered    int             `json:"considered"`
	Increases     []VariationRow  `json:"increases"`
	Decreases     []VariationRow  `json:"decreases"`
}

// Variation compares token frequencies of first and last. Tokens missing
// from an endpoint count as frequency 0; only tokens whose global total
// reaches minTotal are kept. topK <= 0 keeps every row. Ordering is
// deterministic: |delta| descending, then token ascending.
func Variation(ft *FrequencyTable, first, last recipe.GroupKey, minTotal, topK int) (*VariationResult, error) {
	if ft == nil {
		return nil, inputErr("frequency_table", "nil table")
	}
	if minTotal < 0 {
		return nil, inputErr("min_total_occurrence", "must be >= 0, got %d", minTotal)
	}
	for _, k := range []recipe.GroupKey{first, last} {
		if !ft.HasKey(k) {
			return nil, inputErr("group_key", "%q is not a group of this table", k.Label)
		}
	}

	res := &VariationResult{First: first, Last: last, MinOccurrence: minTotal}
	for _, t := range ft.Tokens() {
		total := ft.Totals[t]
		if total < minTotal {
			continue
		}
		res.Considered++
		f0, f1 := ft.Frequency(t, first), ft.Frequency(t, last)
		row := VariationRow{Token: t, FreqFirst: f0, FreqLast: f1, Delta: f1 - f0, TotalCount: total}
		switch {
		case row.Delta > 0:
			res.Increases = append(res.Increases, row)
		case row.Delta < 0:
			res.Decreases = append(res.Decreases, row)
		}
	}
	sort.SliceStable(res.Increases, func(i, j int) bool {
		a, b := res.Increases[i], res.Increases[j]
		if a.Delta == b.Delta {
			return a.Token < b.Token
		}
		return a.Delta > b.Delta
	})
	sort.SliceStable(res.Decreases, func(i, j int) bool {
		a, b := res.Decreases[i], res.Decreases[j]
		if a.Delta == b.Delta {
			return a.Token < b.Token
		}
		return a.Delta < b.Delta
	})
	if topK > 0 {
		if len(res.Increases) > topK {
			res.Increases = res.Increases[:topK]
		}
		if len(res.Decreases) > topK {
			res.Decreases = res.Decreases[:topK]
		}
	}
	return res, nil
}
