package recipe

import (
	"fmt"
	"sort"
	"strconv"
)

// GroupKey is a partition value. Ordinal fixes the order shared by
// aggregation, regression, variation and reporting; for years it is the
// year itself so it doubles as the regression abscissa.
type GroupKey struct {
	Label   string `json:"label"`
	Ordinal int    `json:"ordinal"`
}

func (k GroupKey) String() string { return k.Label }

// Period keys.
var (
	Weekday = GroupKey{Label: "Weekday", Ordinal: 0}
	Weekend = GroupKey{Label: "Weekend", Ordinal: 1}
)

// YearKey returns the key of a calendar year.
func YearKey(year int) GroupKey { return GroupKey{Label: strconv.Itoa(year), Ordinal: year} }

// SeasonKey returns the key of a season.
func SeasonKey(s Season) GroupKey { return GroupKey{Label: string(s), Ordinal: s.ordinal()} }

// Dimension is a way of partitioning records.
type Dimension string

const (
	DimYear   Dimension = "year"
	DimSeason Dimension = "season"
	DimPeriod Dimension = "period"
)

// Dimensions lists all dimensions in report order.
var Dimensions = []Dimension{DimYear, DimSeason, DimPeriod}

// ParseDimension accepts the canonical names plus a few aliases.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "year", "years":
		return DimYear, nil
	case "season", "seasons":
		return DimSeason, nil
	case "period", "weekday", "weekend", "weekday/weekend":
		return DimPeriod, nil
	}
	return "", &InputError{Field: "dimension", Reason: fmt.Sprintf("unknown dimension %q", s)}
}

// Ordered reports whether keys of d lie on a numeric scale suitable for
// trend fitting. Only years do.
func (d Dimension) Ordered() bool { return d == DimYear }

// KeyOf returns the group r belongs to under d.
func (d Dimension) KeyOf(r Record) (GroupKey, error) {
	switch d {
	case DimYear:
		if r.Year <= 0 {
			return GroupKey{}, &InputError{Field: "year", Reason: fmt.Sprintf("record %q has year %d", r.ID, r.Year)}
		}
		return YearKey(r.Year), nil
	case DimSeason:
		if !r.Season.Valid() {
			return GroupKey{}, &InputError{Field: "season", Reason: fmt.Sprintf("record %q has season %q", r.ID, r.Season)}
		}
		return SeasonKey(r.Season), nil
	case DimPeriod:
		if r.IsWeekend {
			return Weekend, nil
		}
		return Weekday, nil
	}
	return GroupKey{}, &InputError{Field: "dimension", Reason: fmt.Sprintf("unknown dimension %q", d)}
}

// Keys returns the distinct keys present in records, ordered by Ordinal.
func (d Dimension) Keys(records []Record) ([]GroupKey, error) {
	seen := make(map[GroupKey]struct{})
	for _, r := range records {
		k, err := d.KeyOf(r)
		if err != nil {
			return nil, err
		}
		seen[k] = struct{}{}
	}
	return SortKeys(seen), nil
}

// SortKeys returns the keys of m ordered by Ordinal, then Label.
func SortKeys[V any](m map[GroupKey]V) []GroupKey {
	keys := make([]GroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Ordinal == keys[j].Ordinal {
			return keys[i].Label < keys[j].Label
		}
		return keys[i].Ordinal < keys[j].Ordinal
	})
	return keys
}
