// Package recipe defines the immutable record shape consumed by the
// analysis core together with the partitions (dimensions) and attribute
// accessors (metrics, fields) the core groups and measures by.
package recipe

import (
	"fmt"
	"strings"
)

// Record is one recipe/interaction with its date already resolved into
// year, season and weekday flag. Nil numeric pointers are nulls.
type Record struct {
	ID        string `json:"id"`
	Year      int    `json:"year"`
	Season    Season `json:"season"`
	IsWeekend bool   `json:"is_weekend"`

	Minutes          *float64 `json:"minutes,omitempty"`
	NSteps           *float64 `json:"n_steps,omitempty"`
	NIngredients     *float64 `json:"n_ingredients,omitempty"`
	ComplexityScore  *float64 `json:"complexity_score,omitempty"`
	Calories         *float64 `json:"calories,omitempty"`
	TotalFatPct      *float64 `json:"total_fat_pct,omitempty"`
	SugarPct         *float64 `json:"sugar_pct,omitempty"`
	SodiumPct        *float64 `json:"sodium_pct,omitempty"`
	ProteinPct       *float64 `json:"protein_pct,omitempty"`
	SaturatedFatPct  *float64 `json:"saturated_fat_pct,omitempty"`
	CarbohydratesPct *float64 `json:"carbohydrates_pct,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`

	Ingredients []string `json:"ingredients,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Float returns a pointer to v; convenient for building records in code.
func Float(v float64) *float64 { return &v }

// Season is the meteorological season a recipe was posted in.
type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
)

// Seasons lists seasons in analysis order.
var Seasons = []Season{Winter, Spring, Summer, Autumn}

// ordinal returns the position of s in Seasons, or -1.
func (s Season) ordinal() int {
	for i, v := range Seasons {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool { return s.ordinal() >= 0 }

// ParseSeason accepts any casing and "fall" as an alias of Autumn.
func ParseSeason(s string) (Season, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "winter":
		return Winter, nil
	case "spring":
		return Spring, nil
	case "summer":
		return Summer, nil
	case "autumn", "fall":
		return Autumn, nil
	}
	return "", &InputError{Field: "season", Reason: fmt.Sprintf("unknown season %q", s)}
}

// SeasonOfMonth maps a calendar month (1-12) to its northern-hemisphere season.
func SeasonOfMonth(month int) (Season, error) {
	switch month {
	case 12, 1, 2:
		return Winter, nil
	case 3, 4, 5:
		return Spring, nil
	case 6, 7, 8:
		return Summer, nil
	case 9, 10, 11:
		return Autumn, nil
	}
	return "", &InputError{Field: "month", Reason: fmt.Sprintf("month %d out of range", month)}
}
