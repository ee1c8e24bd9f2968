package recipe

import (
	"fmt"
	"math"
)

// Metric names a scalar, possibly-null attribute of a Record.
type Metric string

const (
	Minutes          Metric = "minutes"
	NSteps           Metric = "n_steps"
	NIngredients     Metric = "n_ingredients"
	ComplexityScore  Metric = "complexity_score"
	Calories         Metric = "calories"
	TotalFatPct      Metric = "total_fat_pct"
	SugarPct         Metric = "sugar_pct"
	SodiumPct        Metric = "sodium_pct"
	ProteinPct       Metric = "protein_pct"
	SaturatedFatPct  Metric = "saturated_fat_pct"
	CarbohydratesPct Metric = "carbohydrates_pct"
	Rating           Metric = "rating"
)

// Metrics lists every scalar metric.
var Metrics = []Metric{
	Minutes, NSteps, NIngredients, ComplexityScore, Calories,
	TotalFatPct, SugarPct, SodiumPct, ProteinPct, SaturatedFatPct, CarbohydratesPct,
	Rating,
}

func (m Metric) ptr(r Record) (*float64, bool) {
	switch m {
	case Minutes:
		return r.Minutes, true
	case NSteps:
		return r.NSteps, true
	case NIngredients:
		return r.NIngredients, true
	case ComplexityScore:
		return r.ComplexityScore, true
	case Calories:
		return r.Calories, true
	case TotalFatPct:
		return r.TotalFatPct, true
	case SugarPct:
		return r.SugarPct, true
	case SodiumPct:
		return r.SodiumPct, true
	case ProteinPct:
		return r.ProteinPct, true
	case SaturatedFatPct:
		return r.SaturatedFatPct, true
	case CarbohydratesPct:
		return r.CarbohydratesPct, true
	case Rating:
		return r.Rating, true
	}
	return nil, false
}

// Known reports whether m is a recognized metric.
func (m Metric) Known() bool {
	_, ok := m.ptr(Record{})
	return ok
}

// Value returns the metric value of r; ok is false for nulls and NaN.
func (m Metric) Value(r Record) (v float64, ok bool) {
	p, _ := m.ptr(r)
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}

// Set assigns v to metric m on r and reports whether m is known.
func (m Metric) Set(r *Record, v *float64) bool {
	switch m {
	case Minutes:
		r.Minutes = v
	case NSteps:
		r.NSteps = v
	case NIngredients:
		r.NIngredients = v
	case ComplexityScore:
		r.ComplexityScore = v
	case Calories:
		r.Calories = v
	case TotalFatPct:
		r.TotalFatPct = v
	case SugarPct:
		r.SugarPct = v
	case SodiumPct:
		r.SodiumPct = v
	case ProteinPct:
		r.ProteinPct = v
	case SaturatedFatPct:
		r.SaturatedFatPct = v
	case CarbohydratesPct:
		r.CarbohydratesPct = v
	case Rating:
		r.Rating = v
	default:
		return false
	}
	return true
}

// Field names a multi-valued attribute of a Record.
type Field string

const (
	Ingredients Field = "ingredients"
	Tags        Field = "tags"
)

// Values returns the raw tokens of field f.
func (f Field) Values(r Record) ([]string, error) {
	switch f {
	case Ingredients:
		return r.Ingredients, nil
	case Tags:
		return r.Tags, nil
	}
	return nil, &InputError{Field: "field", Reason: fmt.Sprintf("unknown multi-valued field %q", f)}
}

// Family groups metrics (or a field) that are analysed together.
type Family string

const (
	FamilyVolume      Family = "volume"
	FamilyDuration    Family = "duration"
	FamilyComplexity  Family = "complexity"
	FamilyNutrition   Family = "nutrition"
	FamilyRating      Family = "rating"
	FamilyIngredients Family = "ingredients"
	FamilyTags        Family = "tags"
)

// Families lists all families in report order.
var Families = []Family{
	FamilyVolume, FamilyDuration, FamilyComplexity, FamilyNutrition,
	FamilyRating, FamilyIngredients, FamilyTags,
}

// ParseFamily accepts canonical family names.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families {
		if string(f) == s {
			return f, nil
		}
	}
	switch s {
	case "ingredient-frequency", "ingredient":
		return FamilyIngredients, nil
	case "tag-frequency", "tag":
		return FamilyTags, nil
	}
	return "", &InputError{Field: "family", Reason: fmt.Sprintf("unknown metric family %q", s)}
}

// Metrics returns the scalar metrics of a numeric family; nil otherwise.
func (f Family) Metrics() []Metric {
	switch f {
	case FamilyDuration:
		return []Metric{Minutes}
	case FamilyComplexity:
		return []Metric{NSteps, NIngredients, ComplexityScore}
	case FamilyNutrition:
		return []Metric{Calories, TotalFatPct, SugarPct, SodiumPct, ProteinPct, SaturatedFatPct, CarbohydratesPct}
	case FamilyRating:
		return []Metric{Rating}
	}
	return nil
}

// Field returns the multi-valued field of a token family.
func (f Family) Field() (Field, bool) {
	switch f {
	case FamilyIngredients:
		return Ingredients, true
	case FamilyTags:
		return Tags, true
	}
	return "", false
}
