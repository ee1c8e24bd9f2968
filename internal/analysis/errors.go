package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/recipetrends/internal/recipe"
)

// InputError is re-exported so callers of the core need a single import.
type InputError = recipe.InputError

// Sentinels for errors.Is matching across wrapped errors.
var (
	ErrInput             = recipe.ErrInput
	ErrEmptyGroup        = errors.New("empty group")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrDegenerate        = errors.New("degenerate regression")
	ErrUndefinedBias     = errors.New("undefined bias")
	ErrZeroGroupSize     = errors.New("group size is zero")
	ErrMismatchedLengths = errors.New("mismatched lengths")
)

// EmptyGroupError reports a group with no non-null values for a metric.
// Expected for sparse partitions.
type EmptyGroupError struct {
	Metric string
	Key    recipe.GroupKey
}

func (e *EmptyGroupError) Error() string {
	return fmt.Sprintf("empty group: %s has no valid %s values", e.Key.Label, e.Metric)
}

func (e *EmptyGroupError) Is(target error) bool { return target == ErrEmptyGroup }

// InsufficientDataError reports fewer observations than an estimator needs.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need at least %d, got %d", e.Op, e.Need, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// DegenerateRegressionError reports an independent variable with zero variance.
type DegenerateRegressionError struct {
	X float64
}

func (e *DegenerateRegressionError) Error() string {
	return fmt.Sprintf("degenerate regression: every x equals %g", e.X)
}

func (e *DegenerateRegressionError) Is(target error) bool { return target == ErrDegenerate }

// UndefinedBiasError reports an unweighted slope of exactly zero, which
// leaves the relative bias of the weighted slope undefined.
type UndefinedBiasError struct {
	WeightedSlope float64
}

func (e *UndefinedBiasError) Error() string {
	return fmt.Sprintf("undefined bias: unweighted slope is 0 (weighted slope %g)", e.WeightedSlope)
}

func (e *UndefinedBiasError) Is(target error) bool { return target == ErrUndefinedBias }

// Kind names an error class for reports.
type Kind string

const (
	KindInput         Kind = "input"
	KindEmptyGroup    Kind = "empty_group"
	KindInsufficient  Kind = "insufficient_data"
	KindDegenerate    Kind = "degenerate_regression"
	KindUndefinedBias Kind = "undefined_bias"
	KindInternal      Kind = "internal"
)

// KindOf classifies err. Unknown errors are KindInternal, i.e. bugs.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput), errors.Is(err, ErrZeroGroupSize), errors.Is(err, ErrMismatchedLengths):
		return KindInput
	case errors.Is(err, ErrEmptyGroup):
		return KindEmptyGroup
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficient
	case errors.Is(err, ErrDegenerate):
		return KindDegenerate
	case errors.Is(err, ErrUndefinedBias):
		return KindUndefinedBias
	}
	return KindInternal
}

func inputErr(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
