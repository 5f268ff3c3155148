package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	AlignmentErr         = errors.New("misaligned data")
	DegenerateFeatureErr = errors.New("degenerate feature")
	DegenerateFoldErr    = errors.New("degenerate fold")
	UndefinedAUCErr      = errors.New("undefined auc")
	ModelFitErr          = errors.New("model fit failed")
)

// AlignmentError reports the sample ids or feature names that could not be joined.
type AlignmentError struct {
	// Context describes which two sides were joined e.g. 'features/labels'.
	Context string
	// Left holds the keys present only on the left side.
	Left []string
	// Right holds the keys present only on the right side.
	Right []string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: %s: only left %s, only right %s",
		AlignmentErr.Error(), e.Context, list(e.Left), list(e.Right))
}

func (e *AlignmentError) Unwrap() error {
	return AlignmentErr
}

// DegenerateFeatureError lists the features with zero variance.
type DegenerateFeatureError struct {
	Features []string
}

func (e *DegenerateFeatureError) Error() string {
	return fmt.Sprintf("%s: zero variance for %s", DegenerateFeatureErr.Error(), list(e.Features))
}

func (e *DegenerateFeatureError) Unwrap() error {
	return DegenerateFeatureErr
}

// DegenerateFoldError signals a training partition with a single class.
type DegenerateFoldError struct {
	Fold  int
	Class Class
	Size  int
}

func (e *DegenerateFoldError) Error() string {
	return fmt.Sprintf("%s: fold %d trains on %d samples of class %s only",
		DegenerateFoldErr.Error(), e.Fold, e.Size, e.Class)
}

func (e *DegenerateFoldError) Unwrap() error {
	return DegenerateFoldErr
}

// UndefinedAUCError signals an evaluation set without both classes.
type UndefinedAUCError struct {
	Positives int
	Negatives int
}

func (e *UndefinedAUCError) Error() string {
	return fmt.Sprintf("%s: %d positives and %d negatives", UndefinedAUCErr.Error(), e.Positives, e.Negatives)
}

func (e *UndefinedAUCError) Unwrap() error {
	return UndefinedAUCErr
}

// ModelFitError wraps a failure of the pluggable model for the given fold.
// Fold is 0 when the model was fit outside of cross validation.
type ModelFitError struct {
	Fold int
	Err  error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("%s: fold %d: %v", ModelFitErr.Error(), e.Fold, e.Err)
}

// Is matches both the sentinel and the wrapped cause.
func (e *ModelFitError) Is(target error) bool {
	return target == ModelFitErr
}

func (e *ModelFitError) Unwrap() error {
	return e.Err
}

// list prints at most a handful of keys, to keep error messages readable.
func list(ss []string) string {
	const max = 10
	if len(ss) == 0 {
		return "[]"
	}
	if len(ss) > max {
		return fmt.Sprintf("[%s ... +%d]", strings.Join(ss[:max], ","), len(ss)-max)
	}
	return fmt.Sprintf("[%s]", strings.Join(ss, ","))
}
