package linear

import (
	"fmt"

	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"gonum.org/v1/gonum/mat"
)

// RidgeRegression is a closed form l2 penalised least squares fit of the 0/1 targets.
// Scores are on the linear scale.
type RidgeRegression struct {
	lambda float64
	w      []float64
	b      float64
	fitted bool
}

// NewRidge creates a new ridge regression.
func NewRidge(lambda float64) *RidgeRegression {
	return &RidgeRegression{lambda: lambda}
}

func (r *RidgeRegression) Fit(x mat.Matrix, y []float64) error {
	if err := check(x, y); err != nil {
		return err
	}
	b, w, err := cvmath.Ridge(x, y, r.lambda)
	if err != nil {
		return err
	}
	if err := finite("coefficients", append([]float64{b}, w...)); err != nil {
		return err
	}
	r.b = b
	r.w = w
	r.fitted = true
	return nil
}

func (r *RidgeRegression) Predict(x mat.Matrix) ([]float64, error) {
	if !r.fitted {
		return nil, fmt.Errorf("model not fitted")
	}
	return linearScores(x, r.w, r.b)
}

func (r *RidgeRegression) Weights() []float64 {
	return append([]float64{}, r.w...)
}

func (r *RidgeRegression) Intercept() float64 {
	return r.b
}
