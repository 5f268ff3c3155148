package linear

import (
	"fmt"
	"io"

	"github.com/cdipaolo/goml/base"
	golinear "github.com/cdipaolo/goml/linear"
	"gonum.org/v1/gonum/mat"
)

// GradientLogistic is an l2 penalised logistic regression trained with batch gradient ascent.
type GradientLogistic struct {
	lambda  float64
	rate    float64
	maxIter int
	model   *golinear.Logistic
	p       int
}

// NewLogistic creates a new gradient based logistic regression.
func NewLogistic(lambda, rate float64, maxIter int) *GradientLogistic {
	return &GradientLogistic{
		lambda:  lambda,
		rate:    rate,
		maxIter: maxIter,
	}
}

func (g *GradientLogistic) Fit(x mat.Matrix, y []float64) error {
	if err := check(x, y); err != nil {
		return err
	}
	_, p := x.Dims()
	model := golinear.NewLogistic(base.BatchGA, g.rate, g.lambda, g.maxIter, rows(x), append([]float64{}, y...))
	model.Output = io.Discard
	if err := model.Learn(); err != nil {
		return fmt.Errorf("could not train logistic regression: %w", err)
	}
	if len(model.Parameters) != p+1 {
		return fmt.Errorf("unexpected number of parameters %d for %d features", len(model.Parameters), p)
	}
	if err := finite("coefficients", model.Parameters); err != nil {
		return err
	}
	g.model = model
	g.p = p
	return nil
}

func (g *GradientLogistic) Predict(x mat.Matrix) ([]float64, error) {
	if g.model == nil {
		return nil, fmt.Errorf("model not fitted")
	}
	n, p := x.Dims()
	if p != g.p {
		return nil, fmt.Errorf("inconsistent dimensions %d columns for %d weights", p, g.p)
	}
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		out, err := g.model.Predict(mat.Row(nil, i, x))
		if err != nil {
			return nil, fmt.Errorf("could not predict row %d: %w", i, err)
		}
		scores[i] = out[0]
	}
	return scores, nil
}

func (g *GradientLogistic) Weights() []float64 {
	if g.model == nil {
		return []float64{}
	}
	return append([]float64{}, g.model.Parameters[1:]...)
}

func (g *GradientLogistic) Intercept() float64 {
	if g.model == nil {
		return 0
	}
	return g.model.Parameters[0]
}
