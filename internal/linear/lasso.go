package linear

import (
	"fmt"
	"math"

	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"gonum.org/v1/gonum/mat"
)

// minWeight bounds the irls weights p(1-p) away from 0 for (nearly) separable data.
const minWeight = 1e-5

// LassoLogistic is an l1 penalised logistic regression.
// It minimises -loglik/n + lambda*|w| with iteratively reweighted least squares,
// solving each weighted problem by cyclic coordinate descent.
// The intercept is not penalised.
type LassoLogistic struct {
	lambda    float64
	maxIter   int
	tolerance float64
	w         []float64
	b         float64
	fitted    bool
}

// NewLasso creates a new lasso logistic regression.
func NewLasso(lambda float64, maxIter int, tolerance float64) *LassoLogistic {
	return &LassoLogistic{
		lambda:    lambda,
		maxIter:   maxIter,
		tolerance: tolerance,
	}
}

func (l *LassoLogistic) Fit(x mat.Matrix, y []float64) error {
	if err := check(x, y); err != nil {
		return err
	}
	n, p := x.Dims()
	nf := float64(n)

	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}

	var ybar float64
	for _, v := range y {
		ybar += v
	}
	ybar = clamp(ybar / nf)

	w := make([]float64, p)
	b := math.Log(ybar / (1 - ybar))
	eta := make([]float64, n)
	for i := range eta {
		eta[i] = b
	}

	weights := make([]float64, n)
	z := make([]float64, n)
	r := make([]float64, n)
	prev := make([]float64, p)

	for outer := 0; outer < l.maxIter; outer++ {
		copy(prev, w)
		prevB := b
		var sw float64
		for i := 0; i < n; i++ {
			pi := clamp(cvmath.Sigmoid(eta[i]))
			weights[i] = pi * (1 - pi)
			z[i] = eta[i] + (y[i]-pi)/weights[i]
			r[i] = z[i] - eta[i]
			sw += weights[i]
		}

		curvature := make([]float64, p)
		for j, xj := range cols {
			var c float64
			for i, v := range xj {
				c += weights[i] * v * v
			}
			curvature[j] = c / nf
		}

		for inner := 0; inner < l.maxIter; inner++ {
			var delta float64

			var db float64
			for i := 0; i < n; i++ {
				db += weights[i] * r[i]
			}
			db /= sw
			b += db
			for i := range r {
				r[i] -= db
			}
			delta = math.Abs(db)

			for j, xj := range cols {
				if curvature[j] == 0 {
					continue
				}
				var g float64
				for i, v := range xj {
					g += weights[i] * v * r[i]
				}
				g = g/nf + curvature[j]*w[j]
				nw := cvmath.SoftThreshold(g, l.lambda) / curvature[j]
				d := nw - w[j]
				if d == 0 {
					continue
				}
				for i, v := range xj {
					r[i] -= v * d
				}
				w[j] = nw
				if math.Abs(d) > delta {
					delta = math.Abs(d)
				}
			}
			if delta < l.tolerance {
				break
			}
		}

		for i := range eta {
			eta[i] = z[i] - r[i]
		}

		change := math.Abs(b - prevB)
		for j := range w {
			if d := math.Abs(w[j] - prev[j]); d > change {
				change = d
			}
		}
		if change < l.tolerance {
			break
		}
	}

	if err := finite("coefficients", append([]float64{b}, w...)); err != nil {
		return fmt.Errorf("lasso did not converge: %w", err)
	}
	l.w = w
	l.b = b
	l.fitted = true
	return nil
}

func (l *LassoLogistic) Predict(x mat.Matrix) ([]float64, error) {
	if !l.fitted {
		return nil, fmt.Errorf("model not fitted")
	}
	scores, err := linearScores(x, l.w, l.b)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		scores[i] = cvmath.Sigmoid(s)
	}
	return scores, nil
}

func (l *LassoLogistic) Weights() []float64 {
	return append([]float64{}, l.w...)
}

func (l *LassoLogistic) Intercept() float64 {
	return l.b
}

func clamp(p float64) float64 {
	return math.Min(math.Max(p, minWeight), 1-minWeight)
}
