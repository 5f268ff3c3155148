package math

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Ridge fits the given x and y into a linear function with an l2 penalty on the weights.
// The intercept is not penalised.
// output is the intercept and a vector with the coefficients of the corresponding columns of x
// c[0] + w[0]x[0] + w[1]x[1] + ...
func Ridge(x mat.Matrix, y []float64, lambda float64) (float64, []float64, error) {
	n, p := x.Dims()
	if n != len(y) {
		return 0, nil, fmt.Errorf("inconsistent dimensions %d rows vs %d targets", n, len(y))
	}
	if lambda < 0 {
		return 0, nil, fmt.Errorf("negative penalty: %f", lambda)
	}

	a := augment(x, lambda)
	b := mat.NewDense(n+p, 1, nil)
	for i, v := range y {
		b.Set(i, 0, v)
	}
	c := mat.NewDense(p+1, 1, nil)

	qr := new(mat.QR)
	qr.Factorize(a)

	if err := qr.SolveTo(c, false, b); err != nil {
		return 0, nil, fmt.Errorf("could not solve least squares: %w", err)
	}

	v := c.ColView(0)
	w := make([]float64, p)
	for j := 0; j < p; j++ {
		w[j] = v.AtVec(j + 1)
	}
	return v.AtVec(0), w, nil
}

// augment builds the design matrix [1 x] stacked on top of the penalty block [0 sqrt(n*lambda)I].
func augment(x mat.Matrix, lambda float64) *mat.Dense {
	n, p := x.Dims()
	a := mat.NewDense(n+p, p+1, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			a.Set(i, j+1, x.At(i, j))
		}
	}
	penalty := math.Sqrt(float64(n) * lambda)
	for j := 0; j < p; j++ {
		a.Set(n+j, j+1, penalty)
	}
	return a
}
