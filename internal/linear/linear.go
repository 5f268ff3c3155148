package linear

import (
	"fmt"

	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"gonum.org/v1/gonum/mat"
)

// Model defines a classifier fitted on a samples x features matrix with 0/1 targets.
// Implementations score new samples on their native scale e.g. class-1 probability.
type Model interface {
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
	// Weights returns one coefficient per feature column of the fitted matrix.
	Weights() []float64
	Intercept() float64
}

// Factory creates a fresh, unfitted model.
type Factory func() Model

// Mode defines the fitting procedure.
type Mode string

const (
	// Lasso is an l1 penalised logistic regression.
	Lasso Mode = "lasso"
	// Ridge is a closed form l2 penalised least squares fit.
	Ridge Mode = "ridge"
	// Logistic is an l2 penalised logistic regression trained by gradient ascent.
	Logistic Mode = "logistic"
	// Forest is a random forest comparator, exposing feature importances as weights.
	Forest Mode = "forest"
)

// Config defines the model config.
// Lambda is the regularisation strength.
// MaxIter bounds the optimisation iterations and Tolerance the convergence threshold, where applicable.
// Trees is the number of trees for the forest.
type Config struct {
	Mode      Mode    `json:"mode" yaml:"mode"`
	Lambda    float64 `json:"lambda" yaml:"lambda"`
	MaxIter   int     `json:"max_iter" yaml:"max_iter"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	Trees     int     `json:"trees" yaml:"trees"`
	// Rate is the learning rate of the gradient based fit.
	Rate float64 `json:"rate" yaml:"rate"`
}

// DefaultConfig returns the default model config.
func DefaultConfig() Config {
	return Config{
		Mode:      Lasso,
		Lambda:    0.05,
		MaxIter:   100,
		Tolerance: 1e-6,
		Trees:     100,
		Rate:      0.1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.MaxIter == 0 {
		c.MaxIter = d.MaxIter
	}
	if c.Tolerance == 0 {
		c.Tolerance = d.Tolerance
	}
	if c.Trees == 0 {
		c.Trees = d.Trees
	}
	if c.Rate == 0 {
		c.Rate = d.Rate
	}
	return c
}

// New creates the model factory for the given config.
func New(cfg Config) (Factory, error) {
	cfg = cfg.withDefaults()
	if cfg.Lambda < 0 {
		return nil, fmt.Errorf("negative regularisation: %v", cfg.Lambda)
	}
	if cfg.MaxIter < 0 || cfg.Tolerance < 0 || cfg.Trees < 0 || cfg.Rate < 0 {
		return nil, fmt.Errorf("invalid model config: %+v", cfg)
	}
	switch cfg.Mode {
	case Lasso:
		return func() Model {
			return NewLasso(cfg.Lambda, cfg.MaxIter, cfg.Tolerance)
		}, nil
	case Ridge:
		return func() Model {
			return NewRidge(cfg.Lambda)
		}, nil
	case Logistic:
		return func() Model {
			return NewLogistic(cfg.Lambda, cfg.Rate, cfg.MaxIter)
		}, nil
	case Forest:
		return func() Model {
			return NewForest(cfg.Trees)
		}, nil
	}
	return nil, fmt.Errorf("unknown model mode '%s'", cfg.Mode)
}

// check validates the training input.
func check(x mat.Matrix, y []float64) error {
	n, p := x.Dims()
	if n != len(y) {
		return fmt.Errorf("inconsistent dimensions %d rows vs %d targets", n, len(y))
	}
	if n == 0 || p == 0 {
		return fmt.Errorf("empty training set %dx%d", n, p)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("target %d is not binary: %v", i, v)
		}
	}
	return nil
}

// linearScores computes c + x.w for every row.
func linearScores(x mat.Matrix, w []float64, c float64) ([]float64, error) {
	n, p := x.Dims()
	if p != len(w) {
		return nil, fmt.Errorf("inconsistent dimensions %d columns for %d weights", p, len(w))
	}
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		s := c
		for j := 0; j < p; j++ {
			s += x.At(i, j) * w[j]
		}
		scores[i] = s
	}
	return scores, nil
}

func finite(name string, ff []float64) error {
	if !cvmath.Finite(ff...) {
		return fmt.Errorf("non finite %s", name)
	}
	return nil
}

func rows(x mat.Matrix) [][]float64 {
	n, _ := x.Dims()
	rr := make([][]float64, n)
	for i := 0; i < n; i++ {
		rr[i] = mat.Row(nil, i, x)
	}
	return rr
}
