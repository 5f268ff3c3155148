package math

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	// CaseLevel is the label of the positive synthetic samples.
	CaseLevel = "case"
	// ControlLevel is the label of the negative synthetic samples.
	ControlLevel = "control"
)

// Synthetic is a generated set of relative abundance profiles.
type Synthetic struct {
	Samples  []string
	Features []string
	// Values holds one profile per sample, each summing up to 1.
	Values [][]float64
	Labels map[string]string
	// Baseline is a noisy score correlated with the label, mimicking a clinical test.
	Baseline map[string]float64
}

// rarity is the log offset of the informative taxa, keeping them a small share of the
// profile so that their enrichment survives the closure to 1.
const rarity = 3.0

// Compositional generates n profiles over the given number of features.
// Samples alternate between case and control. The first informative features are rare,
// always present and enriched in the cases by exp(effect). About a fifth of the other
// abundances are zero.
func Compositional(n, features, informative int, effect float64, seed int64) Synthetic {
	rnd := rand.New(rand.NewSource(seed))

	s := Synthetic{
		Samples:  make([]string, n),
		Features: make([]string, features),
		Values:   make([][]float64, n),
		Labels:   make(map[string]string, n),
		Baseline: make(map[string]float64, n),
	}
	for j := 0; j < features; j++ {
		s.Features[j] = fmt.Sprintf("taxon_%03d", j)
	}

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sample_%03d", i)
		positive := i%2 == 0
		row := make([]float64, features)
		var total float64
		for j := 0; j < features; j++ {
			mu := -0.1 * float64(j)
			if j < informative {
				mu -= rarity
				if positive {
					mu += effect
				}
			} else if rnd.Float64() < 0.2 {
				continue
			}
			v := math.Exp(1.5*rnd.NormFloat64() + mu)
			row[j] = v
			total += v
		}
		if total > 0 {
			for j := range row {
				row[j] /= total
			}
		}
		s.Samples[i] = id
		s.Values[i] = row
		level := ControlLevel
		score := rnd.NormFloat64()
		if positive {
			level = CaseLevel
			score += 1
		}
		s.Labels[id] = level
		s.Baseline[id] = score
	}
	return s
}
