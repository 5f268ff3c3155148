package math

import (
	"math"
	"strconv"
)

// Format formats a float based on the given precision
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// Sigmoid is the logistic function.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	// NOTE : avoids overflow of exp for large negative values
	e := math.Exp(z)
	return e / (1 + e)
}

// SoftThreshold shrinks z towards 0 by gamma, returning 0 inside the [-gamma, gamma] band.
func SoftThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	}
	return 0
}

// Log10 returns the decimal logarithm of the value shifted by the pseudocount.
func Log10(v, pseudocount float64) float64 {
	return math.Log10(v + pseudocount)
}

// Finite checks that none of the values is NaN or infinite.
func Finite(ff ...float64) bool {
	for _, f := range ff {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ToInt truncates the given floats.
func ToInt(ff []float64) []int {
	ii := make([]int, len(ff))
	for i, f := range ff {
		ii[i] = int(f)
	}
	return ii
}
