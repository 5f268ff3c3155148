// Package roc evaluates binary scores against their true classes.
package roc

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/drakos74/microbe-cv/internal/model"
	"gonum.org/v1/gonum/integrate"
)

// Point is an operating point of the curve.
// Samples with a score greater than or equal to the threshold are called positive.
type Point struct {
	Threshold   float64 `json:"threshold"`
	Specificity float64 `json:"specificity"`
	Sensitivity float64 `json:"sensitivity"`
}

const (
	posInf = "+Inf"
	negInf = "-Inf"
)

type point struct {
	Threshold   json.RawMessage `json:"threshold"`
	Specificity float64         `json:"specificity"`
	Sensitivity float64         `json:"sensitivity"`
}

// MarshalJSON writes the infinite thresholds as "+Inf" and "-Inf".
func (p Point) MarshalJSON() ([]byte, error) {
	var threshold []byte
	var err error
	switch {
	case math.IsInf(p.Threshold, 1):
		threshold, err = json.Marshal(posInf)
	case math.IsInf(p.Threshold, -1):
		threshold, err = json.Marshal(negInf)
	default:
		threshold, err = json.Marshal(p.Threshold)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(point{
		Threshold:   threshold,
		Specificity: p.Specificity,
		Sensitivity: p.Sensitivity,
	})
}

// UnmarshalJSON reads the point, accepting the infinite thresholds as strings.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw point
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var s string
	if err := json.Unmarshal(raw.Threshold, &s); err == nil {
		switch s {
		case posInf:
			p.Threshold = math.Inf(1)
		case negInf:
			p.Threshold = math.Inf(-1)
		default:
			return fmt.Errorf("invalid threshold '%s'", s)
		}
	} else if err := json.Unmarshal(raw.Threshold, &p.Threshold); err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}
	p.Specificity = raw.Specificity
	p.Sensitivity = raw.Sensitivity
	return nil
}

// Curve is the receiver operating characteristic of a set of scores.
type Curve struct {
	// Points run from the +Inf threshold (nothing called positive) to -Inf (everything called positive).
	Points    []Point `json:"points"`
	AUC       float64 `json:"auc"`
	Positives int     `json:"positives"`
	Negatives int     `json:"negatives"`
}

// Best returns the interior operating point maximising the youden index.
func (c *Curve) Best() Point {
	best := c.Points[0]
	j := math.Inf(-1)
	for _, p := range c.Points[1 : len(c.Points)-1] {
		if y := p.Sensitivity + p.Specificity - 1; y > j {
			j = y
			best = p
		}
	}
	return best
}

// Evaluate sweeps the threshold over the distinct scores in descending order.
// Tied scores enter the curve together, as a single operating point.
func Evaluate(scores []float64, positive []bool) (*Curve, error) {
	p, n, err := check(scores, positive)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	points := make([]Point, 0, len(scores)+2)
	points = append(points, Point{Threshold: math.Inf(1), Specificity: 1, Sensitivity: 0})
	var tp, fp int
	for i := 0; i < len(order); {
		threshold := scores[order[i]]
		for ; i < len(order) && scores[order[i]] == threshold; i++ {
			if positive[order[i]] {
				tp++
			} else {
				fp++
			}
		}
		points = append(points, Point{
			Threshold:   threshold,
			Specificity: 1 - float64(fp)/float64(n),
			Sensitivity: float64(tp) / float64(p),
		})
	}
	points = append(points, Point{Threshold: math.Inf(-1), Specificity: 0, Sensitivity: 1})

	fpr := make([]float64, len(points))
	tpr := make([]float64, len(points))
	for i, pt := range points {
		fpr[i] = 1 - pt.Specificity
		tpr[i] = pt.Sensitivity
	}

	return &Curve{
		Points:    points,
		AUC:       integrate.Trapezoidal(fpr, tpr),
		Positives: p,
		Negatives: n,
	}, nil
}

// AUC returns the area under the curve of the given scores.
func AUC(scores []float64, positive []bool) (float64, error) {
	c, err := Evaluate(scores, positive)
	if err != nil {
		return 0, err
	}
	return c.AUC, nil
}

// RankAUC computes the area as the probability that a random positive outscores a random negative,
// counting ties as one half.
func RankAUC(scores []float64, positive []bool) (float64, error) {
	p, n, err := check(scores, positive)
	if err != nil {
		return 0, err
	}
	var concordant float64
	for i, si := range scores {
		if !positive[i] {
			continue
		}
		for j, sj := range scores {
			if positive[j] {
				continue
			}
			switch {
			case si > sj:
				concordant++
			case si == sj:
				concordant += 0.5
			}
		}
	}
	return concordant / (float64(p) * float64(n)), nil
}

func check(scores []float64, positive []bool) (int, int, error) {
	if len(scores) != len(positive) {
		return 0, 0, fmt.Errorf("inconsistent dimensions %d scores for %d labels", len(scores), len(positive))
	}
	var p, n int
	for i, s := range scores {
		if math.IsNaN(s) {
			return 0, 0, fmt.Errorf("score %d is not a number", i)
		}
		if positive[i] {
			p++
		} else {
			n++
		}
	}
	if p == 0 || n == 0 {
		return p, n, &model.UndefinedAUCError{Positives: p, Negatives: n}
	}
	return p, n, nil
}
