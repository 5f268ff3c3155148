// Package importance summarises the fold coefficients into a single ranking of the features.
package importance

import (
	"math"
	"sort"

	"github.com/drakos74/microbe-cv/internal/buffer"
	"github.com/drakos74/microbe-cv/internal/model"
)

// Importance is the mean weight of each feature across the folds.
type Importance map[string]float64

// Ranked is a feature with its importance.
type Ranked struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Stat summarises the weights of a feature across the folds.
type Stat struct {
	Mean  float64 `json:"mean"`
	StDev float64 `json:"sd"`
	// Selected is the number of folds with a non-zero weight.
	Selected int `json:"selected"`
	Folds    int `json:"folds"`
}

// Aggregate averages the weights of the given artifacts.
// Nil artifacts belong to failed folds and are ignored.
// A feature absent from an artifact counts as a zero weight.
func Aggregate(artifacts []*model.Artifact) Importance {
	folds := valid(artifacts)
	imp := make(Importance)
	if len(folds) == 0 {
		return imp
	}
	for _, a := range folds {
		for f, w := range a.Weights {
			imp[f] += w
		}
	}
	for f := range imp {
		imp[f] /= float64(len(folds))
	}
	return imp
}

// TopK returns the k features with the largest absolute importance.
// Ties are broken by feature name.
func TopK(imp Importance, k int) []Ranked {
	ranked := make([]Ranked, 0, len(imp))
	for f, w := range imp {
		ranked = append(ranked, Ranked{Feature: f, Importance: w})
	}
	sort.Slice(ranked, func(i, j int) bool {
		wi := math.Abs(ranked[i].Importance)
		wj := math.Abs(ranked[j].Importance)
		if wi != wj {
			return wi > wj
		}
		return ranked[i].Feature < ranked[j].Feature
	})
	if k < 0 {
		k = 0
	}
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Summarize computes the spread and selection frequency of every feature across the folds.
func Summarize(artifacts []*model.Artifact) map[string]Stat {
	folds := valid(artifacts)
	features := make(map[string]struct{})
	for _, a := range folds {
		for f := range a.Weights {
			features[f] = struct{}{}
		}
	}
	stats := make(map[string]Stat, len(features))
	for f := range features {
		s := buffer.NewStats()
		for _, a := range folds {
			s.Push(a.Weight(f))
		}
		stats[f] = Stat{
			Mean:     s.Avg(),
			StDev:    s.SampleStDev(),
			Selected: s.NonZero(),
			Folds:    s.Count(),
		}
	}
	return stats
}

func valid(artifacts []*model.Artifact) []*model.Artifact {
	aa := make([]*model.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a != nil {
			aa = append(aa, a)
		}
	}
	return aa
}
