package model

import (
	"fmt"
	"sort"
)

// Predictions holds the out-of-fold score of each sample.
// Every sample can be written only once.
type Predictions struct {
	scores map[string]float64
	folds  map[string]int
}

// NewPredictions creates an empty prediction record.
func NewPredictions() *Predictions {
	return &Predictions{
		scores: make(map[string]float64),
		folds:  make(map[string]int),
	}
}

// Set records the score of the sample, as produced by the given fold.
func (p *Predictions) Set(id string, fold int, score float64) error {
	if f, ok := p.folds[id]; ok {
		return fmt.Errorf("sample '%s' already predicted by fold %d, rejected write from fold %d", id, f, fold)
	}
	p.scores[id] = score
	p.folds[id] = fold
	return nil
}

// Get returns the score of the given sample.
func (p *Predictions) Get(id string) (float64, bool) {
	s, ok := p.scores[id]
	return s, ok
}

// Fold returns the fold that predicted the given sample.
func (p *Predictions) Fold(id string) (int, bool) {
	f, ok := p.folds[id]
	return f, ok
}

// Len returns the number of predicted samples.
func (p *Predictions) Len() int {
	return len(p.scores)
}

// IDs returns the predicted sample ids, sorted.
func (p *Predictions) IDs() []string {
	ids := make([]string, 0, len(p.scores))
	for id := range p.scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Scores returns a copy of the scores keyed by sample id.
func (p *Predictions) Scores() map[string]float64 {
	ss := make(map[string]float64, len(p.scores))
	for id, s := range p.scores {
		ss[id] = s
	}
	return ss
}

// Artifact holds the coefficients fitted by one fold.
type Artifact struct {
	Fold      int                `json:"fold"`
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

// NewArtifact pairs the given weights with their feature names.
func NewArtifact(fold int, features []string, weights []float64, intercept float64) (*Artifact, error) {
	if len(features) != len(weights) {
		return nil, fmt.Errorf("inconsistent coefficients for fold %d: %d weights for %d features", fold, len(weights), len(features))
	}
	ww := make(map[string]float64, len(features))
	for j, f := range features {
		ww[f] = weights[j]
	}
	return &Artifact{
		Fold:      fold,
		Intercept: intercept,
		Weights:   ww,
	}, nil
}

// Weight returns the weight of the feature, 0 if the model does not use it.
func (a *Artifact) Weight(feature string) float64 {
	return a.Weights[feature]
}

// NonZero returns the number of features with a non-zero weight.
func (a *Artifact) NonZero() int {
	var n int
	for _, w := range a.Weights {
		if w != 0 {
			n++
		}
	}
	return n
}
