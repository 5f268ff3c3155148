package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/drakos74/microbe-cv/internal/cv"
	"github.com/drakos74/microbe-cv/internal/linear"
	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/pipeline"
)

// settings is the file config of the command.
type settings struct {
	pipeline.Config `yaml:",inline"`
	// Positive is the label level of the class of interest.
	Positive string `json:"positive" yaml:"positive"`
}

func defaultSettings() settings {
	return settings{
		Config:   pipeline.DefaultConfig(),
		Positive: cvmath.CaseLevel,
	}
}

// table is the json layout of a feature matrix.
type table struct {
	Samples  []string    `json:"samples"`
	Features []string    `json:"features"`
	Values   [][]float64 `json:"values"`
}

// cohort is a labelled feature matrix with optional baseline scores.
type cohort struct {
	matrix   *model.Matrix
	labels   *model.Labels
	baseline map[string]float64
}

func readJson(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read '%s': %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("could not unmarshal '%s': %w", path, err)
	}
	return nil
}

// load reads the cohort from its feature, label and optional baseline files.
func load(features, labels, baseline, positive string) (*cohort, error) {
	var t table
	if err := readJson(features, &t); err != nil {
		return nil, err
	}
	m, err := model.NewMatrix(t.Samples, t.Features, t.Values)
	if err != nil {
		return nil, fmt.Errorf("invalid feature matrix '%s': %w", features, err)
	}

	levels := make(map[string]string)
	if err := readJson(labels, &levels); err != nil {
		return nil, err
	}
	l, err := model.NewLabels(levels, positive)
	if err != nil {
		return nil, fmt.Errorf("invalid labels '%s': %w", labels, err)
	}

	c := &cohort{matrix: m, labels: l}
	if baseline != "" {
		scores := make(map[string]float64)
		if err := readJson(baseline, &scores); err != nil {
			return nil, err
		}
		c.baseline = scores
	}
	return c, nil
}

// synthetic generates a cohort of n samples.
func synthetic(n, features int, seed int64) (*cohort, error) {
	s := cvmath.Compositional(n, features, 3, 2, seed)
	m, err := model.NewMatrix(s.Samples, s.Features, s.Values)
	if err != nil {
		return nil, err
	}
	l, err := model.NewLabels(s.Labels, cvmath.CaseLevel)
	if err != nil {
		return nil, err
	}
	return &cohort{matrix: m, labels: l, baseline: s.Baseline}, nil
}

// override applies the environment overrides to the settings.
func override(s *settings, env func(string) string) error {
	if v := env("CV_FOLDS"); v != "" {
		folds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CV_FOLDS '%s': %w", v, err)
		}
		s.CV.Folds = folds
	}
	if v := env("CV_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CV_SEED '%s': %w", v, err)
		}
		s.CV.Seed = seed
	}
	if v := env("CV_NORMALIZE"); v != "" {
		s.CV.Normalize = cv.Policy(v)
	}
	if v := env("CV_MODE"); v != "" {
		s.CV.Model.Mode = linear.Mode(v)
	}
	return nil
}
