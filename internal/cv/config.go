package cv

import (
	"fmt"

	"github.com/drakos74/microbe-cv/internal/linear"
	"github.com/drakos74/microbe-cv/internal/normalize"
)

// Policy defines where the normalization parameters are fit.
type Policy string

const (
	// Global fits the normalization once on all samples before splitting.
	// NOTE : this leaks population statistics of the held-out samples into training.
	Global Policy = "global"
	// PerFold fits the normalization on the training partition of each fold only.
	PerFold Policy = "per_fold"
)

// OnFailure defines how fold local failures are handled.
type OnFailure string

const (
	// Abort fails the whole run if any fold fails.
	Abort OnFailure = "abort"
	// Skip completes the run, leaving the samples of the failed folds without predictions.
	Skip OnFailure = "skip"
)

// Config defines the cross validation config.
// Folds is the number of folds.
// Seed drives the fold assignment.
// Normalize selects the normalization policy.
// Workers bounds the number of folds running in parallel, 0 runs all folds in parallel.
// Stratify balances the classes across folds.
// Model is passed as is to the model factory.
type Config struct {
	Folds       int                  `json:"folds" yaml:"folds"`
	Seed        int64                `json:"seed" yaml:"seed"`
	Normalize   Policy               `json:"normalize" yaml:"normalize"`
	Pseudocount float64              `json:"pseudocount" yaml:"pseudocount"`
	Degenerate  normalize.Degenerate `json:"degenerate" yaml:"degenerate"`
	OnFailure   OnFailure            `json:"on_failure" yaml:"on_failure"`
	Workers     int                  `json:"workers" yaml:"workers"`
	Stratify    bool                 `json:"stratify" yaml:"stratify"`
	Model       linear.Config        `json:"model" yaml:"model"`
}

// DefaultConfig returns the default cross validation config.
func DefaultConfig() Config {
	return Config{
		Folds:       10,
		Normalize:   Global,
		Pseudocount: normalize.DefaultPseudocount,
		Degenerate:  normalize.Fail,
		OnFailure:   Abort,
		Model:       linear.DefaultConfig(),
	}
}

// Validate fills in the defaults and checks the config.
func (c Config) Validate() (Config, error) {
	d := DefaultConfig()
	if c.Folds == 0 {
		c.Folds = d.Folds
	}
	if c.Normalize == "" {
		c.Normalize = d.Normalize
	}
	if c.Pseudocount == 0 {
		c.Pseudocount = d.Pseudocount
	}
	if c.Degenerate == "" {
		c.Degenerate = d.Degenerate
	}
	if c.OnFailure == "" {
		c.OnFailure = d.OnFailure
	}
	if c.Folds < 2 {
		return c, fmt.Errorf("need at least 2 folds: %d", c.Folds)
	}
	if c.Pseudocount < 0 {
		return c, fmt.Errorf("pseudocount must be positive: %v", c.Pseudocount)
	}
	if c.Workers < 0 {
		return c, fmt.Errorf("negative number of workers: %d", c.Workers)
	}
	switch c.Normalize {
	case Global, PerFold:
	default:
		return c, fmt.Errorf("unknown normalization policy '%s'", c.Normalize)
	}
	switch c.OnFailure {
	case Abort, Skip:
	default:
		return c, fmt.Errorf("unknown failure policy '%s'", c.OnFailure)
	}
	switch c.Degenerate {
	case normalize.Fail, normalize.Drop, normalize.Zero:
	default:
		return c, fmt.Errorf("unknown degenerate feature policy '%s'", c.Degenerate)
	}
	return c, nil
}

// NormalizeOptions returns the normalization options of the config.
func (c Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		Pseudocount: c.Pseudocount,
		Degenerate:  c.Degenerate,
	}
}
