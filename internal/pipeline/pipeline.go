// Package pipeline runs the cross validation of a feature matrix end to end
// and trains the final model for scoring new cohorts.
package pipeline

import (
	"context"
	"fmt"

	"github.com/drakos74/microbe-cv/internal/cv"
	"github.com/drakos74/microbe-cv/internal/fold"
	"github.com/drakos74/microbe-cv/internal/importance"
	"github.com/drakos74/microbe-cv/internal/linear"
	"github.com/drakos74/microbe-cv/internal/metrics"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/normalize"
	"github.com/drakos74/microbe-cv/internal/roc"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTopK is the number of ranked features reported by default.
	DefaultTopK = 20
	// ModelPredictor labels the auc of the cross validated model.
	ModelPredictor = "model"
	// BaselinePredictor labels the auc of the reference scores.
	BaselinePredictor = "baseline"
)

// Config defines the pipeline config.
// FilterCutoff removes the features whose maximum abundance is below it, 0 keeps all features.
// TopK is the number of ranked features in the report.
type Config struct {
	CV           cv.Config `json:"cv" yaml:"cv"`
	FilterCutoff float64   `json:"filter_cutoff" yaml:"filter_cutoff"`
	TopK         int       `json:"top_k" yaml:"top_k"`
}

// DefaultConfig returns the default pipeline config.
func DefaultConfig() Config {
	return Config{
		CV:   cv.DefaultConfig(),
		TopK: DefaultTopK,
	}
}

// Validate fills in the defaults and checks the config.
func (c Config) Validate() (Config, error) {
	cfg, err := c.CV.Validate()
	if err != nil {
		return c, err
	}
	c.CV = cfg
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.TopK < 0 {
		return c, fmt.Errorf("negative top k: %d", c.TopK)
	}
	if c.FilterCutoff < 0 {
		return c, fmt.Errorf("negative abundance cutoff: %v", c.FilterCutoff)
	}
	return c, nil
}

// Report is the outcome of a cross validation run.
type Report struct {
	RunID    string   `json:"run"`
	Config   Config   `json:"config"`
	Samples  int      `json:"samples"`
	Features int      `json:"features"`
	Filtered []string `json:"filtered"`
	// Folds maps every sample to the fold holding it out.
	Folds       map[string]int     `json:"folds"`
	Predictions map[string]float64 `json:"predictions"`
	Failures    []cv.Failure       `json:"failures"`
	Missing     []string           `json:"missing"`
	// Partial marks a run that completed with samples left without predictions.
	Partial    bool                       `json:"partial"`
	ROC        *roc.Curve                 `json:"roc"`
	Importance importance.Importance      `json:"importance"`
	Top        []importance.Ranked        `json:"top"`
	Stats      map[string]importance.Stat `json:"stats"`
	Comparison *roc.Comparison            `json:"comparison,omitempty"`
	Artifacts  []*model.Artifact          `json:"artifacts"`
	Params     *normalize.Params          `json:"params,omitempty"`
}

// Run cross validates the model on the given matrix and evaluates the out-of-fold predictions.
// baseline holds optional reference scores, compared against the model on the common samples.
func Run(ctx context.Context, cfg Config, matrix *model.Matrix, labels *model.Labels, baseline map[string]float64) (*Report, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ds, filtered, err := prepare(cfg, matrix, labels)
	if err != nil {
		return nil, err
	}

	assignment, err := assign(cfg.CV, ds)
	if err != nil {
		return nil, fmt.Errorf("could not assign folds: %w", err)
	}

	factory, err := linear.New(cfg.CV.Model)
	if err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}

	orchestrator, err := cv.New(cfg.CV)
	if err != nil {
		return nil, err
	}

	result, err := orchestrator.Run(ctx, ds, assignment, factory)
	if err != nil {
		return nil, err
	}

	samples, features := ds.Matrix.Dims()
	report := &Report{
		RunID:       result.RunID,
		Config:      cfg,
		Samples:     samples,
		Features:    features,
		Filtered:    filtered,
		Folds:       assignment.Folds(),
		Predictions: result.Predictions.Scores(),
		Failures:    result.Failures,
		Missing:     result.Missing,
		Partial:     len(result.Missing) > 0,
		Artifacts:   result.Artifacts,
		Params:      result.Params,
	}

	_, scores, positive, err := roc.Join(report.Predictions, labels)
	if err != nil {
		return nil, err
	}
	curve, err := roc.Evaluate(scores, positive)
	if err != nil {
		return nil, fmt.Errorf("could not evaluate predictions of run %s: %w", result.RunID, err)
	}
	report.ROC = curve
	metrics.Observer.AUC(ModelPredictor, curve.AUC)

	report.Importance = importance.Aggregate(result.Artifacts)
	report.Top = importance.TopK(report.Importance, cfg.TopK)
	report.Stats = importance.Summarize(result.Artifacts)

	if len(baseline) > 0 {
		cmp, err := roc.Compare(report.Predictions, baseline, labels)
		if err != nil {
			return nil, fmt.Errorf("could not compare with baseline: %w", err)
		}
		report.Comparison = cmp
		metrics.Observer.AUC(BaselinePredictor, cmp.Baseline.AUC)
	}

	l := log.Info().
		Str("run", report.RunID).
		Float64("auc", curve.AUC).
		Int("positives", curve.Positives).
		Int("negatives", curve.Negatives).
		Bool("partial", report.Partial)
	if report.Comparison != nil {
		l = l.Float64("baseline", report.Comparison.Baseline.AUC)
	}
	l.Msg("evaluated run")

	return report, nil
}

// prepare joins the features with the labels and applies the abundance filter.
func prepare(cfg Config, matrix *model.Matrix, labels *model.Labels) (*model.Dataset, []string, error) {
	ds, err := model.Join(matrix, labels)
	if err != nil {
		return nil, nil, err
	}
	filtered, removed, err := normalize.FilterAbundance(ds.Matrix, cfg.FilterCutoff)
	if err != nil {
		return nil, nil, err
	}
	if len(removed) == 0 {
		return ds, removed, nil
	}
	log.Info().
		Float64("cutoff", cfg.FilterCutoff).
		Int("removed", len(removed)).
		Msg("filtered low abundance features")
	ds, err = model.Join(filtered, labels)
	if err != nil {
		return nil, nil, err
	}
	return ds, removed, nil
}

func assign(cfg cv.Config, ds *model.Dataset) (*fold.Assignment, error) {
	if cfg.Stratify {
		return fold.AssignStratified(ds.Matrix.Samples(), ds.Classes(), cfg.Folds, cfg.Seed)
	}
	return fold.Assign(ds.Matrix.Samples(), cfg.Folds, cfg.Seed)
}
