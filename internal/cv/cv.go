package cv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/drakos74/microbe-cv/internal/fold"
	"github.com/drakos74/microbe-cv/internal/linear"
	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/metrics"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/normalize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Orchestrator drives the out-of-fold training of a model.
type Orchestrator struct {
	cfg     Config
	metrics *metrics.Metrics
}

// Option configures the orchestrator.
type Option func(o *Orchestrator)

// WithMetrics overrides the default metrics observer.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates a new orchestrator for the given config.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:     cfg,
		metrics: metrics.Observer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the validated config of the orchestrator.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// FoldResult is the outcome of a single fold.
// It is created by the fold task and only read afterwards.
type FoldResult struct {
	Fold  int
	Train []string
	Test  []string
	// Scores are aligned with Test.
	Scores   []float64
	Artifact *model.Artifact
	// Params are the fold normalization parameters, nil for the global policy.
	Params   *normalize.Params
	Duration time.Duration
	Err      error
}

// Failure describes a fold that did not produce predictions.
type Failure struct {
	Fold    int      `json:"fold"`
	Samples []string `json:"samples"`
	Reason  string   `json:"reason"`
	Err     error    `json:"-"`
}

// Result is the merged outcome of a run.
type Result struct {
	RunID       string
	Config      Config
	Predictions *model.Predictions
	// Artifacts holds the coefficients of each fold at index fold-1, nil for failed folds.
	Artifacts []*model.Artifact
	// Params are the global normalization parameters, nil for the per fold policy.
	Params *normalize.Params
	// FoldParams are the per fold normalization parameters at index fold-1.
	FoldParams []*normalize.Params
	Failures   []Failure
	// Missing lists the samples left without predictions, sorted.
	Missing []string
}

// Valid returns true if every fold produced its predictions.
func (r *Result) Valid() bool {
	return len(r.Failures) == 0
}

// Err combines the errors of the failed folds.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

// Run trains a fresh model for every fold of the assignment and scores the held-out samples.
func (o *Orchestrator) Run(ctx context.Context, ds *model.Dataset, assignment *fold.Assignment, factory linear.Factory) (*Result, error) {
	runID := uuid.New().String()
	logger := log.With().Str("run", runID).Logger()

	if assignment.K() != o.cfg.Folds {
		return nil, fmt.Errorf("assignment has %d folds but config expects %d", assignment.K(), o.cfg.Folds)
	}
	if err := aligned(ds, assignment); err != nil {
		return nil, err
	}

	samples, dim := ds.Matrix.Dims()
	logger.Info().
		Int("samples", samples).
		Int("features", dim).
		Int("folds", o.cfg.Folds).
		Str("normalize", string(o.cfg.Normalize)).
		Str("model", string(o.cfg.Model.Mode)).
		Msg("starting cross validation")

	features := ds.Matrix
	var params *normalize.Params
	if o.cfg.Normalize == Global {
		normalized, p, err := normalize.FitTransform(ds.Matrix, o.cfg.NormalizeOptions())
		if err != nil {
			logger.Error().Err(err).Msg("could not normalize features")
			return nil, fmt.Errorf("could not normalize features: %w", err)
		}
		features = normalized
		params = p
	}

	workers := o.cfg.Workers
	if workers == 0 {
		workers = o.cfg.Folds
	}

	// each task writes only its own slot
	results := make([]FoldResult, o.cfg.Folds)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for f := 1; f <= o.cfg.Folds; f++ {
		f := f
		g.Go(func() error {
			r, err := o.fold(gctx, logger, ds, features, assignment, f, factory)
			if err != nil {
				return err
			}
			results[f-1] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("cross validation aborted")
		return nil, err
	}

	result, err := o.merge(runID, assignment, results)
	if err != nil {
		logger.Error().Err(err).Msg("could not merge fold results")
		return nil, err
	}
	result.Params = params

	logger.Info().
		Int("predicted", result.Predictions.Len()).
		Int("missing", len(result.Missing)).
		Int("failures", len(result.Failures)).
		Msg("finished cross validation")

	if !result.Valid() && o.cfg.OnFailure == Abort {
		return nil, fmt.Errorf("cross validation run %s failed: %w", runID, result.Err())
	}
	return result, nil
}

// fold fits and scores a single fold.
// Fold local failures are reported in the result, only fatal errors are returned.
func (o *Orchestrator) fold(ctx context.Context, logger zerolog.Logger, ds *model.Dataset, features *model.Matrix, assignment *fold.Assignment, f int, factory linear.Factory) (FoldResult, error) {
	if err := ctx.Err(); err != nil {
		return FoldResult{}, err
	}
	start := time.Now()
	r := FoldResult{
		Fold:  f,
		Train: assignment.Training(f),
		Test:  assignment.HeldOut(f),
	}

	err := o.fit(&r, ds, features, factory)
	r.Duration = time.Since(start)
	if err != nil {
		return r, fmt.Errorf("fold %d: %w", f, err)
	}

	if r.Err != nil {
		o.metrics.Fold(metrics.Failure, r.Duration)
		logger.Error().
			Err(r.Err).
			Int("fold", f).
			Strs("samples", r.Test).
			Msg("fold failed")
		return r, nil
	}

	o.metrics.Fold(metrics.Success, r.Duration)
	logger.Debug().
		Int("fold", f).
		Int("train", len(r.Train)).
		Int("test", len(r.Test)).
		Int("non-zero", r.Artifact.NonZero()).
		Dur("duration", r.Duration).
		Msg("fold done")
	return r, nil
}

func (o *Orchestrator) fit(r *FoldResult, ds *model.Dataset, features *model.Matrix, factory linear.Factory) error {
	if c, single := singleClass(ds.ClassesOf(r.Train)); single {
		r.Err = &model.DegenerateFoldError{Fold: r.Fold, Class: c, Size: len(r.Train)}
		return nil
	}

	train, err := features.Subset(r.Train)
	if err != nil {
		return err
	}
	test, err := features.Subset(r.Test)
	if err != nil {
		return err
	}

	if o.cfg.Normalize == PerFold {
		params, err := normalize.Fit(train, o.cfg.NormalizeOptions())
		if err != nil {
			return fmt.Errorf("could not normalize training partition: %w", err)
		}
		if train, err = normalize.Transform(train, params); err != nil {
			return err
		}
		if test, err = normalize.Transform(test, params); err != nil {
			return err
		}
		r.Params = params
	}

	m := factory()
	if err := m.Fit(train.Raw(), ds.Targets(r.Train)); err != nil {
		r.Err = &model.ModelFitError{Fold: r.Fold, Err: err}
		return nil
	}
	scores, err := m.Predict(test.Raw())
	if err != nil {
		r.Err = &model.ModelFitError{Fold: r.Fold, Err: fmt.Errorf("could not predict: %w", err)}
		return nil
	}
	if len(scores) != len(r.Test) {
		r.Err = &model.ModelFitError{Fold: r.Fold, Err: fmt.Errorf("%d scores for %d samples", len(scores), len(r.Test))}
		return nil
	}
	for i, s := range scores {
		if !cvmath.Finite(s) {
			r.Err = &model.ModelFitError{Fold: r.Fold, Err: fmt.Errorf("non finite score %v for sample '%s'", s, r.Test[i])}
			return nil
		}
	}
	artifact, err := model.NewArtifact(r.Fold, train.Features(), m.Weights(), m.Intercept())
	if err != nil {
		r.Err = &model.ModelFitError{Fold: r.Fold, Err: err}
		return nil
	}
	r.Scores = scores
	r.Artifact = artifact
	return nil
}

// merge reduces the fold results into a single result, in fold order.
func (o *Orchestrator) merge(runID string, assignment *fold.Assignment, results []FoldResult) (*Result, error) {
	result := &Result{
		RunID:       runID,
		Config:      o.cfg,
		Predictions: model.NewPredictions(),
		Artifacts:   make([]*model.Artifact, len(results)),
		FoldParams:  make([]*normalize.Params, len(results)),
		Failures:    make([]Failure, 0),
		Missing:     make([]string, 0),
	}
	for _, r := range results {
		if r.Err != nil {
			result.Failures = append(result.Failures, Failure{
				Fold:    r.Fold,
				Samples: r.Test,
				Reason:  r.Err.Error(),
				Err:     r.Err,
			})
			result.Missing = append(result.Missing, r.Test...)
			continue
		}
		for i, id := range r.Test {
			if f, _ := assignment.Of(id); f != r.Fold {
				return nil, fmt.Errorf("fold %d scored sample '%s' held out by fold %d", r.Fold, id, f)
			}
			if err := result.Predictions.Set(id, r.Fold, r.Scores[i]); err != nil {
				return nil, err
			}
		}
		result.Artifacts[r.Fold-1] = r.Artifact
		result.FoldParams[r.Fold-1] = r.Params
	}
	sort.Strings(result.Missing)
	return result, nil
}

// aligned checks that the assignment covers exactly the samples of the dataset.
func aligned(ds *model.Dataset, assignment *fold.Assignment) error {
	left := make([]string, 0)
	for _, id := range ds.Matrix.Samples() {
		if _, ok := assignment.Of(id); !ok {
			left = append(left, id)
		}
	}
	right := make([]string, 0)
	for _, id := range assignment.IDs() {
		if _, ok := ds.Matrix.SampleIndex(id); !ok {
			right = append(right, id)
		}
	}
	if len(left) > 0 || len(right) > 0 {
		sort.Strings(left)
		sort.Strings(right)
		return &model.AlignmentError{Context: "features/folds", Left: left, Right: right}
	}
	return nil
}

func singleClass(classes []model.Class) (model.Class, bool) {
	if len(classes) == 0 {
		return model.Negative, true
	}
	for _, c := range classes[1:] {
		if c != classes[0] {
			return c, false
		}
	}
	return classes[0], true
}
