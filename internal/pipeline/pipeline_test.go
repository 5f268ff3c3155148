package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/drakos74/microbe-cv/internal/cv"
	"github.com/drakos74/microbe-cv/internal/linear"
	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/roc"
	"github.com/drakos74/microbe-cv/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cohort(t *testing.T, n, p int, seed int64) (*model.Matrix, *model.Labels, map[string]float64) {
	s := cvmath.Compositional(n, p, 3, 2, seed)
	m, err := model.NewMatrix(s.Samples, s.Features, s.Values)
	require.NoError(t, err)
	l, err := model.NewLabels(s.Labels, cvmath.CaseLevel)
	require.NoError(t, err)
	return m, l, s.Baseline
}

func config(folds int, policy cv.Policy) Config {
	cfg := DefaultConfig()
	cfg.CV.Folds = folds
	cfg.CV.Seed = 42
	cfg.CV.Normalize = policy
	cfg.TopK = 5
	return cfg
}

func TestRun(t *testing.T) {

	type test struct {
		policy   cv.Policy
		stratify bool
		mode     linear.Mode
	}

	tests := map[string]test{
		"global":     {policy: cv.Global},
		"per-fold":   {policy: cv.PerFold},
		"stratified": {policy: cv.PerFold, stratify: true},
		"ridge":      {policy: cv.Global, mode: linear.Ridge},
		"logistic":   {policy: cv.Global, mode: linear.Logistic},
	}

	m, l, baseline := cohort(t, 20, 10, 42)

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config(5, tt.policy)
			cfg.CV.Stratify = tt.stratify
			if tt.mode != "" {
				cfg.CV.Model.Mode = tt.mode
			}

			report, err := Run(context.Background(), cfg, m, l, baseline)
			require.NoError(t, err)

			assert.NotEmpty(t, report.RunID)
			assert.Equal(t, 20, report.Samples)
			assert.Equal(t, 10, report.Features)
			assert.False(t, report.Partial)
			assert.Empty(t, report.Missing)
			assert.Len(t, report.Predictions, 20)
			assert.Len(t, report.Folds, 20)

			require.NotNil(t, report.ROC)
			assert.Equal(t, 10, report.ROC.Positives)
			assert.Equal(t, 10, report.ROC.Negatives)
			assert.True(t, report.ROC.AUC >= 0 && report.ROC.AUC <= 1)

			// the trapezoidal area matches the pairwise ranks
			_, scores, positive, err := roc.Join(report.Predictions, l)
			require.NoError(t, err)
			rank, err := roc.RankAUC(scores, positive)
			require.NoError(t, err)
			assert.InDelta(t, rank, report.ROC.AUC, 1e-9)

			assert.Len(t, report.Artifacts, 5)
			assert.Len(t, report.Importance, 10)
			assert.Len(t, report.Stats, 10)
			assert.Len(t, report.Top, 5)

			require.NotNil(t, report.Comparison)
			assert.Len(t, report.Comparison.Samples, 20)
			assert.InDelta(t, report.ROC.AUC, report.Comparison.Model.AUC, 1e-12)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	m, l, _ := cohort(t, 20, 10, 42)
	cfg := config(5, cv.Global)

	first, err := Run(context.Background(), cfg, m, l, nil)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, m, l, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Folds, second.Folds)
	assert.Equal(t, first.Predictions, second.Predictions)
	assert.Equal(t, first.ROC.AUC, second.ROC.AUC)
	assert.Equal(t, first.Top, second.Top)
	assert.Nil(t, first.Comparison)
}

func TestRun_Signal(t *testing.T) {
	m, l, _ := cohort(t, 60, 10, 1)
	report, err := Run(context.Background(), config(5, cv.PerFold), m, l, nil)
	require.NoError(t, err)
	assert.Greater(t, report.ROC.AUC, 0.65)
}

func single(t *testing.T) (*model.Matrix, *model.Labels) {
	m, err := model.NewMatrix(
		[]string{"s0", "s1", "s2", "s3", "s4"},
		[]string{"a", "b"},
		[][]float64{{0.1, 0.9}, {0.2, 0.8}, {0.4, 0.6}, {0.3, 0.7}, {0.6, 0.4}},
	)
	require.NoError(t, err)
	l, err := model.NewLabels(map[string]string{"s0": "case", "s1": "control", "s2": "control", "s3": "control", "s4": "control"}, "case")
	require.NoError(t, err)
	return m, l
}

func TestRun_Failures(t *testing.T) {
	m, l := single(t)

	_, err := Run(context.Background(), config(5, cv.Global), m, l, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.DegenerateFoldErr))

	// the covered samples hold a single class
	cfg := config(5, cv.Global)
	cfg.CV.OnFailure = cv.Skip
	_, err = Run(context.Background(), cfg, m, l, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.UndefinedAUCErr))

	_, err = Run(context.Background(), config(6, cv.Global), m, l, nil)
	assert.Error(t, err)

	other, err := model.NewLabels(map[string]string{"x": "case", "y": "control"}, "case")
	require.NoError(t, err)
	_, err = Run(context.Background(), config(2, cv.Global), m, other, nil)
	assert.True(t, errors.Is(err, model.AlignmentErr))
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Config{}.Validate()
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.Equal(t, 10, cfg.CV.Folds)

	_, err = Config{TopK: -1}.Validate()
	assert.Error(t, err)
	_, err = Config{FilterCutoff: -1}.Validate()
	assert.Error(t, err)
	_, err = Config{CV: cv.Config{Folds: 1}}.Validate()
	assert.Error(t, err)
}

func TestPrepare_Filter(t *testing.T) {
	m, err := model.NewMatrix(
		[]string{"s0", "s1", "s2"},
		[]string{"a", "tiny", "b"},
		[][]float64{{0.5, 1e-5, 0.5}, {0.3, 0, 0.7}, {0.9, 2e-5, 0.1}},
	)
	require.NoError(t, err)
	l, err := model.NewLabels(map[string]string{"s0": "case", "s1": "control", "s2": "case"}, "case")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.FilterCutoff = 1e-3
	ds, removed, err := prepare(cfg, m, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny"}, removed)
	assert.Equal(t, []string{"a", "b"}, ds.Matrix.Features())

	// misaligned labels surface before the filter
	other, err := model.NewLabels(map[string]string{"s0": "case", "s1": "control", "x": "case"}, "case")
	require.NoError(t, err)
	cfg.FilterCutoff = 1
	_, _, err = prepare(cfg, m, other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.AlignmentErr))

	_, _, err = prepare(cfg, m, l)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, model.AlignmentErr))
}

func TestTrain(t *testing.T) {
	m, l, _ := cohort(t, 40, 10, 42)
	trained, err := Train(config(5, cv.Global), m, l)
	require.NoError(t, err)
	assert.Equal(t, 0, trained.Artifact.Fold)
	assert.Len(t, trained.Artifact.Weights, 10)

	// a disjoint cohort is scored with the frozen parameters
	external, externalLabels, _ := cohort(t, 30, 10, 7)
	scores, err := trained.Score(external)
	require.NoError(t, err)
	assert.Len(t, scores, 30)
	for _, s := range scores {
		assert.True(t, s >= 0 && s <= 1)
	}

	again, err := trained.Score(external)
	require.NoError(t, err)
	assert.Equal(t, scores, again)

	// columns are matched by name
	features := external.Features()
	reversed := make([]string, len(features))
	for i, f := range features {
		reversed[len(features)-1-i] = f
	}
	reordered, err := external.Select(reversed)
	require.NoError(t, err)
	shuffled, err := trained.Score(reordered)
	require.NoError(t, err)
	for id, s := range scores {
		assert.InDelta(t, s, shuffled[id], 1e-12)
	}

	curve, err := trained.Evaluate(external, externalLabels)
	require.NoError(t, err)
	assert.Equal(t, 15, curve.Positives)

	partial, err := external.Select(features[1:])
	require.NoError(t, err)
	_, err = trained.Score(partial)
	assert.True(t, errors.Is(err, model.AlignmentErr))
}

func TestSaveLoad(t *testing.T) {
	m, l, baseline := cohort(t, 20, 10, 42)
	report, err := Run(context.Background(), config(5, cv.Global), m, l, baseline)
	require.NoError(t, err)

	store := storage.NewMockStorage()
	require.NoError(t, Save(store, report))
	// report, params and one artifact per fold
	assert.Len(t, store.Elements, 7)

	loaded, err := Load(store, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, report.Predictions, loaded.Predictions)
	assert.Equal(t, report.Top, loaded.Top)
	assert.Equal(t, report.ROC.AUC, loaded.ROC.AUC)
	assert.Equal(t, report.ROC.Points, loaded.ROC.Points)
	require.NotNil(t, loaded.Comparison)
	assert.Equal(t, report.Comparison.Baseline.Points, loaded.Comparison.Baseline.Points)
	assert.Equal(t, report.Config, loaded.Config)
	assert.Equal(t, report.Params.Names(), loaded.Params.Names())

	params, err := LoadParams(store, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.Params.Names(), params.Names())

	_, err = Load(store, "unknown")
	assert.True(t, errors.Is(err, storage.NotFoundErr))
}
