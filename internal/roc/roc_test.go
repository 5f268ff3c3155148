package roc

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {

	type test struct {
		scores   []float64
		positive []bool
		auc      float64
	}

	tests := map[string]test{
		"tied-pair": {
			scores:   []float64{0.8, 0.5, 0.5, 0.2},
			positive: []bool{true, true, false, false},
			auc:      0.875,
		},
		"perfect": {
			scores:   []float64{0.9, 0.8, 0.3, 0.1},
			positive: []bool{true, true, false, false},
			auc:      1,
		},
		"inverse": {
			scores:   []float64{0.1, 0.2, 0.8, 0.9},
			positive: []bool{true, true, false, false},
			auc:      0,
		},
		"constant": {
			scores:   []float64{0.5, 0.5, 0.5, 0.5, 0.5},
			positive: []bool{true, false, true, false, false},
			auc:      0.5,
		},
		"unordered": {
			scores:   []float64{0.2, 0.5, 0.8, 0.5},
			positive: []bool{false, false, true, true},
			auc:      0.875,
		},
		"infinite-scores": {
			scores:   []float64{math.Inf(1), 1, math.Inf(-1)},
			positive: []bool{true, false, false},
			auc:      1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := Evaluate(tt.scores, tt.positive)
			require.NoError(t, err)
			assert.InDelta(t, tt.auc, c.AUC, 1e-12)

			rank, err := RankAUC(tt.scores, tt.positive)
			require.NoError(t, err)
			assert.InDelta(t, tt.auc, rank, 1e-12)

			first := c.Points[0]
			last := c.Points[len(c.Points)-1]
			assert.Equal(t, Point{Threshold: math.Inf(1), Specificity: 1, Sensitivity: 0}, first)
			assert.Equal(t, Point{Threshold: math.Inf(-1), Specificity: 0, Sensitivity: 1}, last)
			for i := 1; i < len(c.Points); i++ {
				assert.LessOrEqual(t, c.Points[i].Specificity, c.Points[i-1].Specificity)
				assert.GreaterOrEqual(t, c.Points[i].Sensitivity, c.Points[i-1].Sensitivity)
			}
		})
	}
}

func TestEvaluate_TiesFormOnePoint(t *testing.T) {
	c, err := Evaluate([]float64{0.8, 0.5, 0.5, 0.2}, []bool{true, true, false, false})
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{Threshold: math.Inf(1), Specificity: 1, Sensitivity: 0},
		{Threshold: 0.8, Specificity: 1, Sensitivity: 0.5},
		{Threshold: 0.5, Specificity: 0.5, Sensitivity: 1},
		{Threshold: 0.2, Specificity: 0, Sensitivity: 1},
		{Threshold: math.Inf(-1), Specificity: 0, Sensitivity: 1},
	}, c.Points)
	assert.Equal(t, 2, c.Positives)
	assert.Equal(t, 2, c.Negatives)
	assert.Equal(t, 0.8, c.Best().Threshold)
}

func TestCurve_JSON(t *testing.T) {
	c, err := Evaluate([]float64{0.9, math.Inf(-1), 0.5, 0.1}, []bool{true, false, true, false})
	require.NoError(t, err)

	bb, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(bb), `"threshold":"+Inf"`)
	assert.Contains(t, string(bb), `"threshold":"-Inf"`)
	assert.Contains(t, string(bb), `"threshold":0.9`)

	store := storage.NewMockStorage()
	k := storage.Key{Run: "run", Label: storage.ReportLabel}
	require.NoError(t, store.Store(k, c))

	var loaded Curve
	require.NoError(t, store.Load(k, &loaded))
	assert.Equal(t, c.Points, loaded.Points)
	assert.Equal(t, c.AUC, loaded.AUC)
	assert.Equal(t, c.Positives, loaded.Positives)
	assert.Equal(t, c.Negatives, loaded.Negatives)

	var p Point
	assert.Error(t, json.Unmarshal([]byte(`{"threshold":"inf"}`), &p))
}

func TestEvaluate_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		n := 10 + rnd.Intn(40)
		scores := make([]float64, n)
		positive := make([]bool, n)
		for j := range scores {
			// coarse scores to force ties
			scores[j] = math.Round(rnd.Float64()*10) / 10
			positive[j] = j%2 == 0
		}

		a, err := AUC(scores, positive)
		require.NoError(t, err)
		rank, err := RankAUC(scores, positive)
		require.NoError(t, err)
		assert.InDelta(t, rank, a, 1e-9)

		// reversing the scores mirrors the auc
		reversed := make([]float64, n)
		for j, s := range scores {
			reversed[j] = -s
		}
		r, err := AUC(reversed, positive)
		require.NoError(t, err)
		assert.InDelta(t, 1-a, r, 1e-9)

		// monotone transforms keep the auc
		transformed := make([]float64, n)
		for j, s := range scores {
			transformed[j] = math.Exp(3*s) + 7
		}
		m, err := AUC(transformed, positive)
		require.NoError(t, err)
		assert.InDelta(t, a, m, 1e-9)
	}
}

func TestEvaluate_Invalid(t *testing.T) {

	type test struct {
		scores    []float64
		positive  []bool
		undefined bool
	}

	tests := map[string]test{
		"positives-only": {scores: []float64{0.1, 0.2}, positive: []bool{true, true}, undefined: true},
		"negatives-only": {scores: []float64{0.1, 0.2}, positive: []bool{false, false}, undefined: true},
		"empty":          {undefined: true},
		"nan":            {scores: []float64{0.1, math.NaN()}, positive: []bool{true, false}},
		"dimensions":     {scores: []float64{0.1}, positive: []bool{true, false}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(tt.scores, tt.positive)
			require.Error(t, err)
			assert.Equal(t, tt.undefined, errors.Is(err, model.UndefinedAUCErr))
			_, err = RankAUC(tt.scores, tt.positive)
			require.Error(t, err)
		})
	}

	_, err := AUC([]float64{1, 2, 3}, []bool{true, true, true})
	var undefined *model.UndefinedAUCError
	require.True(t, errors.As(err, &undefined))
	assert.Equal(t, 3, undefined.Positives)
	assert.Equal(t, 0, undefined.Negatives)
}

func labels(t *testing.T, values map[string]string) *model.Labels {
	l, err := model.NewLabels(values, "case")
	require.NoError(t, err)
	return l
}

func TestJoin(t *testing.T) {
	l := labels(t, map[string]string{"a": "case", "b": "control", "c": "case", "d": "control"})

	ids, scores, positive, err := Join(map[string]float64{"c": 0.3, "a": 0.9, "b": 0.1}, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []float64{0.9, 0.1, 0.3}, scores)
	assert.Equal(t, []bool{true, false, true}, positive)

	_, _, _, err = Join(map[string]float64{"a": 0.9, "x": 0.1}, l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.AlignmentErr))
}

func TestCompare(t *testing.T) {
	l := labels(t, map[string]string{"a": "case", "b": "case", "c": "control", "d": "control", "e": "case"})

	scores := map[string]float64{"a": 0.9, "b": 0.8, "c": 0.3, "d": 0.1}
	baseline := map[string]float64{"a": 0.1, "b": 0.8, "c": 0.5, "d": 0.2, "e": 0.9}

	cmp, err := Compare(scores, baseline, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cmp.Samples)
	assert.Equal(t, 1.0, cmp.Model.AUC)
	assert.Equal(t, 0.5, cmp.Baseline.AUC)
	assert.Equal(t, 0.5, cmp.Delta)
	assert.Equal(t, cmp.Model.Positives, cmp.Baseline.Positives)

	_, err = Compare(scores, map[string]float64{"x": 1}, l)
	assert.Error(t, err)

	// the common samples hold a single class
	_, err = Compare(scores, map[string]float64{"a": 1, "b": 2}, l)
	assert.True(t, errors.Is(err, model.UndefinedAUCErr))
}
