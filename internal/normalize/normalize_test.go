package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func synthetic(t *testing.T, n int, seed int64) *model.Matrix {
	s := cvmath.Compositional(n, 8, 2, 1.5, seed)
	m, err := model.NewMatrix(s.Samples, s.Features, s.Values)
	require.NoError(t, err)
	return m
}

func TestFitTransform_Standardizes(t *testing.T) {

	type test struct {
		samples int
		seed    int64
	}

	tests := map[string]test{
		"small":  {samples: 12, seed: 1},
		"medium": {samples: 50, seed: 2},
		"large":  {samples: 300, seed: 3},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := synthetic(t, tt.samples, tt.seed)
			out, p, err := FitTransform(m, DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, m.Features(), p.Names())
			_, dim := out.Dims()
			for j := 0; j < dim; j++ {
				mean, sd := stat.MeanStdDev(out.Column(j), nil)
				assert.InDelta(t, 0, mean, 1e-9, out.Features()[j])
				assert.InDelta(t, 1, sd, 1e-9, out.Features()[j])
			}
		})
	}
}

func TestFit_Parameters(t *testing.T) {
	m, err := model.NewMatrix(
		[]string{"a", "b", "c"},
		[]string{"x"},
		[][]float64{{0.1}, {0.01}, {0.001}},
	)
	require.NoError(t, err)

	p, err := Fit(m, Options{Pseudocount: 1e-9})
	require.NoError(t, err)
	f, ok := p.Feature("x")
	require.True(t, ok)
	// log10 values are ~ -1, -2, -3
	assert.InDelta(t, -2, f.Mean, 1e-6)
	assert.InDelta(t, 1, f.StDev, 1e-6)
	assert.Equal(t, 1e-9, p.Pseudocount())
}

func TestTransform_Frozen(t *testing.T) {
	train := synthetic(t, 40, 11)
	p, err := Fit(train, DefaultOptions())
	require.NoError(t, err)

	// a disjoint cohort, with the features in a different order
	other := synthetic(t, 15, 12)
	features := other.Features()
	reversed := make([]string, len(features))
	for i, f := range features {
		reversed[len(features)-1-i] = f
	}
	shuffled, err := other.Select(reversed)
	require.NoError(t, err)

	first, err := Transform(other, p)
	require.NoError(t, err)
	second, err := Transform(other, p)
	require.NoError(t, err)
	third, err := Transform(shuffled, p)
	require.NoError(t, err)

	assert.Equal(t, first.Features(), third.Features())
	r, c := first.Dims()
	for i := 0; i < r; i++ {
		assert.Equal(t, first.Row(i), second.Row(i))
		assert.Equal(t, first.Row(i), third.Row(i))
	}

	// the parameters are the ones of the training set, not of the new cohort
	f, _ := p.Feature(features[0])
	v := (math.Log10(other.At(0, 0)+DefaultPseudocount) - f.Mean) / f.StDev
	assert.InDelta(t, v, first.At(0, 0), 1e-12)
	assert.Equal(t, c, len(p.Names()))
}

func TestTransform_MissingFeature(t *testing.T) {
	train := synthetic(t, 10, 1)
	p, err := Fit(train, DefaultOptions())
	require.NoError(t, err)

	partial, err := train.Select(train.Features()[1:])
	require.NoError(t, err)
	_, err = Transform(partial, p)
	assert.True(t, errors.Is(err, model.AlignmentErr))
}

func TestTransform_InvalidAbundance(t *testing.T) {

	type test struct {
		value float64
	}

	tests := map[string]test{
		"negative": {value: -0.5},
		"infinite": {value: math.Inf(1)},
	}

	train := synthetic(t, 10, 1)
	p, err := Fit(train, DefaultOptions())
	require.NoError(t, err)
	features := train.Features()

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			row := make([]float64, len(features))
			for j := range row {
				row[j] = train.At(0, j)
			}
			row[1] = tt.value
			other, err := model.NewMatrix([]string{"external"}, features, [][]float64{row})
			require.NoError(t, err)

			_, err = Transform(other, p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), features[1])
			assert.Contains(t, err.Error(), "external")
		})
	}
}

func TestFit_Degenerate(t *testing.T) {
	m, err := model.NewMatrix(
		[]string{"a", "b", "c", "d"},
		[]string{"varying", "constant", "absent"},
		[][]float64{{0.1, 0.5, 0}, {0.2, 0.5, 0}, {0.3, 0.5, 0}, {0.4, 0.5, 0}},
	)
	require.NoError(t, err)

	t.Run("fail", func(t *testing.T) {
		_, err := Fit(m, DefaultOptions())
		var degenerate *model.DegenerateFeatureError
		require.True(t, errors.As(err, &degenerate))
		assert.Equal(t, []string{"constant", "absent"}, degenerate.Features)
		assert.True(t, errors.Is(err, model.DegenerateFeatureErr))
	})

	t.Run("drop", func(t *testing.T) {
		out, p, err := FitTransform(m, Options{Pseudocount: DefaultPseudocount, Degenerate: Drop})
		require.NoError(t, err)
		assert.Equal(t, []string{"varying"}, out.Features())
		assert.Equal(t, []string{"constant", "absent"}, p.Dropped())
	})

	t.Run("zero", func(t *testing.T) {
		out, _, err := FitTransform(m, Options{Pseudocount: DefaultPseudocount, Degenerate: Zero})
		require.NoError(t, err)
		assert.Equal(t, m.Features(), out.Features())
		for _, j := range []int{1, 2} {
			for _, v := range out.Column(j) {
				assert.Equal(t, 0.0, v)
			}
		}
	})

	t.Run("all-dropped", func(t *testing.T) {
		constant, err := m.Select([]string{"constant"})
		require.NoError(t, err)
		_, err = Fit(constant, Options{Pseudocount: DefaultPseudocount, Degenerate: Drop})
		assert.True(t, errors.Is(err, model.DegenerateFeatureErr))
	})
}

func TestFit_Options(t *testing.T) {
	m := synthetic(t, 10, 1)

	_, err := Fit(m, Options{Pseudocount: 0})
	assert.Error(t, err)

	_, err = Fit(m, Options{Pseudocount: 1e-6, Degenerate: "median"})
	assert.Error(t, err)

	single, err := m.Subset(m.Samples()[:1])
	require.NoError(t, err)
	_, err = Fit(single, DefaultOptions())
	assert.Error(t, err)
}

func TestParams_JSON(t *testing.T) {
	m := synthetic(t, 20, 5)
	p, err := Fit(m, DefaultOptions())
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	restored := new(Params)
	require.NoError(t, json.Unmarshal(b, restored))

	expected, err := Transform(m, p)
	require.NoError(t, err)
	actual, err := Transform(m, restored)
	require.NoError(t, err)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		assert.Equal(t, expected.Row(i), actual.Row(i))
	}

	assert.Error(t, json.Unmarshal([]byte(`{"pseudocount":0}`), new(Params)))
	assert.Error(t, json.Unmarshal([]byte(`{"pseudocount":1,"features":[{"name":"x","mean":0,"sd":0}]}`), new(Params)))
}

func TestFilterAbundance(t *testing.T) {
	m, err := model.NewMatrix(
		[]string{"a", "b"},
		[]string{"rare", "common", "medium"},
		[][]float64{{0.0001, 0.9, 0.0999}, {0.0005, 0.99, 0.0095}},
	)
	require.NoError(t, err)

	filtered, removed, err := FilterAbundance(m, 0.001)
	require.NoError(t, err)
	assert.Equal(t, []string{"common", "medium"}, filtered.Features())
	assert.Equal(t, []string{"rare"}, removed)

	same, removed, err := FilterAbundance(m, 0)
	require.NoError(t, err)
	assert.Equal(t, m, same)
	assert.Empty(t, removed)

	_, _, err = FilterAbundance(m, 2)
	assert.Error(t, err)
}
