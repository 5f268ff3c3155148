package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a samples x features table keyed by sample id and feature name.
// A Matrix is never mutated after construction.
type Matrix struct {
	samples  []string
	features []string
	sIndex   map[string]int
	fIndex   map[string]int
	data     *mat.Dense
}

// NewMatrix creates a new matrix from the given rows, where values[i][j] is the value
// of feature j for sample i.
func NewMatrix(samples, features []string, values [][]float64) (*Matrix, error) {
	if len(samples) == 0 || len(features) == 0 {
		return nil, fmt.Errorf("empty matrix: %d samples x %d features", len(samples), len(features))
	}
	if len(values) != len(samples) {
		return nil, fmt.Errorf("inconsistent dimensions: %d rows for %d samples", len(values), len(samples))
	}
	sIndex, err := index("sample", samples)
	if err != nil {
		return nil, err
	}
	fIndex, err := index("feature", features)
	if err != nil {
		return nil, err
	}
	data := mat.NewDense(len(samples), len(features), nil)
	for i, row := range values {
		if len(row) != len(features) {
			return nil, fmt.Errorf("inconsistent dimensions for sample '%s': %d values for %d features", samples[i], len(row), len(features))
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("missing value for sample '%s' feature '%s'", samples[i], features[j])
			}
		}
		data.SetRow(i, row)
	}
	return &Matrix{
		samples:  append([]string{}, samples...),
		features: append([]string{}, features...),
		sIndex:   sIndex,
		fIndex:   fIndex,
		data:     data,
	}, nil
}

// newMatrix wraps an already validated dense matrix.
func newMatrix(samples, features []string, data *mat.Dense) *Matrix {
	sIndex, _ := index("sample", samples)
	fIndex, _ := index("feature", features)
	return &Matrix{
		samples:  samples,
		features: features,
		sIndex:   sIndex,
		fIndex:   fIndex,
		data:     data,
	}
}

func index(kind string, keys []string) (map[string]int, error) {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := idx[k]; ok {
			return nil, fmt.Errorf("duplicate %s '%s'", kind, k)
		}
		idx[k] = i
	}
	return idx, nil
}

// Dims returns the number of samples and features.
func (m *Matrix) Dims() (int, int) {
	return len(m.samples), len(m.features)
}

// Samples returns the sample ids in row order.
func (m *Matrix) Samples() []string {
	return append([]string{}, m.samples...)
}

// Features returns the feature names in column order.
func (m *Matrix) Features() []string {
	return append([]string{}, m.features...)
}

// SampleIndex returns the row of the given sample.
func (m *Matrix) SampleIndex(id string) (int, bool) {
	i, ok := m.sIndex[id]
	return i, ok
}

// FeatureIndex returns the column of the given feature.
func (m *Matrix) FeatureIndex(name string) (int, bool) {
	j, ok := m.fIndex[name]
	return j, ok
}

// At returns the value at the given row and column.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Row returns a copy of the values of the given sample row.
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// Column returns a copy of the values of the given feature column.
func (m *Matrix) Column(j int) []float64 {
	return mat.Col(nil, j, m.data)
}

// Raw exposes the underlying values as a read-only gonum matrix.
func (m *Matrix) Raw() mat.Matrix {
	return m.data
}

// Subset returns a new matrix holding only the given samples, in the given order.
func (m *Matrix) Subset(ids []string) (*Matrix, error) {
	missing := make([]string, 0)
	for _, id := range ids {
		if _, ok := m.sIndex[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &AlignmentError{Context: "subset/matrix", Left: missing}
	}
	if _, err := index("sample", ids); err != nil {
		return nil, err
	}
	data := mat.NewDense(len(ids), len(m.features), nil)
	for i, id := range ids {
		data.SetRow(i, m.data.RawRowView(m.sIndex[id]))
	}
	return newMatrix(append([]string{}, ids...), m.Features(), data), nil
}

// Select returns a new matrix with only the given features, in the given order.
func (m *Matrix) Select(features []string) (*Matrix, error) {
	missing := make([]string, 0)
	cols := make([]int, len(features))
	for j, f := range features {
		c, ok := m.fIndex[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		cols[j] = c
	}
	if len(missing) > 0 {
		return nil, &AlignmentError{Context: "selection/matrix features", Left: missing}
	}
	if _, err := index("feature", features); err != nil {
		return nil, err
	}
	data := mat.NewDense(len(m.samples), len(features), nil)
	for i := range m.samples {
		for j, c := range cols {
			data.Set(i, j, m.data.At(i, c))
		}
	}
	return newMatrix(m.Samples(), append([]string{}, features...), data), nil
}

// Apply creates a new matrix by applying fn to every column.
// fn receives the feature name and a copy of the column and returns the new column.
func (m *Matrix) Apply(fn func(feature string, column []float64) []float64) *Matrix {
	data := mat.NewDense(len(m.samples), len(m.features), nil)
	for j, f := range m.features {
		data.SetCol(j, fn(f, m.Column(j)))
	}
	return newMatrix(m.Samples(), m.Features(), data)
}

// diff returns the keys of a missing from b and the keys of b missing from a, sorted.
func diff(a, b map[string]int) ([]string, []string) {
	left := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; !ok {
			left = append(left, k)
		}
	}
	right := make([]string, 0)
	for k := range b {
		if _, ok := a[k]; !ok {
			right = append(right, k)
		}
	}
	sort.Strings(left)
	sort.Strings(right)
	return left, right
}
