// Package normalize implements the frozen log10 + z-score transform of compositional features.
//
// Parameters are fit once on a reference matrix and can then be applied, unchanged,
// to any matrix carrying the same features, e.g. a held-out fold or an external cohort.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/drakos74/microbe-cv/internal/buffer"
	cvmath "github.com/drakos74/microbe-cv/internal/math"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPseudocount is added to every value before taking the logarithm.
	DefaultPseudocount = 1e-6
	// minStDev is the standard deviation below which a feature is considered constant.
	minStDev = 1e-12
)

// Degenerate defines how zero variance features are handled during Fit.
type Degenerate string

const (
	// Fail rejects the fit with a model.DegenerateFeatureError.
	Fail Degenerate = "fail"
	// Drop excludes the feature from the parameters and the transformed output.
	Drop Degenerate = "drop"
	// Zero keeps the feature, but maps all its values to 0.
	Zero Degenerate = "zero"
)

// Options configures the fit.
type Options struct {
	Pseudocount float64    `json:"pseudocount" yaml:"pseudocount"`
	Degenerate  Degenerate `json:"degenerate" yaml:"degenerate"`
}

// DefaultOptions returns the default fit options.
func DefaultOptions() Options {
	return Options{
		Pseudocount: DefaultPseudocount,
		Degenerate:  Fail,
	}
}

func (o Options) validate() (Options, error) {
	if o.Pseudocount <= 0 {
		return o, fmt.Errorf("pseudocount must be positive: %v", o.Pseudocount)
	}
	switch o.Degenerate {
	case "":
		o.Degenerate = Fail
	case Fail, Drop, Zero:
	default:
		return o, fmt.Errorf("unknown degenerate feature policy '%s'", o.Degenerate)
	}
	return o, nil
}

// Feature holds the fitted parameters of a single feature.
type Feature struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	StDev float64 `json:"sd"`
	// Constant marks zero variance features kept under the Zero policy.
	Constant bool `json:"constant,omitempty"`
}

// Params are the frozen normalization parameters.
// They are created by Fit and never modified afterwards.
type Params struct {
	pseudocount float64
	features    []Feature
	index       map[string]int
	dropped     []string
}

// Fit computes the log10 mean and standard deviation of every feature of the matrix.
func Fit(m *model.Matrix, opts Options) (*Params, error) {
	opts, err := opts.validate()
	if err != nil {
		return nil, err
	}
	samples, dim := m.Dims()
	if samples < 2 {
		return nil, fmt.Errorf("cannot fit normalization on %d samples", samples)
	}

	names := m.Features()
	collector := buffer.NewStatsCollector(dim)
	row := make([]float64, dim)
	for i := 0; i < samples; i++ {
		for j := 0; j < dim; j++ {
			row[j] = cvmath.Log10(m.At(i, j), opts.Pseudocount)
		}
		collector.Push(row...)
	}

	features := make([]Feature, 0, dim)
	degenerate := make([]string, 0)
	dropped := make([]string, 0)
	for j, st := range collector.Stats() {
		f := Feature{
			Name:  names[j],
			Mean:  st.Avg(),
			StDev: st.SampleStDev(),
		}
		if !cvmath.Finite(f.Mean, f.StDev) {
			return nil, fmt.Errorf("non finite log values for feature '%s': negative abundance", f.Name)
		}
		if f.StDev < minStDev {
			switch opts.Degenerate {
			case Fail:
				degenerate = append(degenerate, f.Name)
				continue
			case Drop:
				dropped = append(dropped, f.Name)
				continue
			case Zero:
				f.Constant = true
			}
		}
		features = append(features, f)
	}

	if len(degenerate) > 0 {
		return nil, &model.DegenerateFeatureError{Features: degenerate}
	}
	if len(features) == 0 {
		return nil, &model.DegenerateFeatureError{Features: dropped}
	}
	if len(dropped) > 0 {
		log.Warn().
			Int("dropped", len(dropped)).
			Strs("features", dropped).
			Msg("dropped zero variance features")
	}

	return newParams(opts.Pseudocount, features, dropped), nil
}

func newParams(pseudocount float64, features []Feature, dropped []string) *Params {
	index := make(map[string]int, len(features))
	for j, f := range features {
		index[f.Name] = j
	}
	return &Params{
		pseudocount: pseudocount,
		features:    features,
		index:       index,
		dropped:     dropped,
	}
}

// Transform applies the frozen parameters to the given matrix.
// Features are matched by name; the output carries the fitted features in fit order.
func Transform(m *model.Matrix, p *Params) (*model.Matrix, error) {
	selected, err := m.Select(p.Names())
	if err != nil {
		return nil, fmt.Errorf("could not apply normalization: %w", err)
	}
	samples, dim := selected.Dims()
	ids := selected.Samples()
	names := selected.Features()
	for i := 0; i < samples; i++ {
		for j := 0; j < dim; j++ {
			if v := selected.At(i, j); v < 0 || !cvmath.Finite(v) {
				return nil, fmt.Errorf("invalid abundance %v of feature '%s' for sample '%s'", v, names[j], ids[i])
			}
		}
	}
	out := selected.Apply(func(name string, column []float64) []float64 {
		f := p.features[p.index[name]]
		for i, v := range column {
			if f.Constant {
				column[i] = 0
				continue
			}
			column[i] = (cvmath.Log10(v, p.pseudocount) - f.Mean) / f.StDev
		}
		return column
	})
	return out, nil
}

// FitTransform fits the parameters on the matrix and applies them to it.
func FitTransform(m *model.Matrix, opts Options) (*model.Matrix, *Params, error) {
	p, err := Fit(m, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := Transform(m, p)
	if err != nil {
		return nil, nil, err
	}
	return out, p, nil
}

// Pseudocount returns the pseudocount used for the fit.
func (p *Params) Pseudocount() float64 {
	return p.pseudocount
}

// Names returns the fitted feature names.
func (p *Params) Names() []string {
	names := make([]string, len(p.features))
	for j, f := range p.features {
		names[j] = f.Name
	}
	return names
}

// Feature returns the parameters of the given feature.
func (p *Params) Feature(name string) (Feature, bool) {
	j, ok := p.index[name]
	if !ok {
		return Feature{}, false
	}
	return p.features[j], true
}

// Dropped returns the zero variance features excluded from the fit.
func (p *Params) Dropped() []string {
	return append([]string{}, p.dropped...)
}

// FilterAbundance removes the features whose maximum abundance across samples is below the cutoff.
// A cutoff of 0 keeps all features.
func FilterAbundance(m *model.Matrix, cutoff float64) (*model.Matrix, []string, error) {
	if cutoff <= 0 {
		return m, []string{}, nil
	}
	samples, dim := m.Dims()
	kept := make([]string, 0, dim)
	removed := make([]string, 0)
	names := m.Features()
	for j := 0; j < dim; j++ {
		max := 0.0
		for i := 0; i < samples; i++ {
			if v := m.At(i, j); v > max {
				max = v
			}
		}
		if max >= cutoff {
			kept = append(kept, names[j])
		} else {
			removed = append(removed, names[j])
		}
	}
	if len(kept) == 0 {
		return nil, removed, fmt.Errorf("abundance cutoff %v removes all %d features", cutoff, dim)
	}
	sort.Strings(removed)
	filtered, err := m.Select(kept)
	if err != nil {
		return nil, nil, err
	}
	return filtered, removed, nil
}

type params struct {
	Pseudocount float64   `json:"pseudocount"`
	Features    []Feature `json:"features"`
	Dropped     []string  `json:"dropped"`
}

// MarshalJSON encodes the parameters for persistence.
func (p *Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(params{
		Pseudocount: p.pseudocount,
		Features:    p.features,
		Dropped:     p.dropped,
	})
}

// UnmarshalJSON restores persisted parameters.
func (p *Params) UnmarshalJSON(b []byte) error {
	var pp params
	if err := json.Unmarshal(b, &pp); err != nil {
		return err
	}
	if pp.Pseudocount <= 0 {
		return fmt.Errorf("invalid pseudocount in parameters: %v", pp.Pseudocount)
	}
	for _, f := range pp.Features {
		if !f.Constant && !(f.StDev >= minStDev) {
			return fmt.Errorf("invalid standard deviation for feature '%s': %v", f.Name, f.StDev)
		}
	}
	if pp.Dropped == nil {
		pp.Dropped = []string{}
	}
	*p = *newParams(pp.Pseudocount, pp.Features, pp.Dropped)
	return nil
}
