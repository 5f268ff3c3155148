package pipeline

import (
	"fmt"

	"github.com/drakos74/microbe-cv/internal/linear"
	"github.com/drakos74/microbe-cv/internal/model"
	"github.com/drakos74/microbe-cv/internal/normalize"
	"github.com/drakos74/microbe-cv/internal/roc"
	"github.com/rs/zerolog/log"
)

// Trained is a model fit on all samples, together with its frozen normalization.
type Trained struct {
	Params   *normalize.Params
	Artifact *model.Artifact
	model    linear.Model
}

// Train fits the final model on all samples.
// The normalization is fit on the same samples and kept frozen for scoring.
func Train(cfg Config, matrix *model.Matrix, labels *model.Labels) (*Trained, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ds, _, err := prepare(cfg, matrix, labels)
	if err != nil {
		return nil, err
	}
	x, params, err := normalize.FitTransform(ds.Matrix, cfg.CV.NormalizeOptions())
	if err != nil {
		return nil, fmt.Errorf("could not normalize features: %w", err)
	}
	factory, err := linear.New(cfg.CV.Model)
	if err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}
	m := factory()
	if err := m.Fit(x.Raw(), ds.Targets(ds.Matrix.Samples())); err != nil {
		return nil, &model.ModelFitError{Err: err}
	}
	artifact, err := model.NewArtifact(0, x.Features(), m.Weights(), m.Intercept())
	if err != nil {
		return nil, &model.ModelFitError{Err: err}
	}

	log.Info().
		Int("non-zero", artifact.NonZero()).
		Int("features", len(artifact.Weights)).
		Str("model", string(cfg.CV.Model.Mode)).
		Msg("trained final model")

	return &Trained{
		Params:   params,
		Artifact: artifact,
		model:    m,
	}, nil
}

// Score applies the frozen normalization and model to the given samples.
// The matrix must carry every trained feature, extra features are ignored.
func (t *Trained) Score(matrix *model.Matrix) (map[string]float64, error) {
	x, err := normalize.Transform(matrix, t.Params)
	if err != nil {
		return nil, err
	}
	scores, err := t.model.Predict(x.Raw())
	if err != nil {
		return nil, &model.ModelFitError{Err: fmt.Errorf("could not predict: %w", err)}
	}
	ids := x.Samples()
	ss := make(map[string]float64, len(ids))
	for i, id := range ids {
		ss[id] = scores[i]
	}
	return ss, nil
}

// Evaluate scores the given samples and computes the curve against their labels.
func (t *Trained) Evaluate(matrix *model.Matrix, labels *model.Labels) (*roc.Curve, error) {
	scores, err := t.Score(matrix)
	if err != nil {
		return nil, err
	}
	_, ss, pp, err := roc.Join(scores, labels)
	if err != nil {
		return nil, err
	}
	return roc.Evaluate(ss, pp)
}
