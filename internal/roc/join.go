package roc

import (
	"fmt"
	"sort"

	"github.com/drakos74/microbe-cv/internal/model"
)

// Comparison holds the curves of two predictors evaluated on the same samples.
type Comparison struct {
	Model    *Curve   `json:"model"`
	Baseline *Curve   `json:"baseline"`
	Samples  []string `json:"samples"`
	// Delta is the model auc minus the baseline auc.
	Delta float64 `json:"delta"`
}

// Join aligns the scores with their labels, in sorted sample order.
// Every scored sample must be labelled, labelled samples without a score are left out.
func Join(scores map[string]float64, labels *model.Labels) ([]string, []float64, []bool, error) {
	ids := make([]string, 0, len(scores))
	missing := make([]string, 0)
	for id := range scores {
		if _, ok := labels.Class(id); !ok {
			missing = append(missing, id)
			continue
		}
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, nil, &model.AlignmentError{Context: "scores/labels", Left: missing}
	}
	sort.Strings(ids)
	ss := make([]float64, len(ids))
	pp := make([]bool, len(ids))
	for i, id := range ids {
		c, _ := labels.Class(id)
		ss[i] = scores[id]
		pp[i] = c == model.Positive
	}
	return ids, ss, pp, nil
}

// Compare evaluates the model and the baseline scores on the samples they have in common.
func Compare(scores, baseline map[string]float64, labels *model.Labels) (*Comparison, error) {
	common := make(map[string]float64)
	reference := make(map[string]float64)
	for id, s := range scores {
		if b, ok := baseline[id]; ok {
			common[id] = s
			reference[id] = b
		}
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("no common samples between model and baseline scores")
	}

	ids, ss, pp, err := Join(common, labels)
	if err != nil {
		return nil, err
	}
	m, err := Evaluate(ss, pp)
	if err != nil {
		return nil, fmt.Errorf("could not evaluate model: %w", err)
	}

	_, bb, pp, err := Join(reference, labels)
	if err != nil {
		return nil, err
	}
	b, err := Evaluate(bb, pp)
	if err != nil {
		return nil, fmt.Errorf("could not evaluate baseline: %w", err)
	}

	return &Comparison{
		Model:    m,
		Baseline: b,
		Samples:  ids,
		Delta:    m.AUC - b.AUC,
	}, nil
}
