package linear

import (
	"fmt"

	cvmath "github.com/drakos74/microbe-cv/internal/math"
	randomforest "github.com/malaschitz/randomForest"
	"gonum.org/v1/gonum/mat"
)

// RandomForest is a non linear comparator exposing the same capability as the linear models.
// Weights are the forest feature importances and the score is the share of votes for the positive class.
// NOTE : the forest draws from the global math/rand source, so fits are not reproducible by seed.
type RandomForest struct {
	trees  int
	p      int
	forest *randomforest.Forest
}

// NewForest creates a new random forest with the given number of trees.
func NewForest(trees int) *RandomForest {
	return &RandomForest{
		trees: trees,
	}
}

func (rf *RandomForest) Fit(x mat.Matrix, y []float64) error {
	if err := check(x, y); err != nil {
		return err
	}
	_, p := x.Dims()
	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: rows(x), Class: cvmath.ToInt(y)}
	forest.Train(rf.trees)
	if len(forest.FeatureImportance) != p {
		return fmt.Errorf("unexpected feature importance for %d features: %d", p, len(forest.FeatureImportance))
	}
	rf.forest = forest
	rf.p = p
	return nil
}

func (rf *RandomForest) Predict(x mat.Matrix) ([]float64, error) {
	if rf.forest == nil {
		return nil, fmt.Errorf("model not fitted")
	}
	n, p := x.Dims()
	if p != rf.p {
		return nil, fmt.Errorf("inconsistent dimensions %d columns for %d features", p, rf.p)
	}
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		votes := rf.forest.Vote(mat.Row(nil, i, x))
		if len(votes) > 1 {
			scores[i] = votes[1]
		}
	}
	return scores, nil
}

func (rf *RandomForest) Weights() []float64 {
	if rf.forest == nil {
		return []float64{}
	}
	return append([]float64{}, rf.forest.FeatureImportance...)
}

func (rf *RandomForest) Intercept() float64 {
	return 0
}
