package fold

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/drakos74/microbe-cv/internal/model"
)

// Assignment maps every sample to one fold in [1,K].
// An Assignment is immutable; callers should reuse the same instance within a run.
type Assignment struct {
	k     int
	ids   []string
	folds map[string]int
}

// Assign distributes the samples over k folds.
// A repeating sequence 1..k is tiled to the number of samples, permuted with the seeded source
// and assigned to the samples in the given order.
func Assign(ids []string, k int, seed int64) (*Assignment, error) {
	if err := validate(ids, k); err != nil {
		return nil, err
	}
	rnd := rand.New(rand.NewSource(seed))
	tiles := tile(len(ids), k, 0)
	rnd.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return newAssignment(k, ids, tiles), nil
}

// AssignStratified distributes the samples over k folds, balancing the classes across folds.
// The tiling keeps cycling from one class to the next, so that fold sizes still differ by at most one,
// and it is permuted within each class only.
func AssignStratified(ids []string, classes []model.Class, k int, seed int64) (*Assignment, error) {
	if err := validate(ids, k); err != nil {
		return nil, err
	}
	if len(classes) != len(ids) {
		return nil, fmt.Errorf("inconsistent dimensions %d classes for %d samples", len(classes), len(ids))
	}
	rnd := rand.New(rand.NewSource(seed))

	groups := make(map[model.Class][]int)
	for i, c := range classes {
		groups[c] = append(groups[c], i)
	}
	order := make([]model.Class, 0, len(groups))
	for c := range groups {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i] < order[j]
	})

	tiles := make([]int, len(ids))
	offset := 0
	for _, c := range order {
		members := groups[c]
		group := tile(len(members), k, offset)
		rnd.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		for i, idx := range members {
			tiles[idx] = group[i]
		}
		offset = (offset + len(members)) % k
	}
	return newAssignment(k, ids, tiles), nil
}

func validate(ids []string, k int) error {
	if k < 2 {
		return fmt.Errorf("need at least 2 folds: %d", k)
	}
	if k > len(ids) {
		return fmt.Errorf("cannot split %d samples into %d folds", len(ids), k)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate sample '%s'", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// tile creates the sequence 1..k repeated up to length n, starting at the given offset.
func tile(n, k, offset int) []int {
	tiles := make([]int, n)
	for i := range tiles {
		tiles[i] = (offset+i)%k + 1
	}
	return tiles
}

func newAssignment(k int, ids []string, tiles []int) *Assignment {
	folds := make(map[string]int, len(ids))
	for i, id := range ids {
		folds[id] = tiles[i]
	}
	return &Assignment{
		k:     k,
		ids:   append([]string{}, ids...),
		folds: folds,
	}
}

// K returns the number of folds.
func (a *Assignment) K() int {
	return a.k
}

// Len returns the number of assigned samples.
func (a *Assignment) Len() int {
	return len(a.ids)
}

// IDs returns the assigned samples in assignment order.
func (a *Assignment) IDs() []string {
	return append([]string{}, a.ids...)
}

// Of returns the fold of the given sample.
func (a *Assignment) Of(id string) (int, bool) {
	f, ok := a.folds[id]
	return f, ok
}

// HeldOut returns the samples of fold f, in assignment order.
func (a *Assignment) HeldOut(f int) []string {
	ids := make([]string, 0)
	for _, id := range a.ids {
		if a.folds[id] == f {
			ids = append(ids, id)
		}
	}
	return ids
}

// Training returns the samples outside of fold f, in assignment order.
func (a *Assignment) Training(f int) []string {
	ids := make([]string, 0)
	for _, id := range a.ids {
		if a.folds[id] != f {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sizes returns the number of samples in each fold, indexed by fold - 1.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.k)
	for _, f := range a.folds {
		sizes[f-1]++
	}
	return sizes
}

// Folds returns a copy of the assignment keyed by sample id.
func (a *Assignment) Folds() map[string]int {
	ff := make(map[string]int, len(a.folds))
	for id, f := range a.folds {
		ff[id] = f
	}
	return ff
}
