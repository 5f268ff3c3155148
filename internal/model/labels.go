package model

import (
	"fmt"
	"sort"
)

// Class is the binary outcome of a sample.
type Class int

const (
	// Negative is the reference class e.g. control.
	Negative Class = iota
	// Positive is the class of interest e.g. case.
	Positive
)

func (c Class) String() string {
	switch c {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Float returns the numeric training target of the class.
func (c Class) Float() float64 {
	if c == Positive {
		return 1
	}
	return 0
}

// Labels maps sample ids to one of two symbolic levels.
type Labels struct {
	positive string
	negative string
	classes  map[string]Class
}

// NewLabels creates the label vector for the given sample levels.
// Exactly two distinct levels must be present and one of them must be the positive level.
func NewLabels(values map[string]string, positive string) (*Labels, error) {
	levels := make(map[string]int)
	for _, v := range values {
		levels[v]++
	}
	if len(levels) != 2 {
		names := make([]string, 0, len(levels))
		for l := range levels {
			names = append(names, l)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("expected exactly two label levels but found %d %v", len(levels), names)
	}
	if _, ok := levels[positive]; !ok {
		return nil, fmt.Errorf("positive level '%s' not present in labels", positive)
	}
	var negative string
	for l := range levels {
		if l != positive {
			negative = l
		}
	}
	classes := make(map[string]Class, len(values))
	for id, v := range values {
		if v == positive {
			classes[id] = Positive
		} else {
			classes[id] = Negative
		}
	}
	return &Labels{
		positive: positive,
		negative: negative,
		classes:  classes,
	}, nil
}

// Class returns the class of the given sample.
func (l *Labels) Class(id string) (Class, bool) {
	c, ok := l.classes[id]
	return c, ok
}

// Level returns the symbolic level of the given class.
func (l *Labels) Level(c Class) string {
	if c == Positive {
		return l.positive
	}
	return l.negative
}

// Len returns the number of labelled samples.
func (l *Labels) Len() int {
	return len(l.classes)
}

// IDs returns the labelled sample ids, sorted.
func (l *Labels) IDs() []string {
	ids := make([]string, 0, len(l.classes))
	for id := range l.classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of positive and negative samples.
func (l *Labels) Count() (int, int) {
	var p, n int
	for _, c := range l.classes {
		if c == Positive {
			p++
		} else {
			n++
		}
	}
	return p, n
}

// Dataset is a feature matrix joined with its labels.
type Dataset struct {
	Matrix  *Matrix
	Labels  *Labels
	classes []Class
}

// Join validates that features and labels cover exactly the same samples.
func Join(m *Matrix, l *Labels) (*Dataset, error) {
	left, right := diff(m.sIndex, l.index())
	if len(left) > 0 || len(right) > 0 {
		return nil, &AlignmentError{Context: "features/labels", Left: left, Right: right}
	}
	classes := make([]Class, len(m.samples))
	for i, id := range m.samples {
		classes[i] = l.classes[id]
	}
	return &Dataset{
		Matrix:  m,
		Labels:  l,
		classes: classes,
	}, nil
}

func (l *Labels) index() map[string]int {
	idx := make(map[string]int, len(l.classes))
	for id, c := range l.classes {
		idx[id] = int(c)
	}
	return idx
}

// Classes returns the classes aligned with the matrix rows.
func (ds *Dataset) Classes() []Class {
	return append([]Class{}, ds.classes...)
}

// ClassesOf returns the classes of the given samples.
func (ds *Dataset) ClassesOf(ids []string) []Class {
	cc := make([]Class, len(ids))
	for i, id := range ids {
		cc[i] = ds.Labels.classes[id]
	}
	return cc
}

// Targets returns the numeric targets of the given samples.
func (ds *Dataset) Targets(ids []string) []float64 {
	yy := make([]float64, len(ids))
	for i, id := range ids {
		yy[i] = ds.Labels.classes[id].Float()
	}
	return yy
}
