package pipeline

import (
	"fmt"

	"github.com/drakos74/microbe-cv/internal/normalize"
	"github.com/drakos74/microbe-cv/internal/storage"
)

// Save stores the report, its normalization parameters and every fold artifact.
func Save(p storage.Persistence, r *Report) error {
	if err := p.Store(storage.Key{Run: r.RunID, Label: storage.ReportLabel}, r); err != nil {
		return fmt.Errorf("could not store report '%s': %w", r.RunID, err)
	}
	if r.Params != nil {
		if err := p.Store(storage.Key{Run: r.RunID, Label: storage.ParamsLabel}, r.Params); err != nil {
			return fmt.Errorf("could not store params '%s': %w", r.RunID, err)
		}
	}
	for _, a := range r.Artifacts {
		if a == nil {
			continue
		}
		if err := p.Store(storage.Key{Run: r.RunID, Label: storage.ModelLabel, Fold: a.Fold}, a); err != nil {
			return fmt.Errorf("could not store fold %d of '%s': %w", a.Fold, r.RunID, err)
		}
	}
	return nil
}

// Load restores the report of the given run.
func Load(p storage.Persistence, run string) (*Report, error) {
	var r Report
	if err := p.Load(storage.Key{Run: run, Label: storage.ReportLabel}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadParams restores the global normalization parameters of the given run.
func LoadParams(p storage.Persistence, run string) (*normalize.Params, error) {
	var params normalize.Params
	if err := p.Load(storage.Key{Run: run, Label: storage.ParamsLabel}, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
