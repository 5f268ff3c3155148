package storage

import (
	"errors"
	"fmt"
)

const (
	// ReportLabel is the label of the cross validation reports.
	ReportLabel = "report"
	// ParamsLabel is the label of the normalization parameters.
	ParamsLabel = "params"
	// ModelLabel is the label of a trained model.
	ModelLabel = "model"
)

var (
	// DefaultDir is the root directory of the file based storage.
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

var (
	NotFoundErr     = errors.New("not found")
	CouldNotLoadErr = errors.New("could not load")
)

// Key is the storage key of a run artifact.
// Fold is 0 for artifacts of the whole run.
type Key struct {
	Run   string `json:"run"`
	Label string `json:"label"`
	Fold  int    `json:"fold"`
}

// Path returns the flat representation of the key.
func (k Key) Path() string {
	return fmt.Sprintf("%s_%s_%d", k.Run, k.Label, k.Fold)
}

// Persistence stores and loads json serializable values.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}
