// Package bolt stores run artifacts in a single bbolt database file.
package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drakos74/microbe-cv/internal/storage"
	"go.etcd.io/bbolt"
)

const fileName = "cv.db"

// Store persists values as json documents, one bucket per table.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// New opens or creates the database under the given directory.
func New(dir, table string) (*Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("could not make dir: %s: %w", dir, err)
	}
	db, err := bbolt.Open(filepath.Join(dir, fileName), 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	bucket := []byte(table)
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("create %s bucket: %w", table, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: bucket}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Store(k storage.Key, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal '%s': %w", k.Path(), err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(k.Path()), data)
	})
}

func (s *Store) Load(k storage.Key, value interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(k.Path()))
		if data == nil {
			return fmt.Errorf("not found '%s': %w", k.Path(), storage.NotFoundErr)
		}
		if err := json.Unmarshal(data, value); err != nil {
			return fmt.Errorf("could not unmarshal '%s': '%v': %w", k.Path(), err, storage.CouldNotLoadErr)
		}
		return nil
	})
}

// Keys returns the stored keys of the given run, in key order.
func (s *Store) Keys(run string) ([]string, error) {
	keys := make([]string, 0)
	prefix := []byte(run + "_")
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
