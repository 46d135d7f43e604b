// Package manifest records the chunk ids written by the last successful
// ingestion run so that later runs can report ids they no longer produce.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketChunks = []byte("chunks")
	bucketRuns   = []byte("runs")
	keyLastRun   = []byte("last")
)

// Entry describes one chunk written to the index.
type Entry struct {
	ChunkID     string `json:"chunk_id"`
	Filename    string `json:"filename"`
	Category    string `json:"category"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Run summarizes a completed ingestion.
type Run struct {
	Location    string    `json:"location"`
	Revision    string    `json:"revision,omitempty"`
	Documents   int       `json:"documents"`
	Chunks      int       `json:"chunks"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store is a bbolt-backed manifest.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the manifest at path, creating parent directories.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entries returns the recorded chunks ordered by id.
func (s *Store) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode manifest entry %s: %w", k, err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Orphans returns recorded chunk ids absent from current, sorted.
func (s *Store) Orphans(current []string) ([]string, error) {
	seen := make(map[string]struct{}, len(current))
	for _, id := range current {
		seen[id] = struct{}{}
	}

	var orphans []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, _ []byte) error {
			if _, ok := seen[string(k)]; !ok {
				orphans = append(orphans, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(orphans)
	return orphans, nil
}

// Replace swaps the recorded chunk set for entries and stores run as the last run.
func (s *Store) Replace(entries []Entry, run Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketChunks); err != nil {
			return err
		}
		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		for _, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := chunks.Put([]byte(e.ChunkID), data); err != nil {
				return err
			}
		}

		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put(keyLastRun, data)
	})
}

// LastRun returns the most recent run, or nil when none has completed.
func (s *Store) LastRun() (*Run, error) {
	var run *Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get(keyLastRun)
		if data == nil {
			return nil
		}
		run = &Run{}
		return json.Unmarshal(data, run)
	})
	return run, err
}
