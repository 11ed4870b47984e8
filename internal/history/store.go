// Package history persists download run records in a bbolt database so
// past runs and their per-job outcomes can be inspected after the fact.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// ErrRunNotFound is returned when a run ID is not present in the store.
var ErrRunNotFound = errors.New("run not found")

var (
	runsBucket     = []byte("runs")
	outcomesBucket = []byte("outcomes")
)

// RunRecord summarizes one download run.
type RunRecord struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"` // "url", "list" or "template"
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Success    int       `json:"success"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Total      int       `json:"total"`
}

// OutcomeRecord is one settled job within a run.
type OutcomeRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Target      string    `json:"target"`
	FinalURL    string    `json:"final_url,omitempty"`
	Status      string    `json:"status"`
	Destination string    `json:"destination"`
	Error       string    `json:"error,omitempty"`
}

// Store is a run-history store backed by bbolt. It is safe for concurrent
// use; bbolt serializes writers internally.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(outcomesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveRun inserts or updates a run record. Callers save once when the run
// starts and again with final counts when it finishes.
func (s *Store) SaveRun(run *RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		return tx.Bucket(runsBucket).Put([]byte(run.ID), data)
	})
}

// GetRun retrieves a run record by ID.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all stored run records.
func (s *Store) ListRuns() ([]*RunRecord, error) {
	var runs []*RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, data []byte) error {
			var run RunRecord
			if err := json.Unmarshal(data, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// AppendOutcome appends one settled job record under the given run ID.
// Outcomes keep their append order within a run.
func (s *Store) AppendOutcome(runID string, outcome OutcomeRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket(outcomesBucket).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		data, err := json.Marshal(outcome)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome: %w", err)
		}
		return bucket.Put(key, data)
	})
}

// RunOutcomes returns the settled job records for a run, in append order.
// A run with no recorded outcomes yields an empty slice.
func (s *Store) RunOutcomes(runID string) ([]OutcomeRecord, error) {
	var outcomes []OutcomeRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(outcomesBucket).Bucket([]byte(runID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, data []byte) error {
			var o OutcomeRecord
			if err := json.Unmarshal(data, &o); err != nil {
				return err
			}
			outcomes = append(outcomes, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
