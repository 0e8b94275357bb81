package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aweist/probables-watcher/models"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketRuns = "runs"
)

// RunLedger records every invocation of the job in a bbolt file.
type RunLedger struct {
	db *bolt.DB
}

func NewRunLedger(dbPath string) (*RunLedger, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		if err != nil {
			return fmt.Errorf("creating runs bucket: %w", err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunLedger{db: db}, nil
}

func (s *RunLedger) Close() error {
	return s.db.Close()
}

// runKey sorts chronologically under bbolt's byte ordering.
func runKey(run models.Run) []byte {
	return []byte(run.StartedAt.UTC().Format("20060102T150405.000000000Z") + "|" + run.ID)
}

func (s *RunLedger) RecordRun(run models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshaling run: %w", err)
		}

		return b.Put(runKey(run), data)
	})
}

// GetAllRuns returns the ledger newest first.
func (s *RunLedger) GetAllRuns() ([]models.Run, error) {
	runs := []models.Run{}

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run models.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unmarshaling run %s: %w", k, err)
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

// CleanupOldRuns drops ledger entries that started before the given time.
func (s *RunLedger) CleanupOldRuns(before time.Time) (int, error) {
	deleted := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))

		var keysToDelete [][]byte

		err := b.ForEach(func(k, v []byte) error {
			var run models.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}

			if run.StartedAt.Before(before) {
				keysToDelete = append(keysToDelete, k)
			}

			return nil
		})

		if err != nil {
			return err
		}

		for _, key := range keysToDelete {
			if err := b.Delete(key); err != nil {
				return err
			}
		}

		deleted = len(keysToDelete)
		return nil
	})

	return deleted, err
}
