// Package storage provides persistent prediction history for the churn
// prediction service. It uses BoltDB as the underlying storage engine.
//
// Records are keyed by zero-padded timestamp so cursor scans return them in
// chronological order, and a secondary bucket indexes them by id.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions"    // Prediction records keyed by time
	idIndexBucket     = "prediction_ids" // id -> predictions key

	// DBFile is the database file name inside the data path.
	DBFile = "churn-history.db"
)

// ErrNotFound is returned when a prediction id is unknown.
var ErrNotFound = errors.New("prediction not found")

// PredictionRecord is one stored classification.
type PredictionRecord struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	Source        string     `json:"source"`
	ModelVersion  string     `json:"model_version"`
	Columns       []string   `json:"columns"`
	Values        []float64  `json:"values"`
	Label         int        `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
}

// Store provides persistent storage for prediction history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens or creates the history database in dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(idIndexBucket)); err != nil {
			return fmt.Errorf("create id index bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePrediction stores rec, assigning an id and timestamp when unset.
// It returns the stored record.
func (s *Store) SavePrediction(rec PredictionRecord) (PredictionRecord, error) {
	if len(rec.Columns) != len(rec.Values) {
		return rec, fmt.Errorf("record has %d columns and %d values", len(rec.Columns), len(rec.Values))
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		idx := tx.Bucket([]byte(idIndexBucket))

		if idx.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("prediction %s already exists", rec.ID)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		key := recordKey(rec.Timestamp, rec.ID)
		if err := b.Put(key, data); err != nil {
			return err
		}
		return idx.Put([]byte(rec.ID), key)
	})
	return rec, err
}

// GetPrediction returns the record with the given id.
func (s *Store) GetPrediction(id string) (PredictionRecord, error) {
	var rec PredictionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(idIndexBucket)).Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		data := tx.Bucket([]byte(predictionsBucket)).Get(key)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	records := make([]PredictionRecord, 0, limit)

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// PredictionsInRange returns records with start <= timestamp <= end, oldest first.
func (s *Store) PredictionsInRange(start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		// '~' sorts after every id character, making the end bound inclusive.
		endKey := []byte(fmt.Sprintf("%020d_~", end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Count returns the number of stored predictions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func recordKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", ts.UnixNano(), id))
}
