package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(ts time.Time, label int) PredictionRecord {
	return PredictionRecord{
		Timestamp:     ts,
		Source:        "ui",
		ModelVersion:  "lr-test",
		Columns:       []string{"Complaints", "Status", "Age"},
		Values:        []float64{1, 2, 40},
		Label:         label,
		Probabilities: [2]float64{0.05, 0.95},
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	invalidPath := filepath.Join(t.TempDir(), "missing", "dir")

	_, err := New(invalidPath)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestSavePrediction_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)

	rec := sampleRecord(time.Time{}, 1)
	saved, err := store.SavePrediction(rec)
	if err != nil {
		t.Fatalf("SavePrediction failed: %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected an id to be assigned")
	}
	if saved.Timestamp.IsZero() {
		t.Error("Expected a timestamp to be assigned")
	}

	got, err := store.GetPrediction(saved.ID)
	if err != nil {
		t.Fatalf("GetPrediction failed: %v", err)
	}
	if got.Label != 1 || got.Probabilities[1] != 0.95 {
		t.Errorf("Unexpected record: %+v", got)
	}
	if len(got.Columns) != 3 || got.Columns[2] != "Age" || got.Values[2] != 40 {
		t.Errorf("Columns and values not preserved: %+v", got)
	}
}

func TestSavePrediction_RejectsMismatchedRecord(t *testing.T) {
	store := newTestStore(t)

	rec := sampleRecord(time.Now(), 0)
	rec.Values = rec.Values[:1]
	if _, err := store.SavePrediction(rec); err == nil {
		t.Error("Expected error for mismatched columns and values")
	}
}

func TestSavePrediction_DuplicateID(t *testing.T) {
	store := newTestStore(t)

	rec := sampleRecord(time.Now(), 0)
	rec.ID = "fixed-id"
	if _, err := store.SavePrediction(rec); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if _, err := store.SavePrediction(rec); err == nil {
		t.Error("Expected error for duplicate id")
	}
}

func TestGetPrediction_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPrediction("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRecentPredictions_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := store.SavePrediction(sampleRecord(base.Add(time.Duration(i)*time.Minute), i%2)); err != nil {
			t.Fatalf("SavePrediction failed: %v", err)
		}
	}

	recent, err := store.RecentPredictions(3)
	if err != nil {
		t.Fatalf("RecentPredictions failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recent))
	}
	for i, want := range []time.Time{base.Add(4 * time.Minute), base.Add(3 * time.Minute), base.Add(2 * time.Minute)} {
		if !recent[i].Timestamp.Equal(want) {
			t.Errorf("record %d: expected %v, got %v", i, want, recent[i].Timestamp)
		}
	}

	none, err := store.RecentPredictions(0)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no records for limit 0, got %d (%v)", len(none), err)
	}

	n, err := store.Count()
	if err != nil || n != 5 {
		t.Errorf("Expected count 5, got %d (%v)", n, err)
	}
}

func TestPredictionsInRange(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		if _, err := store.SavePrediction(sampleRecord(base.Add(time.Duration(i)*time.Hour), 0)); err != nil {
			t.Fatalf("SavePrediction failed: %v", err)
		}
	}

	records, err := store.PredictionsInRange(base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("PredictionsInRange failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records (inclusive range), got %d", len(records))
	}
	if !records[0].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected oldest first, got %v", records[0].Timestamp)
	}

	empty, err := store.PredictionsInRange(base.Add(48*time.Hour), base.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("PredictionsInRange failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no records, got %d", len(empty))
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saved, err := store.SavePrediction(sampleRecord(time.Now(), 1))
	if err != nil {
		t.Fatalf("SavePrediction failed: %v", err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetPrediction(saved.ID); err != nil {
		t.Errorf("Expected record to survive reopen: %v", err)
	}
}
