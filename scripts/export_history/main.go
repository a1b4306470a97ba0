// Command export_history dumps stored predictions as newline-delimited JSON,
// one object per prediction with the record keyed by column name.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"churn-predictor/internal/storage"
)

// ExportRecord is one exported prediction.
type ExportRecord struct {
	ID               string             `json:"id"`
	Timestamp        int64              `json:"timestamp"`
	Source           string             `json:"source"`
	ModelVersion     string             `json:"model_version"`
	Features         map[string]float64 `json:"features"`
	Label            int                `json:"label"`
	ChurnProbability float64            `json:"churn_probability"`
}

func main() {
	var (
		dataPath   = flag.String("data", "data", "Data directory holding "+storage.DBFile)
		outputPath = flag.String("output", "predictions.ndjson", "Output file path")
		days       = flag.Int("days", 30, "Number of days to export (0 for all)")
	)
	flag.Parse()

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	end := time.Now().UTC()
	start := time.Unix(0, 0).UTC()
	if *days > 0 {
		start = end.AddDate(0, 0, -*days)
	}

	records, err := store.PredictionsInRange(start, end)
	if err != nil {
		log.Fatalf("Failed to read predictions: %v", err)
	}
	if len(records) == 0 {
		log.Println("Warning: No predictions found in range")
	}

	outputFile, err := os.Create(*outputPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer outputFile.Close()

	encoder := json.NewEncoder(outputFile)
	churned := 0
	for _, rec := range records {
		row := make(map[string]float64, len(rec.Columns))
		for i, col := range rec.Columns {
			row[col] = rec.Values[i]
		}
		if rec.Label == 1 {
			churned++
		}
		if err := encoder.Encode(ExportRecord{
			ID:               rec.ID,
			Timestamp:        rec.Timestamp.Unix(),
			Source:           rec.Source,
			ModelVersion:     rec.ModelVersion,
			Features:         row,
			Label:            rec.Label,
			ChurnProbability: rec.Probabilities[1],
		}); err != nil {
			log.Fatalf("Failed to write JSON record: %v", err)
		}
	}

	log.Printf("Exported %d predictions to %s (%d predicted to churn)", len(records), *outputPath, churned)
	if len(records) > 0 {
		log.Printf("Time range: %v to %v",
			records[0].Timestamp.Format("2006-01-02 15:04:05"),
			records[len(records)-1].Timestamp.Format("2006-01-02 15:04:05"))
	}
}
