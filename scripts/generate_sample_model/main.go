// Command generate_sample_model writes a small logistic-regression artifact
// in the native churn-model/v1 format. The coefficients are hand-tuned to
// the direction of the effects in the customer churn dataset; the artifact
// is for demos and smoke tests, not for real decisions.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
)

// Per-feature parameters in features.TrainingOrder.
var (
	coefficients = map[features.Feature]float64{
		features.Complaints:            1.6,
		features.Status:                1.2,
		features.SecondsOfUse:          -0.9,
		features.SubscriptionLength:    -0.3,
		features.FrequencyOfUse:        -0.6,
		features.CallFailure:           0.4,
		features.DistinctCalledNumbers: -0.5,
		features.CustomerValue:         -0.8,
		features.FrequencyOfSMS:        -0.4,
		features.AgeGroup:              0.05,
		features.Age:                   0.02,
		features.ChargeAmount:          -0.3,
		features.TariffPlan:            -0.5,
	}
	means = map[features.Feature]float64{
		features.Complaints:            0.08,
		features.Status:                1.25,
		features.SecondsOfUse:          4470,
		features.SubscriptionLength:    32.5,
		features.FrequencyOfUse:        70,
		features.CallFailure:           7.6,
		features.DistinctCalledNumbers: 23.5,
		features.CustomerValue:         471,
		features.FrequencyOfSMS:        73,
		features.AgeGroup:              2.8,
		features.Age:                   31,
		features.ChargeAmount:          0.94,
		features.TariffPlan:            1.08,
	}
	scales = map[features.Feature]float64{
		features.Complaints:            0.27,
		features.Status:                0.43,
		features.SecondsOfUse:          4198,
		features.SubscriptionLength:    8.6,
		features.FrequencyOfUse:        57,
		features.CallFailure:           7.3,
		features.DistinctCalledNumbers: 17.2,
		features.CustomerValue:         517,
		features.FrequencyOfSMS:        112,
		features.AgeGroup:              0.89,
		features.Age:                   8.6,
		features.ChargeAmount:          1.52,
		features.TariffPlan:            0.27,
	}
)

func main() {
	var (
		outputPath = flag.String("output", "models/churn_model.json", "Artifact output path")
		naming     = flag.String("naming", "underscored", "Column naming convention [spaced, underscored]")
		version    = flag.String("version", "sample-1.0", "Model version string")
		intercept  = flag.Float64("intercept", -3.5, "Logistic intercept")
	)
	flag.Parse()

	n, err := features.ParseNaming(*naming)
	if err != nil {
		log.Fatalf("Invalid naming: %v", err)
	}
	schema := features.DefaultSchema(n)

	lr := &ml.LogisticParams{Intercept: *intercept}
	for _, id := range features.TrainingOrder {
		lr.Coefficients = append(lr.Coefficients, coefficients[id])
		lr.Mean = append(lr.Mean, means[id])
		lr.Scale = append(lr.Scale, scales[id])
	}

	artifact := ml.Artifact{
		Format:    ml.ArtifactFormat,
		Kind:      ml.KindLogisticRegression,
		Version:   *version,
		TrainedAt: time.Now().UTC().Truncate(time.Second),
		Features:  schema.Columns,
		Logistic:  lr,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode artifact: %v", err)
	}

	// Round-trip through the loader so a broken artifact is never written.
	if _, err := ml.DecodeArtifact(data); err != nil {
		log.Fatalf("Generated artifact is invalid: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := os.WriteFile(*outputPath, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("Failed to write artifact: %v", err)
	}

	fmt.Printf("Wrote %s model %s with %d %s columns to %s\n",
		artifact.Kind, artifact.Version, len(schema.Columns), n, *outputPath)
}
