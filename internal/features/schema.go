// Package features defines the customer feature schema shared by the form,
// the normalizer and the model adapter.
//
// The schema is the contract between user input and the trained classifier:
// thirteen named fields, each with a type, a domain and a default. Column names
// come in two conventions (spaced and underscored) depending on how the model
// artifact was trained; the convention and the training column order are
// configuration, never guessed.
package features

import (
	"fmt"
	"math"
	"strings"
)

// Feature is the stable identifier of a customer attribute.
type Feature string

const (
	CallFailure           Feature = "call_failure"
	Complaints            Feature = "complaints"
	SubscriptionLength    Feature = "subscription_length"
	ChargeAmount          Feature = "charge_amount"
	SecondsOfUse          Feature = "seconds_of_use"
	FrequencyOfUse        Feature = "frequency_of_use"
	FrequencyOfSMS        Feature = "frequency_of_sms"
	DistinctCalledNumbers Feature = "distinct_called_numbers"
	AgeGroup              Feature = "age_group"
	TariffPlan            Feature = "tariff_plan"
	Status                Feature = "status"
	Age                   Feature = "age"
	CustomerValue         Feature = "customer_value"
)

// Kind is the value type of a field.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	if k == KindFloat {
		return "float"
	}
	return "integer"
}

// Field describes one attribute of a CustomerFeatureRecord.
type Field struct {
	Feature     Feature
	Spaced      string
	Underscored string
	Label       string
	Kind        Kind
	Min         float64
	Max         float64 // +Inf when unbounded
	Options     []float64
	Default     float64
}

// Bounded reports whether the field has a finite upper bound.
func (f Field) Bounded() bool {
	return !math.IsInf(f.Max, 1)
}

// IsChoice reports whether the field only accepts listed options.
func (f Field) IsChoice() bool {
	return len(f.Options) > 0
}

var unbounded = math.Inf(1)

// Catalog lists the thirteen fields in form order.
var Catalog = []Field{
	{Feature: CallFailure, Spaced: "Call Failure", Underscored: "Call_Failure", Label: "Number of Call Failures", Kind: KindInt, Min: 0, Max: unbounded, Default: 0},
	{Feature: Complaints, Spaced: "Complaints", Underscored: "Complaints", Label: "Complaints (0 = No, 1 = Yes)", Kind: KindInt, Min: 0, Max: 1, Default: 0},
	{Feature: SubscriptionLength, Spaced: "Subscription Length", Underscored: "Subscription_Length", Label: "Subscription Length (months)", Kind: KindInt, Min: 1, Max: unbounded, Default: 3},
	{Feature: ChargeAmount, Spaced: "Charge Amount", Underscored: "Charge_Amount", Label: "Charge Amount (Category)", Kind: KindInt, Min: 0, Max: 9, Default: 1},
	{Feature: SecondsOfUse, Spaced: "Seconds of Use", Underscored: "Seconds_of_Use", Label: "Total Seconds of Use", Kind: KindFloat, Min: 0, Max: unbounded, Default: 150},
	{Feature: FrequencyOfUse, Spaced: "Frequency of use", Underscored: "Frequency_of_use", Label: "Total Number of Calls", Kind: KindInt, Min: 0, Max: unbounded, Default: 5},
	{Feature: FrequencyOfSMS, Spaced: "Frequency of SMS", Underscored: "Frequency_of_SMS", Label: "Total Number of SMS", Kind: KindInt, Min: 0, Max: unbounded, Default: 0},
	{Feature: DistinctCalledNumbers, Spaced: "Distinct Called Numbers", Underscored: "Distinct_Called_Numbers", Label: "Distinct Called Numbers", Kind: KindInt, Min: 0, Max: unbounded, Default: 4},
	{Feature: AgeGroup, Spaced: "Age Group", Underscored: "Age_Group", Label: "Age Group (Category)", Kind: KindInt, Min: 1, Max: 5, Default: 2},
	{Feature: TariffPlan, Spaced: "Tariff Plan", Underscored: "Tariff_Plan", Label: "Tariff Plan (1 = PayGo, 2 = Contractual)", Kind: KindInt, Min: 1, Max: 2, Options: []float64{1, 2}, Default: 1},
	{Feature: Status, Spaced: "Status", Underscored: "Status", Label: "Customer Status (1 = Active, 2 = Non-active)", Kind: KindInt, Min: 1, Max: 2, Options: []float64{1, 2}, Default: 1},
	{Feature: Age, Spaced: "Age", Underscored: "Age", Label: "Age", Kind: KindInt, Min: 18, Max: 100, Default: 25},
	{Feature: CustomerValue, Spaced: "Customer Value", Underscored: "Customer_Value", Label: "Customer Value ($)", Kind: KindFloat, Min: 0, Max: unbounded, Default: 200},
}

// TrainingOrder is the column order the reference churn artifact was trained on.
var TrainingOrder = []Feature{
	Complaints, Status, SecondsOfUse, SubscriptionLength,
	FrequencyOfUse, CallFailure, DistinctCalledNumbers,
	CustomerValue, FrequencyOfSMS, AgeGroup, Age,
	ChargeAmount, TariffPlan,
}

// Naming selects the column naming convention.
type Naming string

const (
	NamingSpaced      Naming = "spaced"
	NamingUnderscored Naming = "underscored"
)

// ParseNaming parses a naming convention name.
func ParseNaming(s string) (Naming, error) {
	switch Naming(strings.ToLower(strings.TrimSpace(s))) {
	case NamingSpaced:
		return NamingSpaced, nil
	case NamingUnderscored:
		return NamingUnderscored, nil
	default:
		return "", fmt.Errorf("unknown column naming %q (want %q or %q)", s, NamingSpaced, NamingUnderscored)
	}
}

// Column returns the column name of f under this convention.
func (n Naming) Column(f Field) string {
	if n == NamingSpaced {
		return f.Spaced
	}
	return f.Underscored
}

// FieldOf returns the catalog entry for a feature id.
func FieldOf(id Feature) (Field, bool) {
	for _, f := range Catalog {
		if f.Feature == id {
			return f, true
		}
	}
	return Field{}, false
}

// Lookup resolves a feature id or a column name in either convention.
func Lookup(name string) (Field, bool) {
	for _, f := range Catalog {
		if string(f.Feature) == name || f.Spaced == name || f.Underscored == name {
			return f, true
		}
	}
	return Field{}, false
}

// Schema is the column contract between the collector and the model.
type Schema struct {
	Naming  Naming
	Columns []string
}

// DefaultSchema returns TrainingOrder under naming n.
func DefaultSchema(n Naming) Schema {
	cols := make([]string, len(TrainingOrder))
	for i, id := range TrainingOrder {
		f, _ := FieldOf(id)
		cols[i] = n.Column(f)
	}
	return Schema{Naming: n, Columns: cols}
}

// NewSchema builds a schema from a configured column order. An empty list
// selects TrainingOrder. Columns are taken verbatim: a name the collector
// cannot produce surfaces later as a SchemaMismatchError.
func NewSchema(n Naming, columns []string) (Schema, error) {
	if len(columns) == 0 {
		return DefaultSchema(n), nil
	}
	seen := make(map[string]struct{}, len(columns))
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return Schema{}, fmt.Errorf("schema column list contains an empty name")
		}
		if _, dup := seen[c]; dup {
			return Schema{}, fmt.Errorf("schema column %q listed twice", c)
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	return Schema{Naming: n, Columns: cols}, nil
}

// Field returns the catalog field behind a column of this schema.
func (s Schema) Field(column string) (Field, bool) {
	for _, f := range Catalog {
		if s.Naming.Column(f) == column {
			return f, true
		}
	}
	return Field{}, false
}
