package features

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Collector turns user-supplied values into a CustomerFeatureRecord keyed by
// the column names of one naming convention.
type Collector struct {
	naming Naming
}

// NewCollector returns a collector producing columns named under n.
func NewCollector(n Naming) *Collector {
	return &Collector{naming: n}
}

// Naming returns the collector's column naming convention.
func (c *Collector) Naming() Naming { return c.naming }

// Defaults returns the record a blank form produces.
func (c *Collector) Defaults() Record {
	var r Record
	for _, f := range Catalog {
		r.set(c.naming.Column(f), f.Default)
	}
	return r
}

// Collect builds a record from raw form values keyed by feature id. Empty or
// missing values take the field default; numeric values are clamped into the
// field's range.
func (c *Collector) Collect(input map[string]string) (Record, error) {
	var r Record
	for _, f := range Catalog {
		raw, ok := input[string(f.Feature)]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			r.set(c.naming.Column(f), f.Default)
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, &InputError{Field: f.Label, Value: raw, Reason: "not a number"}
		}
		v, err = accept(f, v, raw)
		if err != nil {
			return Record{}, err
		}
		r.set(c.naming.Column(f), v)
	}
	return r, nil
}

// CollectNumbers builds a record from decoded numeric values. Keys may be
// feature ids or column names in either convention; unknown keys and two keys
// naming the same feature are rejected.
func (c *Collector) CollectNumbers(input map[string]float64) (Record, error) {
	given := make(map[Feature]float64, len(input))
	for _, k := range slices.Sorted(maps.Keys(input)) {
		v := input[k]
		f, ok := Lookup(k)
		if !ok {
			return Record{}, &InputError{Field: k, Value: strconv.FormatFloat(v, 'f', -1, 64), Reason: "unknown feature"}
		}
		if _, dup := given[f.Feature]; dup {
			return Record{}, &InputError{Field: f.Label, Value: k, Reason: "given more than once"}
		}
		given[f.Feature] = v
	}

	var r Record
	for _, f := range Catalog {
		v, ok := given[f.Feature]
		if !ok {
			r.set(c.naming.Column(f), f.Default)
			continue
		}
		v, err := accept(f, v, strconv.FormatFloat(v, 'f', -1, 64))
		if err != nil {
			return Record{}, err
		}
		r.set(c.naming.Column(f), v)
	}
	return r, nil
}

// accept applies the widget constraints of f to v.
func accept(f Field, v float64, raw string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InputError{Field: f.Label, Value: raw, Reason: "must be a finite number"}
	}
	if f.Kind == KindInt && v != math.Trunc(v) {
		return 0, &InputError{Field: f.Label, Value: raw, Reason: "must be a whole number"}
	}
	if f.IsChoice() {
		for _, o := range f.Options {
			if v == o {
				return v, nil
			}
		}
		return 0, &InputError{Field: f.Label, Value: raw, Reason: "not one of the allowed options"}
	}

	clamped := v
	if clamped < f.Min {
		clamped = f.Min
	}
	if f.Bounded() && clamped > f.Max {
		clamped = f.Max
	}
	if clamped != v {
		log.Debug().
			Str("feature", string(f.Feature)).
			Float64("value", v).
			Float64("clamped", clamped).
			Msg("input clamped to field range")
	}
	return clamped, nil
}
