package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_HasThirteenUniqueFields(t *testing.T) {
	require.Len(t, Catalog, 13)

	ids := map[Feature]bool{}
	spaced := map[string]bool{}
	underscored := map[string]bool{}
	for _, f := range Catalog {
		assert.False(t, ids[f.Feature], "duplicate feature %s", f.Feature)
		assert.False(t, spaced[f.Spaced], "duplicate spaced column %s", f.Spaced)
		assert.False(t, underscored[f.Underscored], "duplicate underscored column %s", f.Underscored)
		ids[f.Feature] = true
		spaced[f.Spaced] = true
		underscored[f.Underscored] = true

		assert.GreaterOrEqual(t, f.Default, f.Min, "default below min for %s", f.Feature)
		if f.Bounded() {
			assert.LessOrEqual(t, f.Default, f.Max, "default above max for %s", f.Feature)
		}
	}

	require.Len(t, TrainingOrder, 13)
	for _, id := range TrainingOrder {
		_, ok := FieldOf(id)
		assert.True(t, ok, "training order references unknown feature %s", id)
	}
}

func TestDefaultSchema_Underscored(t *testing.T) {
	s := DefaultSchema(NamingUnderscored)
	assert.Equal(t, []string{
		"Complaints", "Status", "Seconds_of_Use", "Subscription_Length",
		"Frequency_of_use", "Call_Failure", "Distinct_Called_Numbers",
		"Customer_Value", "Frequency_of_SMS", "Age_Group", "Age",
		"Charge_Amount", "Tariff_Plan",
	}, s.Columns)
}

func TestDefaultSchema_Spaced(t *testing.T) {
	s := DefaultSchema(NamingSpaced)
	assert.Equal(t, "Seconds of Use", s.Columns[2])
	assert.Equal(t, "Frequency of use", s.Columns[4])

	f, ok := s.Field("Customer Value")
	require.True(t, ok)
	assert.Equal(t, CustomerValue, f.Feature)
}

func TestParseNaming(t *testing.T) {
	n, err := ParseNaming(" Spaced ")
	require.NoError(t, err)
	assert.Equal(t, NamingSpaced, n)

	_, err = ParseNaming("camel")
	assert.Error(t, err)
}

func TestNewSchema(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		wantErr bool
		wantLen int
	}{
		{"empty selects default order", nil, false, 13},
		{"custom order", []string{"Age", "Status"}, false, 2},
		{"duplicate column", []string{"Age", "Age"}, true, 0},
		{"blank column", []string{"Age", " "}, true, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSchema(NamingUnderscored, tc.columns)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Columns, tc.wantLen)
		})
	}
}

func TestCollector_DefaultsHaveAllThirteenKeys(t *testing.T) {
	for _, n := range []Naming{NamingSpaced, NamingUnderscored} {
		r := NewCollector(n).Defaults()
		require.Equal(t, 13, r.Len())
		for _, f := range Catalog {
			v, ok := r.Value(n.Column(f))
			require.True(t, ok, "missing column %s", n.Column(f))
			assert.Equal(t, f.Default, v)
		}
	}
}

func TestCollector_CollectValidValues(t *testing.T) {
	c := NewCollector(NamingSpaced)
	r, err := c.Collect(map[string]string{
		"call_failure":            "3",
		"complaints":              "1",
		"subscription_length":     "38",
		"charge_amount":           "9",
		"seconds_of_use":          "4370.5",
		"frequency_of_use":        "71",
		"frequency_of_sms":        "5",
		"distinct_called_numbers": "17",
		"age_group":               "5",
		"tariff_plan":             "2",
		"status":                  "2",
		"age":                     "100",
		"customer_value":          "197.64",
	})
	require.NoError(t, err)
	assert.Equal(t, 13, r.Len())

	v, _ := r.Value("Seconds of Use")
	assert.Equal(t, 4370.5, v)
	v, _ = r.Value("Tariff Plan")
	assert.Equal(t, 2.0, v)
}

func TestCollector_AppliesDefaultsAndClamps(t *testing.T) {
	c := NewCollector(NamingUnderscored)
	r, err := c.Collect(map[string]string{
		"call_failure":        "",
		"subscription_length": "0",
		"charge_amount":       "42",
		"age":                 "7",
		"customer_value":      "-5",
	})
	require.NoError(t, err)
	require.Equal(t, 13, r.Len())

	cases := map[string]float64{
		"Call_Failure":        0,
		"Subscription_Length": 1,
		"Charge_Amount":       9,
		"Age":                 18,
		"Customer_Value":      0,
		"Age_Group":           2,
		"Seconds_of_Use":      150,
	}
	for col, want := range cases {
		got, ok := r.Value(col)
		require.True(t, ok, col)
		assert.Equal(t, want, got, col)
	}
}

func TestCollector_RejectsInvalidInput(t *testing.T) {
	c := NewCollector(NamingUnderscored)
	tests := []struct {
		name  string
		input map[string]string
	}{
		{"not a number", map[string]string{"age": "old"}},
		{"fractional integer", map[string]string{"frequency_of_use": "2.5"}},
		{"option not allowed", map[string]string{"tariff_plan": "3"}},
		{"infinite", map[string]string{"seconds_of_use": "Inf"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Collect(tc.input)
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestCollector_CollectNumbers(t *testing.T) {
	c := NewCollector(NamingUnderscored)

	r, err := c.CollectNumbers(map[string]float64{
		"Complaints":     1,
		"Seconds of Use": 10,
		"age":            30,
	})
	require.NoError(t, err)
	assert.Equal(t, 13, r.Len())
	v, _ := r.Value("Seconds_of_Use")
	assert.Equal(t, 10.0, v)
	v, _ = r.Value("Age")
	assert.Equal(t, 30.0, v)

	_, err = c.CollectNumbers(map[string]float64{"Favourite Colour": 1})
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestCollector_CollectNumbersRejectsAliasedKeys(t *testing.T) {
	c := NewCollector(NamingUnderscored)

	for _, input := range []map[string]float64{
		{"age": 30, "Age": 60},
		{"Seconds of Use": 10, "Seconds_of_Use": 20},
	} {
		for i := 0; i < 20; i++ {
			_, err := c.CollectNumbers(input)
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, "given more than once", inputErr.Reason)
		}
	}

	_, err := c.CollectNumbers(map[string]float64{"age": 30, "Age": 60})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "age", inputErr.Value, "the later key in sorted order is reported")
}

func TestNormalize_ReordersToTrainingOrder(t *testing.T) {
	c := NewCollector(NamingUnderscored)
	s := DefaultSchema(NamingUnderscored)

	r, err := Normalize(c.Defaults(), s.Columns)
	require.NoError(t, err)
	assert.Equal(t, s.Columns, r.Columns())

	v, _ := r.Value("Customer_Value")
	assert.Equal(t, 200.0, v)
	assert.Equal(t, 200.0, r.Values()[7])
}

func TestNormalize_Idempotent(t *testing.T) {
	s := DefaultSchema(NamingSpaced)
	once, err := Normalize(NewCollector(NamingSpaced).Defaults(), s.Columns)
	require.NoError(t, err)

	twice, err := Normalize(once, s.Columns)
	require.NoError(t, err)
	assert.True(t, once.Equal(twice))
}

func TestNormalize_MissingColumnIsSchemaMismatch(t *testing.T) {
	// Complaints and Status share a name across conventions; Seconds_of_Use does not.
	spacedRecord := NewCollector(NamingSpaced).Defaults()
	_, err := Normalize(spacedRecord, DefaultSchema(NamingUnderscored).Columns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Seconds_of_Use", mismatch.Column)
	assert.Contains(t, err.Error(), "Seconds_of_Use")
}

func TestNormalize_NeverFillsDefaults(t *testing.T) {
	partial, err := NewRecord([]string{"Age"}, []float64{40})
	require.NoError(t, err)

	out, err := Normalize(partial, []string{"Age", "Status"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Equal(t, 0, out.Len())
}

func TestCheckOrder(t *testing.T) {
	expected := []string{"A", "B", "C"}

	assert.NoError(t, CheckOrder([]string{"A", "B", "C"}, expected))

	err := CheckOrder([]string{"A", "C", "B"}, expected)
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Position)
	assert.Equal(t, "B", mismatch.Column)

	err = CheckOrder([]string{"A", "B"}, expected)
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, -1, mismatch.Position)

	assert.ErrorIs(t, CheckOrder([]string{"A", "B", "C", "D"}, expected), ErrSchemaMismatch)
}

func TestNewRecord(t *testing.T) {
	_, err := NewRecord([]string{"A"}, []float64{1, 2})
	assert.Error(t, err)

	_, err = NewRecord([]string{"A", "A"}, []float64{1, 2})
	assert.Error(t, err)

	r, err := NewRecord([]string{"B", "A"}, []float64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, r.Columns())
	assert.Equal(t, map[string]float64{"A": 1, "B": 2}, r.Map())

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"column":"B","value":2},{"column":"A","value":1}]`, string(data))
}
