package model

import (
	"encoding/json"
	"strconv"
)

// Metric is a number that may be undefined. Undefined metrics encode as
// null and display as "n/a"; they never carry NaN.
type Metric struct {
	Value float64
	Valid bool
}

// Defined returns a valid Metric holding v.
func Defined(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Undefined is the sentinel for a degenerate metric.
var Undefined = Metric{}

// Format renders the value with the given precision, or "n/a".
func (m Metric) Format(prec int) string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', prec, 64)
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Metric) MarshalYAML() (any, error) {
	if !m.Valid {
		return nil, nil
	}
	return m.Value, nil
}

// Parameters describes the fitted line total = Slope*year + Intercept.
type Parameters struct {
	Slope     float64 `json:"slope" yaml:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept"`
}

// At evaluates the line at year.
func (p Parameters) At(year int) float64 {
	return p.Slope*float64(year) + p.Intercept
}

// ComparisonRow compares one held-out year against the model.
type ComparisonRow struct {
	Year          int     `json:"year" yaml:"year"`
	Actual        float64 `json:"actual" yaml:"actual"`
	Predicted     float64 `json:"predicted" yaml:"predicted"`
	AbsoluteError float64 `json:"absolute_error" yaml:"absolute_error"`
	PercentError  Metric  `json:"percent_error" yaml:"percent_error"`
}

// Metrics are the aggregate errors over the test window.
type Metrics struct {
	MAE  float64 `json:"mae" yaml:"mae"`
	MSE  float64 `json:"mse" yaml:"mse"`
	RMSE float64 `json:"rmse" yaml:"rmse"`
	R2   Metric  `json:"r2" yaml:"r2"`
}

// EvaluationResult bundles the aggregate metrics with the per-year table.
type EvaluationResult struct {
	Metrics    Metrics         `json:"metrics" yaml:"metrics"`
	Comparison []ComparisonRow `json:"comparison" yaml:"comparison"`
}

// Clone returns an independent copy.
func (e EvaluationResult) Clone() EvaluationResult {
	out := EvaluationResult{Metrics: e.Metrics}
	if e.Comparison != nil {
		out.Comparison = make([]ComparisonRow, len(e.Comparison))
		copy(out.Comparison, e.Comparison)
	}
	return out
}

// ProjectionRow is one extrapolated year.
type ProjectionRow struct {
	Year           int     `json:"year" yaml:"year"`
	PredictedTotal float64 `json:"predicted_total" yaml:"predicted_total"`
}

// ProjectionTable is ordered by year with no gaps.
type ProjectionTable []ProjectionRow

// EveryN keeps the rows whose year is a multiple of n. n <= 1 returns a copy.
func (t ProjectionTable) EveryN(n int) ProjectionTable {
	if n <= 1 {
		return t.Clone()
	}
	out := ProjectionTable{}
	for _, r := range t {
		if r.Year%n == 0 {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns an independent copy.
func (t ProjectionTable) Clone() ProjectionTable {
	if t == nil {
		return nil
	}
	out := make(ProjectionTable, len(t))
	copy(out, t)
	return out
}
