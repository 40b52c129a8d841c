package model

// YearTotal is the aggregated population for one year.
type YearTotal struct {
	Year  int     `json:"year" yaml:"year"`
	Total float64 `json:"total" yaml:"total"`
}

// HistoricalSeries is ordered by year ascending with unique years. Gaps
// between years are allowed.
type HistoricalSeries []YearTotal

// Len returns the number of years in the series.
func (s HistoricalSeries) Len() int { return len(s) }

// Years returns the years as float64, ready for regression input.
func (s HistoricalSeries) Years() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = float64(p.Year)
	}
	return out
}

// Totals returns the totals in series order.
func (s HistoricalSeries) Totals() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Total
	}
	return out
}

// Between returns the points with from < year <= to.
func (s HistoricalSeries) Between(from, to int) HistoricalSeries {
	out := HistoricalSeries{}
	for _, p := range s {
		if p.Year > from && p.Year <= to {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy.
func (s HistoricalSeries) Clone() HistoricalSeries {
	if s == nil {
		return nil
	}
	out := make(HistoricalSeries, len(s))
	copy(out, s)
	return out
}

// Summary holds descriptive statistics of a HistoricalSeries.
type Summary struct {
	Max     float64 `json:"max" yaml:"max"`
	Min     float64 `json:"min" yaml:"min"`
	Mean    float64 `json:"mean" yaml:"mean"`
	Median  float64 `json:"median" yaml:"median"`
	StdDev  float64 `json:"std" yaml:"std"` // population standard deviation
	MaxYear int     `json:"max_year" yaml:"max_year"`
	MinYear int     `json:"min_year" yaml:"min_year"`

	FirstYear   int `json:"first_year" yaml:"first_year"`
	LastYear    int `json:"last_year" yaml:"last_year"`
	Years       int `json:"years" yaml:"years"`
	RecordCount int `json:"record_count" yaml:"record_count"` // filtered rows before aggregation

	// AnnualGrowth is (max - min) / (max_year - min_year).
	AnnualGrowth Metric `json:"annual_growth" yaml:"annual_growth"`
}

// Split partitions a series into training and evaluation windows.
type Split struct {
	Train HistoricalSeries `json:"train" yaml:"train"`
	Test  HistoricalSeries `json:"test" yaml:"test"`
	Full  HistoricalSeries `json:"full" yaml:"full"`
}
