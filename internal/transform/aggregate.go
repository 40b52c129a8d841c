package transform

import (
	"sort"

	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/stats"
)

// Aggregate groups records by year and sums their totals. Rows for the same
// year from overlapping extracts collapse into one point. The series is
// sorted by year ascending.
func Aggregate(records []model.StandardRecord) (model.HistoricalSeries, error) {
	if len(records) == 0 {
		return nil, model.NewEmptyDataError("aggregate", "no records match the territory and area filter")
	}

	sums := make(map[int]float64)
	for _, r := range records {
		sums[r.Year] += r.Total
	}

	series := make(model.HistoricalSeries, 0, len(sums))
	for year, total := range sums {
		series = append(series, model.YearTotal{Year: year, Total: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series, nil
}

// Summarize computes descriptive statistics of a series. Max and min ties
// resolve to the earliest year. recordCount is the number of filtered rows
// before aggregation.
func Summarize(series model.HistoricalSeries, recordCount int) (model.Summary, error) {
	if series.Len() == 0 {
		return model.Summary{}, model.NewEmptyDataError("summary", "series is empty")
	}

	totals := series.Totals()
	maxIdx := stats.ArgMax(totals)
	minIdx := stats.ArgMin(totals)

	s := model.Summary{
		Max:         totals[maxIdx],
		Min:         totals[minIdx],
		Mean:        stats.Mean(totals),
		Median:      stats.Median(totals),
		StdDev:      stats.PopStdDev(totals),
		MaxYear:     series[maxIdx].Year,
		MinYear:     series[minIdx].Year,
		FirstYear:   series[0].Year,
		LastYear:    series[series.Len()-1].Year,
		Years:       series.Len(),
		RecordCount: recordCount,
	}
	if span := s.MaxYear - s.MinYear; span != 0 {
		s.AnnualGrowth = model.Defined((s.Max - s.Min) / float64(span))
	}
	return s, nil
}
