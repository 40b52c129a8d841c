package report

import (
	"strconv"

	"github.com/sells-group/popforecast/internal/model"
)

// Card is one headline metric.
type Card struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Detail string `json:"detail,omitempty"`
}

// Cards builds the four headline metrics: peak population, R², MAE and
// average annual growth.
func Cards(f *Formatter, s model.Summary, m model.Metrics) []Card {
	growth := "n/a"
	if s.AnnualGrowth.Valid {
		growth = f.Count(s.AnnualGrowth.Value)
	}
	return []Card{
		{Key: "max_population", Label: "Población Máxima", Value: f.Count(s.Max), Detail: "Año " + strconv.Itoa(s.MaxYear)},
		{Key: "r2", Label: "R²", Value: m.R2.Format(4)},
		{Key: "mae", Label: "MAE", Value: f.Count(m.MAE), Detail: "habitantes"},
		{Key: "annual_growth", Label: "Crecimiento Anual", Value: growth, Detail: "hab/año"},
	}
}
