// Package predict fits a linear trend of total population against year,
// evaluates it on a held-out window and extrapolates it forward.
package predict

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/stats"
)

// Predictor is a single-feature OLS regressor. The zero value is untrained.
type Predictor struct {
	params  model.Parameters
	trained bool
}

// NewPredictor returns an untrained predictor.
func NewPredictor() *Predictor {
	return &Predictor{}
}

// Prepare splits series into train (year <= cutoff), test
// (cutoff < year <= EvaluationEndYear) and a copy of the full series.
func Prepare(series model.HistoricalSeries, cutoff int) model.Split {
	train := model.HistoricalSeries{}
	for _, p := range series {
		if p.Year <= cutoff {
			train = append(train, p)
		}
	}
	return model.Split{
		Train: train,
		Test:  series.Between(cutoff, config.EvaluationEndYear),
		Full:  series.Clone(),
	}
}

// Trained reports whether Train has succeeded.
func (p *Predictor) Trained() bool { return p.trained }

// Train fits the line to train. Calling it again re-fits and replaces the
// previous parameters.
func (p *Predictor) Train(train model.HistoricalSeries) error {
	if train.Len() < 2 {
		return model.NewEmptyDataError("train", "need at least two training years")
	}
	slope, intercept := stats.LinearFit(train.Years(), train.Totals())
	p.params = model.Parameters{Slope: slope, Intercept: intercept}
	p.trained = true

	zap.L().Info("predict: trained",
		zap.Int("years", train.Len()),
		zap.Int("first_year", train[0].Year),
		zap.Int("last_year", train[train.Len()-1].Year),
		zap.Float64("slope", slope),
		zap.Float64("intercept", intercept),
	)
	return nil
}

// Predict returns the fitted total for year.
func (p *Predictor) Predict(year int) (float64, error) {
	if !p.trained {
		return 0, &model.NotTrainedError{Op: "predict"}
	}
	return p.params.At(year), nil
}

// Evaluate compares the fitted line against test.
func (p *Predictor) Evaluate(test model.HistoricalSeries) (model.EvaluationResult, error) {
	if !p.trained {
		return model.EvaluationResult{}, &model.NotTrainedError{Op: "evaluate"}
	}
	if test.Len() == 0 {
		return model.EvaluationResult{}, model.NewEmptyDataError("evaluate", "test split is empty")
	}

	actual := test.Totals()
	predicted := make([]float64, len(test))
	rows := make([]model.ComparisonRow, len(test))
	for i, pt := range test {
		predicted[i] = p.params.At(pt.Year)
		row := model.ComparisonRow{
			Year:          pt.Year,
			Actual:        pt.Total,
			Predicted:     predicted[i],
			AbsoluteError: math.Abs(pt.Total - predicted[i]),
		}
		if pct, err := stats.PercentError(pt.Total, predicted[i]); err == nil {
			row.PercentError = model.Defined(pct)
		} else {
			zap.L().Warn("predict: percent error undefined", zap.Int("year", pt.Year), zap.Error(err))
		}
		rows[i] = row
	}

	m := model.Metrics{
		MAE:  stats.MAE(actual, predicted),
		MSE:  stats.MSE(actual, predicted),
		RMSE: stats.RMSE(actual, predicted),
	}
	if r2, err := stats.RSquared(actual, predicted); err == nil {
		m.R2 = model.Defined(r2)
	} else {
		zap.L().Warn("predict: r2 undefined", zap.Int("years", test.Len()), zap.Error(err))
	}

	return model.EvaluationResult{Metrics: m, Comparison: rows}, nil
}

// Project returns one row per year in [start, end].
func (p *Predictor) Project(start, end int) (model.ProjectionTable, error) {
	if !p.trained {
		return nil, &model.NotTrainedError{Op: "project"}
	}
	if start > end {
		return nil, &model.InvalidArgumentError{Field: "projection range", Value: [2]int{start, end}, Reason: "start year is after end year"}
	}
	out := make(model.ProjectionTable, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, model.ProjectionRow{Year: y, PredictedTotal: p.params.At(y)})
	}
	return out, nil
}

// Parameters returns the fitted line. ok is false before Train.
func (p *Predictor) Parameters() (params model.Parameters, ok bool) {
	if !p.trained {
		return model.Parameters{}, false
	}
	return p.params, true
}

