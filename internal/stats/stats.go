// Package stats provides the descriptive statistics, error metrics and the
// ordinary least-squares fit used by the population model.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/popforecast/internal/model"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Median returns the middle value of x. For an even length it is the mean
// of the two middle values. Returns 0 for an empty slice.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PopStdDev returns the population (ddof=0) standard deviation.
func PopStdDev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// ArgMax returns the index of the largest value. Ties resolve to the first
// index. Returns -1 for an empty slice.
func ArgMax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}

// ArgMin returns the index of the smallest value. Ties resolve to the first
// index. Returns -1 for an empty slice.
func ArgMin(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MinIdx(x)
}

// MAE is the mean absolute error. Both slices must have the same length.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual))
}

// MSE is the mean squared error. Both slices must have the same length.
func MSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	d := floats.Distance(actual, predicted, 2)
	return d * d / float64(len(actual))
}

// RMSE is the square root of MSE.
func RMSE(actual, predicted []float64) float64 {
	return math.Sqrt(MSE(actual, predicted))
}

// RSquared returns 1 - SS_res/SS_tot with SS_tot taken about the mean of
// actual. Fewer than two points or constant actual values make SS_tot zero,
// which is reported as a DegenerateMetricError.
func RSquared(actual, predicted []float64) (float64, error) {
	if len(actual) < 2 {
		return 0, &model.DegenerateMetricError{Metric: "r2", Reason: "fewer than two observations"}
	}
	mean := stat.Mean(actual, nil)
	var ssTot float64
	for _, v := range actual {
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return 0, &model.DegenerateMetricError{Metric: "r2", Reason: "actual values have zero variance"}
	}
	return stat.RSquaredFrom(predicted, actual, nil), nil
}

// PercentError returns |actual - predicted| / actual * 100. A zero actual is
// reported as a DegenerateMetricError.
func PercentError(actual, predicted float64) (float64, error) {
	if actual == 0 {
		return 0, &model.DegenerateMetricError{Metric: "percent_error", Reason: "actual total is zero"}
	}
	return math.Abs(actual-predicted) / math.Abs(actual) * 100, nil
}

// LinearFit returns slope and intercept of the least-squares line y = slope*x + intercept.
func LinearFit(x, y []float64) (slope, intercept float64) {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return beta, alpha
}
