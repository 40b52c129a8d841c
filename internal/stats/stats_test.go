package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popforecast/internal/model"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Median(tt.in), 1e-12)
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestMeanAndPopStdDev(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(x), 1e-12)
	assert.InDelta(t, 2.0, PopStdDev(x), 1e-12)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, PopStdDev(nil))
	assert.Equal(t, 0.0, PopStdDev([]float64{5}))
}

func TestArgMaxArgMin_FirstTieWins(t *testing.T) {
	x := []float64{1, 5, 0, 5, 0}
	assert.Equal(t, 1, ArgMax(x))
	assert.Equal(t, 2, ArgMin(x))
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, -1, ArgMin(nil))
}

func TestErrorMetrics(t *testing.T) {
	actual := []float64{10, 20, 30}
	pred := []float64{12, 18, 33}

	assert.InDelta(t, 7.0/3.0, MAE(actual, pred), 1e-12)
	assert.InDelta(t, 17.0/3.0, MSE(actual, pred), 1e-12)
	assert.InDelta(t, math.Sqrt(17.0/3.0), RMSE(actual, pred), 1e-12)
	assert.Equal(t, 0.0, MAE(nil, nil))
	assert.Equal(t, 0.0, MSE(nil, nil))
}

func TestRSquared(t *testing.T) {
	r2, err := RSquared([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)

	// SS_res = 2, SS_tot = 2 -> 0.
	r2, err = RSquared([]float64{1, 2, 3}, []float64{2, 2, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r2, 1e-12)
}

func TestRSquared_Degenerate(t *testing.T) {
	_, err := RSquared([]float64{5}, []float64{5})
	require.Error(t, err)
	assert.True(t, model.IsDegenerateMetric(err))

	_, err = RSquared([]float64{5, 5, 5}, []float64{4, 5, 6})
	require.Error(t, err)
	assert.True(t, model.IsDegenerateMetric(err))
}

func TestPercentError(t *testing.T) {
	pct, err := PercentError(1_000_000, 1_010_000)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pct, 1e-9)

	_, err = PercentError(0, 10)
	require.Error(t, err)
	assert.True(t, model.IsDegenerateMetric(err))
}

func TestLinearFit_ExactLine(t *testing.T) {
	var x, y []float64
	for year := 1985; year <= 2015; year++ {
		x = append(x, float64(year))
		y = append(y, 1000*float64(year)+5)
	}
	slope, intercept := LinearFit(x, y)
	assert.InDelta(t, 1000.0, slope, 1e-6)
	assert.InDelta(t, 5.0, intercept, 1e-3)
}
