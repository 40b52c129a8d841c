package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/pipeline"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/transform"
)

type fakeAnalyzer struct {
	mu           sync.Mutex
	series       model.HistoricalSeries
	err          error
	datasetCalls int
	analyzeCalls int
}

func newFakeAnalyzer() *fakeAnalyzer {
	var s model.HistoricalSeries
	for y := 1985; y <= 2050; y++ {
		s = append(s, model.YearTotal{Year: y, Total: 4000000 + 50000*float64(y-1985) + float64(y%3)*1000})
	}
	return &fakeAnalyzer{series: s}
}

func (f *fakeAnalyzer) dataset() (pipeline.Dataset, error) {
	if f.err != nil {
		return pipeline.Dataset{}, f.err
	}
	sum, err := transform.Summarize(f.series, f.series.Len())
	if err != nil {
		return pipeline.Dataset{}, err
	}
	return pipeline.Dataset{Fingerprint: "fp", Series: f.series.Clone(), Summary: sum}, nil
}

func (f *fakeAnalyzer) Dataset(ctx context.Context) (pipeline.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasetCalls++
	return f.dataset()
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, opts predict.Options) (pipeline.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if err := opts.Validate(); err != nil {
		return pipeline.Dashboard{}, err
	}
	ds, err := f.dataset()
	if err != nil {
		return pipeline.Dashboard{}, err
	}
	a, err := predict.RunCompleteAnalysis(ds.Series, opts)
	if err != nil {
		return pipeline.Dashboard{}, err
	}
	return pipeline.Dashboard{Dataset: ds, Analysis: a}, nil
}

func (f *fakeAnalyzer) DefaultOptions() predict.Options {
	return predict.Options{Cutoff: 2015, ProjectionEnd: 2050}
}

func (f *fakeAnalyzer) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.datasetCalls, f.analyzeCalls
}

func testConfig() *config.Config {
	return &config.Config{
		Report: config.ReportConfig{Locale: "en"},
		Server: config.ServerConfig{Port: 8080, RateLimit: 1000, RateBurst: 1000, AllowedOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T, a Analyzer) http.Handler {
	t.Helper()
	return New(a, testConfig()).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, newFakeAnalyzer()), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestDataset(t *testing.T) {
	rec := get(t, newTestServer(t, newFakeAnalyzer()), "/api/v1/dataset")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["series"], 66)
	assert.Contains(t, body, "summary")
	assert.NotContains(t, body, "Records")
}

func TestAnalysis(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())

	rec := get(t, h, "/api/v1/analysis")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["run_id"])
	assert.Len(t, body["cards"], 4)
	assert.Len(t, body["projections"], 25)
	opts := body["options"].(map[string]any)
	assert.Equal(t, 2015.0, opts["cutoff"])

	rec = get(t, h, "/api/v1/analysis?cutoff=2012&end=2040")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Len(t, body["projections"], 15)
	eval := body["evaluation"].(map[string]any)
	assert.Len(t, eval["comparison"], 13)
}

func TestAnalysis_BadOptions(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())
	for _, target := range []string{
		"/api/v1/analysis?cutoff=abc",
		"/api/v1/analysis?cutoff=2009",
		"/api/v1/analysis?cutoff=2021",
		"/api/v1/analysis?end=2029",
		"/api/v1/analysis?end=2061",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, decode(t, rec)["error"], target)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"data access", model.NewDataAccessError("df1.xlsx", errors.New("no such file")), http.StatusServiceUnavailable},
		{"empty data", model.NewEmptyDataError("aggregate", "no rows"), http.StatusUnprocessableEntity},
		{"invalid", &model.InvalidArgumentError{Field: "cutoff", Value: 1, Reason: "bad"}, http.StatusBadRequest},
		{"not trained", &model.NotTrainedError{Op: "project"}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newFakeAnalyzer()
			a.err = tt.err
			rec := get(t, newTestServer(t, a), "/api/v1/analysis")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestProjections(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())

	rec := get(t, h, "/api/v1/projections?every=5")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["projections"].([]any)
	require.Len(t, rows, 5)
	for _, r := range rows {
		year := int(r.(map[string]any)["year"].(float64))
		assert.Zero(t, year%5)
	}

	rec = get(t, h, "/api/v1/projections")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["projections"], 25)

	for _, every := range []string{"0", "-1", "x"} {
		rec = get(t, h, "/api/v1/projections?every="+every)
		assert.Equal(t, http.StatusBadRequest, rec.Code, every)
	}
}

func TestChartImage(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())

	rec := get(t, h, "/api/v1/charts/historical.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = get(t, h, "/api/v1/charts/future.svg?cutoff=2012&end=2040")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	for _, target := range []string{
		"/api/v1/charts/pie.png",
		"/api/v1/charts/errors.gif",
		"/api/v1/charts/errors",
		"/api/v1/charts/errors.png?cutoff=1999",
	} {
		rec = get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestChartSpec(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())

	rec := get(t, h, "/api/v1/charts/comparison/spec")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "comparison", body["name"])
	assert.Len(t, body["series"], 2)

	rec = get(t, h, "/api/v1/charts/future/spec")
	require.Equal(t, http.StatusOK, rec.Code)
	markers := decode(t, rec)["markers"].([]any)
	require.Len(t, markers, 1)
	assert.Equal(t, 2025.0, markers[0].(map[string]any)["x"])

	rec = get(t, h, "/api/v1/charts/pie/spec")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndex_Defaults(t *testing.T) {
	rec := get(t, newTestServer(t, newFakeAnalyzer()), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()

	assert.Contains(t, body, `value="historical" checked`)
	assert.Contains(t, body, `value="comparison" checked`)
	assert.Contains(t, body, `value="future" checked`)
	assert.NotContains(t, body, `value="errors" checked`)

	assert.Contains(t, body, "/api/v1/charts/historical.svg?cutoff=2015&amp;end=2050")
	assert.NotContains(t, body, "/api/v1/charts/errors.svg")
	assert.Contains(t, body, "Población Máxima")
	assert.Contains(t, body, "ERROR_PORCENTUAL")
	assert.Contains(t, body, "PREDICCION_TOTAL")
}

func TestIndex_Selection(t *testing.T) {
	rec := get(t, newTestServer(t, newFakeAnalyzer()), "/?submitted=1&cutoff=2018&end=2060&chart=errors")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `value="errors" checked`)
	assert.NotContains(t, body, `value="historical" checked`)
	assert.Contains(t, body, "/api/v1/charts/errors.svg?cutoff=2018&amp;end=2060")
	assert.NotContains(t, body, "ERROR_PORCENTUAL</th>")
	assert.Contains(t, body, `value="2018"`)
}

func TestIndex_Errors(t *testing.T) {
	a := newFakeAnalyzer()
	a.err = model.NewDataAccessError("df1.xlsx", errors.New("no such file"))
	rec := get(t, newTestServer(t, a), "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "df1.xlsx")

	rec = get(t, newTestServer(t, newFakeAnalyzer()), "/?cutoff=1900")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	h := New(newFakeAnalyzer(), cfg).Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/dataset").Code)
	rec := get(t, h, "/api/v1/dataset")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks bypass the limiter.
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, newFakeAnalyzer())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	rec := get(t, newTestServer(t, newFakeAnalyzer()), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])
}

func TestRefresher(t *testing.T) {
	r, err := NewRefresher(newFakeAnalyzer(), "  ")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = NewRefresher(newFakeAnalyzer(), "not a schedule")
	assert.Error(t, err)

	a := newFakeAnalyzer()
	r, err = NewRefresher(a, "@every 10ms")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		ds, an := a.calls()
		return ds >= 1 && an >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRefresher_FailureIsLogged(t *testing.T) {
	a := newFakeAnalyzer()
	a.err = errors.New("boom")
	r, err := NewRefresher(a, "@hourly")
	require.NoError(t, err)

	r.Refresh(context.Background())
	ds, an := a.calls()
	assert.Equal(t, 1, ds)
	assert.Equal(t, 0, an)
}
