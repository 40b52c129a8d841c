// Package dashboard serves the interactive analysis over HTTP: a JSON API,
// rendered charts and an HTML page that ties them together.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/pipeline"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

// Analyzer is the part of the pipeline the dashboard depends on.
type Analyzer interface {
	Dataset(ctx context.Context) (pipeline.Dataset, error)
	Analyze(ctx context.Context, opts predict.Options) (pipeline.Dashboard, error)
	DefaultOptions() predict.Options
}

// Server holds the dashboard's dependencies.
type Server struct {
	analyzer Analyzer
	cfg      config.ServerConfig
	format   *report.Formatter
	limiter  *rate.Limiter
	started  time.Time
}

// New creates a dashboard server.
func New(a Analyzer, cfg *config.Config) *Server {
	return &Server{
		analyzer: a,
		cfg:      cfg.Server,
		format:   report.NewFormatter(cfg.Report.Locale),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		started:  time.Now(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/", s.handleIndex)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/dataset", s.handleDataset)
			r.Get("/analysis", s.handleAnalysis)
			r.Get("/projections", s.handleProjections)
			r.Get("/charts/{name}", s.handleChartImage)
			r.Get("/charts/{name}/spec", s.handleChartSpec)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
