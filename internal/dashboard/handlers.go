package dashboard

import (
	"bytes"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

// parseOptions reads cutoff and end from the query, falling back to the
// configured defaults.
func parseOptions(q url.Values, defaults predict.Options) (predict.Options, error) {
	opts := defaults
	if v := q.Get("cutoff"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return predict.Options{}, &model.InvalidArgumentError{Field: "cutoff", Value: v, Reason: "must be an integer year"}
		}
		opts.Cutoff = n
	}
	if v := q.Get("end"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return predict.Options{}, &model.InvalidArgumentError{Field: "end", Value: v, Reason: "must be an integer year"}
		}
		opts.ProjectionEnd = n
	}
	return opts, opts.Validate()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.analyzer.Dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

type analysisResponse struct {
	predict.Analysis
	Cards   []report.Card `json:"cards"`
	Summary model.Summary `json:"summary"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r.URL.Query(), s.analyzer.DefaultOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.analyzer.Analyze(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{
		Analysis: d.Analysis,
		Cards:    report.Cards(s.format, d.Dataset.Summary, d.Analysis.Evaluation.Metrics),
		Summary:  d.Dataset.Summary,
	})
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := parseOptions(q, s.analyzer.DefaultOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	every := 1
	if v := q.Get("every"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, &model.InvalidArgumentError{Field: "every", Value: v, Reason: "must be a positive integer"})
			return
		}
		every = n
	}
	d, err := s.analyzer.Analyze(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      d.Analysis.RunID,
		"options":     d.Analysis.Options,
		"parameters":  d.Analysis.Parameters,
		"projections": d.Analysis.Projections.EveryN(every),
	})
}

// handleChartImage serves /charts/{name}.{png|svg}.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "name")
	ext := path.Ext(file)
	name, err := report.ParseChartName(strings.TrimSuffix(file, ext))
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := report.ParseImageFormat(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		if err == nil {
			err = &model.InvalidArgumentError{Field: "image format", Value: file, Reason: "missing .png or .svg extension"}
		}
		writeError(w, r, err)
		return
	}

	opts, err := parseOptions(r.URL.Query(), s.analyzer.DefaultOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.analyzer.Analyze(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderChart(&buf, name, d.Analysis, format, s.format); err != nil {
		writeError(w, r, err)
		return
	}
	if format == report.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "image/png")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleChartSpec(w http.ResponseWriter, r *http.Request) {
	name, err := report.ParseChartName(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := parseOptions(r.URL.Query(), s.analyzer.DefaultOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.analyzer.Analyze(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	spec, err := report.BuildSpec(name, d.Analysis)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}
