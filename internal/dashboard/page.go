package dashboard

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/pipeline"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

var chartLabels = map[report.ChartName]string{
	report.ChartHistorical: "Evolución histórica",
	report.ChartComparison: "Real vs predicción",
	report.ChartFuture:     "Proyecciones futuras",
	report.ChartErrors:     "Errores de predicción",
}

type chartToggle struct {
	Name    report.ChartName
	Label   string
	Checked bool
}

type tableRow []string

type pageData struct {
	Options       predict.Options
	CutoffMin     int
	CutoffMax     int
	EndMin        int
	EndMax        int
	Toggles       []chartToggle
	Cards         []report.Card
	Dataset       []tableRow
	Model         []tableRow
	Charts        []chartView
	Comparison    []tableRow
	Projections   []tableRow
	ShowCompTable bool
	ShowProjTable bool
	Error         string
}

type chartView struct {
	Label string
	Src   string
}

// selectedCharts reads the chart checkboxes. A request that has not been
// submitted from the form gets the defaults.
func selectedCharts(q url.Values) (map[report.ChartName]bool, error) {
	sel := make(map[report.ChartName]bool)
	if q.Get("submitted") == "" {
		for _, n := range report.DefaultCharts {
			sel[n] = true
		}
		return sel, nil
	}
	for _, v := range q["chart"] {
		n, err := report.ParseChartName(v)
		if err != nil {
			return nil, err
		}
		sel[n] = true
	}
	return sel, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Options:   s.analyzer.DefaultOptions(),
		CutoffMin: config.MinTrainCutoff,
		CutoffMax: config.MaxTrainCutoff,
		EndMin:    config.MinProjectionEnd,
		EndMax:    config.MaxProjectionEnd,
	}

	status := http.StatusOK
	opts, err := parseOptions(q, data.Options)
	var sel map[report.ChartName]bool
	if err == nil {
		sel, err = selectedCharts(q)
	}
	var d pipeline.Dashboard
	if err == nil {
		data.Options = opts
		d, err = s.analyzer.Analyze(r.Context(), opts)
	}
	if err != nil {
		status = statusFor(err)
		data.Error = err.Error()
		if sel == nil {
			sel, _ = selectedCharts(url.Values{})
		}
	}

	for _, n := range report.ChartNames {
		data.Toggles = append(data.Toggles, chartToggle{Name: n, Label: chartLabels[n], Checked: sel[n]})
	}
	if err == nil {
		s.fillPage(&data, d, sel)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		zap.L().Error("dashboard: render page", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) fillPage(data *pageData, d pipeline.Dashboard, sel map[report.ChartName]bool) {
	f := s.format
	sum := d.Dataset.Summary
	m := d.Analysis.Evaluation.Metrics

	data.Cards = report.Cards(f, sum, m)
	data.Dataset = []tableRow{
		{"Registros", f.Count(float64(sum.RecordCount))},
		{"Rango de años", strconv.Itoa(sum.FirstYear) + " - " + strconv.Itoa(sum.LastYear)},
		{"Promedio", f.Count(sum.Mean)},
		{"Desviación estándar", f.Count(sum.StdDev)},
	}
	data.Model = []tableRow{
		{"R²", m.R2.Format(4)},
		{"MAE", f.Count(m.MAE)},
		{"RMSE", f.Count(m.RMSE)},
		{"Pendiente", f.Decimal(d.Analysis.Parameters.Slope, 2) + " hab/año"},
	}

	q := url.Values{}
	q.Set("cutoff", strconv.Itoa(data.Options.Cutoff))
	q.Set("end", strconv.Itoa(data.Options.ProjectionEnd))
	for _, n := range report.ChartNames {
		if sel[n] {
			data.Charts = append(data.Charts, chartView{
				Label: chartLabels[n],
				Src:   "/api/v1/charts/" + string(n) + ".svg?" + q.Encode(),
			})
		}
	}

	if sel[report.ChartComparison] {
		data.ShowCompTable = true
		for _, r := range d.Analysis.Evaluation.Comparison {
			data.Comparison = append(data.Comparison, tableRow{
				strconv.Itoa(r.Year), f.Count(r.Actual), f.Count(r.Predicted), f.Count(r.AbsoluteError), report.Percent(r.PercentError),
			})
		}
	}
	if sel[report.ChartFuture] {
		data.ShowProjTable = true
		for _, r := range d.Analysis.Projections.EveryN(report.ProjectionStep) {
			data.Projections = append(data.Projections, tableRow{strconv.Itoa(r.Year), f.Count(r.PredictedTotal)})
		}
	}
}

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Proyección de Población - Antioquia</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 260px; padding: 1rem; background: #f0f2f6; min-height: 100vh; }
main { flex: 1; padding: 1rem 2rem; }
.cards { display: flex; gap: 1rem; }
.card { flex: 1; padding: 1rem; border-radius: 8px; background: #fafafa; border: 1px solid #ddd; }
.card .value { font-size: 1.6rem; font-weight: bold; }
.card .detail { color: #666; }
table { border-collapse: collapse; margin: 1rem 0; }
td, th { border: 1px solid #ddd; padding: 4px 10px; text-align: right; }
.error { color: #b00020; font-weight: bold; }
img { max-width: 100%; }
</style>
</head>
<body>
<aside>
<form method="get" action="/">
<input type="hidden" name="submitted" value="1">
<h3>Configuración</h3>
<label>Año de corte para entrenamiento: <output id="cutoffv">{{.Options.Cutoff}}</output><br>
<input type="range" name="cutoff" min="{{.CutoffMin}}" max="{{.CutoffMax}}" value="{{.Options.Cutoff}}" oninput="cutoffv.value=this.value"></label>
<br>
<label>Proyectar hasta el año: <output id="endv">{{.Options.ProjectionEnd}}</output><br>
<input type="range" name="end" min="{{.EndMin}}" max="{{.EndMax}}" value="{{.Options.ProjectionEnd}}" oninput="endv.value=this.value"></label>
<h3>Gráficos</h3>
{{range .Toggles}}<label><input type="checkbox" name="chart" value="{{.Name}}"{{if .Checked}} checked{{end}}> {{.Label}}</label><br>
{{end}}
<br><button type="submit">Actualizar</button>
</form>
</aside>
<main>
<h1>Proyección de Población de Antioquia</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{else}}
<div class="cards">
{{range .Cards}}<div class="card"><div>{{.Label}}</div><div class="value">{{.Value}}</div><div class="detail">{{.Detail}}</div></div>
{{end}}
</div>
<h2>Información del dataset</h2>
<table>{{range .Dataset}}<tr><th>{{index . 0}}</th><td>{{index . 1}}</td></tr>{{end}}</table>
<h2>Modelo</h2>
<table>{{range .Model}}<tr><th>{{index . 0}}</th><td>{{index . 1}}</td></tr>{{end}}</table>
{{range .Charts}}<h2>{{.Label}}</h2>
<img src="{{.Src}}" alt="{{.Label}}">
{{end}}
{{if .ShowCompTable}}<h2>Comparación real vs predicción</h2>
<table><tr><th>AÑO</th><th>TOTAL</th><th>PREDICCION</th><th>ERROR_ABSOLUTO</th><th>ERROR_PORCENTUAL</th></tr>
{{range .Comparison}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>{{end}}
{{if .ShowProjTable}}<h2>Proyecciones (cada 5 años)</h2>
<table><tr><th>AÑO</th><th>PREDICCION_TOTAL</th></tr>
{{range .Projections}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>{{end}}
{{end}}
</main>
</body>
</html>
`))
