package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
)

// ChartName identifies one of the dashboard charts.
type ChartName string

// Available charts.
const (
	ChartHistorical ChartName = "historical"
	ChartComparison ChartName = "comparison"
	ChartFuture     ChartName = "future"
	ChartErrors     ChartName = "errors"
)

// ChartNames lists every chart in display order.
var ChartNames = []ChartName{ChartHistorical, ChartComparison, ChartFuture, ChartErrors}

// DefaultCharts are the charts shown when the caller selects none.
var DefaultCharts = []ChartName{ChartHistorical, ChartComparison, ChartFuture}

// ParseChartName validates a chart name.
func ParseChartName(s string) (ChartName, error) {
	name := ChartName(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range ChartNames {
		if n == name {
			return n, nil
		}
	}
	return "", &model.InvalidArgumentError{Field: "chart", Value: s, Reason: "must be one of historical, comparison, future, errors"}
}

// ParseChartNames splits a comma-separated list. An empty list yields
// DefaultCharts.
func ParseChartNames(list string) ([]ChartName, error) {
	if strings.TrimSpace(list) == "" {
		return append([]ChartName(nil), DefaultCharts...), nil
	}
	var out []ChartName
	seen := make(map[ChartName]bool)
	for _, part := range strings.Split(list, ",") {
		n, err := ParseChartName(part)
		if err != nil {
			return nil, err
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

// Series kinds.
const (
	KindLine = "line"
	KindBar  = "bar"
)

// Line dash styles.
const (
	DashSolid  = "solid"
	DashDashed = "dashed"
	DashDotted = "dotted"
)

// Point is one (x, y) pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SeriesSpec is one plotted series.
type SeriesSpec struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Color  string `json:"color"`
	Dash   string `json:"dash,omitempty"`
	Marker string `json:"marker,omitempty"`
	// Colors, when set on a bar series, holds one color per point.
	Colors []string `json:"colors,omitempty"`
	Points []Point  `json:"points"`
}

// VerticalMarker is a labelled vertical rule.
type VerticalMarker struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
	Color string  `json:"color"`
	Dash  string  `json:"dash"`
}

// ChartSpec is a renderer-neutral chart description. The dashboard serves
// it as JSON and Render draws it with gonum/plot.
type ChartSpec struct {
	Name    ChartName        `json:"name"`
	Title   string           `json:"title"`
	XLabel  string           `json:"x_label"`
	YLabel  string           `json:"y_label"`
	Series  []SeriesSpec     `json:"series"`
	Markers []VerticalMarker `json:"markers,omitempty"`
}

// Palette.
const (
	colorBlue   = "#1f77b4"
	colorOrange = "#ff7f0e"
	colorRed    = "#d62728"
	colorGray   = "#7f7f7f"
)

// BuildSpec describes chart name for analysis a.
func BuildSpec(name ChartName, a predict.Analysis) (ChartSpec, error) {
	switch name {
	case ChartHistorical:
		return ChartSpec{
			Name:   name,
			Title:  "Evolución Histórica de la Población de Antioquia",
			XLabel: "Año",
			YLabel: "Población Total",
			Series: []SeriesSpec{
				{Name: "Población Histórica", Kind: KindLine, Color: colorBlue, Dash: DashSolid, Marker: "circle", Points: seriesPoints(a.Split.Full)},
			},
		}, nil

	case ChartComparison:
		actual := make([]Point, len(a.Evaluation.Comparison))
		predicted := make([]Point, len(a.Evaluation.Comparison))
		for i, r := range a.Evaluation.Comparison {
			actual[i] = Point{X: float64(r.Year), Y: r.Actual}
			predicted[i] = Point{X: float64(r.Year), Y: r.Predicted}
		}
		return ChartSpec{
			Name:   name,
			Title:  fmt.Sprintf("Comparación: Datos Reales vs Predicciones (%d-%d)", a.Options.Cutoff+1, config.EvaluationEndYear),
			XLabel: "Año",
			YLabel: "Población Total",
			Series: []SeriesSpec{
				{Name: "Datos Reales", Kind: KindLine, Color: colorBlue, Dash: DashSolid, Marker: "circle", Points: actual},
				{Name: "Predicciones", Kind: KindLine, Color: colorOrange, Dash: DashDashed, Marker: "cross", Points: predicted},
			},
		}, nil

	case ChartFuture:
		proj := make([]Point, len(a.Projections))
		for i, r := range a.Projections {
			proj[i] = Point{X: float64(r.Year), Y: r.PredictedTotal}
		}
		return ChartSpec{
			Name:   name,
			Title:  fmt.Sprintf("Proyección de Población hasta %d", a.Options.ProjectionEnd),
			XLabel: "Año",
			YLabel: "Población Total",
			Series: []SeriesSpec{
				{Name: "Datos Históricos", Kind: KindLine, Color: colorBlue, Dash: DashSolid, Points: seriesPoints(a.Split.Full.Between(0, config.EvaluationEndYear))},
				{Name: "Proyecciones", Kind: KindLine, Color: colorRed, Dash: DashDotted, Marker: "diamond", Points: proj},
			},
			Markers: []VerticalMarker{
				{X: config.EvaluationEndYear, Label: "Inicio Predicciones", Color: colorGray, Dash: DashDashed},
			},
		}, nil

	case ChartErrors:
		pts := make([]Point, 0, len(a.Evaluation.Comparison))
		var peak float64
		for _, r := range a.Evaluation.Comparison {
			if r.PercentError.Valid && r.PercentError.Value > peak {
				peak = r.PercentError.Value
			}
		}
		colors := make([]string, 0, len(a.Evaluation.Comparison))
		for _, r := range a.Evaluation.Comparison {
			if !r.PercentError.Valid {
				continue
			}
			pts = append(pts, Point{X: float64(r.Year), Y: r.PercentError.Value})
			colors = append(colors, redScale(r.PercentError.Value, peak))
		}
		return ChartSpec{
			Name:   name,
			Title:  "Error Porcentual por Año",
			XLabel: "Año",
			YLabel: "Error (%)",
			Series: []SeriesSpec{
				{Name: "Error Porcentual", Kind: KindBar, Color: colorRed, Colors: colors, Points: pts},
			},
		}, nil
	}
	return ChartSpec{}, &model.InvalidArgumentError{Field: "chart", Value: string(name), Reason: "unknown chart"}
}

func seriesPoints(s model.HistoricalSeries) []Point {
	out := make([]Point, len(s))
	for i, p := range s {
		out[i] = Point{X: float64(p.Year), Y: p.Total}
	}
	return out
}

// redScale maps v in [0, peak] onto a light-to-dark red ramp.
func redScale(v, peak float64) string {
	t := 1.0
	if peak > 0 {
		t = v / peak
	}
	lo := [3]float64{0xfe, 0xe0, 0xd2}
	hi := [3]float64{0xa5, 0x0f, 0x15}
	var c [3]int
	for i := range c {
		c[i] = int(lo[i] + (hi[i]-lo[i])*t + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
