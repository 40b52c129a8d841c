package report

import (
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg" // png
	_ "gonum.org/v1/plot/vg/vgsvg" // svg

	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
)

// Image formats accepted by Render.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
	barWidth    = 14
)

// ParseImageFormat validates an image format name.
func ParseImageFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatPNG, FormatSVG:
		return f, nil
	case "":
		return FormatPNG, nil
	}
	return "", &model.InvalidArgumentError{Field: "image format", Value: s, Reason: "must be png or svg"}
}

// RenderChart draws chart name for a and writes it to w.
func RenderChart(w io.Writer, name ChartName, a predict.Analysis, format string, f *Formatter) error {
	spec, err := BuildSpec(name, a)
	if err != nil {
		return err
	}
	return Render(w, spec, format, f)
}

// Render draws spec and writes it to w in format.
func Render(w io.Writer, spec ChartSpec, format string, f *Formatter) error {
	p, err := Plot(spec, f)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, format)
	if err != nil {
		return eris.Wrapf(err, "report: encode %s chart %s", format, spec.Name)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return eris.Wrapf(err, "report: write chart %s", spec.Name)
	}
	return nil
}

// Plot builds the gonum plot for spec. Y tick labels use f's grouping.
func Plot(spec ChartSpec, f *Formatter) (*plot.Plot, error) {
	if f == nil {
		f = NewFormatter("en")
	}
	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.X.Tick.Marker = yearTicks{}
	p.Y.Tick.Marker = groupedTicks{f: f}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range spec.Series {
		for _, pt := range s.Points {
			ymin = math.Min(ymin, pt.Y)
			ymax = math.Max(ymax, pt.Y)
		}
		switch s.Kind {
		case KindBar:
			if err := addBars(p, s); err != nil {
				return nil, err
			}
		default:
			if err := addLine(p, s); err != nil {
				return nil, err
			}
		}
	}

	if len(spec.Markers) > 0 && !math.IsInf(ymin, 0) {
		for _, m := range spec.Markers {
			rule, err := plotter.NewLine(plotter.XYs{{X: m.X, Y: ymin}, {X: m.X, Y: ymax}})
			if err != nil {
				return nil, eris.Wrapf(err, "report: marker %s", m.Label)
			}
			rule.LineStyle = draw.LineStyle{Color: parseHex(m.Color), Width: vg.Points(1), Dashes: dashes(m.Dash)}
			p.Add(rule)
			p.Legend.Add(m.Label, rule)
		}
	}
	return p, nil
}

func addLine(p *plot.Plot, s SeriesSpec) error {
	if len(s.Points) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	c := parseHex(s.Color)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return eris.Wrapf(err, "report: series %s", s.Name)
	}
	line.LineStyle = draw.LineStyle{Color: c, Width: vg.Points(2), Dashes: dashes(s.Dash)}
	p.Add(line)

	if shape := glyph(s.Marker); shape != nil {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return eris.Wrapf(err, "report: series %s markers", s.Name)
		}
		scatter.GlyphStyle = draw.GlyphStyle{Color: c, Radius: vg.Points(3), Shape: shape}
		p.Add(scatter)
		p.Legend.Add(s.Name, line, scatter)
		return nil
	}
	p.Legend.Add(s.Name, line)
	return nil
}

// addBars adds one bar per point so each can carry its own color.
func addBars(p *plot.Plot, s SeriesSpec) error {
	for i, pt := range s.Points {
		bar, err := plotter.NewBarChart(plotter.Values{pt.Y}, vg.Points(barWidth))
		if err != nil {
			return eris.Wrapf(err, "report: series %s bar %d", s.Name, i)
		}
		bar.XMin = pt.X
		bar.LineStyle.Width = 0
		bar.Color = parseHex(s.Color)
		if i < len(s.Colors) {
			bar.Color = parseHex(s.Colors[i])
		}
		p.Add(bar)
		if i == 0 {
			p.Legend.Add(s.Name, bar)
		}
	}
	return nil
}

func dashes(style string) []vg.Length {
	switch style {
	case DashDashed:
		return []vg.Length{vg.Points(6), vg.Points(4)}
	case DashDotted:
		return []vg.Length{vg.Points(1.5), vg.Points(3)}
	}
	return nil
}

func glyph(marker string) draw.GlyphDrawer {
	switch marker {
	case "circle":
		return draw.CircleGlyph{}
	case "cross":
		return draw.CrossGlyph{}
	case "diamond":
		// gonum has no diamond glyph; the pyramid is the closest shape.
		return draw.PyramidGlyph{}
	}
	return nil
}

// parseHex reads "#rrggbb". Malformed input yields black.
func parseHex(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// yearTicks labels whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	out := ticks[:0]
	for _, t := range ticks {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		if t.Label != "" {
			t.Label = strconv.Itoa(int(t.Value))
		}
		out = append(out, t)
	}
	return out
}

// groupedTicks relabels the default ticks with locale digit grouping.
type groupedTicks struct {
	f *Formatter
}

func (g groupedTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	small := max-min < 10
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		if small {
			ticks[i].Label = g.f.Decimal(ticks[i].Value, 1)
		} else {
			ticks[i].Label = g.f.Count(ticks[i].Value)
		}
	}
	return ticks
}
