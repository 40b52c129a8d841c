package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/pipeline"
	"github.com/sells-group/popforecast/internal/predict"
)

// Column names shared by the text tables and the workbook.
const (
	ColYear            = "AÑO"
	ColTotal           = "TOTAL"
	ColPrediction      = "PREDICCION"
	ColAbsoluteError   = "ERROR_ABSOLUTO"
	ColPercentError    = "ERROR_PORCENTUAL"
	ColPredictionTotal = "PREDICCION_TOTAL"
)

// ProjectionStep is the year interval of the projection table.
const ProjectionStep = 5

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteCards prints the headline metrics.
func WriteCards(w io.Writer, cards []Card) error {
	tw := newTable(w)
	for _, c := range cards {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\t%s\n", c.Label, c.Value, c.Detail)
	}
	return tw.Flush()
}

// WriteDatasetInfo prints the record count, year range, mean and std.
func WriteDatasetInfo(w io.Writer, f *Formatter, ds pipeline.Dataset) error {
	s := ds.Summary
	tw := newTable(w)
	_, _ = fmt.Fprintf(tw, "Registros:\t%s\n", f.Count(float64(s.RecordCount)))
	_, _ = fmt.Fprintf(tw, "Años:\t%d - %d (%d)\n", s.FirstYear, s.LastYear, s.Years)
	_, _ = fmt.Fprintf(tw, "Promedio:\t%s\n", f.Count(s.Mean))
	_, _ = fmt.Fprintf(tw, "Mediana:\t%s\n", f.Count(s.Median))
	_, _ = fmt.Fprintf(tw, "Desviación estándar:\t%s\n", f.Count(s.StdDev))
	_, _ = fmt.Fprintf(tw, "Máximo:\t%s (%d)\n", f.Count(s.Max), s.MaxYear)
	_, _ = fmt.Fprintf(tw, "Mínimo:\t%s (%d)\n", f.Count(s.Min), s.MinYear)
	for _, e := range ds.Extracts {
		_, _ = fmt.Fprintf(tw, "  %s %s:\t%d filas, %d completas\n", e.Name, e.Period, e.Rows, e.Complete)
	}
	return tw.Flush()
}

// WriteModelInfo prints the fit quality and the fitted line.
func WriteModelInfo(w io.Writer, f *Formatter, a predict.Analysis) error {
	m := a.Evaluation.Metrics
	tw := newTable(w)
	_, _ = fmt.Fprintf(tw, "Corte de entrenamiento:\t%d\n", a.Options.Cutoff)
	_, _ = fmt.Fprintf(tw, "Años de entrenamiento:\t%d\n", a.Split.Train.Len())
	_, _ = fmt.Fprintf(tw, "Años de evaluación:\t%d\n", a.Split.Test.Len())
	_, _ = fmt.Fprintf(tw, "R²:\t%s\n", m.R2.Format(4))
	_, _ = fmt.Fprintf(tw, "MAE:\t%s\n", f.Count(m.MAE))
	_, _ = fmt.Fprintf(tw, "RMSE:\t%s\n", f.Count(m.RMSE))
	_, _ = fmt.Fprintf(tw, "Pendiente:\t%s hab/año\n", f.Decimal(a.Parameters.Slope, 2))
	_, _ = fmt.Fprintf(tw, "Intercepto:\t%s\n", f.Decimal(a.Parameters.Intercept, 2))
	return tw.Flush()
}

// WriteComparison prints actual against predicted totals for the test window.
func WriteComparison(w io.Writer, f *Formatter, rows []model.ComparisonRow) error {
	tw := newTable(w)
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ColYear, ColTotal, ColPrediction, ColAbsoluteError, ColPercentError)
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.Year, f.Count(r.Actual), f.Count(r.Predicted), f.Count(r.AbsoluteError), Percent(r.PercentError))
	}
	return tw.Flush()
}

// WriteProjections prints the projected totals.
func WriteProjections(w io.Writer, f *Formatter, proj model.ProjectionTable) error {
	tw := newTable(w)
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", ColYear, ColPredictionTotal)
	for _, r := range proj {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", strconv.Itoa(r.Year), f.Count(r.PredictedTotal))
	}
	return tw.Flush()
}

// WriteText prints every section of the dashboard in reading order.
func WriteText(w io.Writer, f *Formatter, d pipeline.Dashboard) error {
	sections := []struct {
		title string
		write func() error
	}{
		{"Indicadores", func() error {
			return WriteCards(w, Cards(f, d.Dataset.Summary, d.Analysis.Evaluation.Metrics))
		}},
		{"Información del dataset", func() error { return WriteDatasetInfo(w, f, d.Dataset) }},
		{"Modelo", func() error { return WriteModelInfo(w, f, d.Analysis) }},
		{"Comparación real vs predicción", func() error { return WriteComparison(w, f, d.Analysis.Evaluation.Comparison) }},
		{fmt.Sprintf("Proyecciones (cada %d años)", ProjectionStep), func() error {
			return WriteProjections(w, f, d.Analysis.Projections.EveryN(ProjectionStep))
		}},
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n", s.title); err != nil {
			return err
		}
		if err := s.write(); err != nil {
			return err
		}
	}
	return nil
}
