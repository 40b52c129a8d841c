package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/popforecast/internal/pipeline"
)

// Workbook sheet names.
const (
	SheetSummary     = "Resumen"
	SheetHistorical  = "Historico"
	SheetComparison  = "Comparacion"
	SheetProjections = "Proyecciones"
)

// BuildWorkbook lays the dashboard out over four sheets. The caller closes
// the returned file.
func BuildWorkbook(f *Formatter, d pipeline.Dashboard) (*excelize.File, error) {
	x := excelize.NewFile()
	if err := x.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = x.Close()
		return nil, eris.Wrap(err, "report: rename sheet")
	}
	for _, name := range []string{SheetHistorical, SheetComparison, SheetProjections} {
		if _, err := x.NewSheet(name); err != nil {
			_ = x.Close()
			return nil, eris.Wrapf(err, "report: add sheet %s", name)
		}
	}

	header, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = x.Close()
		return nil, eris.Wrap(err, "report: header style")
	}

	w := sheetWriter{f: x, header: header}
	w.summary(f, d)
	w.historical(d)
	w.comparison(d)
	w.projections(d)
	if w.err != nil {
		_ = x.Close()
		return nil, w.err
	}
	x.SetActiveSheet(0)
	return x, nil
}

// WriteWorkbook encodes the workbook to w.
func WriteWorkbook(w io.Writer, f *Formatter, d pipeline.Dashboard) error {
	x, err := BuildWorkbook(f, d)
	if err != nil {
		return err
	}
	defer func() { _ = x.Close() }()
	if err := x.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// SaveWorkbook writes the workbook to path.
func SaveWorkbook(path string, f *Formatter, d pipeline.Dashboard) error {
	x, err := BuildWorkbook(f, d)
	if err != nil {
		return err
	}
	defer func() { _ = x.Close() }()
	if err := x.SaveAs(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

// sheetWriter keeps the first error so the layout code reads top to bottom.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, r int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = eris.Wrap(err, "report: cell name")
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = eris.Wrapf(err, "report: write %s row %d", sheet, r)
	}
}

func (w *sheetWriter) headerRow(sheet string, cols ...string) {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = c
	}
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		w.err = eris.Wrap(err, "report: cell name")
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = eris.Wrapf(err, "report: style %s header", sheet)
		return
	}
	lastCol, _, _ := excelize.SplitCellName(last)
	if err := w.f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		w.err = eris.Wrapf(err, "report: width %s", sheet)
	}
}

func (w *sheetWriter) summary(f *Formatter, d pipeline.Dashboard) {
	s := d.Dataset.Summary
	a := d.Analysis
	m := a.Evaluation.Metrics

	w.headerRow(SheetSummary, "INDICADOR", "VALOR")
	rows := [][]any{
		{"REGISTROS", s.RecordCount},
		{"AÑO_INICIAL", s.FirstYear},
		{"AÑO_FINAL", s.LastYear},
		{"PROMEDIO", s.Mean},
		{"DESVIACION_ESTANDAR", s.StdDev},
		{"POBLACION_MAXIMA", s.Max},
		{"AÑO_POBLACION_MAXIMA", s.MaxYear},
		{"CRECIMIENTO_ANUAL", metricCell(s.AnnualGrowth.Valid, s.AnnualGrowth.Value)},
		{"CORTE_ENTRENAMIENTO", a.Options.Cutoff},
		{"FIN_PROYECCION", a.Options.ProjectionEnd},
		{"R2", metricCell(m.R2.Valid, m.R2.Value)},
		{"MAE", m.MAE},
		{"MSE", m.MSE},
		{"RMSE", m.RMSE},
		{"PENDIENTE", a.Parameters.Slope},
		{"INTERCEPTO", a.Parameters.Intercept},
		{"LOCALE", f.Locale()},
		{"RUN_ID", a.RunID},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
}

func (w *sheetWriter) historical(d pipeline.Dashboard) {
	w.headerRow(SheetHistorical, ColYear, ColTotal)
	for i, p := range d.Dataset.Series {
		w.row(SheetHistorical, i+2, p.Year, p.Total)
	}
}

func (w *sheetWriter) comparison(d pipeline.Dashboard) {
	w.headerRow(SheetComparison, ColYear, ColTotal, ColPrediction, ColAbsoluteError, ColPercentError)
	for i, r := range d.Analysis.Evaluation.Comparison {
		w.row(SheetComparison, i+2, r.Year, r.Actual, r.Predicted, r.AbsoluteError, Percent(r.PercentError))
	}
}

func (w *sheetWriter) projections(d pipeline.Dashboard) {
	w.headerRow(SheetProjections, ColYear, ColPredictionTotal)
	for i, r := range d.Analysis.Projections {
		w.row(SheetProjections, i+2, r.Year, r.PredictedTotal)
	}
}

func metricCell(valid bool, v float64) any {
	if !valid {
		return "n/a"
	}
	return v
}
