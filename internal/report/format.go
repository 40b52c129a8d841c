// Package report renders analysis results as text tables, charts, chart
// descriptions for the browser, and an Excel workbook.
package report

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/popforecast/internal/model"
)

// Formatter renders numbers for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a formatter for locale (a BCP 47 tag). Unknown tags
// fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// Count renders v rounded to an integer with digit grouping.
func (f *Formatter) Count(v float64) string {
	return f.printer.Sprintf("%d", int64(math.Round(v)))
}

// Decimal renders v with exactly prec fraction digits and digit grouping.
func (f *Formatter) Decimal(v float64, prec int) string {
	return f.printer.Sprint(number.Decimal(v, number.MinFractionDigits(prec), number.MaxFractionDigits(prec)))
}

// Metric renders a grouped decimal, or "n/a".
func (f *Formatter) Metric(m model.Metric, prec int) string {
	if !m.Valid {
		return "n/a"
	}
	return f.Decimal(m.Value, prec)
}

// Percent renders a percent error as "1.00%", or "n/a".
func Percent(m model.Metric) string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", m.Value)
}
