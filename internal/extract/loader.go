package extract

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/resilience"
)

// mappedColumns is the number of source columns mapped onto the schema.
const mappedColumns = 5

// Batch is the raw content of one extract.
type Batch struct {
	Descriptor Descriptor
	Header     []string
	Records    []model.RawRecord
}

// Load reads every registered extract. Files are read concurrently and the
// batches are returned in registration order. Any failure aborts the load;
// no partial result is returned.
func Load(ctx context.Context, reg *Registry) ([]Batch, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, model.NewDataAccessError("extracts", eris.New("no extracts configured"))
	}

	descriptors := reg.All()
	batches := make([]Batch, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		retry := reg.retry
		retry.ShouldRetry = retryable
		retry.OnRetry = resilience.RetryLogger("extract: load", d.Resource())
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := resilience.DoVal(gctx, retry, func(context.Context) (Batch, error) {
				return LoadExtract(d)
			})
			if err != nil {
				return err
			}
			batches[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// LoadExtract reads one extract and maps its data rows onto RawRecords.
func LoadExtract(d Descriptor) (Batch, error) {
	if _, err := os.Stat(d.Path); err != nil {
		return Batch{}, model.NewDataAccessError(d.Path, err)
	}

	rows, err := readRows(d)
	if err != nil {
		return Batch{}, model.NewDataAccessError(d.Resource(), err)
	}

	if d.HeaderRow >= len(rows) {
		return Batch{}, model.NewDataAccessError(d.Resource(),
			layoutError{eris.Errorf("header row %d not found (sheet has %d rows)", d.HeaderRow, len(rows))})
	}
	header := rows[d.HeaderRow]
	if width := nonEmptyWidth(header); width < d.FirstColumn+mappedColumns {
		return Batch{}, model.NewDataAccessError(d.Resource(),
			layoutError{eris.Errorf("header row %d has %d columns, need %d starting at column %d",
				d.HeaderRow, width, mappedColumns, d.FirstColumn)})
	}

	b := Batch{Descriptor: d, Header: mapCells(header, d.FirstColumn)}
	for i := d.HeaderRow + 1; i < len(rows); i++ {
		cells := mapCells(rows[i], d.FirstColumn)
		if blank(cells) {
			continue
		}
		var rec model.RawRecord
		rec.Extract = d.Name
		rec.Row = i + 1
		copy(rec.Cells[:], cells)
		b.Records = append(b.Records, rec)
	}

	zap.L().Info("extract: loaded",
		zap.String("extract", d.Name),
		zap.String("path", d.Path),
		zap.String("period", d.Period),
		zap.Int("rows", len(b.Records)),
	)
	return b, nil
}

func readRows(d Descriptor) ([][]string, error) {
	switch {
	case isXLSX(d.Path):
		return ReadXLSX(d.Path, XLSXOptions{SheetName: d.Sheet})
	case isCSV(d.Path):
		return ReadCSV(d.Path, CSVOptions{TrimSpace: true})
	default:
		return nil, layoutError{eris.Errorf("unsupported file type %q", d.Path)}
	}
}

// layoutError marks a file that was read but has the wrong shape. Reading
// it again will not help.
type layoutError struct{ error }

func (e layoutError) Unwrap() error { return e.error }

// retryable reports whether a failed load may succeed on a later read, as
// when a spreadsheet is caught half-written.
func retryable(err error) bool {
	var le layoutError
	switch {
	case errors.As(err, &le):
		return false
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// mapCells returns the five mapped cells starting at first, padding short rows.
func mapCells(row []string, first int) []string {
	out := make([]string, mappedColumns)
	for j := 0; j < mappedColumns; j++ {
		if idx := first + j; idx < len(row) {
			out[j] = row[idx]
		}
	}
	return out
}

// nonEmptyWidth is the index after the last non-empty cell.
func nonEmptyWidth(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i + 1
		}
	}
	return 0
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
