package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

var (
	chartsFlags  analysisFlags
	chartsOut    string
	chartsOnly   string
	chartsFormat string
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render the analysis charts to image files",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := runCharts(cmd.Context(), cfg, chartsFlags.options(cfg), chartsOut, chartsOnly, chartsFormat)
		if err != nil {
			return err
		}
		printFiles(cmd.OutOrStdout(), files)
		return nil
	},
}

// runCharts writes one image per selected chart into dir and returns the
// paths in display order.
func runCharts(ctx context.Context, c *config.Config, opts predict.Options, dir, only, format string) ([]string, error) {
	names, err := report.ParseChartNames(only)
	if err != nil {
		return nil, err
	}
	format, err = report.ParseImageFormat(format)
	if err != nil {
		return nil, err
	}

	p, err := initPipeline(c, "analyze")
	if err != nil {
		return nil, err
	}
	d, err := p.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "charts: create %s", dir)
	}
	f := report.NewFormatter(c.Report.Locale)
	files := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, string(name)+"."+format)
		if err := writeChart(path, name, d.Analysis, format, f); err != nil {
			return nil, err
		}
		zap.L().Info("charts: wrote", zap.String("chart", string(name)), zap.String("path", path))
		files = append(files, path)
	}
	return files, nil
}

func writeChart(path string, name report.ChartName, a predict.Analysis, format string, f *report.Formatter) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "charts: create %s", path)
	}
	if err := report.RenderChart(out, name, a, format, f); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "charts: close %s", path)
	}
	return nil
}

func printFiles(w io.Writer, files []string) {
	for _, f := range files {
		_, _ = fmt.Fprintln(w, f)
	}
}

func init() {
	chartsFlags.register(chartsCmd)
	chartsCmd.Flags().StringVar(&chartsOut, "out", "charts", "output directory")
	chartsCmd.Flags().StringVar(&chartsOnly, "only", "", "comma-separated charts: historical, comparison, future, errors (default historical,comparison,future)")
	chartsCmd.Flags().StringVar(&chartsFormat, "format", "png", "image format: png or svg")
	rootCmd.AddCommand(chartsCmd)
}
