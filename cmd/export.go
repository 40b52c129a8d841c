package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

var (
	exportFlags analysisFlags
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the analysis to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runExport(cmd.Context(), cfg, exportFlags.options(cfg), exportOut); err != nil {
			return err
		}
		printFiles(cmd.OutOrStdout(), []string{exportOut})
		return nil
	},
}

func runExport(ctx context.Context, c *config.Config, opts predict.Options, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return &model.InvalidArgumentError{Field: "out", Value: path, Reason: "must end in .xlsx"}
	}

	p, err := initPipeline(c, "analyze")
	if err != nil {
		return err
	}
	d, err := p.Analyze(ctx, opts)
	if err != nil {
		return err
	}
	if err := report.SaveWorkbook(path, report.NewFormatter(c.Report.Locale), d); err != nil {
		return err
	}
	zap.L().Info("export: wrote workbook", zap.String("path", path), zap.String("run_id", d.Analysis.RunID))
	return nil
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "proyeccion_poblacion.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
