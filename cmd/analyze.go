package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/report"
)

var (
	analyzeFlags  analysisFlags
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis and print the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), cfg, analyzeFlags.options(cfg), analyzeFormat, cmd.OutOrStdout())
	},
}

func runAnalyze(ctx context.Context, c *config.Config, opts predict.Options, format string, out io.Writer) error {
	switch format {
	case "table", "json", "yaml":
	default:
		return &model.InvalidArgumentError{Field: "format", Value: format, Reason: "must be table, json or yaml"}
	}

	p, err := initPipeline(c, "analyze")
	if err != nil {
		return err
	}
	d, err := p.Analyze(ctx, opts)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return eris.Wrap(err, "analyze: encode json")
		}
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return eris.Wrap(err, "analyze: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "analyze: flush yaml")
		}
	default:
		if err := report.WriteText(out, report.NewFormatter(c.Report.Locale), d); err != nil {
			return eris.Wrap(err, "analyze: write tables")
		}
	}
	return nil
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}
