package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/pipeline"
	"github.com/sells-group/popforecast/internal/predict"
)

// analysisFlags are the model controls shared by analyze, charts and export.
type analysisFlags struct {
	cutoff int
	end    int
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.cutoff, "cutoff", 0, "train cutoff year, 2010-2020 (default from config)")
	cmd.Flags().IntVar(&f.end, "end", 0, "last projected year, 2030-2060 (default from config)")
}

// options overlays the flags on the configured defaults.
func (f analysisFlags) options(c *config.Config) predict.Options {
	opts := predict.DefaultOptions(c.Analysis)
	if f.cutoff != 0 {
		opts.Cutoff = f.cutoff
	}
	if f.end != 0 {
		opts.ProjectionEnd = f.end
	}
	return opts
}

// initPipeline validates the config for mode and builds the pipeline.
func initPipeline(c *config.Config, mode string) (*pipeline.Pipeline, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}
	return pipeline.New(c)
}
