// Package pipeline wires extraction, transformation and prediction into the
// two calls the presentation layers need: Dataset and Analyze.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/cache"
	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/extract"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/predict"
	"github.com/sells-group/popforecast/internal/transform"
)

// ExtractStat reports how many rows one extract contributed.
type ExtractStat struct {
	Name     string `json:"name" yaml:"name"`
	Period   string `json:"period,omitempty" yaml:"period,omitempty"`
	Rows     int    `json:"rows" yaml:"rows"`
	Complete int    `json:"complete" yaml:"complete"`
}

// Dataset is the filtered, aggregated input shared by every analysis.
type Dataset struct {
	Fingerprint string                 `json:"fingerprint" yaml:"fingerprint"`
	Extracts    []ExtractStat          `json:"extracts" yaml:"extracts"`
	Records     []model.StandardRecord `json:"-" yaml:"-"`
	Series      model.HistoricalSeries `json:"series" yaml:"series"`
	Summary     model.Summary          `json:"summary" yaml:"summary"`
}

// Clone returns an independent deep copy.
func (d Dataset) Clone() Dataset {
	out := d
	if d.Extracts != nil {
		out.Extracts = append([]ExtractStat(nil), d.Extracts...)
	}
	if d.Records != nil {
		out.Records = make([]model.StandardRecord, len(d.Records))
		for i, r := range d.Records {
			r.Nulls = append([]string(nil), r.Nulls...)
			out.Records[i] = r
		}
	}
	out.Series = d.Series.Clone()
	return out
}

// Dashboard is everything a view renders for one set of options.
type Dashboard struct {
	Dataset  Dataset          `json:"dataset" yaml:"dataset"`
	Analysis predict.Analysis `json:"analysis" yaml:"analysis"`
}

// Pipeline caches the dataset per source fingerprint and analyses per
// (fingerprint, options). It is safe for concurrent use.
type Pipeline struct {
	cfg      *config.Config
	registry *extract.Registry

	datasets *cache.Memo[Dataset]
	analyses *cache.Memo[predict.Analysis]

	mu          sync.Mutex
	fingerprint string
}

// New builds a Pipeline for the configured extracts.
func New(cfg *config.Config) (*Pipeline, error) {
	reg, err := extract.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build extract registry")
	}
	return NewWithRegistry(cfg, reg), nil
}

// NewWithRegistry builds a Pipeline over an explicit registry.
func NewWithRegistry(cfg *config.Config, reg *extract.Registry) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: reg,
		datasets: cache.NewMemo("dataset", 1, Dataset.Clone),
		analyses: cache.NewMemo("analysis", cfg.Cache.MaxAnalyses, predict.Analysis.Clone),
	}
}

// DefaultOptions returns the configured analysis defaults.
func (p *Pipeline) DefaultOptions() predict.Options {
	return predict.DefaultOptions(p.cfg.Analysis)
}

// Dataset loads, standardizes, filters and aggregates every extract. The
// result is reused until a source file or descriptor changes.
func (p *Pipeline) Dataset(ctx context.Context) (Dataset, error) {
	fp, err := extract.Fingerprint(p.registry)
	if err != nil {
		return Dataset{}, err
	}
	p.observe(fp)

	return p.datasets.Do(fp, func() (Dataset, error) {
		return p.buildDataset(ctx, fp)
	})
}

// Analyze runs the model for opts over the current dataset.
func (p *Pipeline) Analyze(ctx context.Context, opts predict.Options) (Dashboard, error) {
	if err := opts.Validate(); err != nil {
		return Dashboard{}, err
	}

	ds, err := p.Dataset(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	key, err := cache.Key(ds.Fingerprint, opts)
	if err != nil {
		return Dashboard{}, err
	}
	a, err := p.analyses.Do(key, func() (predict.Analysis, error) {
		return predict.RunCompleteAnalysis(ds.Series, opts)
	})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Dataset: ds, Analysis: a}, nil
}

// Invalidate drops every cached dataset and analysis.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	p.fingerprint = ""
	p.mu.Unlock()
	p.datasets.Reset()
	p.analyses.Reset()
}

// observe resets the analysis memo when the source fingerprint moves.
func (p *Pipeline) observe(fp string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fingerprint == fp {
		return
	}
	if p.fingerprint != "" {
		zap.L().Info("pipeline: source files changed, dropping cached analyses")
	}
	p.fingerprint = fp
	p.analyses.Reset()
}

func (p *Pipeline) buildDataset(ctx context.Context, fp string) (Dataset, error) {
	start := time.Now()
	log := zap.L().With(zap.String("fingerprint", fp[:12]))
	log.Info("pipeline: loading extracts", zap.Int("extracts", p.registry.Len()))

	batches, err := extract.Load(ctx, p.registry)
	if err != nil {
		return Dataset{}, err
	}

	sets := make([][]model.StandardRecord, 0, len(batches))
	extracts := make([]ExtractStat, 0, len(batches))
	for _, b := range batches {
		std := extract.StandardizeBatch(b)
		sets = append(sets, std)
		extracts = append(extracts, ExtractStat{
			Name:     b.Descriptor.Name,
			Period:   b.Descriptor.Period,
			Rows:     len(std),
			Complete: len(transform.DropIncomplete(std)),
		})
	}

	ac := p.cfg.Analysis
	records := transform.MergeAndFilter(ac.TargetRegion, ac.AreaCategory, sets...)
	series, err := transform.Aggregate(records)
	if err != nil {
		return Dataset{}, err
	}
	summary, err := transform.Summarize(series, len(records))
	if err != nil {
		return Dataset{}, err
	}

	log.Info("pipeline: dataset ready",
		zap.Int("records", len(records)),
		zap.Int("years", series.Len()),
		zap.Int("first_year", summary.FirstYear),
		zap.Int("last_year", summary.LastYear),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Dataset{
		Fingerprint: fp,
		Extracts:    extracts,
		Records:     records,
		Series:      series,
		Summary:     summary,
	}, nil
}
