package predict

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
)

// Options are the user-facing knobs of one analysis run.
type Options struct {
	Cutoff        int `json:"cutoff" yaml:"cutoff"`
	ProjectionEnd int `json:"projection_end" yaml:"projection_end"`
}

// DefaultOptions reads the configured defaults.
func DefaultOptions(cfg config.AnalysisConfig) Options {
	return Options{Cutoff: cfg.TrainCutoffYear, ProjectionEnd: cfg.ProjectionEndYear}
}

// Validate checks both fields against the allowed ranges.
func (o Options) Validate() error {
	if err := config.CheckTrainCutoff(o.Cutoff); err != nil {
		return err
	}
	return config.CheckProjectionEnd(o.ProjectionEnd)
}

// Analysis is the result of one complete run. Treat it as read-only; use
// Clone before handing it to code that may modify it.
type Analysis struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	CreatedAt   time.Time              `json:"created_at" yaml:"created_at"`
	Options     Options                `json:"options" yaml:"options"`
	Split       model.Split            `json:"split" yaml:"split"`
	Evaluation  model.EvaluationResult `json:"evaluation" yaml:"evaluation"`
	Projections model.ProjectionTable  `json:"projections" yaml:"projections"`
	Parameters  model.Parameters       `json:"parameters" yaml:"parameters"`
}

// Clone returns an independent deep copy.
func (a Analysis) Clone() Analysis {
	out := a
	out.Split = model.Split{
		Train: a.Split.Train.Clone(),
		Test:  a.Split.Test.Clone(),
		Full:  a.Split.Full.Clone(),
	}
	out.Evaluation = a.Evaluation.Clone()
	out.Projections = a.Projections.Clone()
	return out
}

// RunCompleteAnalysis prepares the split, trains, evaluates, and projects
// from the year after the evaluation window through opts.ProjectionEnd.
func RunCompleteAnalysis(series model.HistoricalSeries, opts Options) (Analysis, error) {
	split := Prepare(series, opts.Cutoff)

	p := NewPredictor()
	if err := p.Train(split.Train); err != nil {
		return Analysis{}, err
	}
	eval, err := p.Evaluate(split.Test)
	if err != nil {
		return Analysis{}, err
	}
	proj, err := p.Project(config.EvaluationEndYear+1, opts.ProjectionEnd)
	if err != nil {
		return Analysis{}, err
	}
	params, _ := p.Parameters()

	a := Analysis{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Options:     opts,
		Split:       split,
		Evaluation:  eval,
		Projections: proj,
		Parameters:  params,
	}

	zap.L().Info("predict: analysis complete",
		zap.String("run_id", a.RunID),
		zap.Int("cutoff", opts.Cutoff),
		zap.Int("projection_end", opts.ProjectionEnd),
		zap.Int("train_years", split.Train.Len()),
		zap.Int("test_years", split.Test.Len()),
		zap.Int("projections", len(proj)),
		zap.Float64("mae", eval.Metrics.MAE),
	)
	return a, nil
}
