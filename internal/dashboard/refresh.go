package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Refresher re-reads the dataset on a cron schedule and warms the default
// analysis, so a replaced source file is picked up without waiting for a
// request.
type Refresher struct {
	analyzer Analyzer
	schedule cron.Schedule
	spec     string
	now      func() time.Time
}

// NewRefresher parses spec (standard five-field cron or a descriptor such as
// "@every 10m"). An empty spec returns nil, nil.
func NewRefresher(a Analyzer, spec string) (*Refresher, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: parse refresh schedule %q", spec)
	}
	return &Refresher{analyzer: a, schedule: sched, spec: spec, now: time.Now}, nil
}

// Run blocks until ctx is done, refreshing at every scheduled time.
func (r *Refresher) Run(ctx context.Context) {
	zap.L().Info("dashboard: refresh scheduled", zap.String("schedule", r.spec))
	for {
		now := r.now()
		next := r.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh loads the dataset and the default analysis once. Failures are
// logged; the next tick tries again.
func (r *Refresher) Refresh(ctx context.Context) {
	start := time.Now()
	ds, err := r.analyzer.Dataset(ctx)
	if err != nil {
		zap.L().Warn("dashboard: refresh dataset failed", zap.Error(err))
		return
	}
	if _, err := r.analyzer.Analyze(ctx, r.analyzer.DefaultOptions()); err != nil {
		zap.L().Warn("dashboard: refresh analysis failed", zap.Error(err))
		return
	}
	zap.L().Info("dashboard: refreshed",
		zap.String("fingerprint", ds.Fingerprint),
		zap.Int("years", ds.Series.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
