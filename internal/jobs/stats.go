// Package jobs runs the periodic background work of the API process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

// ProjectCounter is the part of the workflow engine the stats job reads.
type ProjectCounter interface {
	ProjectCounts(ctx context.Context) (map[models.ProjectState]int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	src     ProjectCounter
	log     *zap.Logger
	sink    func(map[string]int64)
	timeout time.Duration
}

// NewStatsScheduler refreshes the projects-by-state gauge on spec, which is
// a standard cron expression or a descriptor such as "@every 1m".
func NewStatsScheduler(spec string, src ProjectCounter, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{s: log.Sugar()}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		src:     src,
		log:     log,
		sink:    metrics.SetProjectsByState,
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs one refresh right away, then follows the schedule.
func (s *Scheduler) Start() {
	s.refresh()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running refresh, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := RefreshProjectStats(ctx, s.src, s.sink); err != nil {
		s.log.Warn("project stats refresh failed", zap.Error(err))
	}
}

// RefreshProjectStats reads the per-state project counts and hands them to
// sink.
func RefreshProjectStats(ctx context.Context, src ProjectCounter, sink func(map[string]int64)) error {
	counts, err := src.ProjectCounts(ctx)
	if err != nil {
		return err
	}
	out := make(map[string]int64, len(counts))
	for state, n := range counts {
		out[string(state)] = n
	}
	sink(out)
	return nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
