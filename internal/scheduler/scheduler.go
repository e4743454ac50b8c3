package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"custodycore/internal/config"
	"custodycore/internal/core"
)

// Scheduler manages scheduled maintenance tasks: the nightly worklist
// reconciliation sweep and the aggregate gauge refresh.
type Scheduler struct {
	cron    *cron.Cron
	svc     *core.Service
	metrics *core.PrometheusRecorder
	cfg     config.ReportingConfig
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler instance. metrics may be nil when
// prometheus is not wired.
func NewScheduler(cfg config.ReportingConfig, svc *core.Service, metrics *core.PrometheusRecorder, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []cron.Option{}
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			opts = append(opts, cron.WithLocation(loc))
		} else {
			logger.Warn("invalid timezone, falling back to local", zap.String("timezone", cfg.Timezone), zap.Error(err))
		}
	}
	c := cron.New(opts...)

	return &Scheduler{
		cron:    c,
		svc:     svc,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.reconcile); err != nil {
		s.logger.Error("failed to schedule reconciliation sweep", zap.Error(err))
	}
	// Gauge refresh runs often enough for dashboards without hammering the store.
	if s.metrics != nil {
		if _, err := s.cron.AddFunc("@every 1m", s.refreshGauges); err != nil {
			s.logger.Error("failed to schedule gauge refresh", zap.Error(err))
		}
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	removed, err := s.svc.ReconcileWorklists(ctx)
	if err != nil {
		s.logger.Error("reconciliation sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("reconciliation sweep completed", zap.Int("removed", removed))
}

func (s *Scheduler) refreshGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := s.svc.Summary(ctx)
	if err != nil {
		s.logger.Error("gauge refresh failed", zap.Error(err))
		return
	}
	s.metrics.UpdateAggregates(summary)
}
