package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner performs one pass over the tracked subjects
type Runner interface {
	RunScheduledScans(ctx context.Context) error
}

// Service handles scheduling of tracked subject rescans
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) (*Service, error) {
	location := time.UTC
	if cfg.TimeZone != "" {
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
		}
		location = loc
	}

	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(location)),
	}, nil
}

// Start registers the scan job and starts the cron loop. An empty schedule leaves scheduling off.
func (s *Service) Start() error {
	if s.config.ScanSchedule == "" {
		logrus.Info("SCAN_SCHEDULE not set - scheduled scans disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.config.ScanSchedule, s.run)
	if err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", s.config.ScanSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q for %d tracked subjects",
		s.config.ScanSchedule, len(s.config.TrackedSubjects))
	return nil
}

func (s *Service) run() {
	logrus.Info("Starting scheduled scan run")
	if err := s.runner.RunScheduledScans(context.Background()); err != nil {
		logrus.Errorf("Scheduled scan run failed: %v", err)
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
