package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/controllers"
)

// CycleRunner runs one watch-check cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*controllers.CycleReport, error)
}

// Scheduler triggers check cycles on a fixed interval, one at a time
type Scheduler struct {
	cron       *cron.Cron
	job        cron.Job
	runner     CycleRunner
	interval   time.Duration
	runOnStart bool
	logger     *logrus.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(runner CycleRunner, interval time.Duration, runOnStart bool, logger *logrus.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:       cron.New(cron.WithLogger(cl)),
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
	}
	// Ticks and the start-up run share one guard, so a tick that fires
	// while a cycle is running is dropped.
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.runCycle))
	return s
}

// Start starts the scheduler. The first tick fires one interval from now.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if s.interval < time.Second {
		return fmt.Errorf("check interval must be at least one second, got %s", s.interval)
	}

	s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()
	s.started = true

	s.logger.WithFields(logrus.Fields{
		"interval":     s.interval,
		"run_on_start": s.runOnStart,
	}).Info("Scheduler started")

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.job.Run()
		}()
	}

	return nil
}

// Stop stops the scheduler. No new cycle starts after Stop; a running cycle
// is waited for until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).Warn("Scheduler stopped before the running cycle finished")
		return ctx.Err()
	}
}

// runCycle executes one check cycle
func (s *Scheduler) runCycle() {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	report, err := s.runner.RunCycle(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Check cycle aborted")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"cycle_id": report.ID,
		"notified": report.Notified,
	}).Debug("Check cycle finished")
}

// cronLogger bridges cron's logger to logrus
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	entry := l.logger.WithFields(fields(keysAndValues))
	if msg == "skip" {
		entry.Warn("Check cycle still running, skipping tick")
		return
	}
	entry.Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
