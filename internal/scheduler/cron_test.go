package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/models"
)

type fakeRunner struct {
	runs    atomic.Int32
	started chan struct{} // receives once per run, if set
	release chan struct{} // blocks each run until closed, if set
	err     error
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*controllers.CycleReport, error) {
	f.runs.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return &controllers.CycleReport{Err: f.err.Error()}, f.err
	}
	return &controllers.CycleReport{ID: "cycle"}, nil
}

func newTestScheduler(runner CycleRunner, interval time.Duration, runOnStart bool) (*Scheduler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewScheduler(runner, interval, runOnStart, logger), hook
}

func TestFirstCycleWaitsOneInterval(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := newTestScheduler(runner, time.Hour, false)

	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runner.runs.Load())
	require.NoError(t, s.Stop(context.Background()))
}

func TestRunOnStart(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := newTestScheduler(runner, time.Hour, true)

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestTicksRunCycles(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := newTestScheduler(runner, time.Second, false)

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return runner.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	s, hook := newTestScheduler(runner, time.Hour, true)

	require.NoError(t, s.Start())
	<-runner.started

	// A tick while the start-up cycle is still running.
	s.job.Run()
	assert.Equal(t, int32(1), runner.runs.Load())

	close(runner.release)
	require.NoError(t, s.Stop(context.Background()))

	var skipped bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Check cycle still running, skipping tick" {
			skipped = true
		}
	}
	assert.True(t, skipped)
}

func TestStopWaitsForRunningCycle(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
	s, _ := newTestScheduler(runner, time.Hour, true)

	require.NoError(t, s.Start())
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(runner.release)
	// Once stopped, no new cycle starts.
	s.job.Run()
	assert.Equal(t, int32(1), runner.runs.Load())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStoreErrorIsLoggedAndNextCycleRuns(t *testing.T) {
	runner := &fakeRunner{err: &models.StoreError{Op: "snapshot", Err: errors.New("database is locked")}}
	s, hook := newTestScheduler(runner, time.Hour, false)

	require.NotPanics(t, s.job.Run)
	require.NotPanics(t, s.job.Run)

	assert.Equal(t, int32(2), runner.runs.Load())
	var aborted int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "Check cycle aborted" {
			aborted++
		}
	}
	assert.Equal(t, 2, aborted)
}

func TestStartValidation(t *testing.T) {
	s, _ := newTestScheduler(&fakeRunner{}, 500*time.Millisecond, false)
	assert.Error(t, s.Start())

	s, _ = newTestScheduler(&fakeRunner{}, time.Hour, false)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopBeforeStart(t *testing.T) {
	s, _ := newTestScheduler(&fakeRunner{}, time.Hour, false)
	assert.NoError(t, s.Stop(context.Background()))
}
