package controllers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amaumene/airingbot/internal/models"
)

type fakeWatchlist struct {
	entries []models.WatchlistEntry
	err     error
}

func (f *fakeWatchlist) ListDistinctEntries(ctx context.Context) ([]models.WatchlistEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeMetadata struct {
	mu      sync.Mutex
	byTitle map[string]*models.AnimeMetadata
	calls   map[string]int
	panicOn string
	block   bool          // wait for ctx cancellation
	delay   time.Duration // simulated latency

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeMetadata) Fetch(ctx context.Context, title string) (*models.AnimeMetadata, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[title]++
	meta, ok := f.byTitle[title]
	f.mu.Unlock()

	if title == f.panicOn {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if !ok {
		return nil, &models.LookupError{Title: title, Err: errors.New("Not Found.")}
	}
	return meta, nil
}

func (f *fakeMetadata) callCount(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[title]
}

type dispatchCall struct {
	userID  string
	title   string
	episode int
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  map[string]error // by user id
}

func (f *fakeDispatcher) Send(ctx context.Context, userID string, meta *models.AnimeMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{userID: userID, title: meta.TitleRomaji, episode: meta.NextAiringEpisode.Episode})
	if err := f.fail[userID]; err != nil {
		return err
	}
	return nil
}

func (f *fakeDispatcher) sent() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotificationLog struct {
	mu      sync.Mutex
	records map[string]int
	readErr error
}

func (f *fakeNotificationLog) LastNotifiedEpisode(ctx context.Context, userID, title string) (int, bool, error) {
	if f.readErr != nil {
		return 0, false, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.records[userID+"/"+title]
	return ep, ok, nil
}

func (f *fakeNotificationLog) MarkNotified(ctx context.Context, rec models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = map[string]int{}
	}
	f.records[rec.UserID+"/"+rec.AnimeTitle] = rec.Episode
	return nil
}

type fakeSender struct {
	payloads []models.NotificationPayload
	users    []string
	err      error
	block    bool
}

func (f *fakeSender) SendDirect(ctx context.Context, userID string, payload models.NotificationPayload) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, userID)
	f.payloads = append(f.payloads, payload)
	return nil
}
