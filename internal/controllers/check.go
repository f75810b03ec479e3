package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/airingbot/internal/metrics"
	"github.com/amaumene/airingbot/internal/models"
	"github.com/amaumene/airingbot/internal/telemetry"
)

// CheckOptions tunes a check cycle. Lookup timeouts are applied by the
// metadata client to the provider round trip only.
type CheckOptions struct {
	Workers int // entries processed concurrently, 1 = sequential
}

// CycleReport summarises one check cycle
type CycleReport struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Entries          int           `json:"entries"`
	Checked          int           `json:"checked"`
	Notified         int           `json:"notified"`
	Suppressed       int           `json:"suppressed"`
	LookupFailures   int           `json:"lookup_failures"`
	DeliveryFailures int           `json:"delivery_failures"`
	Panics           int           `json:"panics"`
	Err              string        `json:"error,omitempty"`
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeNotified
	outcomeSuppressed
	outcomeLookupFailed
	outcomeDeliveryFailed
	outcomePanicked
)

// CheckController runs the watch-check cycle
type CheckController struct {
	watchlist     WatchlistReader
	metadata      MetadataFetcher
	dispatcher    Dispatcher
	notifications NotificationLog // nil disables repeat suppression
	opts          CheckOptions
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	logger        *logrus.Logger

	mu   sync.RWMutex
	last *CycleReport
}

// NewCheckController creates a new check controller.
// notifications may be nil, in which case every qualifying check notifies.
func NewCheckController(
	watchlist WatchlistReader,
	metadata MetadataFetcher,
	dispatcher Dispatcher,
	notifications NotificationLog,
	opts CheckOptions,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *CheckController {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &CheckController{
		watchlist:     watchlist,
		metadata:      metadata,
		dispatcher:    dispatcher,
		notifications: notifications,
		opts:          opts,
		metrics:       m,
		tracer:        otel.Tracer(telemetry.TracerName),
		logger:        logger,
	}
}

// LastReport returns the report of the most recent cycle, or nil
func (c *CheckController) LastReport() *CycleReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	r := *c.last
	return &r
}

// RunCycle checks every watchlist entry once.
// Only a failure to read the watchlist snapshot is returned (as *models.StoreError);
// per-entry failures are logged and counted in the report.
func (c *CheckController) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.NewString(), StartedAt: time.Now()}
	log := c.logger.WithField("cycle_id", report.ID)

	ctx, span := c.tracer.Start(ctx, "check.cycle", trace.WithAttributes(attribute.String("cycle.id", report.ID)))
	defer span.End()

	log.Info("Checking for new episodes")

	entries, err := c.watchlist.ListDistinctEntries(ctx)
	if err != nil {
		var se *models.StoreError
		if !errors.As(err, &se) {
			err = &models.StoreError{Op: "snapshot", Err: err}
		}
		log.WithError(err).Error("Failed to read watchlist snapshot")
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")

		report.Err = err.Error()
		c.finish(report, metrics.CycleStoreError)
		return report, err
	}

	report.Entries = len(entries)
	span.SetAttributes(attribute.Int("cycle.entries", len(entries)))
	log.WithField("count", len(entries)).Info("Found watchlist entries to check")

	// Duplicate titles within one cycle share a lookup; nothing survives the cycle.
	memo := cache.New(cache.NoExpiration, 0)

	var countMu sync.Mutex
	p := pool.New().WithMaxGoroutines(c.opts.Workers)
	for _, entry := range entries {
		entry := entry
		p.Go(func() {
			out := c.checkEntry(ctx, log, entry, memo)

			countMu.Lock()
			defer countMu.Unlock()
			switch out {
			case outcomeNotified:
				report.Checked++
				report.Notified++
			case outcomeSuppressed:
				report.Checked++
				report.Suppressed++
			case outcomeNotDue:
				report.Checked++
			case outcomeLookupFailed:
				report.LookupFailures++
			case outcomeDeliveryFailed:
				report.Checked++
				report.DeliveryFailures++
			case outcomePanicked:
				report.Panics++
			}
		})
	}
	p.Wait()

	c.finish(report, metrics.CycleOK)
	log.WithFields(logrus.Fields{
		"entries":           report.Entries,
		"notified":          report.Notified,
		"suppressed":        report.Suppressed,
		"lookup_failures":   report.LookupFailures,
		"delivery_failures": report.DeliveryFailures,
		"duration_ms":       report.Duration.Milliseconds(),
	}).Info("Check cycle completed")

	return report, nil
}

func (c *CheckController) finish(report *CycleReport, result string) {
	report.Duration = time.Since(report.StartedAt)
	c.metrics.ObserveCycle(result, report.Duration)

	r := *report
	c.mu.Lock()
	c.last = &r
	c.mu.Unlock()
}

// checkEntry runs lookup, decision and dispatch for one entry.
// Nothing that happens here may escape to the other entries.
func (c *CheckController) checkEntry(ctx context.Context, log *logrus.Entry, entry models.WatchlistEntry, memo *cache.Cache) (out outcome) {
	entryLog := log.WithFields(logrus.Fields{
		"user_id": entry.UserID,
		"title":   entry.AnimeTitle,
	})

	ctx, span := c.tracer.Start(ctx, "check.entry", trace.WithAttributes(
		attribute.String("user.id", entry.UserID),
		attribute.String("anime.title", entry.AnimeTitle),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			entryLog.WithField("panic", r).Error("Entry check panicked")
			span.SetStatus(codes.Error, "panic")
			out = outcomePanicked
		}
	}()

	meta, err := c.lookup(ctx, entry.AnimeTitle, memo)
	if err != nil {
		entryLog.WithError(err).Error("Failed to fetch anime details")
		c.metrics.LookupFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return outcomeLookupFailed
	}
	c.metrics.EntryChecked()

	if !ShouldNotify(meta) {
		entryLog.Debug("No new episode within the next hour")
		span.SetAttributes(attribute.String("check.outcome", "not_due"))
		return outcomeNotDue
	}

	episode := meta.NextAiringEpisode.Episode
	entryLog = entryLog.WithField("episode", episode)
	span.SetAttributes(attribute.Int("anime.episode", episode))

	if c.alreadyNotified(ctx, entryLog, entry, episode) {
		entryLog.Debug("Episode already notified, skipping")
		c.metrics.Notification(metrics.NotificationSuppressed)
		span.SetAttributes(attribute.String("check.outcome", "suppressed"))
		return outcomeSuppressed
	}

	entryLog.WithField("romaji", meta.TitleRomaji).Info("New episode airing soon")

	if err := c.dispatcher.Send(ctx, entry.UserID, meta); err != nil {
		var de *models.DeliveryError
		if !errors.As(err, &de) {
			err = &models.DeliveryError{UserID: entry.UserID, Title: meta.TitleRomaji, Err: err}
		}
		entryLog.WithError(err).Error("Failed to deliver notification")
		c.metrics.Notification(metrics.NotificationFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return outcomeDeliveryFailed
	}

	c.metrics.Notification(metrics.NotificationSent)
	span.SetAttributes(attribute.String("check.outcome", "notified"))
	c.markNotified(ctx, entryLog, entry, episode)
	return outcomeNotified
}

// lookup fetches metadata, reusing this cycle's results
func (c *CheckController) lookup(ctx context.Context, title string, memo *cache.Cache) (*models.AnimeMetadata, error) {
	if cached, ok := memo.Get(title); ok {
		return cached.(*models.AnimeMetadata), nil
	}

	meta, err := c.metadata.Fetch(ctx, title)
	if err == nil && meta == nil {
		err = fmt.Errorf("empty metadata")
	}
	if err != nil {
		var le *models.LookupError
		if !errors.As(err, &le) {
			err = &models.LookupError{Title: title, Err: err}
		}
		return nil, err
	}

	memo.Set(title, meta, cache.NoExpiration)
	return meta, nil
}

func (c *CheckController) alreadyNotified(ctx context.Context, log *logrus.Entry, entry models.WatchlistEntry, episode int) bool {
	if c.notifications == nil {
		return false
	}
	last, ok, err := c.notifications.LastNotifiedEpisode(ctx, entry.UserID, entry.AnimeTitle)
	if err != nil {
		// Better a duplicate than a missed episode.
		log.WithError(err).Warn("Failed to read notification record")
		return false
	}
	return ok && last >= episode
}

func (c *CheckController) markNotified(ctx context.Context, log *logrus.Entry, entry models.WatchlistEntry, episode int) {
	if c.notifications == nil {
		return
	}
	err := c.notifications.MarkNotified(ctx, models.NotificationRecord{
		UserID:     entry.UserID,
		AnimeTitle: entry.AnimeTitle,
		Episode:    episode,
		NotifiedAt: time.Now(),
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record notification")
	}
}
