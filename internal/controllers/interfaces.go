package controllers

import (
	"context"

	"github.com/amaumene/airingbot/internal/models"
)

// WatchlistReader provides the per-cycle watchlist snapshot
type WatchlistReader interface {
	ListDistinctEntries(ctx context.Context) ([]models.WatchlistEntry, error)
}

// MetadataFetcher resolves a title to its current metadata
type MetadataFetcher interface {
	Fetch(ctx context.Context, title string) (*models.AnimeMetadata, error)
}

// Dispatcher delivers one notification to one user
type Dispatcher interface {
	Send(ctx context.Context, userID string, meta *models.AnimeMetadata) error
}

// MessageSender is the chat platform's direct message capability
type MessageSender interface {
	SendDirect(ctx context.Context, userID string, payload models.NotificationPayload) error
}

// NotificationLog remembers the last episode each user was notified about
type NotificationLog interface {
	LastNotifiedEpisode(ctx context.Context, userID, title string) (int, bool, error)
	MarkNotified(ctx context.Context, rec models.NotificationRecord) error
}

// WatchlistStore is the write side used by user commands
type WatchlistStore interface {
	AddEntry(ctx context.Context, entry models.WatchlistEntry) (bool, error)
	RemoveEntry(ctx context.Context, entry models.WatchlistEntry) error
	ListUserEntries(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
}

// TitleResolver picks the anime a free-form query refers to
type TitleResolver interface {
	BestMatch(ctx context.Context, query string) (*models.AnimeMetadata, error)
}
