package models

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the watchlist persistence API.
// Every method reports failures as *StoreError.
type Store interface {
	// AddEntry stores an entry; it reports false when the user already watches the title.
	AddEntry(ctx context.Context, entry WatchlistEntry) (bool, error)
	// RemoveEntry deletes the user's entry matching title; ErrNotFound when absent.
	RemoveEntry(ctx context.Context, entry WatchlistEntry) error
	ListUserEntries(ctx context.Context, userID string) ([]WatchlistEntry, error)
	// ListDistinctEntries returns every distinct (user, title) pair.
	ListDistinctEntries(ctx context.Context) ([]WatchlistEntry, error)

	LastNotifiedEpisode(ctx context.Context, userID, title string) (int, bool, error)
	MarkNotified(ctx context.Context, rec NotificationRecord) error

	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

// Open opens the store for driver ("sqlite" or "bolt") at path
func Open(driver, path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	switch driver {
	case "sqlite", "sqlite3":
		return NewSQLiteStore(path)
	case "bolt", "bolthold":
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
