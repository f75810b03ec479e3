package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"

	"github.com/amaumene/airingbot/internal/utils"
)

type boltEntry struct {
	Key        string `boltholdKey:"Key"`
	UserID     string `boltholdIndex:"UserID"`
	TitleKey   string
	AnimeTitle string
	CreatedAt  time.Time
}

type boltNotification struct {
	Key        string `boltholdKey:"Key"`
	Episode    int
	NotifiedAt time.Time
}

// BoltStore keeps the watchlist in a bolthold file
type BoltStore struct {
	store *bolthold.Store
}

// NewBoltStore opens the bolt database at path
func NewBoltStore(path string) (*BoltStore, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{store: store}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.store.Close()
}

func entryKey(userID, title string) string {
	return userID + "\x00" + utils.NormalizeTitle(title)
}

// AddEntry stores a watchlist entry unless the user already watches the title
func (s *BoltStore) AddEntry(ctx context.Context, entry WatchlistEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeErr("add entry", err)
	}

	key := entryKey(entry.UserID, entry.AnimeTitle)
	err := s.store.Insert(key, &boltEntry{
		UserID:     entry.UserID,
		TitleKey:   utils.NormalizeTitle(entry.AnimeTitle),
		AnimeTitle: entry.AnimeTitle,
		CreatedAt:  time.Now(),
	})
	if errors.Is(err, bolthold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("add entry", err)
	}
	return true, nil
}

// RemoveEntry deletes the user's entry for a title
func (s *BoltStore) RemoveEntry(ctx context.Context, entry WatchlistEntry) error {
	if err := ctx.Err(); err != nil {
		return storeErr("remove entry", err)
	}

	err := s.store.Delete(entryKey(entry.UserID, entry.AnimeTitle), &boltEntry{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return ErrNotFound
	}
	return storeErr("remove entry", err)
}

// ListUserEntries returns one user's entries in insertion order
func (s *BoltStore) ListUserEntries(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list user entries", err)
	}

	var rows []boltEntry
	if err := s.store.Find(&rows, bolthold.Where("UserID").Eq(userID)); err != nil {
		return nil, storeErr("list user entries", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	entries := make([]WatchlistEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, WatchlistEntry{UserID: row.UserID, AnimeTitle: row.AnimeTitle})
	}
	return entries, nil
}

// ListDistinctEntries returns the distinct (user_id, anime_title) pairs
func (s *BoltStore) ListDistinctEntries(ctx context.Context) ([]WatchlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list distinct entries", err)
	}

	var rows []boltEntry
	if err := s.store.Find(&rows, nil); err != nil {
		return nil, storeErr("list distinct entries", err)
	}

	seen := make(map[WatchlistEntry]struct{}, len(rows))
	entries := make([]WatchlistEntry, 0, len(rows))
	for _, row := range rows {
		e := WatchlistEntry{UserID: row.UserID, AnimeTitle: row.AnimeTitle}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AnimeTitle < entries[j].AnimeTitle
	})
	return entries, nil
}

// LastNotifiedEpisode returns the last episode the user was notified about for a title
func (s *BoltStore) LastNotifiedEpisode(ctx context.Context, userID, title string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, storeErr("last notified episode", err)
	}

	var rec boltNotification
	err := s.store.Get(entryKey(userID, title), &rec)
	if errors.Is(err, bolthold.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeErr("last notified episode", err)
	}
	return rec.Episode, true, nil
}

// MarkNotified records the episode a user was just notified about
func (s *BoltStore) MarkNotified(ctx context.Context, rec NotificationRecord) error {
	if err := ctx.Err(); err != nil {
		return storeErr("mark notified", err)
	}

	notifiedAt := rec.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = time.Now()
	}
	err := s.store.Upsert(entryKey(rec.UserID, rec.AnimeTitle), &boltNotification{
		Episode:    rec.Episode,
		NotifiedAt: notifiedAt,
	})
	return storeErr("mark notified", err)
}

// Stats counts entries, users and titles
func (s *BoltStore) Stats(ctx context.Context) (StoreStats, error) {
	if err := ctx.Err(); err != nil {
		return StoreStats{}, storeErr("stats", err)
	}

	var rows []boltEntry
	if err := s.store.Find(&rows, nil); err != nil {
		return StoreStats{}, storeErr("stats", err)
	}

	users := map[string]struct{}{}
	titles := map[string]struct{}{}
	for _, row := range rows {
		users[row.UserID] = struct{}{}
		titles[row.TitleKey] = struct{}{}
	}
	return StoreStats{Entries: len(rows), Users: len(users), Titles: len(titles)}, nil
}
