package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airingbot/internal/models"
)

type memoryStore struct {
	entries []models.WatchlistEntry
	addErr  error
}

func (m *memoryStore) AddEntry(ctx context.Context, entry models.WatchlistEntry) (bool, error) {
	if m.addErr != nil {
		return false, m.addErr
	}
	for _, e := range m.entries {
		if e == entry {
			return false, nil
		}
	}
	m.entries = append(m.entries, entry)
	return true, nil
}

func (m *memoryStore) RemoveEntry(ctx context.Context, entry models.WatchlistEntry) error {
	for i, e := range m.entries {
		if e == entry {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memoryStore) ListUserEntries(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	var out []models.WatchlistEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeResolver struct {
	titles map[string]string
}

func (f *fakeResolver) BestMatch(ctx context.Context, query string) (*models.AnimeMetadata, error) {
	title, ok := f.titles[query]
	if !ok {
		return nil, &models.LookupError{Title: query, Err: errors.New("no matching anime")}
	}
	return &models.AnimeMetadata{TitleRomaji: title}, nil
}

func newWatchlistController(store *memoryStore) *WatchlistController {
	logger, _ := test.NewNullLogger()
	return NewWatchlistController(store, &fakeResolver{titles: map[string]string{
		"naruto":    "NARUTO",
		"one piece": "ONE PIECE",
	}}, logger)
}

func TestWatchStoresResolvedTitle(t *testing.T) {
	store := &memoryStore{}
	ctrl := newWatchlistController(store)

	title, added, err := ctrl.Watch(context.Background(), "7", "  naruto ")
	require.NoError(t, err)
	assert.Equal(t, "NARUTO", title)
	assert.True(t, added)

	_, added, err = ctrl.Watch(context.Background(), "7", "naruto")
	require.NoError(t, err)
	assert.False(t, added)

	titles, err := ctrl.List(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"NARUTO"}, titles)
}

func TestWatchErrors(t *testing.T) {
	ctrl := newWatchlistController(&memoryStore{})

	_, _, err := ctrl.Watch(context.Background(), "7", "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, _, err = ctrl.Watch(context.Background(), "7", "unknown")
	var le *models.LookupError
	assert.ErrorAs(t, err, &le)

	failing := newWatchlistController(&memoryStore{addErr: &models.StoreError{Op: "add entry", Err: errors.New("disk full")}})
	_, _, err = failing.Watch(context.Background(), "7", "naruto")
	var se *models.StoreError
	assert.ErrorAs(t, err, &se)
}

func TestUnwatch(t *testing.T) {
	store := &memoryStore{entries: []models.WatchlistEntry{{UserID: "7", AnimeTitle: "NARUTO"}}}
	ctrl := newWatchlistController(store)

	assert.ErrorIs(t, ctrl.Unwatch(context.Background(), "7", ""), ErrEmptyTitle)
	require.NoError(t, ctrl.Unwatch(context.Background(), "7", "NARUTO"))
	assert.ErrorIs(t, ctrl.Unwatch(context.Background(), "7", "NARUTO"), models.ErrNotFound)
	assert.Empty(t, store.entries)
}
