package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/models"
)

// ErrEmptyTitle is returned when a command is missing its title argument
var ErrEmptyTitle = errors.New("title is required")

// WatchlistController serves the user-facing watchlist commands
type WatchlistController struct {
	store    WatchlistStore
	resolver TitleResolver
	logger   *logrus.Logger
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(store WatchlistStore, resolver TitleResolver, logger *logrus.Logger) *WatchlistController {
	return &WatchlistController{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// Watch resolves query to an AniList title and adds it to the user's watchlist.
// It returns the stored (romaji) title and whether it was newly added.
func (c *WatchlistController) Watch(ctx context.Context, userID, query string) (string, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false, ErrEmptyTitle
	}

	meta, err := c.resolver.BestMatch(ctx, query)
	if err != nil {
		return "", false, err
	}

	added, err := c.store.AddEntry(ctx, models.WatchlistEntry{UserID: userID, AnimeTitle: meta.TitleRomaji})
	if err != nil {
		return "", false, fmt.Errorf("failed to add %q: %w", meta.TitleRomaji, err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"query":   query,
		"title":   meta.TitleRomaji,
		"added":   added,
	}).Info("Watch command handled")

	return meta.TitleRomaji, added, nil
}

// Unwatch removes a title from the user's watchlist; models.ErrNotFound when absent
func (c *WatchlistController) Unwatch(ctx context.Context, userID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	if err := c.store.RemoveEntry(ctx, models.WatchlistEntry{UserID: userID, AnimeTitle: title}); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"title":   title,
	}).Info("Unwatch command handled")
	return nil
}

// List returns the titles on the user's watchlist
func (c *WatchlistController) List(ctx context.Context, userID string) ([]string, error) {
	entries, err := c.store.ListUserEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		titles = append(titles, e.AnimeTitle)
	}
	return titles, nil
}
