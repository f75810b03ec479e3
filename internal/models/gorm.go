package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amaumene/airingbot/internal/utils"
)

type watchlistRow struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     string `gorm:"not null;uniqueIndex:idx_watchlists_user_title"`
	TitleKey   string `gorm:"not null;uniqueIndex:idx_watchlists_user_title"`
	AnimeTitle string `gorm:"not null"`
	CreatedAt  time.Time
}

func (watchlistRow) TableName() string { return "watchlists" }

type notificationRow struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     string `gorm:"not null;uniqueIndex:idx_notifications_user_title"`
	TitleKey   string `gorm:"not null;uniqueIndex:idx_notifications_user_title"`
	Episode    int
	NotifiedAt time.Time
}

func (notificationRow) TableName() string { return "notifications" }

// SQLiteStore keeps the watchlist in a SQLite database through gorm
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the SQLite database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// SQLite prefers a single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&watchlistRow{}, &notificationRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddEntry stores a watchlist entry unless the user already watches the title
func (s *SQLiteStore) AddEntry(ctx context.Context, entry WatchlistEntry) (bool, error) {
	row := watchlistRow{
		UserID:     entry.UserID,
		TitleKey:   utils.NormalizeTitle(entry.AnimeTitle),
		AnimeTitle: entry.AnimeTitle,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, storeErr("add entry", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RemoveEntry deletes the user's entry for a title
func (s *SQLiteStore) RemoveEntry(ctx context.Context, entry WatchlistEntry) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND title_key = ?", entry.UserID, utils.NormalizeTitle(entry.AnimeTitle)).
		Delete(&watchlistRow{})
	if res.Error != nil {
		return storeErr("remove entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUserEntries returns one user's entries in insertion order
func (s *SQLiteStore) ListUserEntries(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	var rows []watchlistRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, storeErr("list user entries", err)
	}

	entries := make([]WatchlistEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, WatchlistEntry{UserID: row.UserID, AnimeTitle: row.AnimeTitle})
	}
	return entries, nil
}

// ListDistinctEntries returns the distinct (user_id, anime_title) pairs
func (s *SQLiteStore) ListDistinctEntries(ctx context.Context) ([]WatchlistEntry, error) {
	var entries []WatchlistEntry
	err := s.db.WithContext(ctx).
		Model(&watchlistRow{}).
		Distinct("user_id", "anime_title").
		Order("anime_title").
		Scan(&entries).Error
	if err != nil {
		return nil, storeErr("list distinct entries", err)
	}
	return entries, nil
}

// LastNotifiedEpisode returns the last episode the user was notified about for a title
func (s *SQLiteStore) LastNotifiedEpisode(ctx context.Context, userID, title string) (int, bool, error) {
	var row notificationRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND title_key = ?", userID, utils.NormalizeTitle(title)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeErr("last notified episode", err)
	}
	return row.Episode, true, nil
}

// MarkNotified records the episode a user was just notified about
func (s *SQLiteStore) MarkNotified(ctx context.Context, rec NotificationRecord) error {
	row := notificationRow{
		UserID:     rec.UserID,
		TitleKey:   utils.NormalizeTitle(rec.AnimeTitle),
		Episode:    rec.Episode,
		NotifiedAt: rec.NotifiedAt,
	}
	if row.NotifiedAt.IsZero() {
		row.NotifiedAt = time.Now()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "title_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"episode", "notified_at"}),
	}).Create(&row).Error
	return storeErr("mark notified", err)
}

// Stats counts entries, users and titles
func (s *SQLiteStore) Stats(ctx context.Context) (StoreStats, error) {
	var entries, users, titles int64
	db := s.db.WithContext(ctx)

	if err := db.Model(&watchlistRow{}).Count(&entries).Error; err != nil {
		return StoreStats{}, storeErr("stats", err)
	}
	if err := db.Model(&watchlistRow{}).Distinct("user_id").Count(&users).Error; err != nil {
		return StoreStats{}, storeErr("stats", err)
	}
	if err := db.Model(&watchlistRow{}).Distinct("title_key").Count(&titles).Error; err != nil {
		return StoreStats{}, storeErr("stats", err)
	}

	return StoreStats{Entries: int(entries), Users: int(users), Titles: int(titles)}, nil
}
