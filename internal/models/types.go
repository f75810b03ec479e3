package models

import "time"

// WatchlistEntry is one user's subscription to one anime title
type WatchlistEntry struct {
	UserID     string `json:"user_id"`
	AnimeTitle string `json:"anime_title"`
}

// AnimeMetadata is the provider's current view of a title
type AnimeMetadata struct {
	TitleRomaji       string             `json:"title_romaji"`
	TitleEnglish      string             `json:"title_english,omitempty"`
	CoverImageURL     string             `json:"cover_image_url"`
	NextAiringEpisode *NextAiringEpisode `json:"next_airing_episode,omitempty"` // nil when nothing is scheduled
}

// NextAiringEpisode is the countdown to the next scheduled episode
type NextAiringEpisode struct {
	Episode         int   `json:"episode"`
	TimeUntilAiring int64 `json:"time_until_airing"` // seconds
	AiringAt        int64 `json:"airing_at"`         // unix seconds
}

// NotificationPayload is the structured direct message sent to a user
type NotificationPayload struct {
	Color       int
	Title       string
	Description string
	ImageURL    string
}

// NotificationRecord remembers the last episode a user was told about
type NotificationRecord struct {
	UserID     string
	AnimeTitle string
	Episode    int
	NotifiedAt time.Time
}

// StoreStats summarises the watchlist store
type StoreStats struct {
	Entries int `json:"entries"`
	Users   int `json:"users"`
	Titles  int `json:"titles"`
}
