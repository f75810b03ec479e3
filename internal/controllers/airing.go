package controllers

import "github.com/amaumene/airingbot/internal/models"

// AiringThreshold is the window, in seconds, before an episode airs in which
// users are notified. Exactly one hour away does not qualify.
const AiringThreshold = 3600

// ShouldNotify reports whether meta has an episode airing within the threshold
func ShouldNotify(meta *models.AnimeMetadata) bool {
	if meta == nil || meta.NextAiringEpisode == nil {
		return false
	}
	return meta.NextAiringEpisode.TimeUntilAiring < AiringThreshold
}
