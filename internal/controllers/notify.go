package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/models"
)

// NotificationColor is the accent colour of notification messages
const NotificationColor = 0x0099ff

var errNoUpcomingEpisode = errors.New("metadata has no upcoming episode")

// NotificationController formats and delivers airing notifications
type NotificationController struct {
	sender  MessageSender
	timeout time.Duration
	logger  *logrus.Logger
}

// NewNotificationController creates a new notification controller
func NewNotificationController(sender MessageSender, timeout time.Duration, logger *logrus.Logger) *NotificationController {
	return &NotificationController{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

// BuildPayload renders the direct message for meta's next episode
func BuildPayload(meta *models.AnimeMetadata) models.NotificationPayload {
	return models.NotificationPayload{
		Color:       NotificationColor,
		Title:       fmt.Sprintf("New Episode of %s", meta.TitleRomaji),
		Description: fmt.Sprintf("Episode %d is airing soon!", meta.NextAiringEpisode.Episode),
		ImageURL:    meta.CoverImageURL,
	}
}

// Send delivers one notification. Failures are returned as *models.DeliveryError
// and are never retried here.
func (c *NotificationController) Send(ctx context.Context, userID string, meta *models.AnimeMetadata) error {
	if meta == nil || meta.NextAiringEpisode == nil {
		title := ""
		if meta != nil {
			title = meta.TitleRomaji
		}
		return &models.DeliveryError{UserID: userID, Title: title, Err: errNoUpcomingEpisode}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.sender.SendDirect(ctx, userID, BuildPayload(meta)); err != nil {
		return &models.DeliveryError{UserID: userID, Title: meta.TitleRomaji, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"title":   meta.TitleRomaji,
		"episode": meta.NextAiringEpisode.Episode,
	}).Debug("Notification sent")

	return nil
}
