package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v4"

	"github.com/amaumene/airingbot/internal/bot"
	"github.com/amaumene/airingbot/internal/config"
	"github.com/amaumene/airingbot/internal/models"
)

const (
	pollTimeout    = 10 * time.Second
	commandTimeout = 30 * time.Second
	loginRetries   = 5
)

// Client is the Telegram session shared by commands and notifications
type Client struct {
	bot    *tele.Bot
	logger *logrus.Logger
}

// NewClient logs in to Telegram, retrying transient failures.
// An invalid token fails immediately.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	settings := tele.Settings{
		URL:    cfg.TelegramAPIURL,
		Token:  cfg.TelegramToken,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: pollTimeout + 20*time.Second},
		OnError: func(err error, c tele.Context) {
			logger.WithError(err).Error("Telegram update handling failed")
		},
	}

	var b *tele.Bot
	login := func() error {
		var err error
		b, err = tele.NewBot(settings)
		if err != nil && isUnauthorized(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait).Warn("Telegram login failed, retrying")
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), loginRetries)
	if err := backoff.RetryNotify(login, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to log in to Telegram: %w", err)
	}

	return &Client{bot: b, logger: logger}, nil
}

func isUnauthorized(err error) bool {
	var te *tele.Error
	return errors.As(err, &te) && te.Code == http.StatusUnauthorized
}

// Username returns the bot's @username
func (c *Client) Username() string {
	if c.bot.Me == nil {
		return ""
	}
	return c.bot.Me.Username
}

// ParseUserID converts a stored user id to a Telegram chat id.
// A user's private chat has the same id as the user.
func ParseUserID(userID string) (tele.ChatID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid telegram user id %q", userID)
	}
	return tele.ChatID(id), nil
}

// Caption renders a payload as Telegram HTML
func Caption(payload models.NotificationPayload) string {
	return "<b>" + html.EscapeString(payload.Title) + "</b>\n" + html.EscapeString(payload.Description)
}

// Render picks the message kind: a photo with caption, or plain text without a cover
func Render(payload models.NotificationPayload) any {
	if payload.ImageURL == "" {
		return Caption(payload)
	}
	return &tele.Photo{File: tele.FromURL(payload.ImageURL), Caption: Caption(payload)}
}

// SendDirect sends payload to the user's private chat.
// telebot takes no context, so when ctx ends first the request is abandoned,
// not cancelled: the message may still arrive after ctx.Err() was returned.
func (c *Client) SendDirect(ctx context.Context, userID string, payload models.NotificationPayload) error {
	chat, err := ParseUserID(userID)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("telegram send panicked: %v", r)
			}
		}()
		_, err := c.bot.Send(chat, Render(payload), tele.ModeHTML)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterCommands routes every command of the table and publishes it
// as the bot's command menu.
func (c *Client) RegisterCommands(table *bot.Table) error {
	menu := make([]tele.Command, 0, len(table.Commands()))
	for _, cmd := range table.Commands() {
		name := cmd.Name
		c.bot.Handle("/"+name, func(tc tele.Context) error {
			return c.handle(tc, table, name)
		})
		menu = append(menu, tele.Command{Text: name, Description: cmd.Description})
	}

	if err := c.bot.SetCommands(menu); err != nil {
		return fmt.Errorf("failed to publish command menu: %w", err)
	}
	return nil
}

func (c *Client) handle(tc tele.Context, table *bot.Table, name string) error {
	sender := tc.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := bot.Request{UserID: strconv.FormatInt(sender.ID, 10)}
	if msg := tc.Message(); msg != nil {
		req.Args = msg.Payload
	}

	reply, ok := table.Dispatch(ctx, name, req)
	if !ok || reply == "" {
		return nil
	}
	return tc.Send(reply, tele.ModeHTML)
}

// Run calls onReady, then polls for updates until ctx is done
func (c *Client) Run(ctx context.Context, onReady func()) {
	c.logger.WithField("username", c.Username()).Info("Logged in to Telegram")
	if onReady != nil {
		onReady()
	}

	if ctx.Err() != nil {
		return
	}

	// Stop blocks until Start receives it, so it is only sent once Start is reached.
	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.bot.Stop()
		case <-finished:
		}
	}()

	c.bot.Start()
	close(finished)
}
